package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
	"github.com/ynnoj/gatsby-source-printful/pkg/node"
)

// openTestStore needs a reachable database in PRINTFUL_TEST_DSN
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PRINTFUL_TEST_DSN")
	if dsn == "" {
		t.Skip("PRINTFUL_TEST_DSN not set")
	}

	table := fmt.Sprintf("printful_nodes_test_%d", time.Now().UnixNano())
	s, err := Open(context.Background(), dsn, table)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		s.db.Exec("DROP TABLE IF EXISTS " + s.table)
		s.Close()
	})
	return s
}

func variantNode(id, name, digest string) *node.Node {
	n := node.New(id, node.TypeVariant)
	n.Fields["name"] = name
	n.Link("parentProduct", "1")
	n.Digest = digest
	return n
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateNode(ctx, variantNode("10", "Tee / S", "d1")); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	got, err := s.GetNode(ctx, "10")
	if err != nil || got == nil {
		t.Fatalf("GetNode: %v, %v", got, err)
	}
	if got.Type != node.TypeVariant || got.Fields["name"] != "Tee / S" || got.Links["parentProduct"] != "1" {
		t.Errorf("Unexpected node: %+v", got)
	}

	if missing, err := s.GetNode(ctx, "404"); err != nil || missing != nil {
		t.Errorf("Expected nil for missing node, got %v, %v", missing, err)
	}
}

func TestStore_RunSemantics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.CreateNode(ctx, variantNode("10", "Tee / S", "d1"))
	s.CreateNode(ctx, variantNode("11", "Tee / M", "d2"))
	if err := s.CreateNode(ctx, variantNode("10", "Tee / S", "d1")); !errors.Is(err, errors.ErrDuplicateNode) {
		t.Errorf("Expected duplicate error, got %v", err)
	}
	if st := s.Stats(); st.Created != 2 {
		t.Errorf("Expected 2 created, got %+v", st)
	}

	s.BeginRun()
	s.CreateNode(ctx, variantNode("10", "Tee / S", "d1"))
	if st := s.Stats(); st.Unchanged != 1 || st.Created != 0 {
		t.Errorf("Expected unchanged re-run, got %+v", st)
	}

	stale, err := s.EndRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0] != "11" {
		t.Errorf("Expected stale [11], got %v", stale)
	}
}

func TestStore_Nodes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.CreateNode(ctx, variantNode("11", "Tee / M", "d2"))
	s.CreateNode(ctx, variantNode("10", "Tee / S", "d1"))

	nodes, err := s.Nodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 || nodes[0].ID != "10" || nodes[1].ID != "11" {
		t.Errorf("Expected sorted nodes [10 11], got %v", nodes)
	}
}

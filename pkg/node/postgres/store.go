package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
	"github.com/ynnoj/gatsby-source-printful/pkg/node"
)

const dbMaxOpenConns = 10

// Store keeps nodes in one Postgres table. It has the same contract as
// node.MemoryStore: one write per id per run, unchanged digests are skipped.
type Store struct {
	db    *sql.DB
	table string

	mu    sync.Mutex
	run   map[string]struct{}
	stats node.Stats
}

// Open connects, pings and makes sure the node table exists
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "open postgres")
	}
	db.SetMaxOpenConns(dbMaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.WrapError(err, errors.ErrConfiguration, "ping postgres")
	}

	s := New(db, table)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool
func New(db *sql.DB, table string) *Store {
	return &Store{
		db:    db,
		table: pq.QuoteIdentifier(table),
		run:   make(map[string]struct{}),
	}
}

// EnsureSchema creates the node table when missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			parent     TEXT,
			digest     TEXT NOT NULL,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create node table: %w", err)
	}
	return nil
}

// BeginRun forgets which ids were written and resets the stats
func (s *Store) BeginRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = make(map[string]struct{})
	s.stats = node.Stats{}
}

// EndRun deletes rows not written since BeginRun and returns their ids
func (s *Store) EndRun(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.run))
	for id := range s.run {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE NOT (id = ANY($1)) RETURNING id`, s.table),
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete stale nodes: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		stale = append(stale, id)
	}
	return stale, rows.Err()
}

// CreateNode upserts n unless its digest is unchanged
func (s *Store) CreateNode(ctx context.Context, n *node.Node) error {
	if n == nil || n.ID == "" || n.Type == "" || n.Digest == "" {
		return errors.WrapError(fmt.Errorf("node is missing id, type or digest"), errors.ErrValidation, "create node")
	}

	s.mu.Lock()
	if _, dup := s.run[n.ID]; dup {
		s.mu.Unlock()
		return errors.WrapError(
			fmt.Errorf("node %q (%s) already created in this run", n.ID, n.Type),
			errors.ErrDuplicateNode,
			"create node",
		)
	}
	s.run[n.ID] = struct{}{}
	s.mu.Unlock()

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode node %s: %w", n.ID, err)
	}

	var inserted bool
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %[1]s (id, type, parent, digest, payload, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			parent = EXCLUDED.parent,
			digest = EXCLUDED.digest,
			payload = EXCLUDED.payload,
			updated_at = now()
		WHERE %[1]s.digest IS DISTINCT FROM EXCLUDED.digest
		   OR %[1]s.type IS DISTINCT FROM EXCLUDED.type
		RETURNING (xmax = 0)`, s.table),
		n.ID, n.Type, n.Parent, n.Digest, payload,
	).Scan(&inserted)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == sql.ErrNoRows:
		s.stats.Unchanged++
		return nil
	case err != nil:
		return fmt.Errorf("failed to upsert node %s: %w", n.ID, err)
	case inserted:
		s.stats.Created++
	default:
		s.stats.Updated++
	}
	return nil
}

// GetNode loads a node, or nil when absent
func (s *Store) GetNode(ctx context.Context, id string) (*node.Node, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, s.table), id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s: %w", id, err)
	}

	var n node.Node
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to decode node %s: %w", id, err)
	}
	return &n, nil
}

// Nodes loads every stored node ordered by type and id
func (s *Store) Nodes(ctx context.Context) ([]*node.Node, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT payload FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var out []*node.Node
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		n := &node.Node{}
		if err := json.Unmarshal(payload, n); err != nil {
			return nil, fmt.Errorf("failed to decode node: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	node.SortByID(out)
	return out, nil
}

// Stats reports counts since BeginRun
func (s *Store) Stats() node.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

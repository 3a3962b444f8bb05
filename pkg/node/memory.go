package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
)

// MemoryStore is a process-wide node store. Within one run every id may be
// written once; a node whose digest matches the stored copy is left alone.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	run   map[string]struct{}
	stats Stats
}

// NewMemoryStore returns an empty store with a run already open
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*Node),
		run:   make(map[string]struct{}),
	}
}

// BeginRun forgets which ids were written and resets the stats
func (s *MemoryStore) BeginRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = make(map[string]struct{})
	s.stats = Stats{}
}

// EndRun deletes nodes not written since BeginRun and returns their ids
func (s *MemoryStore) EndRun() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []string
	for id := range s.nodes {
		if _, ok := s.run[id]; !ok {
			stale = append(stale, id)
			delete(s.nodes, id)
		}
	}
	return stale
}

// CreateNode stores n. A second write of the same id in one run fails with
// ErrDuplicateNode.
func (s *MemoryStore) CreateNode(_ context.Context, n *Node) error {
	if err := check(n); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.run[n.ID]; dup {
		return errors.WrapError(
			fmt.Errorf("node %q (%s) already created in this run", n.ID, n.Type),
			errors.ErrDuplicateNode,
			"create node",
		)
	}
	s.run[n.ID] = struct{}{}

	existing, ok := s.nodes[n.ID]
	switch {
	case ok && existing.Type == n.Type && existing.Digest == n.Digest:
		s.stats.Unchanged++
		return nil
	case ok:
		s.stats.Updated++
	default:
		s.stats.Created++
	}
	s.nodes[n.ID] = n
	return nil
}

// GetNode returns the node or nil when absent
func (s *MemoryStore) GetNode(_ context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id], nil
}

// Stats reports counts since BeginRun
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Nodes returns every stored node ordered by type and id
func (s *MemoryStore) Nodes() []*Node {
	s.mu.RLock()
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	s.mu.RUnlock()

	SortByID(out)
	return out
}

func check(n *Node) error {
	switch {
	case n == nil:
		return errors.WrapError(fmt.Errorf("nil node"), errors.ErrValidation, "create node")
	case n.ID == "":
		return errors.WrapError(fmt.Errorf("node of type %s has no id", n.Type), errors.ErrValidation, "create node")
	case n.Type == "":
		return errors.WrapError(fmt.Errorf("node %q has no type", n.ID), errors.ErrValidation, "create node")
	case n.Digest == "":
		return errors.WrapError(fmt.Errorf("node %q has no digest", n.ID), errors.ErrValidation, "create node")
	}
	return nil
}

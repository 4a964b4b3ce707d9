package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"communiserver/internal/location/models"
	"communiserver/pkg/platform/sentinel"
)

// MemoryStore is an in-memory hierarchy used by unit tests and local runs.
// Insertion always attaches to an existing parent, so cycles cannot form.
type MemoryStore struct {
	mu       sync.RWMutex
	nodes    map[uuid.UUID]models.Node
	children map[uuid.UUID][]uuid.UUID
}

// NewMemory constructs an empty in-memory hierarchy.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		nodes:    make(map[uuid.UUID]models.Node),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Add inserts a node. Non-province nodes must reference an existing parent.
func (s *MemoryStore) Add(node models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.Kind != models.KindProvince {
		if node.ParentID == nil {
			return fmt.Errorf("node %s (%s) requires a parent", node.Name, node.Kind)
		}
		if _, ok := s.nodes[*node.ParentID]; !ok {
			return fmt.Errorf("parent %s of node %s does not exist", node.ParentID, node.Name)
		}
	}

	s.nodes[node.ID] = node
	if node.ParentID != nil {
		s.children[*node.ParentID] = append(s.children[*node.ParentID], node.ID)
	}
	return nil
}

func (s *MemoryStore) Node(ctx context.Context, id uuid.UUID) (models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return models.Node{}, fmt.Errorf("location %s: %w", id, sentinel.ErrNotFound)
	}
	return node, nil
}

func (s *MemoryStore) AncestorChain(ctx context.Context, id uuid.UUID) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, sentinel.ErrNotFound)
	}

	chain := []models.Node{node}
	for node.ParentID != nil {
		parent, ok := s.nodes[*node.ParentID]
		if !ok {
			return nil, fmt.Errorf("parent %s of %s: %w", node.ParentID, node.ID, sentinel.ErrNotFound)
		}
		chain = append(chain, parent)
		node = parent
	}
	return chain, nil
}

func (s *MemoryStore) Children(ctx context.Context, id uuid.UUID, kind models.Kind) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, fmt.Errorf("location %s: %w", id, sentinel.ErrNotFound)
	}

	var out []models.Node
	for _, childID := range s.children[id] {
		child := s.nodes[childID]
		if kind == models.KindAny || child.Kind == kind {
			out = append(out, child)
		}
	}
	return out, nil
}

func (s *MemoryStore) DescendantIDs(ctx context.Context, id uuid.UUID, kind models.Kind) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, fmt.Errorf("location %s: %w", id, sentinel.ErrNotFound)
	}

	var out []uuid.UUID
	queue := append([]uuid.UUID(nil), s.children[id]...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := s.nodes[current]
		if kind == models.KindAny || node.Kind == kind {
			out = append(out, current)
		}
		queue = append(queue, s.children[current]...)
	}
	return out, nil
}

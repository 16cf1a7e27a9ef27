package social

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type edgeKey struct {
	t    EdgeType
	from string
	to   string
}

// MemoryStore is an in-memory edge store for tests and local
// development. Counter deltas are applied through the injected applier
// under the store lock, so an edge mutation and its counter adjustments
// are atomic to concurrent observers; if the applier fails the edge
// change is rolled back.
type MemoryStore struct {
	mu       sync.Mutex
	edges    map[edgeKey]*Edge
	counters CounterApplier
}

// NewMemoryStore creates an empty in-memory edge store.
func NewMemoryStore(counters CounterApplier) *MemoryStore {
	return &MemoryStore{
		edges:    make(map[edgeKey]*Edge),
		counters: counters,
	}
}

func normalize(t EdgeType, fromID, toID string) (string, string) {
	if t.Undirected() && toID < fromID {
		return toID, fromID
	}
	return fromID, toID
}

// CreateEdge implements Store.
func (s *MemoryStore) CreateEdge(ctx context.Context, t EdgeType, fromID, toID string) (*Edge, bool, error) {
	if !t.Valid() {
		return nil, false, fmt.Errorf("invalid edge type %q", t)
	}
	if fromID == toID {
		return nil, false, ErrSelfEdge
	}
	fromID, toID = normalize(t, fromID, toID)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{t, fromID, toID}
	if existing, ok := s.edges[key]; ok {
		copied := *existing
		return &copied, false, nil
	}

	edge := &Edge{Type: t, FromID: fromID, ToID: toID, CreatedAt: time.Now()}
	if t == EdgeJoinRequest {
		edge.State = StatePending
	}

	s.edges[key] = edge
	if err := s.applyDeltas(ctx, DeltasForCreate(edge)); err != nil {
		delete(s.edges, key)
		return nil, false, fmt.Errorf("counter adjustment failed: %w", err)
	}

	copied := *edge
	return &copied, true, nil
}

// RemoveEdge implements Store.
func (s *MemoryStore) RemoveEdge(ctx context.Context, t EdgeType, fromID, toID string) (bool, error) {
	fromID, toID = normalize(t, fromID, toID)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{t, fromID, toID}
	edge, ok := s.edges[key]
	if !ok {
		return false, nil
	}

	delete(s.edges, key)
	if err := s.applyDeltas(ctx, DeltasForRemove(edge)); err != nil {
		s.edges[key] = edge
		return false, fmt.Errorf("counter adjustment failed: %w", err)
	}
	return true, nil
}

// FindEdges implements Store.
func (s *MemoryStore) FindEdges(ctx context.Context, f Filter) ([]*Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Edge
	for _, e := range s.edges {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.FromID != "" && e.FromID != f.FromID {
			continue
		}
		if f.ToID != "" && e.ToID != f.ToID {
			continue
		}
		if f.State != StateNone && e.State != f.State {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

// ResolveJoinRequest implements Store.
func (s *MemoryStore) ResolveJoinRequest(ctx context.Context, userID, groupID string, approve bool) (*Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{EdgeJoinRequest, userID, groupID}
	request, ok := s.edges[key]
	if !ok {
		return nil, ErrNotFound
	}
	if request.State != StatePending {
		return nil, fmt.Errorf("%w: request is %s", ErrConflictingState, request.State)
	}

	before := *request
	after := before
	if approve {
		after.State = StateApproved
	} else {
		after.State = StateRejected
	}

	deltas := DeltasForTransition(&before, &after)

	var membership *Edge
	membershipKey := edgeKey{EdgeMembership, userID, groupID}
	if approve {
		if _, exists := s.edges[membershipKey]; !exists {
			membership = &Edge{Type: EdgeMembership, FromID: userID, ToID: groupID, CreatedAt: time.Now()}
			deltas = append(deltas, DeltasForCreate(membership)...)
		}
	}

	s.edges[key] = &after
	if membership != nil {
		s.edges[membershipKey] = membership
	}
	if err := s.applyDeltas(ctx, deltas); err != nil {
		s.edges[key] = &before
		if membership != nil {
			delete(s.edges, membershipKey)
		}
		return nil, fmt.Errorf("counter adjustment failed: %w", err)
	}

	copied := after
	return &copied, nil
}

func (s *MemoryStore) applyDeltas(ctx context.Context, deltas []CounterDelta) error {
	if s.counters == nil {
		return nil
	}
	for i, d := range deltas {
		if err := s.counters.ApplyCounterDelta(ctx, d); err != nil {
			// Undo the deltas already applied so the rollback in the
			// caller leaves counters untouched.
			for _, applied := range negate(deltas[:i]) {
				_ = s.counters.ApplyCounterDelta(ctx, applied)
			}
			return err
		}
	}
	return nil
}

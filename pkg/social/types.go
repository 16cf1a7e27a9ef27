package social

import (
	"context"
	"errors"
	"time"
)

// EdgeType represents a kind of social-graph relationship.
type EdgeType string

const (
	EdgeMembership  EdgeType = "membership"  // user -> group
	EdgeFriendship  EdgeType = "friendship"  // user <-> user (undirected)
	EdgeFollow      EdgeType = "follow"      // user -> user
	EdgeJoinRequest EdgeType = "joinRequest" // user -> group, stateful
	EdgeLike        EdgeType = "like"        // user -> movie
)

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeMembership, EdgeFriendship, EdgeFollow, EdgeJoinRequest, EdgeLike:
		return true
	}
	return false
}

// Undirected reports whether (from, to) and (to, from) address the same
// logical edge. Stores normalize the pair for undirected types.
func (t EdgeType) Undirected() bool {
	return t == EdgeFriendship
}

// RequestState is the lifecycle state of a join request. Other edge
// types carry no state.
type RequestState string

const (
	StateNone     RequestState = ""
	StatePending  RequestState = "pending"
	StateApproved RequestState = "approved"
	StateRejected RequestState = "rejected"
)

// Edge is a relationship record between two principal/group/movie ids.
// Edges are the source of truth for the social graph; every counter is
// a derived view over them.
type Edge struct {
	Type      EdgeType     `json:"type"`
	FromID    string       `json:"from_id"`
	ToID      string       `json:"to_id"`
	State     RequestState `json:"state,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Filter selects edges in FindEdges. Zero-valued fields match
// everything.
type Filter struct {
	Type   EdgeType
	FromID string
	ToID   string
	State  RequestState
}

var (
	// ErrNotFound means the addressed edge does not exist.
	ErrNotFound = errors.New("edge not found")
	// ErrConflictingState means a join-request transition was attempted
	// from a terminal state.
	ErrConflictingState = errors.New("conflicting request state")
	// ErrSelfEdge means both endpoints of the edge are the same id.
	ErrSelfEdge = errors.New("edge endpoints must differ")
)

// Store is the relationship edge store. Creation and removal are
// idempotent: re-creating a present edge and removing an absent one are
// no-ops, reported through the boolean results. Implementations apply
// each edge mutation and its counter adjustments as one atomic unit.
type Store interface {
	// CreateEdge inserts the edge if absent. created is false when an
	// edge with the same (type, from, to) already existed; in that case
	// no counter is adjusted.
	CreateEdge(ctx context.Context, t EdgeType, fromID, toID string) (edge *Edge, created bool, err error)

	// RemoveEdge deletes the edge if present. removed is false when no
	// such edge existed; in that case no counter is adjusted.
	RemoveEdge(ctx context.Context, t EdgeType, fromID, toID string) (removed bool, err error)

	// FindEdges returns all edges matching the filter.
	FindEdges(ctx context.Context, f Filter) ([]*Edge, error)

	// ResolveJoinRequest transitions a pending join request to approved
	// or rejected. Approval also creates the membership edge. Both the
	// state change and every counter delta commit atomically. Fails
	// with ErrNotFound when no request exists and ErrConflictingState
	// when the request is already terminal.
	ResolveJoinRequest(ctx context.Context, userID, groupID string, approve bool) (*Edge, error)
}

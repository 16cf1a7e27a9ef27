package store

import (
	"context"
	"fmt"

	"github.com/moviecrew/moviecrew/pkg/access"
	"github.com/moviecrew/moviecrew/pkg/social"
)

// EdgeResolver adapts the social edge store to the ownership resolver's
// edge lookups.
type EdgeResolver struct {
	edges social.Store
}

// NewEdgeResolver creates the adapter.
func NewEdgeResolver(edges social.Store) *EdgeResolver {
	return &EdgeResolver{edges: edges}
}

// HasEdge implements access.EdgeDirectory. Undirected relationships are
// checked in both orders because the caller does not know the stored
// normalization.
func (r *EdgeResolver) HasEdge(ctx context.Context, resource access.Resource, fromID, toID string) (bool, error) {
	var t social.EdgeType
	switch resource {
	case access.ResourceFriend:
		t = social.EdgeFriendship
	case access.ResourceFollowUser:
		t = social.EdgeFollow
	case access.ResourceLike:
		t = social.EdgeLike
	default:
		return false, fmt.Errorf("resource %q is not edge-backed", resource)
	}

	edges, err := r.edges.FindEdges(ctx, social.Filter{Type: t, FromID: fromID, ToID: toID})
	if err != nil {
		return false, err
	}
	if len(edges) > 0 {
		return true, nil
	}
	if t.Undirected() {
		edges, err = r.edges.FindEdges(ctx, social.Filter{Type: t, FromID: toID, ToID: fromID})
		if err != nil {
			return false, err
		}
		return len(edges) > 0, nil
	}
	return false, nil
}

package social

import (
	"context"

	"github.com/moviecrew/moviecrew/pkg/observability"
)

// Service exposes the social-graph operations route handlers call. It
// is a thin layer over the edge store: authorization has already
// happened by the time a Service method runs, and counter consistency
// is the store's job.
type Service struct {
	store   Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a social-graph service.
func NewService(store Store, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: metrics}
}

func (s *Service) created(edge *Edge, created bool) {
	if created && s.metrics != nil {
		s.metrics.ObserveEdgeMutation(string(edge.Type), "create")
	}
}

func (s *Service) removed(t EdgeType, removed bool) {
	if removed && s.metrics != nil {
		s.metrics.ObserveEdgeMutation(string(t), "remove")
	}
}

// FollowUser makes follower follow followee. Idempotent.
func (s *Service) FollowUser(ctx context.Context, followerID, followeeID string) (*Edge, error) {
	edge, created, err := s.store.CreateEdge(ctx, EdgeFollow, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	s.created(edge, created)
	return edge, nil
}

// UnfollowUser removes a follow edge. Idempotent.
func (s *Service) UnfollowUser(ctx context.Context, followerID, followeeID string) (bool, error) {
	removed, err := s.store.RemoveEdge(ctx, EdgeFollow, followerID, followeeID)
	if err != nil {
		return false, err
	}
	s.removed(EdgeFollow, removed)
	return removed, nil
}

// Befriend creates an undirected friendship between two users.
func (s *Service) Befriend(ctx context.Context, userID, friendID string) (*Edge, error) {
	edge, created, err := s.store.CreateEdge(ctx, EdgeFriendship, userID, friendID)
	if err != nil {
		return nil, err
	}
	s.created(edge, created)
	return edge, nil
}

// Unfriend removes a friendship. Idempotent.
func (s *Service) Unfriend(ctx context.Context, userID, friendID string) (bool, error) {
	removed, err := s.store.RemoveEdge(ctx, EdgeFriendship, userID, friendID)
	if err != nil {
		return false, err
	}
	s.removed(EdgeFriendship, removed)
	return removed, nil
}

// LikeMovie records that a user likes a movie. Idempotent.
func (s *Service) LikeMovie(ctx context.Context, userID, movieID string) (*Edge, error) {
	edge, created, err := s.store.CreateEdge(ctx, EdgeLike, userID, movieID)
	if err != nil {
		return nil, err
	}
	s.created(edge, created)
	return edge, nil
}

// UnlikeMovie removes a like. Idempotent.
func (s *Service) UnlikeMovie(ctx context.Context, userID, movieID string) (bool, error) {
	removed, err := s.store.RemoveEdge(ctx, EdgeLike, userID, movieID)
	if err != nil {
		return false, err
	}
	s.removed(EdgeLike, removed)
	return removed, nil
}

// RequestJoin creates a pending join request for the group. Idempotent:
// retrying an existing request does not bump the request counter.
func (s *Service) RequestJoin(ctx context.Context, userID, groupID string) (*Edge, error) {
	edge, created, err := s.store.CreateEdge(ctx, EdgeJoinRequest, userID, groupID)
	if err != nil {
		return nil, err
	}
	s.created(edge, created)
	return edge, nil
}

// CancelJoinRequest withdraws a join request.
func (s *Service) CancelJoinRequest(ctx context.Context, userID, groupID string) (bool, error) {
	removed, err := s.store.RemoveEdge(ctx, EdgeJoinRequest, userID, groupID)
	if err != nil {
		return false, err
	}
	s.removed(EdgeJoinRequest, removed)
	return removed, nil
}

// ApproveJoinRequest approves a pending request, creating the
// membership edge in the same transaction.
func (s *Service) ApproveJoinRequest(ctx context.Context, userID, groupID string) (*Edge, error) {
	edge, err := s.store.ResolveJoinRequest(ctx, userID, groupID, true)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveEdgeMutation(string(EdgeMembership), "create")
	}
	s.logger.WithFields(map[string]interface{}{
		"user_id":  userID,
		"group_id": groupID,
	}).Info("join request approved")
	return edge, nil
}

// RejectJoinRequest rejects a pending request. Terminal.
func (s *Service) RejectJoinRequest(ctx context.Context, userID, groupID string) (*Edge, error) {
	return s.store.ResolveJoinRequest(ctx, userID, groupID, false)
}

// LeaveGroup removes a membership edge. Idempotent.
func (s *Service) LeaveGroup(ctx context.Context, userID, groupID string) (bool, error) {
	removed, err := s.store.RemoveEdge(ctx, EdgeMembership, userID, groupID)
	if err != nil {
		return false, err
	}
	s.removed(EdgeMembership, removed)
	return removed, nil
}

// Followers lists follow edges pointing at the user.
func (s *Service) Followers(ctx context.Context, userID string) ([]*Edge, error) {
	return s.store.FindEdges(ctx, Filter{Type: EdgeFollow, ToID: userID})
}

// Following lists follow edges originating from the user.
func (s *Service) Following(ctx context.Context, userID string) ([]*Edge, error) {
	return s.store.FindEdges(ctx, Filter{Type: EdgeFollow, FromID: userID})
}

// Friends lists friendship edges touching the user. Friendships are
// normalized, so the user may appear on either end.
func (s *Service) Friends(ctx context.Context, userID string) ([]*Edge, error) {
	asFrom, err := s.store.FindEdges(ctx, Filter{Type: EdgeFriendship, FromID: userID})
	if err != nil {
		return nil, err
	}
	asTo, err := s.store.FindEdges(ctx, Filter{Type: EdgeFriendship, ToID: userID})
	if err != nil {
		return nil, err
	}
	return append(asFrom, asTo...), nil
}

// LikedMovies lists like edges originating from the user.
func (s *Service) LikedMovies(ctx context.Context, userID string) ([]*Edge, error) {
	return s.store.FindEdges(ctx, Filter{Type: EdgeLike, FromID: userID})
}

// GroupMembers lists membership edges for the group.
func (s *Service) GroupMembers(ctx context.Context, groupID string) ([]*Edge, error) {
	return s.store.FindEdges(ctx, Filter{Type: EdgeMembership, ToID: groupID})
}

// PendingRequests lists pending join requests for the group.
func (s *Service) PendingRequests(ctx context.Context, groupID string) ([]*Edge, error) {
	return s.store.FindEdges(ctx, Filter{Type: EdgeJoinRequest, ToID: groupID, State: StatePending})
}

// HasEdge reports whether an edge exists, normalizing undirected pairs.
func (s *Service) HasEdge(ctx context.Context, t EdgeType, fromID, toID string) (bool, error) {
	fromID, toID = normalize(t, fromID, toID)
	edges, err := s.store.FindEdges(ctx, Filter{Type: t, FromID: fromID, ToID: toID})
	if err != nil {
		return false, err
	}
	return len(edges) > 0, nil
}

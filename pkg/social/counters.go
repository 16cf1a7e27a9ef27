package social

import (
	"context"
	"fmt"
)

// Counter identifies one denormalized integer field on an owning
// entity. Invariant: a counter's value always equals the count of edges
// of the corresponding type and state referencing that entity. Counters
// are never settable by client input.
type Counter string

const (
	CounterGroupMembers  Counter = "group_members"
	CounterGroupRequests Counter = "group_requests"
	CounterUserFollowers Counter = "user_followers"
	CounterUserFollowing Counter = "user_following"
	CounterUserFriends   Counter = "user_friends"
	CounterMovieLikes    Counter = "movie_likes"
)

// CounterDelta is one ±1 adjustment to a counter on a specific entity.
type CounterDelta struct {
	Counter  Counter
	EntityID string
	Delta    int
}

// contributions returns the counter contributions of an edge as it
// currently exists. This is the single source of truth for the
// edge-to-counter mapping: creation applies it, removal applies its
// negation, and a state transition applies the difference between the
// old and new contributions.
func contributions(e *Edge) []CounterDelta {
	switch e.Type {
	case EdgeMembership:
		return []CounterDelta{{CounterGroupMembers, e.ToID, 1}}
	case EdgeFriendship:
		return []CounterDelta{
			{CounterUserFriends, e.FromID, 1},
			{CounterUserFriends, e.ToID, 1},
		}
	case EdgeFollow:
		return []CounterDelta{
			{CounterUserFollowing, e.FromID, 1},
			{CounterUserFollowers, e.ToID, 1},
		}
	case EdgeJoinRequest:
		// Only pending requests are counted; terminal requests have no
		// counter footprint.
		if e.State == StatePending {
			return []CounterDelta{{CounterGroupRequests, e.ToID, 1}}
		}
		return nil
	case EdgeLike:
		return []CounterDelta{{CounterMovieLikes, e.ToID, 1}}
	}
	return nil
}

func negate(deltas []CounterDelta) []CounterDelta {
	out := make([]CounterDelta, len(deltas))
	for i, d := range deltas {
		out[i] = CounterDelta{d.Counter, d.EntityID, -d.Delta}
	}
	return out
}

// DeltasForCreate returns the adjustments for creating edge e.
func DeltasForCreate(e *Edge) []CounterDelta {
	return contributions(e)
}

// DeltasForRemove returns the adjustments for removing edge e.
func DeltasForRemove(e *Edge) []CounterDelta {
	return negate(contributions(e))
}

// DeltasForTransition returns the adjustments for changing edge state
// in place.
func DeltasForTransition(before, after *Edge) []CounterDelta {
	return append(negate(contributions(before)), contributions(after)...)
}

// CounterApplier applies a counter delta to the owning entity's record.
// Implementations are invoked inside the same logical transaction as
// the edge mutation that produced the delta.
type CounterApplier interface {
	ApplyCounterDelta(ctx context.Context, d CounterDelta) error
}

// CounterInvalidator is told which counters changed after an edge
// mutation commits, so read-through entity caches can drop the affected
// records. It is a post-commit notification, not part of the
// transaction; implementations must tolerate ids they have never seen.
type CounterInvalidator interface {
	InvalidateCounters(ctx context.Context, deltas []CounterDelta)
}

// CounterTarget maps a counter to its SQL table and column.
func CounterTarget(c Counter) (table, column string, err error) {
	switch c {
	case CounterGroupMembers:
		return "groups", "members_count", nil
	case CounterGroupRequests:
		return "groups", "requests_count", nil
	case CounterUserFollowers:
		return "users", "followers_count", nil
	case CounterUserFollowing:
		return "users", "following_count", nil
	case CounterUserFriends:
		return "users", "friends_count", nil
	case CounterMovieLikes:
		return "movies", "likes_count", nil
	}
	return "", "", fmt.Errorf("unknown counter %q", c)
}

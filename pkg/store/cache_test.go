package store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviecrew/moviecrew/pkg/observability"
	"github.com/moviecrew/moviecrew/pkg/social"
)

func newCachedStore(t *testing.T) (*CachedStore, *MemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := NewMemoryStore()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewCachedStore(inner, client, time.Minute, logger, nil), inner, mr
}

func TestCachedGetUser(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	ctx := context.Background()

	u := &User{Username: "alice"}
	require.NoError(t, inner.CreateUser(ctx, u))

	// First read populates the cache
	got, err := cached.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, mr.Exists("moviecrew:user:"+u.ID))

	// Second read is served from the cache even if the store changes
	// underneath
	require.NoError(t, inner.DeleteUser(ctx, u.ID))
	got, err = cached.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestCachedUpdateInvalidates(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	ctx := context.Background()

	u := &User{Username: "alice"}
	require.NoError(t, inner.CreateUser(ctx, u))

	_, err := cached.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("moviecrew:user:"+u.ID))

	name := "bob"
	_, err = cached.UpdateUser(ctx, u.ID, UserUpdate{Username: &name})
	require.NoError(t, err)
	assert.False(t, mr.Exists("moviecrew:user:"+u.ID))

	got, err := cached.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
}

func TestCachedDeleteInvalidates(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	ctx := context.Background()

	m := &Movie{Title: "Heat", CreatorID: "u-1"}
	require.NoError(t, inner.CreateMovie(ctx, m))

	_, err := cached.GetMovie(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("moviecrew:movie:"+m.ID))

	require.NoError(t, cached.DeleteMovie(ctx, m.ID))
	assert.False(t, mr.Exists("moviecrew:movie:"+m.ID))

	_, err = cached.GetMovie(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedCounterWriteInvalidates(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	edges := social.NewMemoryStore(cached)
	ctx := context.Background()

	g := &Group{Name: "Film Club", CreatorID: "u-1"}
	require.NoError(t, inner.CreateGroup(ctx, g))

	// Warm the cache before any membership exists
	got, err := cached.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	require.Zero(t, got.MembersCount)
	require.True(t, mr.Exists("moviecrew:group:"+g.ID))

	u := &User{Username: "alice"}
	require.NoError(t, inner.CreateUser(ctx, u))
	_, _, err = edges.CreateEdge(ctx, social.EdgeMembership, u.ID, g.ID)
	require.NoError(t, err)

	// The counter write dropped the cached group, so the read reflects
	// the new membership instead of the warmed value.
	assert.False(t, mr.Exists("moviecrew:group:"+g.ID))
	got, err = cached.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MembersCount)
}

func TestCachedInvalidateCounters(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	ctx := context.Background()

	u := &User{Username: "alice"}
	require.NoError(t, inner.CreateUser(ctx, u))

	_, err := cached.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("moviecrew:user:"+u.ID))

	cached.InvalidateCounters(ctx, []social.CounterDelta{
		{Counter: social.CounterUserFollowers, EntityID: u.ID, Delta: 1},
	})
	assert.False(t, mr.Exists("moviecrew:user:"+u.ID))
}

func TestCachedCorruptEntryDropped(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	ctx := context.Background()

	g := &Group{Name: "Club", CreatorID: "u-1"}
	require.NoError(t, inner.CreateGroup(ctx, g))

	require.NoError(t, mr.Set("moviecrew:group:"+g.ID, "{not json"))

	// The corrupt entry is discarded and the read falls through
	got, err := cached.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Club", got.Name)
}

func TestCachedDegradesWithoutRedis(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	ctx := context.Background()

	u := &User{Username: "alice"}
	require.NoError(t, inner.CreateUser(ctx, u))

	mr.Close()

	// Reads still work straight from the inner store
	got, err := cached.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

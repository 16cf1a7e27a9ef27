package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	idAlice = "7f2d4c1a-9b3e-4f5a-8c6d-1e2f3a4b5c6d"
	idBob   = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
	idMovie = "5a6b7c8d-9e0f-4a1b-8c2d-3e4f5a6b7c8d"
)

type fakeDirectory struct {
	users    map[string]bool
	creators map[string]string
	edges    map[string]bool
	delay    time.Duration
}

func (d *fakeDirectory) UserExists(ctx context.Context, id string) (bool, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return d.users[id], nil
}

func (d *fakeDirectory) MovieCreator(ctx context.Context, id string) (string, error) {
	creator, ok := d.creators[id]
	if !ok {
		return "", ErrNotFound
	}
	return creator, nil
}

func (d *fakeDirectory) GroupCreator(ctx context.Context, id string) (string, error) {
	return d.MovieCreator(ctx, id)
}

func (d *fakeDirectory) HasEdge(ctx context.Context, resource Resource, fromID, toID string) (bool, error) {
	return d.edges[string(resource)+":"+fromID+":"+toID], nil
}

func TestResolveOwners_User(t *testing.T) {
	dir := &fakeDirectory{users: map[string]bool{idAlice: true}}
	r := NewStoreResolver(dir, dir)

	owners, err := r.ResolveOwners(context.Background(), ResourceUser, idAlice)
	require.NoError(t, err)
	assert.Equal(t, []string{idAlice}, owners, "a user owns itself")

	_, err = r.ResolveOwners(context.Background(), ResourceUser, idBob)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveOwners_Entities(t *testing.T) {
	dir := &fakeDirectory{creators: map[string]string{idMovie: idAlice}}
	r := NewStoreResolver(dir, dir)

	owners, err := r.ResolveOwners(context.Background(), ResourceMovie, idMovie)
	require.NoError(t, err)
	assert.Equal(t, []string{idAlice}, owners)

	_, err = r.ResolveOwners(context.Background(), ResourceGroup, idMovie)
	require.NoError(t, err)
}

func TestResolveOwners_Edges(t *testing.T) {
	dir := &fakeDirectory{edges: map[string]bool{
		"followUser:" + idAlice + ":" + idBob: true,
	}}
	r := NewStoreResolver(dir, dir)

	owners, err := r.ResolveOwners(context.Background(), ResourceFollowUser, idAlice+":"+idBob)
	require.NoError(t, err)
	assert.Equal(t, []string{idAlice, idBob}, owners, "both endpoints own an edge")

	_, err = r.ResolveOwners(context.Background(), ResourceFollowUser, idBob+":"+idAlice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveOwners_MalformedIDs(t *testing.T) {
	dir := &fakeDirectory{}
	r := NewStoreResolver(dir, dir)

	tests := []struct {
		resource Resource
		id       string
	}{
		{ResourceUser, "42"},
		{ResourceMovie, "drop table movies"},
		{ResourceFriend, idAlice},
		{ResourceFriend, idAlice + ":nope"},
		{ResourceFriend, "nope:" + idBob},
	}
	for _, tt := range tests {
		_, err := r.ResolveOwners(context.Background(), tt.resource, tt.id)
		assert.ErrorIs(t, err, ErrInvalidReference, "%s %q", tt.resource, tt.id)
	}
}

func TestResolveOwners_UnknownResource(t *testing.T) {
	dir := &fakeDirectory{}
	r := NewStoreResolver(dir, dir)

	_, err := r.ResolveOwners(context.Background(), Resource("widget"), idAlice)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestResolveOwners_TimeoutBecomesNotFound(t *testing.T) {
	dir := &fakeDirectory{users: map[string]bool{idAlice: true}, delay: 50 * time.Millisecond}
	r := NewStoreResolver(dir, dir).WithTimeout(time.Millisecond)

	_, err := r.ResolveOwners(context.Background(), ResourceUser, idAlice)
	assert.ErrorIs(t, err, ErrNotFound, "a slow store denies rather than hangs")
}

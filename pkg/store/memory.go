package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moviecrew/moviecrew/pkg/social"
)

// MemoryStore is an in-memory Store used in tests and local
// development.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	movies map[string]*Movie
	groups map[string]*Group
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*User),
		movies: make(map[string]*Movie),
		groups: make(map[string]*Group),
	}
}

func copyUser(u *User) *User {
	c := *u
	return &c
}

func copyMovie(m *Movie) *Movie {
	c := *m
	return &c
}

func copyGroup(g *Group) *Group {
	c := *g
	return &c
}

// CreateUser stores a new user, assigning an id and timestamps.
func (s *MemoryStore) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := s.users[u.ID]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = copyUser(u)
	return nil
}

// GetUser fetches a user by id.
func (s *MemoryStore) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

// ListUsers returns all users.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	return out, nil
}

// UpdateUser applies the non-nil fields of upd.
func (s *MemoryStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	u.UpdatedAt = time.Now().UTC()
	return copyUser(u), nil
}

// DeleteUser removes a user by id.
func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// CreateMovie stores a new movie, assigning an id and timestamps.
func (s *MemoryStore) CreateMovie(ctx context.Context, m *Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if _, ok := s.movies[m.ID]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	s.movies[m.ID] = copyMovie(m)
	return nil
}

// GetMovie fetches a movie by id.
func (s *MemoryStore) GetMovie(ctx context.Context, id string) (*Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMovie(m), nil
}

// ListMovies returns all movies.
func (s *MemoryStore) ListMovies(ctx context.Context) ([]*Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, copyMovie(m))
	}
	return out, nil
}

// UpdateMovie applies the non-nil fields of upd.
func (s *MemoryStore) UpdateMovie(ctx context.Context, id string, upd MovieUpdate) (*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		m.Title = *upd.Title
	}
	if upd.Overview != nil {
		m.Overview = *upd.Overview
	}
	m.UpdatedAt = time.Now().UTC()
	return copyMovie(m), nil
}

// DeleteMovie removes a movie by id.
func (s *MemoryStore) DeleteMovie(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[id]; !ok {
		return ErrNotFound
	}
	delete(s.movies, id)
	return nil
}

// CreateGroup stores a new group, assigning an id, slug and timestamps.
// Group names are unique.
func (s *MemoryStore) CreateGroup(ctx context.Context, g *Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.groups {
		if existing.Name == g.Name {
			return ErrAlreadyExists
		}
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if _, ok := s.groups[g.ID]; ok {
		return ErrAlreadyExists
	}
	g.Slug = Slugify(g.Name)
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	s.groups[g.ID] = copyGroup(g)
	return nil
}

// GetGroup fetches a group by id.
func (s *MemoryStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGroup(g), nil
}

// GetGroupBySlug fetches a group by its slug.
func (s *MemoryStore) GetGroupBySlug(ctx context.Context, slug string) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.Slug == slug {
			return copyGroup(g), nil
		}
	}
	return nil, ErrNotFound
}

// ListGroups returns all groups.
func (s *MemoryStore) ListGroups(ctx context.Context) ([]*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, copyGroup(g))
	}
	return out, nil
}

// UpdateGroup applies the non-nil fields of upd.
func (s *MemoryStore) UpdateGroup(ctx context.Context, id string, upd GroupUpdate) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Description != nil {
		g.Description = *upd.Description
	}
	g.UpdatedAt = time.Now().UTC()
	return copyGroup(g), nil
}

// DeleteGroup removes a group by id.
func (s *MemoryStore) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return ErrNotFound
	}
	delete(s.groups, id)
	return nil
}

// UserExists implements access.EntityDirectory.
func (s *MemoryStore) UserExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[id]
	return ok, nil
}

// MovieCreator implements access.EntityDirectory.
func (s *MemoryStore) MovieCreator(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movies[id]
	if !ok {
		return "", ErrNotFound
	}
	return m.CreatorID, nil
}

// GroupCreator implements access.EntityDirectory.
func (s *MemoryStore) GroupCreator(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return "", ErrNotFound
	}
	return g.CreatorID, nil
}

// ApplyCounterDelta implements social.CounterApplier by adjusting the
// counter field on the owning entity. Missing entities fail so the edge
// store can roll back.
func (s *MemoryStore) ApplyCounterDelta(ctx context.Context, d social.CounterDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch d.Counter {
	case social.CounterGroupMembers:
		g, ok := s.groups[d.EntityID]
		if !ok {
			return fmt.Errorf("counter %s: group %s: %w", d.Counter, d.EntityID, ErrNotFound)
		}
		g.MembersCount += d.Delta
	case social.CounterGroupRequests:
		g, ok := s.groups[d.EntityID]
		if !ok {
			return fmt.Errorf("counter %s: group %s: %w", d.Counter, d.EntityID, ErrNotFound)
		}
		g.RequestsCount += d.Delta
	case social.CounterUserFollowers:
		u, ok := s.users[d.EntityID]
		if !ok {
			return fmt.Errorf("counter %s: user %s: %w", d.Counter, d.EntityID, ErrNotFound)
		}
		u.FollowersCount += d.Delta
	case social.CounterUserFollowing:
		u, ok := s.users[d.EntityID]
		if !ok {
			return fmt.Errorf("counter %s: user %s: %w", d.Counter, d.EntityID, ErrNotFound)
		}
		u.FollowingCount += d.Delta
	case social.CounterUserFriends:
		u, ok := s.users[d.EntityID]
		if !ok {
			return fmt.Errorf("counter %s: user %s: %w", d.Counter, d.EntityID, ErrNotFound)
		}
		u.FriendsCount += d.Delta
	case social.CounterMovieLikes:
		m, ok := s.movies[d.EntityID]
		if !ok {
			return fmt.Errorf("counter %s: movie %s: %w", d.Counter, d.EntityID, ErrNotFound)
		}
		m.LikesCount += d.Delta
	default:
		return fmt.Errorf("unknown counter %q", d.Counter)
	}
	return nil
}

// SnapshotCounters implements social.CounterSource.
func (s *MemoryStore) SnapshotCounters(ctx context.Context) ([]social.CounterSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []social.CounterSnapshot
	for id, g := range s.groups {
		out = append(out,
			social.CounterSnapshot{Counter: social.CounterGroupMembers, EntityID: id, Value: g.MembersCount},
			social.CounterSnapshot{Counter: social.CounterGroupRequests, EntityID: id, Value: g.RequestsCount},
		)
	}
	for id, u := range s.users {
		out = append(out,
			social.CounterSnapshot{Counter: social.CounterUserFollowers, EntityID: id, Value: u.FollowersCount},
			social.CounterSnapshot{Counter: social.CounterUserFollowing, EntityID: id, Value: u.FollowingCount},
			social.CounterSnapshot{Counter: social.CounterUserFriends, EntityID: id, Value: u.FriendsCount},
		)
	}
	for id, m := range s.movies {
		out = append(out, social.CounterSnapshot{Counter: social.CounterMovieLikes, EntityID: id, Value: m.LikesCount})
	}
	return out, nil
}

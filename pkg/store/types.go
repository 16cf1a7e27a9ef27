package store

import (
	"context"
	"errors"
	"time"

	"github.com/moviecrew/moviecrew/pkg/access"
	"github.com/moviecrew/moviecrew/pkg/auth"
	"github.com/moviecrew/moviecrew/pkg/social"
)

// ErrNotFound aliases the resolver's sentinel so entity fetches and
// ownership lookups share one not-found signal.
var ErrNotFound = access.ErrNotFound

// ErrAlreadyExists means a unique constraint (group name) was violated.
var ErrAlreadyExists = errors.New("already exists")

// User is a registered account. The three counters are derived views
// over follow and friendship edges and are never set from client input.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	Role           auth.Role `json:"role"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	FriendsCount   int       `json:"friends_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Movie is a user-submitted movie entry.
type Movie struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Overview   string    `json:"overview,omitempty"`
	CreatorID  string    `json:"creator_id"`
	LikesCount int       `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Group is a user-created community. MembersCount and RequestsCount
// track membership edges and pending join requests respectively.
type Group struct {
	ID            string    `json:"id"`
	CreatorID     string    `json:"creator_id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	MembersCount  int       `json:"members_count"`
	RequestsCount int       `json:"requests_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserUpdate carries optional field updates for a user.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// MovieUpdate carries optional field updates for a movie.
type MovieUpdate struct {
	Title    *string `json:"title,omitempty"`
	Overview *string `json:"overview,omitempty"`
}

// GroupUpdate carries optional field updates for a group. The name is
// immutable once chosen (it anchors the slug); only the description
// changes.
type GroupUpdate struct {
	Description *string `json:"description,omitempty"`
}

// Store persists users, movies and groups, including their counter
// columns. It doubles as the ownership directory for the access engine
// and as the counter applier/source for the social package, so one
// backend serves all three seams.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateMovie(ctx context.Context, m *Movie) error
	GetMovie(ctx context.Context, id string) (*Movie, error)
	ListMovies(ctx context.Context) ([]*Movie, error)
	UpdateMovie(ctx context.Context, id string, upd MovieUpdate) (*Movie, error)
	DeleteMovie(ctx context.Context, id string) error

	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*Group, error)
	ListGroups(ctx context.Context) ([]*Group, error)
	UpdateGroup(ctx context.Context, id string, upd GroupUpdate) (*Group, error)
	DeleteGroup(ctx context.Context, id string) error

	access.EntityDirectory
	social.CounterApplier
	social.CounterSource
}

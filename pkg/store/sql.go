package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moviecrew/moviecrew/pkg/social"
)

// SQLStore is the SQL-backed entity store. Counter columns live on the
// entity rows themselves so a single UPDATE adjusts them inside the
// edge store's transaction.
//
// Queries use $N placeholders and quoted identifiers, which both
// lib/pq and mattn/go-sqlite3 accept. "groups" is quoted everywhere
// because it is a reserved word in both dialects.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates an entity store on top of the given database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Schema returns the DDL for the entity tables.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			username        TEXT NOT NULL,
			email           TEXT NOT NULL DEFAULT '',
			role            TEXT NOT NULL DEFAULT 'user',
			followers_count INTEGER NOT NULL DEFAULT 0,
			following_count INTEGER NOT NULL DEFAULT 0,
			friends_count   INTEGER NOT NULL DEFAULT 0,
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS movies (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			overview    TEXT NOT NULL DEFAULT '',
			creator_id  TEXT NOT NULL,
			likes_count INTEGER NOT NULL DEFAULT 0,
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS "groups" (
			id             TEXT PRIMARY KEY,
			creator_id     TEXT NOT NULL,
			name           TEXT NOT NULL UNIQUE,
			slug           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			members_count  INTEGER NOT NULL DEFAULT 0,
			requests_count INTEGER NOT NULL DEFAULT 0,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`
}

// isUniqueViolation matches unique-constraint errors from both drivers
// without importing driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

// CreateUser stores a new user, assigning an id and timestamps.
func (s *SQLStore) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.Email, u.Role, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, role, followers_count, following_count, friends_count, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role,
		&u.FollowersCount, &u.FollowingCount, &u.FriendsCount,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// GetUser fetches a user by id.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ListUsers returns all users.
func (s *SQLStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser applies the non-nil fields of upd.
func (s *SQLStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	u.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET username = $1, email = $2, updated_at = $3 WHERE id = $4
	`, u.Username, u.Email, u.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user by id.
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateMovie stores a new movie, assigning an id and timestamps.
func (s *SQLStore) CreateMovie(ctx context.Context, m *Movie) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO movies (id, title, overview, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.Title, m.Overview, m.CreatorID, m.CreatedAt, m.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}
	return nil
}

const movieColumns = `id, title, overview, creator_id, likes_count, created_at, updated_at`

func scanMovie(row interface{ Scan(...interface{}) error }) (*Movie, error) {
	m := &Movie{}
	err := row.Scan(&m.ID, &m.Title, &m.Overview, &m.CreatorID,
		&m.LikesCount, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan movie: %w", err)
	}
	return m, nil
}

// GetMovie fetches a movie by id.
func (s *SQLStore) GetMovie(ctx context.Context, id string) (*Movie, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)
	return scanMovie(row)
}

// ListMovies returns all movies.
func (s *SQLStore) ListMovies(ctx context.Context) ([]*Movie, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	var movies []*Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// UpdateMovie applies the non-nil fields of upd.
func (s *SQLStore) UpdateMovie(ctx context.Context, id string, upd MovieUpdate) (*Movie, error) {
	m, err := s.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		m.Title = *upd.Title
	}
	if upd.Overview != nil {
		m.Overview = *upd.Overview
	}
	m.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE movies SET title = $1, overview = $2, updated_at = $3 WHERE id = $4
	`, m.Title, m.Overview, m.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update movie: %w", err)
	}
	return m, nil
}

// DeleteMovie removes a movie by id.
func (s *SQLStore) DeleteMovie(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateGroup stores a new group, assigning an id, slug and timestamps.
// Group names are unique.
func (s *SQLStore) CreateGroup(ctx context.Context, g *Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.Slug = Slugify(g.Name)
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO "groups" (id, creator_id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.CreatorID, g.Name, g.Slug, g.Description, g.CreatedAt, g.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

const groupColumns = `id, creator_id, name, slug, description, members_count, requests_count, created_at, updated_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*Group, error) {
	g := &Group{}
	err := row.Scan(&g.ID, &g.CreatorID, &g.Name, &g.Slug, &g.Description,
		&g.MembersCount, &g.RequestsCount, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return g, nil
}

// GetGroup fetches a group by id.
func (s *SQLStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM "groups" WHERE id = $1`, id)
	return scanGroup(row)
}

// GetGroupBySlug fetches a group by its slug.
func (s *SQLStore) GetGroupBySlug(ctx context.Context, slug string) (*Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM "groups" WHERE slug = $1`, slug)
	return scanGroup(row)
}

// ListGroups returns all groups.
func (s *SQLStore) ListGroups(ctx context.Context) ([]*Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+groupColumns+` FROM "groups" ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpdateGroup applies the non-nil fields of upd.
func (s *SQLStore) UpdateGroup(ctx context.Context, id string, upd GroupUpdate) (*Group, error) {
	g, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Description != nil {
		g.Description = *upd.Description
	}
	g.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE "groups" SET description = $1, updated_at = $2 WHERE id = $3
	`, g.Description, g.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	return g, nil
}

// DeleteGroup removes a group by id.
func (s *SQLStore) DeleteGroup(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM "groups" WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UserExists implements access.EntityDirectory.
func (s *SQLStore) UserExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return true, nil
}

// MovieCreator implements access.EntityDirectory.
func (s *SQLStore) MovieCreator(ctx context.Context, id string) (string, error) {
	var creator string
	err := s.db.QueryRowContext(ctx, `SELECT creator_id FROM movies WHERE id = $1`, id).Scan(&creator)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get movie creator: %w", err)
	}
	return creator, nil
}

// GroupCreator implements access.EntityDirectory.
func (s *SQLStore) GroupCreator(ctx context.Context, id string) (string, error) {
	var creator string
	err := s.db.QueryRowContext(ctx, `SELECT creator_id FROM "groups" WHERE id = $1`, id).Scan(&creator)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get group creator: %w", err)
	}
	return creator, nil
}

// ApplyCounterDelta implements social.CounterApplier. The edge store
// applies deltas inside its own transaction; this path exists for
// callers without one.
func (s *SQLStore) ApplyCounterDelta(ctx context.Context, d social.CounterDelta) error {
	table, column, err := social.CounterTarget(d.Counter)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %q SET %q = %q + $1 WHERE id = $2`, table, column, column)
	res, err := s.db.ExecContext(ctx, query, d.Delta, d.EntityID)
	if err != nil {
		return fmt.Errorf("failed to adjust counter %s: %w", d.Counter, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("counter %s: entity %s: %w", d.Counter, d.EntityID, ErrNotFound)
	}
	return nil
}

// SnapshotCounters implements social.CounterSource.
func (s *SQLStore) SnapshotCounters(ctx context.Context) ([]social.CounterSnapshot, error) {
	var out []social.CounterSnapshot

	groups, err := s.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		out = append(out,
			social.CounterSnapshot{Counter: social.CounterGroupMembers, EntityID: g.ID, Value: g.MembersCount},
			social.CounterSnapshot{Counter: social.CounterGroupRequests, EntityID: g.ID, Value: g.RequestsCount},
		)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out = append(out,
			social.CounterSnapshot{Counter: social.CounterUserFollowers, EntityID: u.ID, Value: u.FollowersCount},
			social.CounterSnapshot{Counter: social.CounterUserFollowing, EntityID: u.ID, Value: u.FollowingCount},
			social.CounterSnapshot{Counter: social.CounterUserFriends, EntityID: u.ID, Value: u.FriendsCount},
		)
	}

	movies, err := s.ListMovies(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range movies {
		out = append(out, social.CounterSnapshot{Counter: social.CounterMovieLikes, EntityID: m.ID, Value: m.LikesCount})
	}
	return out, nil
}

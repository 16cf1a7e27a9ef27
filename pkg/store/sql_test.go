package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviecrew/moviecrew/pkg/social"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db), mock
}

func userRows(u *User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "role",
		"followers_count", "following_count", "friends_count",
		"created_at", "updated_at",
	}).AddRow(u.ID, u.Username, u.Email, u.Role,
		u.FollowersCount, u.FollowingCount, u.FriendsCount,
		time.Now(), time.Now())
}

func TestSQLCreateUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "alice", "alice@example.com", "user", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &User{Username: "alice", Email: "alice@example.com", Role: "user"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.NotEmpty(t, u.ID, "an id is assigned before insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreateUserDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_pkey"`))

	err := s.CreateUser(context.Background(), &User{ID: "u-1", Username: "alice"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestSQLGetUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs("u-1").
		WillReturnRows(userRows(&User{ID: "u-1", Username: "alice", Role: "user", FollowersCount: 3}))

	u, err := s.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, 3, u.FollowersCount)
}

func TestSQLGetUserNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLDeleteGroup(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM "groups" WHERE id`).
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "groups" WHERE id`).
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.DeleteGroup(context.Background(), "g-1"))
	assert.ErrorIs(t, s.DeleteGroup(context.Background(), "g-1"), ErrNotFound)
}

func TestSQLApplyCounterDelta(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "groups" SET "members_count"`).
		WithArgs(1, "g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.ApplyCounterDelta(context.Background(), social.CounterDelta{
		Counter: social.CounterGroupMembers, EntityID: "g-1", Delta: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLApplyCounterDeltaMissingEntity(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "movies" SET "likes_count"`).
		WithArgs(1, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.ApplyCounterDelta(context.Background(), social.CounterDelta{
		Counter: social.CounterMovieLikes, EntityID: "missing", Delta: 1,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLMovieCreator(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT creator_id FROM movies`).
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows([]string{"creator_id"}).AddRow("u-1"))
	mock.ExpectQuery(`SELECT creator_id FROM movies`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"creator_id"}))

	creator, err := s.MovieCreator(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", creator)

	_, err = s.MovieCreator(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: groups.name")))
	assert.True(t, isUniqueViolation(errors.New(`pq: duplicate key value violates unique constraint "groups_name_key"`)))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}

package social

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db), mock
}

func TestSQLCreateEdge(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO edges`).
		WithArgs(EdgeFollow, "u1", "u2", StateNone, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET "following_count"`).
		WithArgs(1, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET "followers_count"`).
		WithArgs(1, "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	edge, created, err := store.CreateEdge(context.Background(), EdgeFollow, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "u1", edge.FromID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// deltaRecorder captures post-commit invalidation notifications.
type deltaRecorder struct {
	deltas []CounterDelta
}

func (r *deltaRecorder) InvalidateCounters(ctx context.Context, deltas []CounterDelta) {
	r.deltas = append(r.deltas, deltas...)
}

func TestSQLCreateEdgeNotifiesInvalidator(t *testing.T) {
	store, mock := newMockStore(t)
	rec := &deltaRecorder{}
	store.WithInvalidator(rec)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO edges`).
		WithArgs(EdgeFollow, "u1", "u2", StateNone, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET "following_count"`).
		WithArgs(1, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET "followers_count"`).
		WithArgs(1, "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, created, err := store.CreateEdge(context.Background(), EdgeFollow, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, created)

	// Both adjusted entities are reported after the commit
	require.Len(t, rec.deltas, 2)
	assert.Equal(t, CounterUserFollowing, rec.deltas[0].Counter)
	assert.Equal(t, "u1", rec.deltas[0].EntityID)
	assert.Equal(t, CounterUserFollowers, rec.deltas[1].Counter)
	assert.Equal(t, "u2", rec.deltas[1].EntityID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreateEdgeDuplicateSkipsInvalidator(t *testing.T) {
	store, mock := newMockStore(t)
	rec := &deltaRecorder{}
	store.WithInvalidator(rec)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO edges`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT state, created_at FROM edges`).
		WithArgs(EdgeFollow, "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"state", "created_at"}).
			AddRow("", time.Now()))
	mock.ExpectCommit()

	_, created, err := store.CreateEdge(context.Background(), EdgeFollow, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, rec.deltas)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreateEdgeDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	// ON CONFLICT DO NOTHING reports zero rows; the existing edge is
	// read back and no counter is touched.
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO edges`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT state, created_at FROM edges`).
		WithArgs(EdgeFollow, "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"state", "created_at"}).
			AddRow("", time.Now()))
	mock.ExpectCommit()

	_, created, err := store.CreateEdge(context.Background(), EdgeFollow, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreateEdgeCounterEntityMissing(t *testing.T) {
	store, mock := newMockStore(t)

	// A counter update hitting zero rows aborts the whole transaction,
	// so the edge insert never commits.
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO edges`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "movies" SET "likes_count"`).
		WithArgs(1, "m1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := store.CreateEdge(context.Background(), EdgeLike, "u1", "m1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRemoveEdge(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM edges`).
		WithArgs(EdgeLike, "u1", "m1").
		WillReturnRows(sqlmock.NewRows([]string{"state", "created_at"}).
			AddRow("", time.Now()))
	mock.ExpectExec(`UPDATE "movies" SET "likes_count"`).
		WithArgs(-1, "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := store.RemoveEdge(context.Background(), EdgeLike, "u1", "m1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRemoveEdgeAbsent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM edges`).
		WithArgs(EdgeLike, "u1", "m1").
		WillReturnRows(sqlmock.NewRows([]string{"state", "created_at"}))
	mock.ExpectRollback()

	removed, err := store.RemoveEdge(context.Background(), EdgeLike, "u1", "m1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLResolveJoinRequestApprove(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE edges SET state`).
		WithArgs(StateApproved, EdgeJoinRequest, "u1", "g1", StatePending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT INTO edges`).
		WithArgs(EdgeMembership, "u1", "g1", StateNone, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "groups" SET "requests_count"`).
		WithArgs(-1, "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "groups" SET "members_count"`).
		WithArgs(1, "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	edge, err := store.ResolveJoinRequest(context.Background(), "u1", "g1", true)
	require.NoError(t, err)
	assert.Equal(t, StateApproved, edge.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLResolveJoinRequestConflict(t *testing.T) {
	store, mock := newMockStore(t)

	// No pending row matches; the existing state is read back to build
	// the conflict error.
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE edges SET state`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery(`SELECT state, created_at FROM edges`).
		WithArgs(EdgeJoinRequest, "u1", "g1").
		WillReturnRows(sqlmock.NewRows([]string{"state", "created_at"}).
			AddRow(StateApproved, time.Now()))
	mock.ExpectRollback()

	_, err := store.ResolveJoinRequest(context.Background(), "u1", "g1", true)
	assert.ErrorIs(t, err, ErrConflictingState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package social

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SQLStore is the SQL-backed edge store. The edges table is keyed by
// (edge_type, from_id, to_id) so uniqueness is enforced by the store
// itself; duplicate creation falls out of ON CONFLICT DO NOTHING and
// never double-counts. Every mutation and its counter deltas run in one
// transaction.
//
// Queries use $N placeholders and quoted identifiers, which both
// lib/pq and mattn/go-sqlite3 accept.
type SQLStore struct {
	db          *sql.DB
	invalidator CounterInvalidator
}

// NewSQLStore creates an edge store on top of the given database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// WithInvalidator registers a post-commit notification for counter
// changes. The entity cache uses it to drop records whose counters the
// edge transaction just rewrote.
func (s *SQLStore) WithInvalidator(inv CounterInvalidator) *SQLStore {
	s.invalidator = inv
	return s
}

func (s *SQLStore) notify(ctx context.Context, deltas []CounterDelta) {
	if s.invalidator != nil && len(deltas) > 0 {
		s.invalidator.InvalidateCounters(ctx, deltas)
	}
}

// Schema returns the DDL for the edges table.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS edges (
			edge_type  TEXT NOT NULL,
			from_id    TEXT NOT NULL,
			to_id      TEXT NOT NULL,
			state      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (edge_type, from_id, to_id)
		)`
}

// CreateEdge implements Store.
func (s *SQLStore) CreateEdge(ctx context.Context, t EdgeType, fromID, toID string) (*Edge, bool, error) {
	if !t.Valid() {
		return nil, false, fmt.Errorf("invalid edge type %q", t)
	}
	if fromID == toID {
		return nil, false, ErrSelfEdge
	}
	fromID, toID = normalize(t, fromID, toID)

	edge := &Edge{Type: t, FromID: fromID, ToID: toID, CreatedAt: time.Now().UTC()}
	if t == EdgeJoinRequest {
		edge.State = StatePending
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO edges (edge_type, from_id, to_id, state, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (edge_type, from_id, to_id) DO NOTHING
	`, edge.Type, edge.FromID, edge.ToID, edge.State, edge.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert edge: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if inserted == 0 {
		// Idempotent re-create: return the existing edge, no counter
		// adjustment.
		existing, err := s.getEdge(ctx, tx, t, fromID, toID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, tx.Commit()
	}

	deltas := DeltasForCreate(edge)
	if err := applyDeltasTx(ctx, tx, deltas); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit edge creation: %w", err)
	}
	s.notify(ctx, deltas)
	return edge, true, nil
}

// RemoveEdge implements Store.
func (s *SQLStore) RemoveEdge(ctx context.Context, t EdgeType, fromID, toID string) (bool, error) {
	fromID, toID = normalize(t, fromID, toID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	edge := &Edge{Type: t, FromID: fromID, ToID: toID}
	err = tx.QueryRowContext(ctx, `
		DELETE FROM edges
		WHERE edge_type = $1 AND from_id = $2 AND to_id = $3
		RETURNING state, created_at
	`, t, fromID, toID).Scan(&edge.State, &edge.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete edge: %w", err)
	}

	deltas := DeltasForRemove(edge)
	if err := applyDeltasTx(ctx, tx, deltas); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit edge removal: %w", err)
	}
	s.notify(ctx, deltas)
	return true, nil
}

// FindEdges implements Store.
func (s *SQLStore) FindEdges(ctx context.Context, f Filter) ([]*Edge, error) {
	query := `SELECT edge_type, from_id, to_id, state, created_at FROM edges WHERE 1=1`
	var args []interface{}

	next := func() string {
		return "$" + strconv.Itoa(len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		query += ` AND edge_type = ` + next()
	}
	if f.FromID != "" {
		args = append(args, f.FromID)
		query += ` AND from_id = ` + next()
	}
	if f.ToID != "" {
		args = append(args, f.ToID)
		query += ` AND to_id = ` + next()
	}
	if f.State != StateNone {
		args = append(args, f.State)
		query += ` AND state = ` + next()
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find edges: %w", err)
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		e := &Edge{}
		if err := rows.Scan(&e.Type, &e.FromID, &e.ToID, &e.State, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ResolveJoinRequest implements Store.
func (s *SQLStore) ResolveJoinRequest(ctx context.Context, userID, groupID string, approve bool) (*Edge, error) {
	newState := StateRejected
	if approve {
		newState = StateApproved
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Atomic check-and-set: only a pending request transitions.
	request := &Edge{Type: EdgeJoinRequest, FromID: userID, ToID: groupID, State: newState}
	err = tx.QueryRowContext(ctx, `
		UPDATE edges SET state = $1
		WHERE edge_type = $2 AND from_id = $3 AND to_id = $4 AND state = $5
		RETURNING created_at
	`, newState, EdgeJoinRequest, userID, groupID, StatePending).Scan(&request.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, lookupErr := s.getEdge(ctx, tx, EdgeJoinRequest, userID, groupID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return nil, fmt.Errorf("%w: request is %s", ErrConflictingState, existing.State)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update join request: %w", err)
	}

	pending := &Edge{Type: EdgeJoinRequest, FromID: userID, ToID: groupID, State: StatePending}
	deltas := DeltasForTransition(pending, request)

	if approve {
		membership := &Edge{Type: EdgeMembership, FromID: userID, ToID: groupID, CreatedAt: time.Now().UTC()}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO edges (edge_type, from_id, to_id, state, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (edge_type, from_id, to_id) DO NOTHING
		`, membership.Type, membership.FromID, membership.ToID, membership.State, membership.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert membership edge: %w", err)
		}
		if inserted, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		} else if inserted > 0 {
			deltas = append(deltas, DeltasForCreate(membership)...)
		}
	}

	if err := applyDeltasTx(ctx, tx, deltas); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit request resolution: %w", err)
	}
	s.notify(ctx, deltas)
	return request, nil
}

func (s *SQLStore) getEdge(ctx context.Context, tx *sql.Tx, t EdgeType, fromID, toID string) (*Edge, error) {
	e := &Edge{Type: t, FromID: fromID, ToID: toID}
	err := tx.QueryRowContext(ctx, `
		SELECT state, created_at FROM edges
		WHERE edge_type = $1 AND from_id = $2 AND to_id = $3
	`, t, fromID, toID).Scan(&e.State, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	return e, nil
}

// applyDeltasTx applies counter deltas inside the edge mutation's
// transaction. A missing counter row aborts the transaction so the
// edge change never commits without its counter adjustment.
func applyDeltasTx(ctx context.Context, tx *sql.Tx, deltas []CounterDelta) error {
	for _, d := range deltas {
		table, column, err := CounterTarget(d.Counter)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(`UPDATE %q SET %q = %q + $1 WHERE id = $2`, table, column, column)
		res, err := tx.ExecContext(ctx, query, d.Delta, d.EntityID)
		if err != nil {
			return fmt.Errorf("failed to adjust counter %s: %w", d.Counter, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("counter %s: entity %s not found", d.Counter, d.EntityID)
		}
	}
	return nil
}

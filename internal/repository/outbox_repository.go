package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
)

// OutboxRepo manages outbox_events. Rows are inserted in the same
// transaction as the state change they describe and are processed later by
// the relay and the re-drive worker.
type OutboxRepo struct {
	db *sql.DB
}

// NewOutboxRepo returns a new OutboxRepo bound to the given database.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// insertOutboxTx writes an event inside an existing transaction. The caller
// must commit or rollback.
func insertOutboxTx(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.Status == "" {
		ev.Status = model.OutboxPending
	}
	const q = `INSERT INTO outbox_events (id, aggregate_id, kind, payload, status, attempts, created_at)
	           VALUES (?, ?, ?, ?, ?, 0, ?)`
	_, err := tx.ExecContext(ctx, q,
		ev.ID.String(), ev.AggregateID.String(), ev.Kind, []byte(ev.Payload), string(ev.Status), ev.CreatedAt.UTC())
	return err
}

const outboxColumns = `id, aggregate_id, kind, payload, status, attempts, last_error, created_at, dispatched_at, completed_at`

func scanOutbox(row rowScanner) (*model.OutboxEvent, error) {
	var (
		ev         model.OutboxEvent
		payload    []byte
		status     string
		lastErr    sql.NullString
		dispatched sql.NullTime
		completed  sql.NullTime
	)
	if err := row.Scan(&ev.ID, &ev.AggregateID, &ev.Kind, &payload, &status, &ev.Attempts,
		&lastErr, &ev.CreatedAt, &dispatched, &completed); err != nil {
		return nil, err
	}
	ev.Payload = payload
	ev.Status = model.OutboxStatus(status)
	if lastErr.Valid {
		v := lastErr.String
		ev.LastError = &v
	}
	if dispatched.Valid {
		v := dispatched.Time.UTC()
		ev.DispatchedAt = &v
	}
	if completed.Valid {
		v := completed.Time.UTC()
		ev.CompletedAt = &v
	}
	return &ev, nil
}

// GetByID loads one event.
func (r *OutboxRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.OutboxEvent, error) {
	q := `SELECT ` + outboxColumns + ` FROM outbox_events WHERE id = ? LIMIT 1`
	ev, err := scanOutbox(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOutboxEventNotFound
	}
	return ev, err
}

// ListDue returns pending events created and last dispatched before
// cutoff, oldest first.
func (r *OutboxRepo) ListDue(ctx context.Context, cutoff time.Time, limit int) ([]model.OutboxEvent, error) {
	q := `SELECT ` + outboxColumns + ` FROM outbox_events
	      WHERE status = 'pending' AND created_at < ? AND (dispatched_at IS NULL OR dispatched_at < ?)
	      ORDER BY created_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, cutoff.UTC(), cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OutboxEvent
	for rows.Next() {
		ev, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

// MarkDispatched records a publish attempt.
func (r *OutboxRepo) MarkDispatched(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE outbox_events SET attempts = attempts + 1, dispatched_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id.String())
	return err
}

// MarkCompleted closes an event once all of its side effects are in place.
func (r *OutboxRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE outbox_events SET status = 'completed', completed_at = UTC_TIMESTAMP(), last_error = NULL WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id.String())
	return err
}

// MarkFailed stores the error of the last processing attempt.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE outbox_events SET last_error = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, reason, id.String())
	return err
}

// MarkDead parks an event that ran out of attempts. Dead events are left for
// manual inspection.
func (r *OutboxRepo) MarkDead(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE outbox_events SET status = 'dead' WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id.String())
	return err
}

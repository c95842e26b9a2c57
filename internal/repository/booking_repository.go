package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
)

// BookingRepo reads and mutates booking_requests. The service name used by
// notification templates is joined from the services table. All timestamps
// are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.customer_id, b.business_id, b.service_id, COALESCE(s.name, ''),
       b.requested_at, b.total_cost_cents, b.platform_fee_cents, b.status,
       b.response_message, b.cancelled_by, b.cancellation_reason, b.cancelled_at,
       b.refund_status, b.refund_id, b.created_at, b.updated_at`

const bookingFrom = ` FROM booking_requests b LEFT JOIN services s ON s.id = b.service_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.BookingRequest, error) {
	var (
		b        model.BookingRequest
		status   string
		refund   string
		respMsg  sql.NullString
		cancelBy sql.NullString
		reason   sql.NullString
		cancelAt sql.NullTime
		refundID sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.BusinessID, &b.ServiceID, &b.ServiceName,
		&b.RequestedAt, &b.TotalCostCents, &b.PlatformFeeCents, &status,
		&respMsg, &cancelBy, &reason, &cancelAt,
		&refund, &refundID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.RefundStatus = model.RefundStatus(refund)
	if b.RefundStatus == "" {
		b.RefundStatus = model.RefundNone
	}
	if respMsg.Valid {
		v := respMsg.String
		b.ResponseMessage = &v
	}
	if cancelBy.Valid {
		v := model.CancelParty(cancelBy.String)
		b.CancelledBy = &v
	}
	if reason.Valid {
		v := reason.String
		b.CancellationReason = &v
	}
	if cancelAt.Valid {
		v := cancelAt.Time.UTC()
		b.CancelledAt = &v
	}
	if refundID.Valid {
		v := refundID.String
		b.RefundID = &v
	}
	return &b, nil
}

// GetByID loads a single booking. ErrBookingNotFound is returned when the
// id does not exist.
func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.BookingRequest, error) {
	q := `SELECT ` + bookingColumns + bookingFrom + ` WHERE b.id = ? LIMIT 1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// CommitTransition writes the new status, the cancellation metadata when the
// target is cancelled, and the outbox event of the transition in a single
// transaction. Either both rows are written or neither is.
func (r *BookingRepo) CommitTransition(ctx context.Context, ch model.StatusChange, ev *model.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if ch.Status == model.StatusCancelled {
		const q = `UPDATE booking_requests
		           SET status = ?, cancelled_by = ?, cancellation_reason = ?, cancelled_at = ?, updated_at = UTC_TIMESTAMP()
		           WHERE id = ?`
		var by, reason sql.NullString
		if ch.CancelledBy != nil {
			by = sql.NullString{String: string(*ch.CancelledBy), Valid: true}
		}
		if ch.CancellationReason != nil {
			reason = sql.NullString{String: *ch.CancellationReason, Valid: true}
		}
		var at sql.NullTime
		if ch.CancelledAt != nil {
			at = sql.NullTime{Time: ch.CancelledAt.UTC(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, q, string(ch.Status), by, reason, at, ch.BookingID.String()); err != nil {
			return err
		}
	} else {
		const q = `UPDATE booking_requests SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q, string(ch.Status), ch.BookingID.String()); err != nil {
			return err
		}
	}
	if ev != nil {
		if err := insertOutboxTx(ctx, tx, ev); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetResponseMessage stores the business response on the booking.
func (r *BookingRepo) SetResponseMessage(ctx context.Context, id uuid.UUID, msg string) error {
	const q = `UPDATE booking_requests SET response_message = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, msg, id.String())
	return err
}

// SetRefundStatus records refund progress. A nil refundID leaves the stored
// reference untouched.
func (r *BookingRepo) SetRefundStatus(ctx context.Context, id uuid.UUID, status model.RefundStatus, refundID *string) error {
	const q = `UPDATE booking_requests
	           SET refund_status = ?, refund_id = COALESCE(?, refund_id), updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	var ref sql.NullString
	if refundID != nil {
		ref = sql.NullString{String: *refundID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q, string(status), ref, id.String())
	return err
}

// ListStalePendingRefunds returns cancelled bookings whose refund has been
// pending since before olderThan, oldest first. Bookings reopened after the
// cancellation are not returned.
func (r *BookingRepo) ListStalePendingRefunds(ctx context.Context, olderThan time.Time, limit int) ([]model.BookingRequest, error) {
	q := `SELECT ` + bookingColumns + bookingFrom +
		` WHERE b.status = 'cancelled' AND b.refund_status = 'pending' AND b.updated_at < ?` +
		` ORDER BY b.updated_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, olderThan.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingRequest
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

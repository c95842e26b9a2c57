package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
)

// PaymentRepo reads payments and records refunds against them.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// GetByBookingID returns the payment of a booking. Bookings carry at most
// one payment in practice; the most recent one wins if several exist.
func (r *PaymentRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Payment, error) {
	const q = `SELECT id, booking_id, processor_ref, amount_cents, currency, status, paid_at
	           FROM payments WHERE booking_id = ? ORDER BY created_at DESC LIMIT 1`
	var (
		p      model.Payment
		status string
		paidAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, bookingID.String()).Scan(
		&p.ID, &p.BookingID, &p.ProcessorRef, &p.AmountCents, &p.Currency, &status, &paidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		p.PaidAt = &t
	}
	return &p, nil
}

// MarkRefunded flags a payment as refunded after the processor accepted the
// refund.
func (r *PaymentRepo) MarkRefunded(ctx context.Context, paymentID uuid.UUID) error {
	const q = `UPDATE payments SET status = 'refunded', updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, paymentID.String())
	return err
}

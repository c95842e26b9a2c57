// Package jobs holds the scheduled background work of the service.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/booking"
	"github.com/iliyamo/local-services-booking/internal/model"
)

// StaleRefunds lists cancelled bookings whose refund never left pending.
type StaleRefunds interface {
	ListStalePendingRefunds(ctx context.Context, olderThan time.Time, limit int) ([]model.BookingRequest, error)
}

// RefundResumer finishes a pending refund.
type RefundResumer interface {
	ResumeRefund(ctx context.Context, bookingID uuid.UUID) (*booking.RefundOutcome, error)
}

// RefundReconciler resumes refunds stuck in pending, for example after a
// crash between the pending marker and the processor call.
type RefundReconciler struct {
	store      StaleRefunds
	resumer    RefundResumer
	staleAfter time.Duration
	batch      int
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewRefundReconciler builds a reconciler resuming refunds pending for
// longer than staleAfter.
func NewRefundReconciler(store StaleRefunds, resumer RefundResumer, staleAfter time.Duration, logger logrus.FieldLogger) *RefundReconciler {
	if store == nil || resumer == nil {
		panic("jobs: nil dependency passed to NewRefundReconciler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RefundReconciler{
		store:      store,
		resumer:    resumer,
		staleAfter: staleAfter,
		batch:      50,
		logger:     logger.WithField("job", "refund_reconciler"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile processes one batch and returns how many refunds reached a
// terminal state.
func (r *RefundReconciler) Reconcile(ctx context.Context) (int, error) {
	stale, err := r.store.ListStalePendingRefunds(ctx, r.now().Add(-r.staleAfter), r.batch)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, b := range stale {
		log := r.logger.WithField("booking_id", b.ID.String())
		out, err := r.resumer.ResumeRefund(ctx, b.ID)
		if err != nil {
			log.WithError(err).Warn("resume refund failed")
			continue
		}
		if out == nil {
			continue
		}
		done++
		log.WithField("success", out.Success).Info("stale refund resolved")
	}
	return done, nil
}

// Run is the cron entry point.
func (r *RefundReconciler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := r.Reconcile(ctx); err != nil {
		r.logger.WithError(err).Warn("refund reconciliation failed")
	}
}

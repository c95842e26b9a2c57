package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/metrics"
	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/payment"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

const refundFailedMessage = "refund could not be processed"

// triggerRefund refunds the payment of a freshly cancelled booking. It
// returns a nil outcome when there is no succeeded payment. The error
// reports bookkeeping writes that did not land; a processor rejection is
// an outcome, not an error.
func (s *Service) triggerRefund(ctx context.Context, log logrus.FieldLogger, b *model.BookingRequest) (*RefundOutcome, error) {
	p, err := s.payments.GetByBookingID(ctx, b.ID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, nil
	}
	if err != nil {
		stepFailed(log, "payment_lookup", err)
		return nil, fmt.Errorf("payment lookup: %w", err)
	}
	if p.Status != model.PaymentSucceeded {
		return nil, nil
	}

	var errs []error
	if err := s.bookings.SetRefundStatus(ctx, b.ID, model.RefundPending, nil); err != nil {
		stepFailed(log, "refund_marker", err)
		errs = append(errs, fmt.Errorf("mark refund pending: %w", err))
	} else {
		b.RefundStatus = model.RefundPending
	}
	outcome, err := s.executeRefund(ctx, log, b, p)
	if err != nil {
		errs = append(errs, err)
	}
	return outcome, errors.Join(errs...)
}

// resumeRefund drives a refund stuck in pending to a terminal state. The
// processor call reuses the booking's idempotency key, so a refund that
// already went through is returned instead of issued again.
func (s *Service) resumeRefund(ctx context.Context, log logrus.FieldLogger, b *model.BookingRequest) (*RefundOutcome, error) {
	p, err := s.payments.GetByBookingID(ctx, b.ID)
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		log.Warn("pending refund without payment, marking failed")
		return s.finishFailed(ctx, log, b, 0)
	case err != nil:
		stepFailed(log, "payment_lookup", err)
		return nil, fmt.Errorf("payment lookup: %w", err)
	}

	switch p.Status {
	case model.PaymentRefunded:
		// the processor call succeeded but the booking was never updated
		if err := s.bookings.SetRefundStatus(ctx, b.ID, model.RefundProcessed, nil); err != nil {
			stepFailed(log, "refund_status", err)
			return nil, fmt.Errorf("mark refund processed: %w", err)
		}
		b.RefundStatus = model.RefundProcessed
		out := &RefundOutcome{Success: true, AmountCents: p.AmountCents}
		if b.RefundID != nil {
			out.RefundID = *b.RefundID
		}
		return out, nil
	case model.PaymentSucceeded:
		return s.executeRefund(ctx, log, b, p)
	default:
		log.WithField("payment_status", string(p.Status)).Warn("pending refund on unpaid booking, marking failed")
		return s.finishFailed(ctx, log, b, p.AmountCents)
	}
}

func (s *Service) executeRefund(ctx context.Context, log logrus.FieldLogger, b *model.BookingRequest, p *model.Payment) (*RefundOutcome, error) {
	req := payment.RefundRequest{
		BookingID:        b.ID.String(),
		PaymentReference: p.ProcessorRef,
		AmountCents:      p.AmountCents,
		IdempotencyKey:   payment.IdempotencyKey(b.ID.String()),
	}
	if b.CancelledBy != nil && *b.CancelledBy == model.CancelledByCustomer {
		req.Reason = payment.ReasonRequestedByCustomer
	}
	acct, err := s.businesses.GetStripeAccount(ctx, b.BusinessID)
	switch {
	case err == nil:
		req.ConnectedAccountID = acct.StripeAccountID
	case errors.Is(err, repository.ErrStripeAccountNotFound):
	default:
		log.WithError(err).Warn("connect account lookup failed, refunding through platform account")
	}

	res, err := s.refunder.Refund(ctx, req)
	if err != nil {
		metrics.Refunds.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("refund failed")
		return s.finishFailed(ctx, log, b, p.AmountCents)
	}
	metrics.Refunds.WithLabelValues("processed").Inc()
	log.WithField("refund_id", res.RefundID).Info("refund processed")

	out := &RefundOutcome{Success: true, RefundID: res.RefundID, AmountCents: p.AmountCents}
	var errs []error
	refundID := res.RefundID
	if err := s.bookings.SetRefundStatus(ctx, b.ID, model.RefundProcessed, &refundID); err != nil {
		stepFailed(log, "refund_status", err)
		errs = append(errs, fmt.Errorf("mark refund processed: %w", err))
	} else {
		b.RefundStatus = model.RefundProcessed
		b.RefundID = &refundID
	}
	if err := s.payments.MarkRefunded(ctx, p.ID); err != nil {
		stepFailed(log, "payment_refunded", err)
		errs = append(errs, fmt.Errorf("mark payment refunded: %w", err))
	}
	return out, errors.Join(errs...)
}

func (s *Service) finishFailed(ctx context.Context, log logrus.FieldLogger, b *model.BookingRequest, amount int64) (*RefundOutcome, error) {
	out := &RefundOutcome{Success: false, AmountCents: amount, Error: refundFailedMessage}
	if err := s.bookings.SetRefundStatus(ctx, b.ID, model.RefundFailed, nil); err != nil {
		stepFailed(log, "refund_status", err)
		return out, fmt.Errorf("mark refund failed: %w", err)
	}
	b.RefundStatus = model.RefundFailed
	return out, nil
}

// ResumeRefund finishes the refund of a cancelled booking whose refund is
// still pending. Bookings in any other state are left untouched and a nil
// outcome is returned.
func (s *Service) ResumeRefund(ctx context.Context, bookingID uuid.UUID) (*RefundOutcome, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != model.StatusCancelled || b.RefundStatus != model.RefundPending {
		return nil, nil
	}
	log := s.logger.WithFields(logrus.Fields{"booking_id": b.ID.String(), "step": "refund_resume"})
	return s.resumeRefund(ctx, log, b)
}

// refundState rebuilds the outcome of a refund that already reached a
// terminal state, for composing replayed notifications.
func (s *Service) refundState(ctx context.Context, b *model.BookingRequest) *RefundOutcome {
	switch b.RefundStatus {
	case model.RefundProcessed:
		out := &RefundOutcome{Success: true}
		if b.RefundID != nil {
			out.RefundID = *b.RefundID
		}
		if p, err := s.payments.GetByBookingID(ctx, b.ID); err == nil {
			out.AmountCents = p.AmountCents
		}
		return out
	case model.RefundFailed:
		return &RefundOutcome{Success: false, Error: refundFailedMessage}
	}
	return nil
}

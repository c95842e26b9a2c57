package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/model"
)

// Redrive replays the side effects of a committed transition. It is safe to
// call any number of times: refunds reuse the booking's idempotency key and
// notifications and messages are written with ids derived from the
// transition, so rows that already exist are not duplicated.
//
// Side effects are only replayed while the booking still holds the status
// of the event; a later transition supersedes them.
func (s *Service) Redrive(ctx context.Context, ev model.TransitionEvent) error {
	log := s.logger.WithFields(logrus.Fields{
		"booking_id":    ev.BookingID.String(),
		"transition_id": ev.TransitionID.String(),
		"status":        string(ev.Status),
	})
	b, err := s.bookings.GetByID(ctx, ev.BookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if b.Status != ev.Status {
		log.WithField("current_status", string(b.Status)).Info("transition superseded, skipping re-drive")
		return nil
	}

	var errs []error
	if ev.ResponseMessage != "" && (b.ResponseMessage == nil || *b.ResponseMessage != ev.ResponseMessage) {
		if err := s.storeResponse(ctx, log, b, ev.ResponseMessage); err != nil {
			errs = append(errs, err)
		}
	}

	var refund *RefundOutcome
	if ev.Status == model.StatusCancelled {
		var rerr error
		switch b.RefundStatus {
		case model.RefundNone, "":
			refund, rerr = s.triggerRefund(ctx, log, b)
		case model.RefundPending:
			refund, rerr = s.resumeRefund(ctx, log, b)
		default:
			refund = s.refundState(ctx, b)
		}
		if rerr != nil {
			errs = append(errs, rerr)
		}
	}

	if err := s.fanOut(ctx, log, b, ev, refund); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Info("re-drive completed")
	return nil
}

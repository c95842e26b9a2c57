// Package booking implements booking status transitions and the side
// effects that follow them: the refund of a cancelled booking, customer
// and business notifications, and the business response message.
//
// The status change is the only mandatory write. It is committed together
// with an outbox event; every later step is best effort and is replayed
// from that event by Redrive when it did not complete.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/metrics"
	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/payment"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

// Bookings is the booking store used by the service.
type Bookings interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.BookingRequest, error)
	CommitTransition(ctx context.Context, ch model.StatusChange, ev *model.OutboxEvent) error
	SetResponseMessage(ctx context.Context, id uuid.UUID, msg string) error
	SetRefundStatus(ctx context.Context, id uuid.UUID, status model.RefundStatus, refundID *string) error
}

// Payments is the payment store used by the refund trigger.
type Payments interface {
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Payment, error)
	MarkRefunded(ctx context.Context, paymentID uuid.UUID) error
}

// Businesses resolves business owners and Connect accounts.
type Businesses interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Business, error)
	GetStripeAccount(ctx context.Context, businessID uuid.UUID) (*model.BusinessStripeAccount, error)
}

// Notifications stores user notifications.
type Notifications interface {
	Insert(ctx context.Context, n *model.Notification) error
}

// Messages stores conversation messages.
type Messages interface {
	Insert(ctx context.Context, m *model.Message) error
}

// Outbox closes outbox events whose side effects are all in place.
type Outbox interface {
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

// Locker is the per-event lock shared with the outbox re-drive worker.
// Transition holds it while the inline side effects of an event run.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Deps groups the collaborators of a Service. Every field except Logger,
// Locker, LockTTL, StrictTransitions and Now is required.
type Deps struct {
	Bookings      Bookings
	Payments      Payments
	Businesses    Businesses
	Notifications Notifications
	Messages      Messages
	Outbox        Outbox
	Refunder      payment.Refunder
	Logger        logrus.FieldLogger

	// Locker must be the one the re-drive worker uses, so a worker never
	// replays an event whose request is still running.
	Locker  Locker
	LockTTL time.Duration

	// StrictTransitions rejects changes outside the transition table.
	StrictTransitions bool
	Now               func() time.Time
}

// Service runs booking status transitions.
type Service struct {
	bookings      Bookings
	payments      Payments
	businesses    Businesses
	notifications Notifications
	messages      Messages
	outbox        Outbox
	refunder      payment.Refunder
	logger        logrus.FieldLogger
	locker        Locker
	lockTTL       time.Duration
	strict        bool
	now           func() time.Time
}

// NewService builds a Service. It panics when a required dependency is nil.
func NewService(d Deps) *Service {
	if d.Bookings == nil || d.Payments == nil || d.Businesses == nil ||
		d.Notifications == nil || d.Messages == nil || d.Outbox == nil || d.Refunder == nil {
		panic("booking: nil dependency passed to NewService")
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.LockTTL <= 0 {
		d.LockTTL = 2 * time.Minute
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		bookings:      d.Bookings,
		payments:      d.Payments,
		businesses:    d.Businesses,
		notifications: d.Notifications,
		messages:      d.Messages,
		outbox:        d.Outbox,
		refunder:      d.Refunder,
		logger:        d.Logger,
		locker:        d.Locker,
		lockTTL:       d.LockTTL,
		strict:        d.StrictTransitions,
		now:           d.Now,
	}
}

// TransitionInput is a status change request. Empty strings mean "not
// supplied".
type TransitionInput struct {
	BookingID          uuid.UUID
	Status             model.BookingStatus
	ResponseMessage    string
	CancelledBy        model.CancelParty
	CancellationReason string

	// Actor is the caller; nil skips access checks for trusted callers.
	Actor *Actor
}

// RefundOutcome reports the refund attempted for a cancellation.
type RefundOutcome struct {
	Success     bool   `json:"success"`
	RefundID    string `json:"refundId,omitempty"`
	AmountCents int64  `json:"amountCents"`
	Error       string `json:"error,omitempty"`
}

// TransitionResult is returned by Transition. Refund is nil when no refund
// was attempted.
type TransitionResult struct {
	Booking *model.BookingRequest `json:"booking"`
	Refund  *RefundOutcome        `json:"refund"`
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.BookingRequest, error) {
	return s.bookings.GetByID(ctx, id)
}

// Validate checks the request fields without touching storage.
func (in TransitionInput) Validate() error {
	if !in.Status.IsTarget() {
		return ErrInvalidStatus
	}
	if in.CancelledBy != "" && !in.CancelledBy.Valid() {
		return ErrInvalidCancelParty
	}
	return nil
}

// Transition applies a status change to a booking and runs its side
// effects. Only validation, lookup and the status write can fail the call;
// later failures are logged and left to the outbox re-drive.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	if err := in.Validate(); err != nil {
		metrics.TransitionRejections.WithLabelValues("invalid_input").Inc()
		return nil, err
	}
	log := s.logger.WithFields(logrus.Fields{"booking_id": in.BookingID.String(), "status": string(in.Status)})

	b, err := s.bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			metrics.TransitionRejections.WithLabelValues("not_found").Inc()
			return nil, err
		}
		log.WithError(err).Error("load booking failed")
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if err := s.authorize(ctx, in.Actor, b, in.Status); err != nil {
		metrics.TransitionRejections.WithLabelValues("forbidden").Inc()
		return nil, err
	}
	if in.Status == model.StatusCancelled {
		party, err := cancelPartyFor(in.Actor, in.CancelledBy)
		if err != nil {
			metrics.TransitionRejections.WithLabelValues("forbidden").Inc()
			return nil, err
		}
		in.CancelledBy = party
	}
	if s.strict && !CanTransition(b.Status, in.Status) {
		metrics.TransitionRejections.WithLabelValues("not_allowed").Inc()
		return nil, fmt.Errorf("%w: %s to %s", ErrTransitionNotAllowed, b.Status, in.Status)
	}

	now := s.now()
	ev := model.TransitionEvent{
		TransitionID:    uuid.New(),
		BookingID:       b.ID,
		Status:          in.Status,
		ResponseMessage: in.ResponseMessage,
		OccurredAt:      now,
	}
	change := model.StatusChange{BookingID: b.ID, Status: in.Status}
	if in.Status == model.StatusCancelled {
		ev.CancelledBy = in.CancelledBy
		ev.CancellationReason = in.CancellationReason
		change.CancelledAt = &now
		if in.CancelledBy != "" {
			by := in.CancelledBy
			change.CancelledBy = &by
		}
		if in.CancellationReason != "" {
			reason := in.CancellationReason
			change.CancellationReason = &reason
		}
	}
	outboxEv, err := newOutboxEvent(ev)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.CommitTransition(ctx, change, outboxEv); err != nil {
		log.WithError(err).Error("persist status change failed")
		return nil, fmt.Errorf("persist status change: %w", err)
	}
	metrics.Transitions.WithLabelValues(string(in.Status)).Inc()
	log.WithField("transition_id", ev.TransitionID.String()).Info("booking status changed")
	defer s.holdEvent(ctx, log, outboxEv.ID)()

	b.Status = in.Status
	b.UpdatedAt = now
	if in.Status == model.StatusCancelled {
		b.CancelledBy = change.CancelledBy
		b.CancellationReason = change.CancellationReason
		b.CancelledAt = change.CancelledAt
	}

	var errs []error
	if in.ResponseMessage != "" {
		if err := s.storeResponse(ctx, log, b, in.ResponseMessage); err != nil {
			errs = append(errs, err)
		}
	}

	var refund *RefundOutcome
	if in.Status == model.StatusCancelled {
		var rerr error
		refund, rerr = s.triggerRefund(ctx, log, b)
		if rerr != nil {
			errs = append(errs, rerr)
		}
	}

	if err := s.fanOut(ctx, log, b, ev, refund); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		if err := s.outbox.MarkCompleted(ctx, outboxEv.ID); err != nil {
			log.WithError(err).Warn("mark outbox event completed failed")
		}
	} else {
		log.WithError(errors.Join(errs...)).Warn("side effects incomplete, left for re-drive")
	}
	return &TransitionResult{Booking: b, Refund: refund}, nil
}

// holdEvent takes the re-drive lock of a freshly committed event and
// returns its release. Lock errors are logged and the request goes on.
func (s *Service) holdEvent(ctx context.Context, log logrus.FieldLogger, id uuid.UUID) func() {
	if s.locker == nil {
		return func() {}
	}
	key := id.String()
	ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil || !ok {
		log.WithError(err).Warn("could not lock outbox event for inline side effects")
		return func() {}
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			log.WithError(err).Warn("release outbox event lock failed")
		}
	}
}

func newOutboxEvent(ev model.TransitionEvent) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode transition event: %w", err)
	}
	return &model.OutboxEvent{
		ID:          ev.TransitionID,
		AggregateID: ev.BookingID,
		Kind:        model.OutboxKindStatusChanged,
		Payload:     payload,
		Status:      model.OutboxPending,
		CreatedAt:   ev.OccurredAt,
	}, nil
}

func (s *Service) storeResponse(ctx context.Context, log logrus.FieldLogger, b *model.BookingRequest, msg string) error {
	if err := s.bookings.SetResponseMessage(ctx, b.ID, msg); err != nil {
		stepFailed(log, "response_message", err)
		return fmt.Errorf("store response message: %w", err)
	}
	b.ResponseMessage = &msg
	return nil
}

// fanOut inserts the customer notification, the response message and the
// business cancellation notice of one transition, in that order.
func (s *Service) fanOut(ctx context.Context, log logrus.FieldLogger, b *model.BookingRequest, ev model.TransitionEvent, refund *RefundOutcome) error {
	var errs []error

	typ, title, body := CustomerNotification(b, ev.Status, refund)
	n := &model.Notification{
		ID:        sideEffectID(ev.TransitionID, roleCustomerNotification),
		UserID:    b.CustomerID,
		Type:      typ,
		Title:     title,
		Message:   body,
		CreatedAt: s.now(),
	}
	if err := s.notifications.Insert(ctx, n); err != nil {
		stepFailed(log, "customer_notification", err)
		errs = append(errs, fmt.Errorf("customer notification: %w", err))
	}

	needMessage := ev.ResponseMessage != "" && (ev.Status == model.StatusAccepted || ev.Status == model.StatusDeclined)
	needNotice := ev.Status == model.StatusCancelled && ev.CancelledBy == model.CancelledByBusiness
	if !needMessage && !needNotice {
		return errors.Join(errs...)
	}

	biz, err := s.businesses.GetByID(ctx, b.BusinessID)
	if err != nil {
		stepFailed(log, "business_lookup", err)
		errs = append(errs, fmt.Errorf("business lookup: %w", err))
		return errors.Join(errs...)
	}

	if needMessage {
		m := &model.Message{
			ID:             sideEffectID(ev.TransitionID, roleResponseMessage),
			SenderID:       biz.OwnerID,
			RecipientID:    b.CustomerID,
			BusinessID:     b.BusinessID,
			Subject:        ResponseSubject(b),
			Body:           ev.ResponseMessage,
			Type:           model.MessageTypeBookingResponse,
			ConversationID: b.ID,
			CreatedAt:      s.now(),
		}
		if err := s.messages.Insert(ctx, m); err != nil {
			stepFailed(log, "response_message_send", err)
			errs = append(errs, fmt.Errorf("response message: %w", err))
		}
	}

	if needNotice {
		typ, title, body := BusinessCancellationNotice(b, ev.CancellationReason, refund)
		n := &model.Notification{
			ID:        sideEffectID(ev.TransitionID, roleBusinessNotification),
			UserID:    biz.OwnerID,
			Type:      typ,
			Title:     title,
			Message:   body,
			CreatedAt: s.now(),
		}
		if err := s.notifications.Insert(ctx, n); err != nil {
			stepFailed(log, "business_notification", err)
			errs = append(errs, fmt.Errorf("business notification: %w", err))
		}
	}
	return errors.Join(errs...)
}

func stepFailed(log logrus.FieldLogger, step string, err error) {
	metrics.SideEffectFailures.WithLabelValues(step).Inc()
	log.WithError(err).WithField("step", step).Warn("side effect failed")
}

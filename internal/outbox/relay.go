// Package outbox drives booking side effects that did not complete inline.
// The Relay sweeps pending outbox rows onto the broker and the Worker
// replays each delivered event through the booking service.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/metrics"
	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/queue"
)

// Store is the outbox persistence used by Relay and Worker.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.OutboxEvent, error)
	ListDue(ctx context.Context, cutoff time.Time, limit int) ([]model.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkDead(ctx context.Context, id uuid.UUID) error
}

// Publisher hands a message to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.SideEffectMessage) error
}

// RelayOptions tunes a Relay.
type RelayOptions struct {
	Grace       time.Duration
	MaxAttempts int
	BatchSize   int
}

// Relay publishes due outbox events.
type Relay struct {
	store  Store
	pub    Publisher
	opts   RelayOptions
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewRelay builds a Relay.
func NewRelay(store Store, pub Publisher, opts RelayOptions, logger logrus.FieldLogger) *Relay {
	if store == nil || pub == nil {
		panic("outbox: nil dependency passed to NewRelay")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 100
	}
	return &Relay{
		store:  store,
		pub:    pub,
		opts:   opts,
		logger: logger.WithField("component", "outbox_relay"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Sweep publishes one batch of due events and returns how many were
// handed to the broker. Events that used their last attempt are parked as
// dead instead.
func (r *Relay) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.opts.Grace)
	due, err := r.store.ListDue(ctx, cutoff, r.opts.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, ev := range due {
		log := r.logger.WithFields(logrus.Fields{"event_id": ev.ID.String(), "booking_id": ev.AggregateID.String()})
		if ev.Attempts >= r.opts.MaxAttempts {
			if err := r.store.MarkDead(ctx, ev.ID); err != nil {
				log.WithError(err).Error("mark outbox event dead failed")
				continue
			}
			metrics.OutboxDispatched.WithLabelValues("dead").Inc()
			log.Error("outbox event exhausted its attempts")
			continue
		}
		msg := queue.SideEffectMessage{
			EventID:   ev.ID.String(),
			BookingID: ev.AggregateID.String(),
			Kind:      ev.Kind,
		}
		if err := r.pub.Publish(ctx, msg); err != nil {
			metrics.OutboxDispatched.WithLabelValues("error").Inc()
			log.WithError(err).Warn("publish outbox event failed")
			// the broker is likely down, retry the whole batch next sweep
			return sent, err
		}
		if err := r.store.MarkDispatched(ctx, ev.ID); err != nil {
			log.WithError(err).Warn("record outbox dispatch failed")
		}
		metrics.OutboxDispatched.WithLabelValues("published").Inc()
		sent++
	}
	return sent, nil
}

// Run is the cron entry point of the relay.
func (r *Relay) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := r.Sweep(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("outbox sweep failed")
		return
	}
	if n > 0 {
		r.logger.WithField("published", n).Info("outbox sweep published events")
	}
}

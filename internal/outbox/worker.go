package outbox

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
	"github.com/iliyamo/local-services-booking/internal/queue"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

// ErrLocked is returned when another worker is re-driving the same event.
var ErrLocked = errors.New("outbox event locked")

// Redriver replays the side effects of a transition.
type Redriver interface {
	Redrive(ctx context.Context, ev model.TransitionEvent) error
}

// Worker handles side-effect messages from the queue.
type Worker struct {
	store   Store
	redrive Redriver
	locker  Locker
	lockTTL time.Duration
	logger  logrus.FieldLogger
}

// NewWorker builds a Worker. A nil locker disables locking.
func NewWorker(store Store, redrive Redriver, locker Locker, lockTTL time.Duration, logger logrus.FieldLogger) *Worker {
	if store == nil || redrive == nil {
		panic("outbox: nil dependency passed to NewWorker")
	}
	if locker == nil {
		locker = noopLocker{}
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Worker{
		store:   store,
		redrive: redrive,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger.WithField("component", "outbox_worker"),
	}
}

// Handle processes one message. It satisfies queue.Handler.
func (w *Worker) Handle(ctx context.Context, msg queue.SideEffectMessage) error {
	id, err := uuid.Parse(msg.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}
	log := w.logger.WithFields(logrus.Fields{"event_id": msg.EventID, "booking_id": msg.BookingID})

	ok, err := w.locker.Acquire(ctx, msg.EventID, w.lockTTL)
	if err != nil {
		log.WithError(err).Warn("re-drive lock unavailable, proceeding without it")
	} else if !ok {
		metrics.OutboxRedrives.WithLabelValues("locked").Inc()
		return ErrLocked
	} else {
		defer func() {
			if err := w.locker.Release(context.WithoutCancel(ctx), msg.EventID); err != nil {
				log.WithError(err).Warn("release re-drive lock failed")
			}
		}()
	}

	ev, err := w.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrOutboxEventNotFound) {
		log.Warn("outbox event vanished, dropping message")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load outbox event: %w", err)
	}
	if ev.Status != model.OutboxPending {
		metrics.OutboxRedrives.WithLabelValues("skipped").Inc()
		return nil
	}
	if ev.Kind != model.OutboxKindStatusChanged {
		log.WithField("kind", ev.Kind).Warn("unknown outbox kind, parking event")
		return w.store.MarkDead(ctx, ev.ID)
	}

	var te model.TransitionEvent
	if err := json.Unmarshal(ev.Payload, &te); err != nil {
		log.WithError(err).Error("undecodable outbox payload, parking event")
		return w.store.MarkDead(ctx, ev.ID)
	}

	if err := w.redrive.Redrive(ctx, te); err != nil {
		metrics.OutboxRedrives.WithLabelValues("failed").Inc()
		if merr := w.store.MarkFailed(ctx, ev.ID, err.Error()); merr != nil {
			log.WithError(merr).Warn("record re-drive failure failed")
		}
		return err
	}
	metrics.OutboxRedrives.WithLabelValues("completed").Inc()
	if err := w.store.MarkCompleted(ctx, ev.ID); err != nil {
		return fmt.Errorf("mark outbox event completed: %w", err)
	}
	return nil
}

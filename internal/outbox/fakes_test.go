package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/queue"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

type memStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*model.OutboxEvent
	failed map[uuid.UUID]string
}

func newMemStore(evs ...model.OutboxEvent) *memStore {
	s := &memStore{events: map[uuid.UUID]*model.OutboxEvent{}, failed: map[uuid.UUID]string{}}
	for i := range evs {
		ev := evs[i]
		s.events[ev.ID] = &ev
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*model.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, repository.ErrOutboxEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (s *memStore) ListDue(_ context.Context, cutoff time.Time, limit int) ([]model.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OutboxEvent
	for _, ev := range s.events {
		if ev.Status == model.OutboxPending && ev.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (s *memStore) MarkDispatched(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id].Attempts++
	return nil
}

func (s *memStore) MarkCompleted(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id].Status = model.OutboxCompleted
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = reason
	return nil
}

func (s *memStore) MarkDead(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id].Status = model.OutboxDead
	return nil
}

func (s *memStore) status(id uuid.UUID) model.OutboxStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id].Status
}

type recordingPublisher struct {
	msgs []queue.SideEffectMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg queue.SideEffectMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type recordingRedriver struct {
	events []model.TransitionEvent
	err    error
}

func (r *recordingRedriver) Redrive(_ context.Context, ev model.TransitionEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

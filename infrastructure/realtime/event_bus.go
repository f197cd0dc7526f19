package realtime

import (
	"context"
	"sync"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

const (
	subscriberBuffer = 16
	sinkQueueSize    = 256
	sinkTimeout      = 5 * time.Second
)

// Bus fans typed events out to per-user subscribers and to external sinks. Subscriptions live
// exactly as long as the context passed to Subscribe.
type Bus struct {
	mu    sync.RWMutex
	users map[string]map[chan model.Event]struct{}
	sinks []repository.IEventSink
	queue chan model.Event
	now   func() time.Time
}

func NewBus(sinks ...repository.IEventSink) *Bus {
	return &Bus{
		users: make(map[string]map[chan model.Event]struct{}),
		sinks: sinks,
		queue: make(chan model.Event, sinkQueueSize),
		now:   time.Now,
	}
}

// Subscribe returns a channel of the user's events. The channel is closed once ctx is done.
func (b *Bus) Subscribe(ctx context.Context, userID string) <-chan model.Event {
	ch := make(chan model.Event, subscriberBuffer)
	b.mu.Lock()
	if b.users[userID] == nil {
		b.users[userID] = make(map[chan model.Event]struct{})
	}
	b.users[userID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs := b.users[userID]; subs != nil {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.users, userID)
			}
		}
		close(ch)
	}()
	return ch
}

// Publish delivers evt without blocking. Slow subscribers miss events rather than stall publishers.
func (b *Bus) Publish(evt model.Event) {
	if evt.At.IsZero() {
		evt.At = b.now().UTC()
	}
	b.mu.RLock()
	for ch := range b.users[evt.UserID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()

	if len(b.sinks) == 0 {
		return
	}
	select {
	case b.queue <- evt:
	default:
		logger.GetLogger().WithField("type", evt.Type).Warn("Event sink queue full, dropping event")
	}
}

func (b *Bus) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.users[userID])
}

// Run forwards queued events to the sinks until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-b.queue:
			for _, s := range b.sinks {
				sendCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
				if err := s.Send(sendCtx, evt); err != nil {
					logger.GetLogger().WithField("sink", s.Name()).WithField("type", evt.Type).WithField("error", err).Warn("Failed to forward event")
				}
				cancel()
			}
		}
	}
}

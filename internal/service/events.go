package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/walkconquest/backend/internal/domain"
)

// LocalBus is an in-process EventBus for single-instance deployments.
// A subscriber that falls behind its buffer misses events.
type LocalBus struct {
	mu     sync.Mutex
	subs   map[int]chan domain.TerritoryEvent
	nextID int
	buffer int
	logger *slog.Logger
}

// NewLocalBus creates a bus whose subscribers buffer up to buffer events
func NewLocalBus(buffer int, logger *slog.Logger) *LocalBus {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBus{
		subs:   make(map[int]chan domain.TerritoryEvent),
		buffer: buffer,
		logger: logger,
	}
}

// Publish delivers e to every subscriber without blocking
func (b *LocalBus) Publish(ctx context.Context, e domain.TerritoryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.WarnContext(ctx, "subscriber lagging, event dropped",
				slog.Int("subscriber", id),
				slog.String("type", string(e.Type)),
			)
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx ends or cancel is called
func (b *LocalBus) Subscribe(ctx context.Context) (<-chan domain.TerritoryEvent, func(), error) {
	ch := make(chan domain.TerritoryEvent, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
			close(done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel, nil
}

// Subscribers reports the number of registered subscribers
func (b *LocalBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Package redis fans territory events out across server instances over Redis pub/sub
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"github.com/walkconquest/backend/internal/domain"
)

// DefaultChannel is the pub/sub channel territory events are published on
const DefaultChannel = "territories"

// Open connects to Redis and pings it; an empty addr returns nil, nil
func Open(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping %s: %w", addr, err)
	}
	return client, nil
}

// EventBus implements domain.EventBus on a Redis channel
type EventBus struct {
	client  *goredis.Client
	channel string
	buffer  int
	logger  *slog.Logger
}

// NewEventBus creates a bus publishing on channel (DefaultChannel when empty)
func NewEventBus(client *goredis.Client, channel string, logger *slog.Logger) *EventBus {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{client: client, channel: channel, buffer: 16, logger: logger}
}

// Publish encodes and publishes an event
func (b *EventBus) Publish(ctx context.Context, e domain.TerritoryEvent) error {
	payload, err := domain.EncodeEvent(e)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: failed to publish %s: %w", e.Type, err)
	}
	return nil
}

// Subscribe listens on the channel until ctx ends or the returned cancel is called.
// Undecodable payloads are logged and dropped.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan domain.TerritoryEvent, func(), error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("redis: failed to subscribe to %s: %w", b.channel, err)
	}

	out := make(chan domain.TerritoryEvent, b.buffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			ps.Close()
		})
	}

	go func() {
		defer close(out)
		defer cancel()

		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				e, err := b.decode(msg)
				if err != nil {
					b.logger.Warn("dropping territory event", slog.String("channel", msg.Channel), slog.String("error", err.Error()))
					continue
				}
				select {
				case out <- e:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

func (b *EventBus) decode(msg *goredis.Message) (domain.TerritoryEvent, error) {
	if msg == nil {
		return domain.TerritoryEvent{}, fmt.Errorf("redis: empty message")
	}
	return domain.DecodeEvent([]byte(msg.Payload))
}

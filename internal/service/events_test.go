package service

import (
	"context"
	"testing"
	"time"

	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/logging"
)

var _ domain.EventBus = (*LocalBus)(nil)

func receive(t *testing.T, ch <-chan domain.TerritoryEvent) domain.TerritoryEvent {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.TerritoryEvent{}
}

func TestLocalBusFanOut(t *testing.T) {
	bus := NewLocalBus(4, logging.Noop())
	ctx := context.Background()

	a, cancelA, _ := bus.Subscribe(ctx)
	b, cancelB, _ := bus.Subscribe(ctx)
	defer cancelA()
	defer cancelB()

	e := domain.TerritoryEvent{Type: domain.EventTerritoryCreated, Territory: domain.Territory{ID: "t1"}}
	if err := bus.Publish(ctx, e); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := receive(t, a); got.Territory.ID != "t1" {
		t.Fatalf("a got %+v", got)
	}
	if got := receive(t, b); got.Territory.ID != "t1" {
		t.Fatalf("b got %+v", got)
	}
}

func TestLocalBusCancel(t *testing.T) {
	bus := NewLocalBus(1, logging.Noop())
	ch, cancel, _ := bus.Subscribe(context.Background())

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
	if n := bus.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
	if err := bus.Publish(context.Background(), domain.TerritoryEvent{Type: domain.EventTerritoryCreated}); err != nil {
		t.Fatalf("Publish after cancel: %v", err)
	}
}

func TestLocalBusContextEnds(t *testing.T) {
	bus := NewLocalBus(1, logging.Noop())
	ctx, stop := context.WithCancel(context.Background())
	ch, _, _ := bus.Subscribe(ctx)

	stop()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected event")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed when context ended")
	}
}

func TestLocalBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewLocalBus(1, logging.Noop())
	ch, cancel, _ := bus.Subscribe(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		bus.Publish(context.Background(), domain.TerritoryEvent{Type: domain.EventTerritoryCreated})
	}
	if len(ch) != 1 {
		t.Fatalf("buffered = %d, want 1", len(ch))
	}
}

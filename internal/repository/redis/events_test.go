package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/walkconquest/backend/internal/domain"
)

var _ domain.EventBus = (*EventBus)(nil)

func TestOpenWithoutAddress(t *testing.T) {
	client, err := Open(context.Background(), "", "", 0)
	if client != nil || err != nil {
		t.Fatalf("Open(\"\") = %v, %v", client, err)
	}
}

func TestNewEventBusDefaults(t *testing.T) {
	b := NewEventBus(nil, "", nil)
	if b.channel != DefaultChannel || b.logger == nil {
		t.Fatalf("bus = %+v", b)
	}
}

func TestDecodeMessage(t *testing.T) {
	b := NewEventBus(nil, "", nil)
	at := time.UnixMilli(1_700_000_000_000).UTC()
	payload, err := domain.EncodeEvent(domain.TerritoryEvent{
		Type: domain.EventTerritoryConquered,
		Territory: domain.Territory{
			ID:        "t1",
			OwnerID:   "bob",
			OwnerName: "Bob",
			Polygon: []domain.Coordinate{
				{Latitude: 0, Longitude: 0},
				{Latitude: 0, Longitude: 0.001},
				{Latitude: 0.001, Longitude: 0.001},
			},
		},
		PreviousOwnerID: "alice",
		OccurredAt:      at,
	})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	e, err := b.decode(&goredis.Message{Channel: DefaultChannel, Payload: string(payload)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Type != domain.EventTerritoryConquered || e.PreviousOwnerID != "alice" || e.Territory.ID != "t1" || !e.OccurredAt.Equal(at) {
		t.Fatalf("event = %+v", e)
	}

	if _, err := b.decode(&goredis.Message{Payload: `{"type":"weather"}`}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if _, err := b.decode(nil); err == nil {
		t.Fatal("expected error for nil message")
	}
}

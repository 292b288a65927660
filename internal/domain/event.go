package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a territory change pushed to live subscribers
type EventType string

const (
	EventTerritoryCreated   EventType = "territory.created"
	EventTerritoryConquered EventType = "territory.conquered"
)

// TerritoryEvent is published after a territory is persisted or changes owner
type TerritoryEvent struct {
	Type            EventType
	Territory       Territory
	PreviousOwnerID string
	OccurredAt      time.Time
}

type eventDoc struct {
	Type            EventType       `json:"type"`
	Territory       json.RawMessage `json:"territory"`
	PreviousOwnerID string          `json:"previousOwnerId,omitempty"`
	OccurredAt      int64           `json:"occurredAt"`
}

// EncodeEvent serializes an event for the wire
func EncodeEvent(e TerritoryEvent) ([]byte, error) {
	territory, err := EncodeTerritory(e.Territory)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventDoc{
		Type:            e.Type,
		Territory:       territory,
		PreviousOwnerID: e.PreviousOwnerID,
		OccurredAt:      e.OccurredAt.UnixMilli(),
	})
}

// DecodeEvent parses an event produced by EncodeEvent
func DecodeEvent(data []byte) (TerritoryEvent, error) {
	var doc eventDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return TerritoryEvent{}, fmt.Errorf("codec: failed to decode event: %w", err)
	}
	switch doc.Type {
	case EventTerritoryCreated, EventTerritoryConquered:
	default:
		return TerritoryEvent{}, fmt.Errorf("codec: unknown event type %q", doc.Type)
	}

	t, err := DecodeTerritory(doc.Territory)
	if err != nil {
		return TerritoryEvent{}, err
	}
	return TerritoryEvent{
		Type:            doc.Type,
		Territory:       t,
		PreviousOwnerID: doc.PreviousOwnerID,
		OccurredAt:      time.UnixMilli(doc.OccurredAt).UTC(),
	}, nil
}

// EventBus carries live territory updates to subscribers
type EventBus interface {
	Publish(ctx context.Context, e TerritoryEvent) error

	// Subscribe returns a channel of events and a cancel func that closes it
	Subscribe(ctx context.Context) (<-chan TerritoryEvent, func(), error)
}

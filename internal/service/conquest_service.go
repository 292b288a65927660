package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/walkconquest/backend/internal/conquest"
	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/observability"
)

// ConquestService runs conquests and announces them to live subscribers
type ConquestService struct {
	engine  *conquest.Engine
	bus     EventBus
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time

	wgBg sync.WaitGroup
}

// NewConquestService creates a conquest service. bus and metrics may be nil.
func NewConquestService(engine *conquest.Engine, bus EventBus, metrics *observability.Metrics, logger *slog.Logger) *ConquestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConquestService{
		engine:  engine,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// WaitBackground blocks until all background publishes complete
func (s *ConquestService) WaitBackground() {
	s.wgBg.Wait()
}

// Conquer transfers a territory to newOwner. When only the stat transfer
// failed, the result is returned together with the error.
func (s *ConquestService) Conquer(ctx context.Context, territoryID string, newOwner domain.Owner) (conquest.Result, error) {
	res, err := s.engine.Conquer(ctx, territoryID, newOwner)
	if res.Territory.ID == "" {
		return res, err
	}

	s.metrics.ObserveConquest()
	publishAsync(&s.wgBg, s.bus, s.logger, domain.TerritoryEvent{
		Type:            domain.EventTerritoryConquered,
		Territory:       res.Territory,
		PreviousOwnerID: res.PreviousOwnerID,
		OccurredAt:      s.now(),
	})
	return res, err
}

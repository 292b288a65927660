package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/walkconquest/backend/internal/conquest"
	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/observability"
	"github.com/walkconquest/backend/internal/territory"
)

// CreateRequest carries a finished walk to be turned into territories
type CreateRequest struct {
	Owner    domain.Owner
	Strategy territory.Strategy
	Route    []domain.Coordinate
	Region   string
}

// CreateResult lists the persisted territories and the existing ones they overlap
type CreateResult struct {
	Territories []domain.Territory `json:"territories"`
	Conflicts   []domain.Territory `json:"conflicts"`
}

// TerritoryService creates, lists and exports territories
type TerritoryService struct {
	repo       Repository
	factory    *territory.Factory
	engine     *conquest.Engine
	bus        EventBus
	metrics    *observability.Metrics
	logger     *slog.Logger
	queryLimit int
	now        func() time.Time

	wgBg sync.WaitGroup // tracks background publishes for graceful shutdown
}

// NewTerritoryService wires the territory use cases. bus and metrics may be nil.
func NewTerritoryService(
	repo Repository,
	factory *territory.Factory,
	engine *conquest.Engine,
	bus EventBus,
	metrics *observability.Metrics,
	logger *slog.Logger,
	queryLimit int,
) *TerritoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TerritoryService{
		repo:       repo,
		factory:    factory,
		engine:     engine,
		bus:        bus,
		metrics:    metrics,
		logger:     logger,
		queryLimit: queryLimit,
		now:        time.Now,
	}
}

// WaitBackground blocks until all background publishes complete
func (s *TerritoryService) WaitBackground() {
	s.wgBg.Wait()
}

// Create builds territories from a route, persists them and credits the owner.
// Overlaps with existing territories are reported but do not block creation.
func (s *TerritoryService) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if req.Strategy == "" {
		req.Strategy = territory.StrategyRoute
	}
	built, err := s.factory.Build(req.Strategy, req.Route, req.Owner)
	if err != nil {
		return CreateResult{}, s.reject(ctx, req, err)
	}

	for _, t := range built {
		if err := t.Validate(); err != nil {
			return CreateResult{}, s.reject(ctx, req, err)
		}
	}

	existing, err := s.repo.GetAllTerritories(ctx, 0)
	if err != nil {
		s.logger.WarnContext(ctx, "conflict check skipped", slog.String("error", err.Error()))
		existing = nil
	}

	result := CreateResult{
		Territories: make([]domain.Territory, 0, len(built)),
		Conflicts:   make([]domain.Territory, 0),
	}
	seen := make(map[string]bool)

	for i := range built {
		t := built[i]
		t.Region = req.Region

		for _, c := range conquest.FindConflicts(t, existing) {
			if !seen[c.ID] {
				seen[c.ID] = true
				result.Conflicts = append(result.Conflicts, c)
			}
		}

		if _, err := s.repo.SaveTerritory(ctx, &t); err != nil {
			return result, domain.WrapStorage("save territory", err)
		}
		s.metrics.ObserveCreated(string(req.Strategy), t.Area)

		if err := s.engine.CreditNewTerritory(ctx, t); err != nil {
			s.logger.ErrorContext(ctx, "failed to credit owner",
				slog.String("territory_id", t.ID),
				slog.String("owner_id", t.OwnerID),
				slog.String("error", err.Error()),
			)
		}

		s.publish(domain.TerritoryEvent{
			Type:       domain.EventTerritoryCreated,
			Territory:  t,
			OccurredAt: s.now(),
		})
		result.Territories = append(result.Territories, t)
	}

	s.logger.InfoContext(ctx, "territories created",
		slog.String("owner_id", req.Owner.ID),
		slog.Int("count", len(result.Territories)),
		slog.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

func (s *TerritoryService) reject(ctx context.Context, req CreateRequest, err error) error {
	var ge *domain.GeometryError
	if errors.As(err, &ge) {
		s.metrics.ObserveRejected(ge.Reason)
	}
	s.logger.InfoContext(ctx, "territory rejected",
		slog.String("owner_id", req.Owner.ID),
		slog.String("strategy", string(req.Strategy)),
		slog.String("error", err.Error()),
	)
	return err
}

// CheckConflicts reports which stored territories the candidate outline overlaps
func (s *TerritoryService) CheckConflicts(ctx context.Context, polygon []domain.Coordinate) ([]domain.Territory, error) {
	if err := domain.ValidateRoute(polygon); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetAllTerritories(ctx, 0)
	if err != nil {
		return nil, domain.WrapStorage("get all territories", err)
	}
	return conquest.FindConflicts(domain.Territory{Polygon: polygon}, existing), nil
}

// Near lists territories whose centroid is within radiusKm. Storage failures
// degrade to an empty list.
func (s *TerritoryService) Near(ctx context.Context, lat, lng, radiusKm float64) []domain.Territory {
	territories, err := s.repo.GetTerritoriesNear(ctx, lat, lng, radiusKm)
	if err != nil {
		s.logger.WarnContext(ctx, "near query failed", slog.String("error", err.Error()))
		return []domain.Territory{}
	}
	return territories
}

// All lists up to limit territories, falling back to the configured limit.
// Storage failures degrade to an empty list.
func (s *TerritoryService) All(ctx context.Context, limit int) []domain.Territory {
	if limit <= 0 {
		limit = s.queryLimit
	}
	territories, err := s.repo.GetAllTerritories(ctx, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "territory listing failed", slog.String("error", err.Error()))
		return []domain.Territory{}
	}
	return territories
}

// Get returns one territory
func (s *TerritoryService) Get(ctx context.Context, id string) (domain.Territory, error) {
	t, err := s.repo.GetTerritory(ctx, id)
	if err != nil {
		return domain.Territory{}, domain.WrapStorage("get territory", err)
	}
	return t, nil
}

// ByOwner lists a user's territories, newest conquest first
func (s *TerritoryService) ByOwner(ctx context.Context, ownerID string) ([]domain.Territory, error) {
	territories, err := s.repo.GetTerritoriesByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.WrapStorage("get territories by owner", err)
	}
	return territories, nil
}

// GeoJSON exports up to limit territories as a feature collection
func (s *TerritoryService) GeoJSON(ctx context.Context, limit int) *geojson.FeatureCollection {
	return FeatureCollection(s.All(ctx, limit))
}

// publish sends an event on a tracked background goroutine
func (s *TerritoryService) publish(e domain.TerritoryEvent) {
	publishAsync(&s.wgBg, s.bus, s.logger, e)
}

func publishAsync(wg *sync.WaitGroup, bus EventBus, logger *slog.Logger, e domain.TerritoryEvent) {
	if bus == nil {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bus.Publish(ctx, e); err != nil {
			logger.Warn("failed to publish territory event",
				slog.String("type", string(e.Type)),
				slog.String("territory_id", e.Territory.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Package conquest detects territory conflicts and transfers ownership between users.
package conquest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/geo"
)

// ConflictProbeVertices is how many leading candidate vertices are tested for containment
const ConflictProbeVertices = 5

// FindConflicts returns the existing territories that contain at least one of the
// first five vertices of candidate. This is a cheap approximation: an overlap
// that involves only later vertices, or no vertex containment at all, is missed.
func FindConflicts(candidate domain.Territory, existing []domain.Territory) []domain.Territory {
	probes := candidate.Polygon
	if len(probes) > ConflictProbeVertices {
		probes = probes[:ConflictProbeVertices]
	}

	conflicts := make([]domain.Territory, 0)
	if len(probes) == 0 {
		return conflicts
	}

	for _, other := range existing {
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if len(other.Polygon) < geo.MinPolygonVertices {
			continue
		}

		box := geo.Bounds(other.Polygon)
		for _, p := range probes {
			if box.Contains(p) && geo.ContainsPoint(p, other.Polygon) {
				conflicts = append(conflicts, other)
				break
			}
		}
	}
	return conflicts
}

// ApplyStatDelta returns u with the point delta applied. Points never drop
// below zero. A positive delta adds one territory, anything else removes one
// (floored at zero); the magnitude does not matter.
func ApplyStatDelta(u domain.User, delta int) domain.User {
	u.TotalPoints += delta
	if u.TotalPoints < 0 {
		u.TotalPoints = 0
	}

	if delta > 0 {
		u.TerritoriesCount++
	} else {
		u.TerritoriesCount--
		if u.TerritoriesCount < 0 {
			u.TerritoriesCount = 0
		}
	}
	return u
}

// Result describes a completed conquest
type Result struct {
	Territory         domain.Territory `json:"territory"`
	PreviousOwnerID   string           `json:"previous_owner_id"`
	PointsTransferred int              `json:"points_transferred"`
}

// Engine executes conquests against the storage interface
type Engine struct {
	territories domain.TerritoryRepository
	users       domain.UserRepository
	now         func() time.Time
	logger      *slog.Logger
	onSkip      func()
}

// Option configures an Engine
type Option func(*Engine)

// WithClock injects the time source for ConqueredAt
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// OnStatSkipped registers a callback run for every skipped stat update
func OnStatSkipped(fn func()) Option {
	return func(e *Engine) { e.onSkip = fn }
}

// NewEngine creates a conquest engine over the given stores
func NewEngine(territories domain.TerritoryRepository, users domain.UserRepository, opts ...Option) *Engine {
	e := &Engine{
		territories: territories,
		users:       users,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Conquer transfers a territory to a new owner and moves its points value from
// the old owner to the new one.
//
// The ownership write and the two stat writes are separate documents; a
// failure between them leaves ownership changed without the stat transfer.
// Concurrent conquests of one territory race and the last writer wins.
func (e *Engine) Conquer(ctx context.Context, territoryID string, newOwner domain.Owner) (Result, error) {
	t, err := e.territories.GetTerritory(ctx, territoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{}, fmt.Errorf("conquest: territory %s: %w", territoryID, domain.ErrNotFound)
		}
		return Result{}, domain.WrapStorage("get territory", err)
	}
	if t.OwnerID == newOwner.ID {
		return Result{}, fmt.Errorf("conquest: territory %s: %w", territoryID, domain.ErrAlreadyOwner)
	}

	oldOwnerID := t.OwnerID
	points := t.PointsValue
	conqueredAt := e.now()

	update := domain.TerritoryUpdate{
		OwnerID:     &newOwner.ID,
		OwnerName:   &newOwner.Name,
		ConqueredAt: &conqueredAt,
	}
	if err := e.territories.UpdateTerritory(ctx, territoryID, update); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{}, fmt.Errorf("conquest: territory %s: %w", territoryID, domain.ErrNotFound)
		}
		return Result{}, domain.WrapStorage("update territory", err)
	}
	update.Apply(&t)

	e.logger.InfoContext(ctx, "territory conquered",
		slog.String("territory_id", territoryID),
		slog.String("previous_owner", oldOwnerID),
		slog.String("new_owner", newOwner.ID),
		slog.Int("points", points),
	)

	result := Result{Territory: t, PreviousOwnerID: oldOwnerID, PointsTransferred: points}

	var statErrs []error
	if oldOwnerID != "" {
		if err := e.UpdateUserStats(ctx, oldOwnerID, -points); err != nil {
			statErrs = append(statErrs, err)
		}
	}
	if err := e.UpdateUserStats(ctx, newOwner.ID, points); err != nil {
		statErrs = append(statErrs, err)
	}
	return result, e.reportStatErrors(ctx, territoryID, statErrs)
}

// reportStatErrors logs skipped updates and returns only storage failures
func (e *Engine) reportStatErrors(ctx context.Context, territoryID string, errs []error) error {
	var failures []error
	for _, err := range errs {
		if errors.Is(err, domain.ErrStatUpdateSkipped) {
			e.logger.WarnContext(ctx, "stat update skipped",
				slog.String("territory_id", territoryID),
				slog.String("error", err.Error()),
			)
			if e.onSkip != nil {
				e.onSkip()
			}
			continue
		}
		failures = append(failures, err)
	}
	return errors.Join(failures...)
}

// UpdateUserStats applies a point delta to a user aggregate. A missing user
// yields ErrStatUpdateSkipped; the update is not retried.
func (e *Engine) UpdateUserStats(ctx context.Context, userID string, delta int) error {
	u, err := e.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("conquest: user %s: %w", userID, domain.ErrStatUpdateSkipped)
		}
		return domain.WrapStorage("get user", err)
	}

	updated := ApplyStatDelta(u, delta)
	err = e.users.UpdateUser(ctx, userID, domain.UserUpdate{
		TotalPoints:      &updated.TotalPoints,
		TerritoriesCount: &updated.TerritoriesCount,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("conquest: user %s: %w", userID, domain.ErrStatUpdateSkipped)
		}
		return domain.WrapStorage("update user", err)
	}
	return nil
}

// CreditNewTerritory credits the owner of a freshly persisted territory.
// Skipped updates are logged and swallowed.
func (e *Engine) CreditNewTerritory(ctx context.Context, t domain.Territory) error {
	err := e.UpdateUserStats(ctx, t.OwnerID, t.PointsValue)
	return e.reportStatErrors(ctx, t.ID, []error{err})
}

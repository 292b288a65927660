// Package territory converts walked routes into candidate territories.
//
// Two strategies are supported. The whole-route strategy closes the walked loop
// into one polygon. The stamp strategy drops fixed-radius circular territories at
// evenly spaced samples along the route.
package territory

import (
	"fmt"
	"math"
	"time"

	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/geo"
)

const (
	// RecommendedRoutePoints is the sample count below which a loop rarely encloses a meaningful area
	RecommendedRoutePoints = 20

	// DefaultStampRadius is the stamp circle radius in meters
	DefaultStampRadius = 50.0

	// DefaultStampVertices is the vertex count of the ring approximating a stamp circle
	DefaultStampVertices = 12

	// StampSamples is the target number of stamps along a route
	StampSamples = 10

	// metersPerDegree converts stamp offsets to degrees
	metersPerDegree = 111000.0
)

// Strategy selects how a route becomes territories
type Strategy string

const (
	StrategyRoute Strategy = "route"
	StrategyStamp Strategy = "stamp"
)

// ParseStrategy maps request input to a Strategy, defaulting to the whole route
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyRoute:
		return StrategyRoute, nil
	case StrategyStamp:
		return StrategyStamp, nil
	default:
		return "", fmt.Errorf("territory: unknown strategy %q", s)
	}
}

// Factory builds candidate territories. It holds configuration only.
type Factory struct {
	stampRadius    float64
	stampVertices  int
	simplifyMeters float64
	now            func() time.Time
}

// Option configures a Factory
type Option func(*Factory)

// WithStampRadius overrides the stamp radius in meters
func WithStampRadius(meters float64) Option {
	return func(f *Factory) {
		if meters > 0 {
			f.stampRadius = meters
		}
	}
}

// WithStampVertices overrides the ring vertex count (minimum 3)
func WithStampVertices(n int) Option {
	return func(f *Factory) {
		if n >= geo.MinPolygonVertices {
			f.stampVertices = n
		}
	}
}

// WithSimplify prunes whole-route samples closer than meters before building the polygon
func WithSimplify(meters float64) Option {
	return func(f *Factory) { f.simplifyMeters = meters }
}

// WithClock injects the time source used for ConqueredAt
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFactory creates a factory with the default 50 m, 12-vertex stamps
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		stampRadius:   DefaultStampRadius,
		stampVertices: DefaultStampVertices,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build dispatches to the selected strategy
func (f *Factory) Build(strategy Strategy, route []domain.Coordinate, owner domain.Owner) ([]domain.Territory, error) {
	switch strategy {
	case StrategyStamp:
		return f.Stamps(route, owner)
	case StrategyRoute, "":
		t, err := f.WholeRoute(route, owner)
		if err != nil {
			return nil, err
		}
		return []domain.Territory{t}, nil
	default:
		return nil, fmt.Errorf("territory: unknown strategy %q", strategy)
	}
}

// WholeRoute turns the entire walked loop into one territory.
// Returns a *domain.GeometryError when the result is not a valid territory.
func (f *Factory) WholeRoute(route []domain.Coordinate, owner domain.Owner) (domain.Territory, error) {
	if err := domain.ValidateRoute(route); err != nil {
		return domain.Territory{}, err
	}

	polygon := route
	if f.simplifyMeters > 0 {
		polygon = geo.Simplify(route, f.simplifyMeters)
	}

	t := domain.NewTerritory(owner, polygon, f.now())
	if err := t.Validate(); err != nil {
		return domain.Territory{}, err
	}
	return t, nil
}

// Stamps places circular territories at about ten evenly spaced route samples
func (f *Factory) Stamps(route []domain.Coordinate, owner domain.Owner) ([]domain.Territory, error) {
	if len(route) == 0 {
		return nil, &domain.GeometryError{Reason: domain.ReasonEmptyRoute}
	}
	if err := domain.ValidateRoute(route); err != nil {
		return nil, err
	}

	interval := len(route) / StampSamples
	if interval < 1 {
		interval = 1
	}

	now := f.now()
	area := math.Pi * f.stampRadius * f.stampRadius

	stamps := make([]domain.Territory, 0, len(route)/interval+1)
	for i := 0; i < len(route); i += interval {
		t := domain.NewTerritory(owner, f.stampRing(route[i]), now)
		t.SetArea(area)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		stamps = append(stamps, t)
	}
	return stamps, nil
}

// stampRing approximates a circle around center with a regular polygon
func (f *Factory) stampRing(center domain.Coordinate) []domain.Coordinate {
	ring := make([]domain.Coordinate, f.stampVertices)
	radiusDeg := f.stampRadius / metersPerDegree
	cosLat := math.Cos(center.Latitude * math.Pi / 180)

	for i := range ring {
		angle := 2 * math.Pi * float64(i) / float64(f.stampVertices)
		ring[i] = domain.Coordinate{
			Latitude:  center.Latitude + radiusDeg*math.Sin(angle),
			Longitude: center.Longitude + radiusDeg*math.Cos(angle)/cosLat,
		}
	}
	return ring
}

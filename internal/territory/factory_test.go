package territory

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/geo"
	"github.com/walkconquest/backend/internal/scoring"
)

var (
	fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	walker   = domain.Owner{ID: "user-42", Name: "Walker"}
)

// loopRoute walks the perimeter of a side×side degree square with n samples per edge
func loopRoute(lat, lng, side float64, n int) []domain.Coordinate {
	var route []domain.Coordinate
	corners := [][2]float64{{lat, lng}, {lat, lng + side}, {lat + side, lng + side}, {lat + side, lng}, {lat, lng}}
	for e := 0; e < 4; e++ {
		from, to := corners[e], corners[e+1]
		for i := 0; i < n; i++ {
			f := float64(i) / float64(n)
			route = append(route, domain.Coordinate{
				Latitude:  from[0] + (to[0]-from[0])*f,
				Longitude: from[1] + (to[1]-from[1])*f,
			})
		}
	}
	return route
}

func newTestFactory(opts ...Option) *Factory {
	return NewFactory(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestWholeRoute(t *testing.T) {
	route := loopRoute(43.2389, 76.8897, 0.001, 6)

	tr, err := newTestFactory().WholeRoute(route, walker)
	if err != nil {
		t.Fatalf("WholeRoute: %v", err)
	}
	if len(tr.Polygon) != len(route) {
		t.Fatalf("polygon has %d vertices, want %d", len(tr.Polygon), len(route))
	}
	if tr.Area != geo.Area(route) {
		t.Fatalf("Area = %v, want %v", tr.Area, geo.Area(route))
	}
	if tr.PointsValue != scoring.PointsFromArea(tr.Area) {
		t.Fatalf("PointsValue = %d", tr.PointsValue)
	}
	if tr.Color != scoring.ColorForOwner(walker.ID) || tr.OwnerID != walker.ID || tr.OwnerName != walker.Name {
		t.Fatalf("owner fields = %+v", tr)
	}
	if !tr.ConqueredAt.Equal(fixedNow) {
		t.Fatalf("ConqueredAt = %v", tr.ConqueredAt)
	}
}

func TestWholeRouteRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		route  []domain.Coordinate
		reason string
	}{
		{"two points", loopRoute(0, 0, 0.001, 1)[:2], domain.ReasonTooFewPoints},
		{"tiny loop", loopRoute(0, 0, 0.00005, 3), domain.ReasonAreaTooSmall},
		{"huge loop", loopRoute(0, 0, 0.01, 3), domain.ReasonAreaTooLarge},
		{"bad coordinate", []domain.Coordinate{{Latitude: 95}, {Latitude: 0}, {Longitude: 1}}, domain.ReasonBadCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestFactory().WholeRoute(tt.route, walker)
			if !errors.Is(err, domain.ErrInvalidGeometry) {
				t.Fatalf("err = %v, want ErrInvalidGeometry", err)
			}
			var ge *domain.GeometryError
			if !errors.As(err, &ge) || ge.Reason != tt.reason {
				t.Fatalf("reason = %+v, want %s", ge, tt.reason)
			}
		})
	}
}

func TestWholeRouteSimplify(t *testing.T) {
	route := loopRoute(0, 0, 0.001, 30)

	tr, err := newTestFactory(WithSimplify(20)).WholeRoute(route, walker)
	if err != nil {
		t.Fatalf("WholeRoute: %v", err)
	}
	if len(tr.Polygon) >= len(route) {
		t.Fatalf("simplify kept %d of %d points", len(tr.Polygon), len(route))
	}
	if tr.Area != geo.Area(tr.Polygon) {
		t.Fatal("area must match simplified polygon")
	}
}

func TestStamps(t *testing.T) {
	route := loopRoute(43.2389, 76.8897, 0.002, 25) // 100 samples

	stamps, err := newTestFactory().Stamps(route, walker)
	if err != nil {
		t.Fatalf("Stamps: %v", err)
	}
	if len(stamps) != 10 {
		t.Fatalf("got %d stamps, want 10", len(stamps))
	}

	wantArea := math.Pi * DefaultStampRadius * DefaultStampRadius
	for i, s := range stamps {
		if len(s.Polygon) != DefaultStampVertices {
			t.Fatalf("stamp %d has %d vertices", i, len(s.Polygon))
		}
		if s.Area != wantArea {
			t.Fatalf("stamp %d area = %v, want %v", i, s.Area, wantArea)
		}
		if s.PointsValue != 188 {
			t.Fatalf("stamp %d points = %d, want 188", i, s.PointsValue)
		}
		center := route[i*10]
		for j, v := range s.Polygon {
			if d := geo.HaversineMeters(center, v); math.Abs(d-DefaultStampRadius) > 1.5 {
				t.Fatalf("stamp %d vertex %d is %v m from center", i, j, d)
			}
		}
		if !s.ContainsPoint(center) {
			t.Fatalf("stamp %d does not contain its center", i)
		}
	}
}

func TestStampsShortRoute(t *testing.T) {
	route := []domain.Coordinate{{Latitude: 10, Longitude: 10}, {Latitude: 10.001, Longitude: 10}, {Latitude: 10.002, Longitude: 10}}

	stamps, err := newTestFactory().Stamps(route, walker)
	if err != nil {
		t.Fatalf("Stamps: %v", err)
	}
	if len(stamps) != 3 {
		t.Fatalf("got %d stamps, want one per sample", len(stamps))
	}

	if _, err := newTestFactory().Stamps(nil, walker); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Fatalf("empty route err = %v", err)
	}
}

// dateLineWalk heads east along lat -16.8 and ends 0.0001° short of the antimeridian
func dateLineWalk() []domain.Coordinate {
	route := make([]domain.Coordinate, 20)
	for i := range route {
		route[i] = domain.Coordinate{Latitude: -16.8, Longitude: 179.998 + float64(i)*0.0001}
	}
	return route
}

func TestStampsRejectRingsOffTheMap(t *testing.T) {
	tests := []struct {
		name  string
		route []domain.Coordinate
	}{
		{"antimeridian", dateLineWalk()},
		{"pole", []domain.Coordinate{{Latitude: 89.9999, Longitude: 179.99}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamps, err := newTestFactory().Stamps(tt.route, walker)
			if !errors.Is(err, domain.ErrInvalidGeometry) {
				t.Fatalf("Stamps err = %v, want ErrInvalidGeometry", err)
			}
			var ge *domain.GeometryError
			if !errors.As(err, &ge) || ge.Reason != domain.ReasonBadCoordinate {
				t.Fatalf("reason = %+v, want %s", ge, domain.ReasonBadCoordinate)
			}
			if stamps != nil {
				t.Fatalf("got %d stamps alongside the error", len(stamps))
			}
		})
	}
}

func TestStampsRadiusOutOfBounds(t *testing.T) {
	route := loopRoute(0, 0, 0.001, 5)
	if _, err := newTestFactory(WithStampRadius(200)).Stamps(route, walker); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Fatalf("200 m stamps err = %v, want ErrInvalidGeometry", err)
	}
}

func TestBuild(t *testing.T) {
	route := loopRoute(0, 0, 0.001, 6)
	f := newTestFactory()

	got, err := f.Build(StrategyRoute, route, walker)
	if err != nil || len(got) != 1 {
		t.Fatalf("Build(route) = %d, %v", len(got), err)
	}
	got, err = f.Build(StrategyStamp, route, walker)
	if err != nil || len(got) != 12 {
		t.Fatalf("Build(stamp) = %d, %v", len(got), err)
	}
	if _, err := f.Build("hexagon", route, walker); err == nil {
		t.Fatal("unknown strategy accepted")
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": StrategyRoute, "route": StrategyRoute, "stamp": StrategyStamp} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("circle"); err == nil {
		t.Error("ParseStrategy(circle) succeeded")
	}
}

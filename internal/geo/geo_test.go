package geo

import (
	"math"
	"testing"
)

func c(lat, lng float64) Coordinate { return Coordinate{Latitude: lat, Longitude: lng} }

func approxEqual(got, want, relTol float64) bool {
	if want == 0 {
		return math.Abs(got) <= relTol
	}
	return math.Abs(got-want)/math.Abs(want) <= relTol
}

func TestHaversineOneDegreeOfLatitude(t *testing.T) {
	want := EarthRadiusMeters * math.Pi / 180
	if got := HaversineMeters(c(0, 0), c(1, 0)); !approxEqual(got, want, 1e-9) {
		t.Fatalf("HaversineMeters = %v, want %v", got, want)
	}
	if got := HaversineKm(0, 0, 1, 0); !approxEqual(got, want/1000, 1e-9) {
		t.Fatalf("HaversineKm = %v, want %v", got, want/1000)
	}
	if got := HaversineMeters(c(43.2, 76.9), c(43.2, 76.9)); got != 0 {
		t.Fatalf("distance to self = %v, want 0", got)
	}
}

func TestProjectToMeters(t *testing.T) {
	x, y := ProjectToMeters(c(1, 1), 0)
	if !approxEqual(x, MetersPerDegreeLng, 1e-12) || !approxEqual(y, MetersPerDegreeLat, 1e-12) {
		t.Fatalf("ProjectToMeters at equator = (%v, %v)", x, y)
	}

	x, _ = ProjectToMeters(c(60, 1), 60)
	if !approxEqual(x, MetersPerDegreeLng/2, 1e-9) {
		t.Fatalf("x at 60° = %v, want %v", x, MetersPerDegreeLng/2)
	}
}

func TestBearingDegrees(t *testing.T) {
	tests := []struct {
		name string
		to   Coordinate
		want float64
	}{
		{"north", c(1, 0), 0},
		{"east", c(0, 1), 90},
		{"south", c(-1, 0), 180},
		{"west", c(0, -1), 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingDegrees(c(0, 0), tt.to)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("BearingDegrees = %v, want %v", got, tt.want)
			}
			if got < 0 || got >= 360 {
				t.Fatalf("bearing %v out of [0, 360)", got)
			}
		})
	}
}

func TestRouteLength(t *testing.T) {
	route := []Coordinate{c(0, 0), c(1, 0), c(2, 0)}
	want := 2 * EarthRadiusMeters * math.Pi / 180
	if got := RouteLength(route); !approxEqual(got, want, 1e-9) {
		t.Fatalf("RouteLength = %v, want %v", got, want)
	}
	if got := RouteLength(route[:1]); got != 0 {
		t.Fatalf("single point length = %v", got)
	}
}

func TestAreaDegenerate(t *testing.T) {
	polygons := [][]Coordinate{
		nil,
		{c(0, 0)},
		{c(0, 0), c(0.01, 0.01)},
	}
	for _, p := range polygons {
		if got := Area(p); got != 0 {
			t.Fatalf("Area(%d points) = %v, want 0", len(p), got)
		}
		if IsValid(p) {
			t.Fatalf("IsValid(%d points) = true", len(p))
		}
	}
}

func TestAreaSquareNearEquator(t *testing.T) {
	square := []Coordinate{c(0, 0), c(0, 0.001), c(0.001, 0.001), c(0.001, 0)}

	want := 0.001 * MetersPerDegreeLng * 0.001 * MetersPerDegreeLat
	got := Area(square)
	if !approxEqual(got, want, 1e-6) {
		t.Fatalf("Area = %v, want ≈ %v", got, want)
	}
	if !IsValid(square) {
		t.Fatalf("square of %v m² should be valid", got)
	}

	reversed := []Coordinate{square[3], square[2], square[1], square[0]}
	if r := Area(reversed); !approxEqual(r, got, 1e-12) {
		t.Fatalf("winding changed area: %v vs %v", r, got)
	}
}

func TestAreaRectanglesWithinTolerance(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		dLat     float64
		dLng     float64
	}{
		{"almaty", 43.2389, 76.8897, 0.0008, 0.001},
		{"lisbon", 38.7223, -9.1393, 0.0005, 0.0012},
		{"sao paulo", -23.5505, -46.6333, 0.001, 0.0005},
		{"oslo", 59.9139, 10.7522, 0.0004, 0.002},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rect := []Coordinate{
				c(tt.lat, tt.lng),
				c(tt.lat, tt.lng+tt.dLng),
				c(tt.lat+tt.dLat, tt.lng+tt.dLng),
				c(tt.lat+tt.dLat, tt.lng),
			}
			midLat := (tt.lat + tt.lat + tt.dLat) / 2
			width := tt.dLng * MetersPerDegreeLng * math.Cos(midLat*math.Pi/180)
			height := tt.dLat * MetersPerDegreeLat
			want := width * height

			if got := Area(rect); !approxEqual(got, want, 0.02) {
				t.Fatalf("Area = %v, want within 2%% of %v", got, want)
			}
		})
	}
}

func TestAreaTriangle(t *testing.T) {
	tri := []Coordinate{c(0, 0), c(0, 0.002), c(0.002, 0)}
	want := 0.5 * (0.002 * MetersPerDegreeLng) * (0.002 * MetersPerDegreeLat)
	if got := Area(tri); !approxEqual(got, want, 0.02) {
		t.Fatalf("Area = %v, want ≈ %v", got, want)
	}
}

func TestIsValidBounds(t *testing.T) {
	tiny := []Coordinate{c(0, 0), c(0, 0.00005), c(0.00005, 0.00005), c(0.00005, 0)}
	if IsValid(tiny) {
		t.Fatalf("%v m² polygon should be too small", Area(tiny))
	}

	huge := []Coordinate{c(0, 0), c(0, 0.01), c(0.01, 0.01), c(0.01, 0)}
	if IsValid(huge) {
		t.Fatalf("%v m² polygon should be too large", Area(huge))
	}

	if !IsValidArea(MinTerritoryArea) || !IsValidArea(MaxTerritoryArea) {
		t.Fatal("area bounds are inclusive")
	}
}

func TestCentroid(t *testing.T) {
	if got := Centroid(nil); got.Latitude != 0 || got.Longitude != 0 {
		t.Fatalf("Centroid(nil) = %+v", got)
	}

	got := Centroid([]Coordinate{c(0, 0), c(0, 2), c(2, 2), c(2, 0)})
	if got.Latitude != 1 || got.Longitude != 1 {
		t.Fatalf("Centroid = %+v, want (1, 1)", got)
	}
}

func TestContainsPoint(t *testing.T) {
	square := []Coordinate{c(0, 0), c(0, 1), c(1, 1), c(1, 0)}

	tests := []struct {
		name  string
		point Coordinate
		want  bool
	}{
		{"center", c(0.5, 0.5), true},
		{"near corner inside", c(0.01, 0.99), true},
		{"east of polygon", c(0.5, 1.5), false},
		{"west of polygon", c(0.5, -0.5), false},
		{"above polygon", c(1.5, 0.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsPoint(tt.point, square); got != tt.want {
				t.Fatalf("ContainsPoint(%+v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}

	if ContainsPoint(c(0, 0), []Coordinate{c(0, 0), c(1, 1)}) {
		t.Fatal("two-vertex polygon cannot contain anything")
	}
}

func TestContainsPointConcave(t *testing.T) {
	// U shape opening to the north
	u := []Coordinate{c(0, 0), c(0, 3), c(3, 3), c(3, 2), c(1, 2), c(1, 1), c(3, 1), c(3, 0)}
	if ContainsPoint(c(2, 1.5), u) {
		t.Fatal("point in the notch reported inside")
	}
	if !ContainsPoint(c(2, 0.5), u) {
		t.Fatal("point in the west arm reported outside")
	}
}

func TestCentroidOfConvexPolygonIsInside(t *testing.T) {
	polygons := [][]Coordinate{
		{c(0, 0), c(0, 0.001), c(0.001, 0.001), c(0.001, 0)},
		{c(43.2389, 76.8897), c(43.2395, 76.8905), c(43.2401, 76.8897), c(43.2395, 76.8889)},
		{c(-10, -10), c(-10, -9.999), c(-9.9995, -9.9995)},
	}
	for i, p := range polygons {
		if !ContainsPoint(Centroid(p), p) {
			t.Fatalf("polygon %d: centroid not inside", i)
		}
	}

	// Regular hexagon
	hex := make([]Coordinate, 6)
	for i := range hex {
		theta := 2 * math.Pi * float64(i) / 6
		hex[i] = c(50+0.001*math.Sin(theta), 8+0.001*math.Cos(theta))
	}
	if !ContainsPoint(Centroid(hex), hex) {
		t.Fatal("hexagon centroid not inside")
	}
}

func TestSimplify(t *testing.T) {
	// ~1.1 m between samples
	route := make([]Coordinate, 21)
	for i := range route {
		route[i] = c(float64(i)*0.00001, 0)
	}

	got := Simplify(route, 5)
	if got[0] != route[0] {
		t.Fatal("first point must be kept")
	}
	for i := 1; i < len(got); i++ {
		if d := HaversineMeters(got[i-1], got[i]); d < 5 {
			t.Fatalf("kept points %d and %d only %v m apart", i-1, i, d)
		}
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}

	if len(Simplify(route, 0)) != len(route) {
		t.Fatal("zero distance must keep every point")
	}
	if one := Simplify(route[:1], 10); len(one) != 1 {
		t.Fatalf("single point simplified to %d points", len(one))
	}
}

func TestBounds(t *testing.T) {
	b := Bounds([]Coordinate{c(1, 5), c(-2, 3), c(4, -1)})
	want := BoundingBox{MinLat: -2, MinLng: -1, MaxLat: 4, MaxLng: 5}
	if b != want {
		t.Fatalf("Bounds = %+v, want %+v", b, want)
	}
	if !b.Contains(c(0, 0)) || b.Contains(c(5, 0)) {
		t.Fatal("BoundingBox.Contains mismatch")
	}
}

package geo

import "math"

const (
	// MinPolygonVertices is the smallest vertex count that can enclose an area
	MinPolygonVertices = 3

	// MinTerritoryArea and MaxTerritoryArea bound a valid territory in m²
	MinTerritoryArea = 100.0
	MaxTerritoryArea = 50000.0
)

// BoundingBox is an axis-aligned box in degrees
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether the point lies in the box, edges included
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLng && c.Longitude <= b.MaxLng
}

// Area computes the polygon area in square meters with the Shoelace formula.
// Every vertex is projected against its own latitude; the ring is implicitly closed.
func Area(polygon []Coordinate) float64 {
	n := len(polygon)
	if n < MinPolygonVertices {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		current := polygon[i]
		next := polygon[(i+1)%n]

		x1, y1 := ProjectToMeters(current, current.Latitude)
		x2, y2 := ProjectToMeters(next, next.Latitude)

		sum += x1*y2 - x2*y1
	}

	return math.Abs(sum) / 2
}

// Centroid returns the arithmetic mean of the vertices (not area weighted)
func Centroid(polygon []Coordinate) Coordinate {
	if len(polygon) == 0 {
		return Coordinate{}
	}

	var sumLat, sumLng float64
	for _, p := range polygon {
		sumLat += p.Latitude
		sumLng += p.Longitude
	}

	n := float64(len(polygon))
	return Coordinate{Latitude: sumLat / n, Longitude: sumLng / n}
}

// ContainsPoint runs an even-odd ray cast in (lng, lat) space
func ContainsPoint(point Coordinate, polygon []Coordinate) bool {
	n := len(polygon)
	if n < MinPolygonVertices {
		return false
	}

	crossings := 0
	for i := 0; i < n; i++ {
		if rayIntersectsSegment(point, polygon[i], polygon[(i+1)%n]) {
			crossings++
		}
	}

	return crossings%2 == 1
}

func rayIntersectsSegment(point, p1, p2 Coordinate) bool {
	px, py := point.Longitude, point.Latitude

	if (p1.Latitude > py) != (p2.Latitude > py) {
		intersectX := (p2.Longitude-p1.Longitude)*(py-p1.Latitude)/(p2.Latitude-p1.Latitude) + p1.Longitude
		return px < intersectX
	}

	return false
}

// Simplify drops every point closer than minDistanceMeters to the last kept point
func Simplify(polygon []Coordinate, minDistanceMeters float64) []Coordinate {
	if len(polygon) < 2 {
		return append([]Coordinate(nil), polygon...)
	}

	simplified := make([]Coordinate, 0, len(polygon))
	simplified = append(simplified, polygon[0])

	for _, current := range polygon[1:] {
		last := simplified[len(simplified)-1]
		if HaversineMeters(current, last) >= minDistanceMeters {
			simplified = append(simplified, current)
		}
	}

	return simplified
}

// IsValid reports whether the polygon can become a territory
func IsValid(polygon []Coordinate) bool {
	if len(polygon) < MinPolygonVertices {
		return false
	}
	return IsValidArea(Area(polygon))
}

// IsValidArea checks the territory area bounds
func IsValidArea(area float64) bool {
	return area >= MinTerritoryArea && area <= MaxTerritoryArea
}

// Bounds returns the bounding box of the polygon
func Bounds(polygon []Coordinate) BoundingBox {
	if len(polygon) == 0 {
		return BoundingBox{}
	}

	b := BoundingBox{
		MinLat: polygon[0].Latitude,
		MaxLat: polygon[0].Latitude,
		MinLng: polygon[0].Longitude,
		MaxLng: polygon[0].Longitude,
	}
	for _, p := range polygon[1:] {
		b.MinLat = math.Min(b.MinLat, p.Latitude)
		b.MaxLat = math.Max(b.MaxLat, p.Latitude)
		b.MinLng = math.Min(b.MinLng, p.Longitude)
		b.MaxLng = math.Max(b.MaxLng, p.Longitude)
	}
	return b
}

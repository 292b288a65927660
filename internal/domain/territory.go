package domain

import (
	"math"
	"time"

	"github.com/walkconquest/backend/internal/geo"
	"github.com/walkconquest/backend/internal/scoring"
)

// Coordinate is re-exported from geo for convenience
type Coordinate = geo.Coordinate

// Owner identifies the user a territory is built for or conquered by
type Owner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Territory is an owned polygon with its derived area and points value
type Territory struct {
	ID          string       `json:"id,omitempty"`
	OwnerID     string       `json:"owner_id"`
	OwnerName   string       `json:"owner_name"`
	Polygon     []Coordinate `json:"polygon"`
	Area        float64      `json:"area"`
	PointsValue int          `json:"points_value"`
	Color       string       `json:"color"`
	ConqueredAt time.Time    `json:"conquered_at"`
	Region      string       `json:"region,omitempty"`
}

// NewTerritory builds a territory from a polygon, deriving area, points and color
func NewTerritory(owner Owner, polygon []Coordinate, now time.Time) Territory {
	t := Territory{
		OwnerID:     owner.ID,
		OwnerName:   owner.Name,
		Color:       scoring.ColorForOwner(owner.ID),
		ConqueredAt: now,
	}
	t.SetPolygon(polygon)
	return t
}

// SetPolygon replaces the geometry and recomputes area and points
func (t *Territory) SetPolygon(polygon []Coordinate) {
	t.Polygon = append([]Coordinate(nil), polygon...)
	t.SetArea(geo.Area(t.Polygon))
}

// SetArea overrides the area and recomputes points. Used by stamps, whose area
// is the exact circle area rather than the Shoelace area of the ring.
func (t *Territory) SetArea(area float64) {
	t.Area = area
	t.PointsValue = scoring.PointsFromArea(area)
}

// Validate returns a *GeometryError when the territory must not be persisted
func (t Territory) Validate() error {
	if len(t.Polygon) < geo.MinPolygonVertices {
		return &GeometryError{Reason: ReasonTooFewPoints, Points: len(t.Polygon), Area: t.Area}
	}
	for _, c := range t.Polygon {
		if ValidateCoordinate(c) != nil {
			return &GeometryError{Reason: ReasonBadCoordinate, Points: len(t.Polygon), Area: t.Area}
		}
	}
	if t.Area < geo.MinTerritoryArea {
		return &GeometryError{Reason: ReasonAreaTooSmall, Points: len(t.Polygon), Area: t.Area}
	}
	if t.Area > geo.MaxTerritoryArea {
		return &GeometryError{Reason: ReasonAreaTooLarge, Points: len(t.Polygon), Area: t.Area}
	}
	return nil
}

// IsValid reports whether Validate passes
func (t Territory) IsValid() bool { return t.Validate() == nil }

// Center returns the arithmetic centroid of the polygon
func (t Territory) Center() Coordinate { return geo.Centroid(t.Polygon) }

// DistanceFromCenter returns meters between the centroid and point, +Inf without a polygon
func (t Territory) DistanceFromCenter(point Coordinate) float64 {
	if len(t.Polygon) == 0 {
		return math.Inf(1)
	}
	return geo.HaversineMeters(t.Center(), point)
}

// ContainsPoint reports whether point lies inside the territory
func (t Territory) ContainsPoint(point Coordinate) bool {
	return geo.ContainsPoint(point, t.Polygon)
}

// TerritoryUpdate is a partial update; nil fields are left untouched
type TerritoryUpdate struct {
	OwnerID     *string
	OwnerName   *string
	ConqueredAt *time.Time
	Region      *string
}

// Apply copies the set fields onto t
func (u TerritoryUpdate) Apply(t *Territory) {
	if u.OwnerID != nil {
		t.OwnerID = *u.OwnerID
	}
	if u.OwnerName != nil {
		t.OwnerName = *u.OwnerName
	}
	if u.ConqueredAt != nil {
		t.ConqueredAt = *u.ConqueredAt
	}
	if u.Region != nil {
		t.Region = *u.Region
	}
}

// FilterNear keeps territories whose centroid is within radiusKm of the center.
// Territories without a polygon are dropped.
func FilterNear(territories []Territory, centerLat, centerLng, radiusKm float64) []Territory {
	result := make([]Territory, 0, len(territories))
	for _, t := range territories {
		if len(t.Polygon) == 0 {
			continue
		}
		center := t.Center()
		if geo.HaversineKm(centerLat, centerLng, center.Latitude, center.Longitude) <= radiusKm {
			result = append(result, t)
		}
	}
	return result
}

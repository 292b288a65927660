package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// coordinateDoc is the stored shape of a polygon vertex
type coordinateDoc struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Altitude  float64 `json:"alt,omitempty"`
	Accuracy  float64 `json:"acc,omitempty"`
	Timestamp int64   `json:"ts,omitempty"`
}

// EncodePolygon serializes a polygon for a document or JSON column
func EncodePolygon(polygon []Coordinate) ([]byte, error) {
	docs := make([]coordinateDoc, len(polygon))
	for i, c := range polygon {
		if err := ValidateCoordinate(c); err != nil {
			return nil, fmt.Errorf("codec: vertex %d: %w", i, err)
		}
		docs[i] = coordinateDoc{
			Lat:      c.Latitude,
			Lng:      c.Longitude,
			Altitude: c.Altitude,
			Accuracy: c.Accuracy,
		}
		if !c.Timestamp.IsZero() {
			docs[i].Timestamp = c.Timestamp.UnixMilli()
		}
	}
	return json.Marshal(docs)
}

// DecodePolygon parses a stored polygon and validates every vertex
func DecodePolygon(data []byte) ([]Coordinate, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var docs []coordinateDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("codec: failed to decode polygon: %w", err)
	}

	polygon := make([]Coordinate, len(docs))
	for i, d := range docs {
		c := Coordinate{
			Latitude:  d.Lat,
			Longitude: d.Lng,
			Altitude:  d.Altitude,
			Accuracy:  d.Accuracy,
		}
		if d.Timestamp != 0 {
			c.Timestamp = time.UnixMilli(d.Timestamp).UTC()
		}
		if err := ValidateCoordinate(c); err != nil {
			return nil, fmt.Errorf("codec: vertex %d: %w", i, err)
		}
		polygon[i] = c
	}
	return polygon, nil
}

// ValidateCoordinate rejects non-finite or out-of-range latitude/longitude
func ValidateCoordinate(c Coordinate) error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return &GeometryError{Reason: ReasonBadCoordinate}
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return &GeometryError{Reason: ReasonBadCoordinate}
	}
	return nil
}

// ValidateRoute checks every sample of a route
func ValidateRoute(route []Coordinate) error {
	for i, c := range route {
		if err := ValidateCoordinate(c); err != nil {
			return fmt.Errorf("route sample %d: %w", i, err)
		}
	}
	return nil
}

// territoryDoc is the document form of a Territory used on the event bus
type territoryDoc struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	OwnerName   string          `json:"ownerName"`
	Polygon     json.RawMessage `json:"polygon"`
	Area        float64         `json:"area"`
	PointsValue int             `json:"pointsValue"`
	Color       string          `json:"color"`
	ConqueredAt int64           `json:"conqueredAt"`
	Region      string          `json:"region,omitempty"`
}

// EncodeTerritory serializes a territory document
func EncodeTerritory(t Territory) ([]byte, error) {
	polygon, err := EncodePolygon(t.Polygon)
	if err != nil {
		return nil, err
	}
	return json.Marshal(territoryDoc{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		OwnerName:   t.OwnerName,
		Polygon:     polygon,
		Area:        t.Area,
		PointsValue: t.PointsValue,
		Color:       t.Color,
		ConqueredAt: t.ConqueredAt.UnixMilli(),
		Region:      t.Region,
	})
}

// DecodeTerritory parses a territory document. Owner id and name are required.
func DecodeTerritory(data []byte) (Territory, error) {
	var doc territoryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Territory{}, fmt.Errorf("codec: failed to decode territory: %w", err)
	}
	if doc.OwnerID == "" || doc.OwnerName == "" {
		return Territory{}, fmt.Errorf("codec: territory %q has no owner", doc.ID)
	}

	polygon, err := DecodePolygon(doc.Polygon)
	if err != nil {
		return Territory{}, err
	}

	return Territory{
		ID:          doc.ID,
		OwnerID:     doc.OwnerID,
		OwnerName:   doc.OwnerName,
		Polygon:     polygon,
		Area:        doc.Area,
		PointsValue: doc.PointsValue,
		Color:       doc.Color,
		ConqueredAt: time.UnixMilli(doc.ConqueredAt).UTC(),
		Region:      doc.Region,
	}, nil
}

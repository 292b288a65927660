package service

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/walkconquest/backend/internal/domain"
)

// TerritoryPolygon converts a territory outline to a closed orb polygon.
// orb points are [lng, lat].
func TerritoryPolygon(t domain.Territory) orb.Polygon {
	ring := make(orb.Ring, 0, len(t.Polygon)+1)
	for _, c := range t.Polygon {
		ring = append(ring, orb.Point{c.Longitude, c.Latitude})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}
}

// TerritoryFeature renders one territory as a GeoJSON feature
func TerritoryFeature(t domain.Territory) *geojson.Feature {
	f := geojson.NewFeature(TerritoryPolygon(t))
	f.ID = t.ID
	f.Properties["ownerId"] = t.OwnerID
	f.Properties["ownerName"] = t.OwnerName
	f.Properties["area"] = t.Area
	f.Properties["pointsValue"] = t.PointsValue
	f.Properties["color"] = t.Color
	f.Properties["conqueredAt"] = t.ConqueredAt.UnixMilli()
	if t.Region != "" {
		f.Properties["region"] = t.Region
	}
	return f
}

// FeatureCollection renders territories for map clients. Territories with
// fewer than three vertices are left out.
func FeatureCollection(territories []domain.Territory) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var bound orb.Bound
	for _, t := range territories {
		if len(t.Polygon) < 3 {
			continue
		}
		f := TerritoryFeature(t)
		b := f.Geometry.Bound()
		if len(fc.Features) == 0 {
			bound = b
		} else {
			bound = bound.Union(b)
		}
		fc.Append(f)
	}
	if len(fc.Features) > 0 {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}

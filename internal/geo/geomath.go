// Package geo holds the pure geometry used by the territory engine: great-circle
// distance, the equirectangular projection used for area, bearings and the
// polygon helpers in polygon.go. Nothing in here touches storage or clocks.
package geo

import (
	"math"
	"time"
)

const (
	// EarthRadiusMeters is the canonical radius for every distance reported in meters.
	EarthRadiusMeters = 6371000.0

	// EarthRadiusKm is the radius of the kilometre variant used by radius queries.
	EarthRadiusKm = 6371.0

	// MetersPerDegreeLng is the equatorial length of one degree of longitude.
	MetersPerDegreeLng = 111320.0

	// MetersPerDegreeLat is the length of one degree of latitude used for area.
	MetersPerDegreeLat = 110540.0
)

// Coordinate is a single recorded location sample
type Coordinate struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Altitude  float64   `json:"altitude,omitempty"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewCoordinate creates a coordinate stamped with the current time
func NewCoordinate(lat, lng float64) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lng, Timestamp: time.Now()}
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// haversine returns the central angle between two points in radians
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// HaversineMeters calculates the great-circle distance between two coordinates in meters
func HaversineMeters(a, b Coordinate) float64 {
	return EarthRadiusMeters * haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// HaversineKm calculates distance between two points in kilometers
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	return EarthRadiusKm * haversine(lat1, lon1, lat2, lon2)
}

// ProjectToMeters maps a coordinate onto a local plane using the equirectangular
// approximation around referenceLat. Only suitable for area, never for distances
// shown to users.
func ProjectToMeters(c Coordinate, referenceLat float64) (x, y float64) {
	x = c.Longitude * MetersPerDegreeLng * math.Cos(toRadians(referenceLat))
	y = c.Latitude * MetersPerDegreeLat
	return x, y
}

// BearingDegrees returns the initial compass bearing from one point to another in [0, 360)
func BearingDegrees(from, to Coordinate) float64 {
	lat1 := toRadians(from.Latitude)
	lat2 := toRadians(to.Latitude)
	deltaLng := toRadians(to.Longitude - from.Longitude)

	y := math.Sin(deltaLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLng)

	bearing := math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
	if bearing >= 360 {
		bearing = 0
	}
	return bearing
}

// RouteLength sums the great-circle distance between consecutive samples
func RouteLength(route []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += HaversineMeters(route[i-1], route[i])
	}
	return total
}

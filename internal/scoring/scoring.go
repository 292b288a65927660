// Package scoring turns territory area into points and owner ids into map colors.
package scoring

import "unicode/utf16"

// Tier thresholds in m²
const (
	AreaPerPoint     = 50.0
	LargeAreaBonus   = 10000.0
	MediumAreaBonus  = 5000.0
	LargeMultiplier  = 1.5
	MediumMultiplier = 1.2
)

// DefaultColor is used for territories without an owner
const DefaultColor = "#808080"

// Palette holds 16 colors that stay distinguishable on a street map
var Palette = [16]string{
	"#E57373", "#F06292", "#BA68C8", "#9575CD",
	"#7986CB", "#64B5F6", "#4FC3F7", "#4DD0E1",
	"#4DB6AC", "#81C784", "#AED581", "#DCE775",
	"#FFF176", "#FFD54F", "#FFB74D", "#FF8A65",
}

// PointsFromArea converts an area in square meters to a points value.
// One point per 50 m², with a bonus for territories above 5000 and 10000 m².
func PointsFromArea(area float64) int {
	base := int(area / AreaPerPoint)

	if area > LargeAreaBonus {
		base = int(float64(base) * LargeMultiplier)
	} else if area > MediumAreaBonus {
		base = int(float64(base) * MediumMultiplier)
	}

	if base < 1 {
		return 1
	}
	return base
}

// StringHash is the 31-multiplier polynomial hash over UTF-16 code units with
// 32-bit wraparound. Values match colors persisted by earlier clients.
func StringHash(s string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(unit)
	}
	return h
}

// ColorForOwner picks a stable palette color for an owner id
func ColorForOwner(ownerID string) string {
	if ownerID == "" {
		return DefaultColor
	}

	h := StringHash(ownerID)
	if h < 0 {
		h = -h
	}
	// -MinInt32 overflows back to MinInt32, which is a multiple of 16
	if h < 0 {
		h = 0
	}
	return Palette[int(h)%len(Palette)]
}

// Package ranking orders users for the leaderboards.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/walkconquest/backend/internal/domain"
)

// Metric selects the user field a leaderboard is ordered by
type Metric string

const (
	MetricPoints      Metric = "points"
	MetricTerritories Metric = "territories"
	MetricDistance    Metric = "distance"
	MetricStreak      Metric = "streak"
)

// Metrics lists every supported leaderboard
var Metrics = []Metric{MetricPoints, MetricTerritories, MetricDistance, MetricStreak}

// ParseMetric accepts a metric name case-insensitively; empty means points
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MetricPoints, nil
	case MetricPoints, MetricTerritories, MetricDistance, MetricStreak:
		return m, nil
	default:
		return "", fmt.Errorf("ranking: unknown metric %q", s)
	}
}

func less(m Metric, a, b domain.User) bool {
	switch m {
	case MetricTerritories:
		return a.TerritoriesCount > b.TerritoriesCount
	case MetricDistance:
		return a.TotalDistance > b.TotalDistance
	case MetricStreak:
		return a.CurrentStreak > b.CurrentStreak
	default:
		return a.TotalPoints > b.TotalPoints
	}
}

// Sort returns a copy of users ordered by metric, highest first. Ties keep
// their input order.
func Sort(users []domain.User, m Metric) []domain.User {
	sorted := make([]domain.User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(m, sorted[i], sorted[j])
	})
	return sorted
}

// Value returns the metric value shown next to a user on a board
func Value(u domain.User, m Metric) float64 {
	switch m {
	case MetricTerritories:
		return float64(u.TerritoriesCount)
	case MetricDistance:
		return u.TotalDistance
	case MetricStreak:
		return float64(u.CurrentStreak)
	default:
		return float64(u.TotalPoints)
	}
}

// Position returns the 1-based place of userID in a sorted board
func Position(sorted []domain.User, userID string) (int, bool) {
	for i, u := range sorted {
		if u.ID == userID {
			return i + 1, true
		}
	}
	return 0, false
}

package domain

import "time"

// User holds the per-user running totals shown on profiles and leaderboards
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email,omitempty"`
	DisplayName      string    `json:"display_name"`
	PhotoURL         string    `json:"photo_url,omitempty"`
	TotalPoints      int       `json:"total_points"`
	TotalDistance    float64   `json:"total_distance"`
	TotalDuration    int64     `json:"total_duration_seconds"`
	TerritoriesCount int       `json:"territories_count"`
	CurrentStreak    int       `json:"current_streak"`
	BestStreak       int       `json:"best_streak"`
	TodayDistance    float64   `json:"today_distance"`
	CreatedAt        time.Time `json:"created_at"`
	LastActiveAt     time.Time `json:"last_active_at"`
}

// Rank thresholds on total points
const (
	RankBeginner   = "Beginner"
	RankWalker     = "Walker"
	RankExplorer   = "Explorer"
	RankAdventurer = "Adventurer"
	RankLegend     = "Legend"
)

// Rank returns the title earned by the user's points
func (u User) Rank() string {
	switch {
	case u.TotalPoints < 100:
		return RankBeginner
	case u.TotalPoints < 500:
		return RankWalker
	case u.TotalPoints < 1500:
		return RankExplorer
	case u.TotalPoints < 5000:
		return RankAdventurer
	default:
		return RankLegend
	}
}

// Level grows by one every 200 points, starting at 1
func (u User) Level() int {
	return u.TotalPoints/200 + 1
}

// UserUpdate is a partial update; nil fields are left untouched
type UserUpdate struct {
	TotalPoints      *int
	TerritoriesCount *int
	LastActiveAt     *time.Time
}

// Apply copies the set fields onto u
func (p UserUpdate) Apply(u *User) {
	if p.TotalPoints != nil {
		u.TotalPoints = *p.TotalPoints
	}
	if p.TerritoriesCount != nil {
		u.TerritoriesCount = *p.TerritoriesCount
	}
	if p.LastActiveAt != nil {
		u.LastActiveAt = *p.LastActiveAt
	}
}

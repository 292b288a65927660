package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/ranking"
)

// Profile is a user with the titles derived from their points
type Profile struct {
	domain.User
	Rank  string `json:"rank"`
	Level int    `json:"level"`
}

// NewProfile derives rank and level for u
func NewProfile(u domain.User) Profile {
	return Profile{User: u, Rank: u.Rank(), Level: u.Level()}
}

// UserService reads and writes user aggregates
type UserService struct {
	repo Repository
	now  func() time.Time
}

// NewUserService creates a user service
func NewUserService(repo Repository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

// Get returns a user's profile
func (s *UserService) Get(ctx context.Context, id string) (Profile, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return Profile{}, domain.WrapStorage("get user", err)
	}
	return NewProfile(u), nil
}

// Save creates or updates profile fields. Running totals always come from the
// stored aggregate.
func (s *UserService) Save(ctx context.Context, u domain.User) (Profile, error) {
	if u.ID == "" {
		return Profile{}, fmt.Errorf("user: id is required")
	}

	now := s.now().UTC()
	stored, err := s.repo.GetUser(ctx, u.ID)
	switch {
	case err == nil:
		stored.Email = u.Email
		stored.DisplayName = u.DisplayName
		stored.PhotoURL = u.PhotoURL
		stored.LastActiveAt = now
		u = stored
	case errors.Is(err, domain.ErrNotFound):
		u = domain.User{
			ID:           u.ID,
			Email:        u.Email,
			DisplayName:  u.DisplayName,
			PhotoURL:     u.PhotoURL,
			CreatedAt:    now,
			LastActiveAt: now,
		}
	default:
		return Profile{}, domain.WrapStorage("get user", err)
	}

	if err := s.repo.SaveUser(ctx, u); err != nil {
		return Profile{}, domain.WrapStorage("save user", err)
	}
	return NewProfile(u), nil
}

// Entry is one leaderboard row
type Entry struct {
	Position    int     `json:"position"`
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Value       float64 `json:"value"`
	Rank        string  `json:"rank"`
}

// Board is a ranked leaderboard, optionally with the caller's position
type Board struct {
	Metric   ranking.Metric `json:"metric"`
	Entries  []Entry        `json:"entries"`
	Position int            `json:"position,omitempty"`
	Total    int            `json:"total"`
}

// LeaderboardService ranks the top users by a metric
type LeaderboardService struct {
	repo  Repository
	limit int
}

// NewLeaderboardService creates a leaderboard over the top limit users by points
func NewLeaderboardService(repo Repository, limit int) *LeaderboardService {
	if limit <= 0 {
		limit = 50
	}
	return &LeaderboardService{repo: repo, limit: limit}
}

// Board loads the top users by points and re-ranks them by metric. userID,
// when set and present on the board, fills Position.
func (s *LeaderboardService) Board(ctx context.Context, metric ranking.Metric, userID string) (Board, error) {
	users, err := s.repo.ListUsers(ctx, s.limit)
	if err != nil {
		return Board{}, domain.WrapStorage("list users", err)
	}

	sorted := ranking.Sort(users, metric)
	board := Board{Metric: metric, Entries: make([]Entry, 0, len(sorted)), Total: len(sorted)}
	for i, u := range sorted {
		board.Entries = append(board.Entries, Entry{
			Position:    i + 1,
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Value:       ranking.Value(u, metric),
			Rank:        u.Rank(),
		})
	}
	if userID != "" {
		if pos, ok := ranking.Position(sorted, userID); ok {
			board.Position = pos
		}
	}
	return board, nil
}

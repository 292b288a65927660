package postgres

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/walkconquest/backend/internal/domain"
)

// MockRepository implements domain.Repository in memory for tests and DB-less mode
type MockRepository struct {
	mu          sync.RWMutex
	territories map[string]domain.Territory
	order       []string
	users       map[string]domain.User
}

// NewMockRepository creates a new in-memory repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		territories: make(map[string]domain.Territory),
		users:       make(map[string]domain.User),
	}
}

func cloneTerritory(t domain.Territory) domain.Territory {
	t.Polygon = append([]domain.Coordinate(nil), t.Polygon...)
	return t
}

// GetTerritoriesNear filters every stored territory by centroid distance
func (r *MockRepository) GetTerritoriesNear(ctx context.Context, centerLat, centerLng, radiusKm float64) ([]domain.Territory, error) {
	all, err := r.GetAllTerritories(ctx, 0)
	if err != nil {
		return nil, err
	}
	return domain.FilterNear(all, centerLat, centerLng, radiusKm), nil
}

// GetAllTerritories returns territories in insertion order; limit <= 0 means no limit
func (r *MockRepository) GetAllTerritories(ctx context.Context, limit int) ([]domain.Territory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]domain.Territory, 0, len(r.order))
	for _, id := range r.order {
		if limit > 0 && len(results) >= limit {
			break
		}
		results = append(results, cloneTerritory(r.territories[id]))
	}
	return results, nil
}

// GetTerritory returns a copy of a stored territory
func (r *MockRepository) GetTerritory(ctx context.Context, id string) (domain.Territory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.territories[id]
	if !ok {
		return domain.Territory{}, domain.ErrNotFound
	}
	return cloneTerritory(t), nil
}

// GetTerritoriesByOwner lists an owner's territories, newest conquest first
func (r *MockRepository) GetTerritoriesByOwner(ctx context.Context, ownerID string) ([]domain.Territory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]domain.Territory, 0)
	for _, id := range r.order {
		if t := r.territories[id]; t.OwnerID == ownerID {
			results = append(results, cloneTerritory(t))
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ConqueredAt.After(results[j].ConqueredAt)
	})
	return results, nil
}

// SaveTerritory stores a new territory under a fresh uuid
func (r *MockRepository) SaveTerritory(ctx context.Context, t *domain.Territory) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, exists := r.territories[t.ID]; !exists {
		r.order = append(r.order, t.ID)
	}
	r.territories[t.ID] = cloneTerritory(*t)
	return t.ID, nil
}

// UpdateTerritory applies a partial update
func (r *MockRepository) UpdateTerritory(ctx context.Context, id string, fields domain.TerritoryUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.territories[id]
	if !ok {
		return domain.ErrNotFound
	}
	fields.Apply(&t)
	r.territories[id] = t
	return nil
}

// GetUser returns a stored user aggregate
func (r *MockRepository) GetUser(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

// SaveUser creates or replaces a user aggregate
func (r *MockRepository) SaveUser(ctx context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[u.ID] = u
	return nil
}

// UpdateUser applies a partial update
func (r *MockRepository) UpdateUser(ctx context.Context, id string, fields domain.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fields.Apply(&u)
	r.users[id] = u
	return nil
}

// ListUsers returns up to limit users ordered by points descending;
// limit <= 0 means domain.DefaultUserListLimit
func (r *MockRepository) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalPoints != users[j].TotalPoints {
			return users[i].TotalPoints > users[j].TotalPoints
		}
		return users[i].ID < users[j].ID
	})
	if limit <= 0 {
		limit = domain.DefaultUserListLimit
	}
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}

package domain

import (
	"context"
)

// TerritoryRepository defines the territory half of the storage interface.
// Implementations return ErrNotFound for missing documents and may return any
// other error for transport failures; callers wrap those as StorageError.
type TerritoryRepository interface {
	// GetTerritoriesNear returns territories whose centroid lies within radiusKm.
	// Filtering happens client side, there is no native geo query.
	GetTerritoriesNear(ctx context.Context, centerLat, centerLng, radiusKm float64) ([]Territory, error)

	// GetAllTerritories returns up to limit territories
	GetAllTerritories(ctx context.Context, limit int) ([]Territory, error)

	// GetTerritory loads a single territory by id
	GetTerritory(ctx context.Context, id string) (Territory, error)

	// GetTerritoriesByOwner lists an owner's territories, most recent conquest first
	GetTerritoriesByOwner(ctx context.Context, ownerID string) ([]Territory, error)

	// SaveTerritory persists a new territory and assigns its id
	SaveTerritory(ctx context.Context, t *Territory) (string, error)

	// UpdateTerritory applies a partial update
	UpdateTerritory(ctx context.Context, id string, fields TerritoryUpdate) error
}

// DefaultUserListLimit applies when ListUsers is called with limit <= 0
const DefaultUserListLimit = 50

// UserRepository defines the user-aggregate half of the storage interface
type UserRepository interface {
	// GetUser loads a user aggregate by id
	GetUser(ctx context.Context, id string) (User, error)

	// SaveUser creates or replaces a user aggregate
	SaveUser(ctx context.Context, u User) error

	// UpdateUser applies a partial update
	UpdateUser(ctx context.Context, id string, fields UserUpdate) error

	// ListUsers returns up to limit users ordered by total points descending
	ListUsers(ctx context.Context, limit int) ([]User, error)
}

// Repository is the full storage interface consumed by the services.
// This follows the Dependency Inversion Principle - domain defines the interface
type Repository interface {
	TerritoryRepository
	UserRepository

	// Health checks storage connectivity
	Health(ctx context.Context) error
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/walkconquest/backend/internal/domain"
)

// Schema is applied by EnsureSchema on start-up
const Schema = `
CREATE TABLE IF NOT EXISTS territories (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	owner_name    TEXT NOT NULL,
	polygon       JSONB NOT NULL,
	area          DOUBLE PRECISION NOT NULL,
	points_value  INTEGER NOT NULL,
	color         TEXT NOT NULL,
	conquered_at  TIMESTAMPTZ NOT NULL,
	region        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS territories_owner_idx ON territories (owner_id, conquered_at DESC);

CREATE TABLE IF NOT EXISTS users (
	id                TEXT PRIMARY KEY,
	email             TEXT NOT NULL DEFAULT '',
	display_name      TEXT NOT NULL DEFAULT '',
	photo_url         TEXT NOT NULL DEFAULT '',
	total_points      INTEGER NOT NULL DEFAULT 0,
	total_distance    DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_duration    BIGINT NOT NULL DEFAULT 0,
	territories_count INTEGER NOT NULL DEFAULT 0,
	current_streak    INTEGER NOT NULL DEFAULT 0,
	best_streak       INTEGER NOT NULL DEFAULT 0,
	today_distance    DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_active_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS users_points_idx ON users (total_points DESC);
`

const territoryColumns = `id, owner_id, owner_name, polygon, area, points_value, color, conquered_at, region`

const userColumns = `id, email, display_name, photo_url, total_points, total_distance, total_duration,
	territories_count, current_streak, best_streak, today_distance, created_at, last_active_at`

// PostgresRepository implements domain.Repository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates tables and indexes if they do not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: failed to apply schema: %w", err)
	}
	return nil
}

// badDocumentError marks a row whose stored polygon cannot be decoded
type badDocumentError struct {
	id  string
	err error
}

func (e *badDocumentError) Error() string {
	return fmt.Sprintf("territory %s: %v", e.id, e.err)
}

func (e *badDocumentError) Unwrap() error { return e.err }

func scanTerritory(row pgx.Row) (domain.Territory, error) {
	var (
		t       domain.Territory
		polygon []byte
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.OwnerName, &polygon, &t.Area, &t.PointsValue,
		&t.Color, &t.ConqueredAt, &t.Region)
	if err != nil {
		return domain.Territory{}, err
	}
	if t.Polygon, err = domain.DecodePolygon(polygon); err != nil {
		return domain.Territory{}, &badDocumentError{id: t.ID, err: err}
	}
	return t, nil
}

func (r *PostgresRepository) queryTerritories(ctx context.Context, query string, args ...any) ([]domain.Territory, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query territories: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Territory, 0)
	for rows.Next() {
		t, err := scanTerritory(rows)
		var bad *badDocumentError
		if errors.As(err, &bad) {
			slog.WarnContext(ctx, "skipping undecodable territory",
				slog.String("store", "postgres"),
				slog.String("territory_id", bad.id),
				slog.String("error", bad.err.Error()),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan territory row: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate territories: %w", err)
	}
	return results, nil
}

// GetTerritoriesNear loads every territory and filters by centroid distance
func (r *PostgresRepository) GetTerritoriesNear(ctx context.Context, centerLat, centerLng, radiusKm float64) ([]domain.Territory, error) {
	all, err := r.queryTerritories(ctx, `SELECT `+territoryColumns+` FROM territories`)
	if err != nil {
		return nil, err
	}
	return domain.FilterNear(all, centerLat, centerLng, radiusKm), nil
}

// GetAllTerritories returns up to limit territories; limit <= 0 means no limit
func (r *PostgresRepository) GetAllTerritories(ctx context.Context, limit int) ([]domain.Territory, error) {
	if limit <= 0 {
		return r.queryTerritories(ctx, `SELECT `+territoryColumns+` FROM territories ORDER BY created_at`)
	}
	return r.queryTerritories(ctx, `SELECT `+territoryColumns+` FROM territories ORDER BY created_at LIMIT $1`, limit)
}

// GetTerritory retrieves a territory by id
func (r *PostgresRepository) GetTerritory(ctx context.Context, id string) (domain.Territory, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+territoryColumns+` FROM territories WHERE id = $1`, id)
	t, err := scanTerritory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Territory{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Territory{}, fmt.Errorf("postgres: failed to get territory: %w", err)
	}
	return t, nil
}

// GetTerritoriesByOwner lists an owner's territories, newest conquest first
func (r *PostgresRepository) GetTerritoriesByOwner(ctx context.Context, ownerID string) ([]domain.Territory, error) {
	return r.queryTerritories(ctx,
		`SELECT `+territoryColumns+` FROM territories WHERE owner_id = $1 ORDER BY conquered_at DESC`, ownerID)
}

// SaveTerritory persists a new territory to PostgreSQL
func (r *PostgresRepository) SaveTerritory(ctx context.Context, t *domain.Territory) (string, error) {
	polygon, err := domain.EncodePolygon(t.Polygon)
	if err != nil {
		return "", fmt.Errorf("postgres: failed to encode polygon: %w", err)
	}

	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO territories (
			id, owner_id, owner_name, polygon, area, points_value, color, conquered_at, region
		) VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		id, t.OwnerID, t.OwnerName, string(polygon), t.Area, t.PointsValue, t.Color, t.ConqueredAt, t.Region,
	)
	if err != nil {
		return "", fmt.Errorf("postgres: failed to save territory: %w", err)
	}

	t.ID = id
	return id, nil
}

// setClause accumulates "col = $n" fragments for partial updates
type setClause struct {
	parts []string
	args  []any
}

func (s *setClause) add(column string, value any) {
	s.args = append(s.args, value)
	s.parts = append(s.parts, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (r *PostgresRepository) update(ctx context.Context, table, id string, set setClause) error {
	if len(set.parts) == 0 {
		return nil
	}
	set.args = append(set.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(set.parts, ", "), len(set.args))

	tag, err := r.pool.Exec(ctx, query, set.args...)
	if err != nil {
		return fmt.Errorf("postgres: failed to update %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateTerritory applies a partial update
func (r *PostgresRepository) UpdateTerritory(ctx context.Context, id string, fields domain.TerritoryUpdate) error {
	var set setClause
	if fields.OwnerID != nil {
		set.add("owner_id", *fields.OwnerID)
	}
	if fields.OwnerName != nil {
		set.add("owner_name", *fields.OwnerName)
	}
	if fields.ConqueredAt != nil {
		set.add("conquered_at", *fields.ConqueredAt)
	}
	if fields.Region != nil {
		set.add("region", *fields.Region)
	}
	return r.update(ctx, "territories", id, set)
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.TotalPoints, &u.TotalDistance,
		&u.TotalDuration, &u.TerritoriesCount, &u.CurrentStreak, &u.BestStreak, &u.TodayDistance,
		&u.CreatedAt, &u.LastActiveAt)
	return u, err
}

// GetUser retrieves a user aggregate
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: failed to get user: %w", err)
	}
	return u, nil
}

// SaveUser upserts a user aggregate
func (r *PostgresRepository) SaveUser(ctx context.Context, u domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			photo_url = EXCLUDED.photo_url,
			total_points = EXCLUDED.total_points,
			total_distance = EXCLUDED.total_distance,
			total_duration = EXCLUDED.total_duration,
			territories_count = EXCLUDED.territories_count,
			current_streak = EXCLUDED.current_streak,
			best_streak = EXCLUDED.best_streak,
			today_distance = EXCLUDED.today_distance,
			last_active_at = EXCLUDED.last_active_at
	`
	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Email, u.DisplayName, u.PhotoURL, u.TotalPoints, u.TotalDistance, u.TotalDuration,
		u.TerritoriesCount, u.CurrentStreak, u.BestStreak, u.TodayDistance, u.CreatedAt, u.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save user: %w", err)
	}
	return nil
}

// UpdateUser applies a partial update
func (r *PostgresRepository) UpdateUser(ctx context.Context, id string, fields domain.UserUpdate) error {
	var set setClause
	if fields.TotalPoints != nil {
		set.add("total_points", *fields.TotalPoints)
	}
	if fields.TerritoriesCount != nil {
		set.add("territories_count", *fields.TerritoriesCount)
	}
	if fields.LastActiveAt != nil {
		set.add("last_active_at", *fields.LastActiveAt)
	}
	return r.update(ctx, "users", id, set)
}

// ListUsers returns up to limit users ordered by points
func (r *PostgresRepository) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = domain.DefaultUserListLimit
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY total_points DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query users: %w", err)
	}
	defer rows.Close()

	results := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan user row: %w", err)
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate users: %w", err)
	}
	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// Package sqlite is an embedded domain.Repository for single-node deployments
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/walkconquest/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS territories (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	owner_name   TEXT NOT NULL,
	polygon      TEXT NOT NULL,
	area         REAL NOT NULL,
	points_value INTEGER NOT NULL,
	color        TEXT NOT NULL,
	conquered_at INTEGER NOT NULL,
	region       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS territories_owner_idx ON territories (owner_id, conquered_at);

CREATE TABLE IF NOT EXISTS users (
	id                TEXT PRIMARY KEY,
	email             TEXT NOT NULL DEFAULT '',
	display_name      TEXT NOT NULL DEFAULT '',
	photo_url         TEXT NOT NULL DEFAULT '',
	total_points      INTEGER NOT NULL DEFAULT 0,
	total_distance    REAL NOT NULL DEFAULT 0,
	total_duration    INTEGER NOT NULL DEFAULT 0,
	territories_count INTEGER NOT NULL DEFAULT 0,
	current_streak    INTEGER NOT NULL DEFAULT 0,
	best_streak       INTEGER NOT NULL DEFAULT 0,
	today_distance    REAL NOT NULL DEFAULT 0,
	created_at        INTEGER NOT NULL DEFAULT 0,
	last_active_at    INTEGER NOT NULL DEFAULT 0
);
`

const territoryColumns = `id, owner_id, owner_name, polygon, area, points_value, color, conquered_at, region`

const userColumns = `id, email, display_name, photo_url, total_points, total_distance, total_duration,
	territories_count, current_streak, best_streak, today_distance, created_at, last_active_at`

// Repository implements domain.Repository on SQLite
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database file and applies the schema
func Open(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the database
func (r *Repository) Close() error { return r.db.Close() }

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

type scanner interface {
	Scan(dest ...any) error
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

func scanTerritory(row scanner) (domain.Territory, error) {
	var (
		t           domain.Territory
		polygon     string
		conqueredAt int64
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.OwnerName, &polygon, &t.Area, &t.PointsValue,
		&t.Color, &conqueredAt, &t.Region)
	if err != nil {
		return domain.Territory{}, err
	}
	t.ConqueredAt = fromMillis(conqueredAt)
	if t.Polygon, err = domain.DecodePolygon([]byte(polygon)); err != nil {
		return domain.Territory{}, &badDocumentError{id: t.ID, err: err}
	}
	return t, nil
}

func (r *Repository) queryTerritories(ctx context.Context, query string, args ...any) ([]domain.Territory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query territories: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Territory, 0)
	for rows.Next() {
		t, err := scanTerritory(rows)
		var bad *badDocumentError
		if errors.As(err, &bad) {
			slog.WarnContext(ctx, "skipping undecodable territory",
				slog.String("store", "sqlite"),
				slog.String("territory_id", bad.id),
				slog.String("error", bad.err.Error()),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan territory row: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate territories: %w", err)
	}
	return results, nil
}

// GetTerritoriesNear loads every territory and filters by centroid distance
func (r *Repository) GetTerritoriesNear(ctx context.Context, centerLat, centerLng, radiusKm float64) ([]domain.Territory, error) {
	all, err := r.queryTerritories(ctx, `SELECT `+territoryColumns+` FROM territories ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	return domain.FilterNear(all, centerLat, centerLng, radiusKm), nil
}

// GetAllTerritories returns up to limit territories in insertion order
func (r *Repository) GetAllTerritories(ctx context.Context, limit int) ([]domain.Territory, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.queryTerritories(ctx, `SELECT `+territoryColumns+` FROM territories ORDER BY rowid LIMIT ?`, limit)
}

// GetTerritory retrieves a territory by id
func (r *Repository) GetTerritory(ctx context.Context, id string) (domain.Territory, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+territoryColumns+` FROM territories WHERE id = ?`, id)
	t, err := scanTerritory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Territory{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Territory{}, fmt.Errorf("sqlite: failed to get territory: %w", err)
	}
	return t, nil
}

// GetTerritoriesByOwner lists an owner's territories, newest conquest first
func (r *Repository) GetTerritoriesByOwner(ctx context.Context, ownerID string) ([]domain.Territory, error) {
	return r.queryTerritories(ctx,
		`SELECT `+territoryColumns+` FROM territories WHERE owner_id = ? ORDER BY conquered_at DESC, rowid`, ownerID)
}

// SaveTerritory persists a new territory
func (r *Repository) SaveTerritory(ctx context.Context, t *domain.Territory) (string, error) {
	polygon, err := domain.EncodePolygon(t.Polygon)
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to encode polygon: %w", err)
	}

	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO territories (`+territoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.OwnerID, t.OwnerName, string(polygon), t.Area, t.PointsValue, t.Color, millis(t.ConqueredAt), t.Region,
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to save territory: %w", err)
	}

	t.ID = id
	return id, nil
}

func (r *Repository) update(ctx context.Context, table, id string, columns []string, args []any) error {
	if len(columns) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", table, strings.Join(columns, " = ?, "))

	res, err := r.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to update %s: %w", table, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateTerritory applies a partial update
func (r *Repository) UpdateTerritory(ctx context.Context, id string, fields domain.TerritoryUpdate) error {
	var (
		columns []string
		args    []any
	)
	if fields.OwnerID != nil {
		columns, args = append(columns, "owner_id"), append(args, *fields.OwnerID)
	}
	if fields.OwnerName != nil {
		columns, args = append(columns, "owner_name"), append(args, *fields.OwnerName)
	}
	if fields.ConqueredAt != nil {
		columns, args = append(columns, "conquered_at"), append(args, millis(*fields.ConqueredAt))
	}
	if fields.Region != nil {
		columns, args = append(columns, "region"), append(args, *fields.Region)
	}
	return r.update(ctx, "territories", id, columns, args)
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u                     domain.User
		createdAt, lastActive int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.TotalPoints, &u.TotalDistance,
		&u.TotalDuration, &u.TerritoriesCount, &u.CurrentStreak, &u.BestStreak, &u.TodayDistance,
		&createdAt, &lastActive)
	u.CreatedAt = fromMillis(createdAt)
	u.LastActiveAt = fromMillis(lastActive)
	return u, err
}

// GetUser retrieves a user aggregate
func (r *Repository) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("sqlite: failed to get user: %w", err)
	}
	return u, nil
}

// SaveUser upserts a user aggregate
func (r *Repository) SaveUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PhotoURL, u.TotalPoints, u.TotalDistance, u.TotalDuration,
		u.TerritoriesCount, u.CurrentStreak, u.BestStreak, u.TodayDistance, millis(u.CreatedAt), millis(u.LastActiveAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save user: %w", err)
	}
	return nil
}

// UpdateUser applies a partial update
func (r *Repository) UpdateUser(ctx context.Context, id string, fields domain.UserUpdate) error {
	var (
		columns []string
		args    []any
	)
	if fields.TotalPoints != nil {
		columns, args = append(columns, "total_points"), append(args, *fields.TotalPoints)
	}
	if fields.TerritoriesCount != nil {
		columns, args = append(columns, "territories_count"), append(args, *fields.TerritoriesCount)
	}
	if fields.LastActiveAt != nil {
		columns, args = append(columns, "last_active_at"), append(args, millis(*fields.LastActiveAt))
	}
	return r.update(ctx, "users", id, columns, args)
}

// ListUsers returns up to limit users ordered by points
func (r *Repository) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = domain.DefaultUserListLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY total_points DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query users: %w", err)
	}
	defer rows.Close()

	results := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan user row: %w", err)
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate users: %w", err)
	}
	return results, nil
}

// Health pings the database
func (r *Repository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

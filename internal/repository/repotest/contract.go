// Package repotest holds behaviour every domain.Repository implementation must share
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/walkconquest/backend/internal/domain"
)

// Square returns a closed-implicitly square polygon with a side in degrees
func Square(lat, lng, side float64) []domain.Coordinate {
	return []domain.Coordinate{
		{Latitude: lat, Longitude: lng},
		{Latitude: lat, Longitude: lng + side},
		{Latitude: lat + side, Longitude: lng + side},
		{Latitude: lat + side, Longitude: lng},
	}
}

// Run exercises the storage contract against a fresh repository from newRepo
func Run(t *testing.T, newRepo func(t *testing.T) domain.Repository) {
	t.Helper()

	t.Run("SaveAndGetTerritory", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
		tr := domain.NewTerritory(domain.Owner{ID: "u1", Name: "Ana"}, Square(43.2389, 76.8897, 0.001), at)
		tr.Region = "Medeu"

		id, err := repo.SaveTerritory(ctx, &tr)
		if err != nil {
			t.Fatalf("SaveTerritory: %v", err)
		}
		if id == "" || tr.ID != id {
			t.Fatalf("id = %q, territory id = %q", id, tr.ID)
		}

		got, err := repo.GetTerritory(ctx, id)
		if err != nil {
			t.Fatalf("GetTerritory: %v", err)
		}
		if got.OwnerID != "u1" || got.OwnerName != "Ana" || got.Region != "Medeu" || got.Color != tr.Color {
			t.Fatalf("got %+v", got)
		}
		if got.Area != tr.Area || got.PointsValue != tr.PointsValue || len(got.Polygon) != 4 {
			t.Fatalf("derived fields changed: %+v", got)
		}
		if !got.ConqueredAt.Equal(at) {
			t.Fatalf("ConqueredAt = %v, want %v", got.ConqueredAt, at)
		}
	})

	t.Run("MissingDocuments", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		if _, err := repo.GetTerritory(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetTerritory err = %v", err)
		}
		owner := "x"
		if err := repo.UpdateTerritory(ctx, "nope", domain.TerritoryUpdate{OwnerID: &owner}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("UpdateTerritory err = %v", err)
		}
		if _, err := repo.GetUser(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetUser err = %v", err)
		}
		points := 1
		if err := repo.UpdateUser(ctx, "nope", domain.UserUpdate{TotalPoints: &points}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("UpdateUser err = %v", err)
		}
	})

	t.Run("PartialTerritoryUpdate", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		tr := domain.NewTerritory(domain.Owner{ID: "u1", Name: "Ana"}, Square(0, 0, 0.001), time.Unix(1000, 0).UTC())
		id, err := repo.SaveTerritory(ctx, &tr)
		if err != nil {
			t.Fatalf("SaveTerritory: %v", err)
		}

		owner, name := "u2", "Bo"
		at := time.Unix(2000, 0).UTC()
		if err := repo.UpdateTerritory(ctx, id, domain.TerritoryUpdate{OwnerID: &owner, OwnerName: &name, ConqueredAt: &at}); err != nil {
			t.Fatalf("UpdateTerritory: %v", err)
		}

		got, _ := repo.GetTerritory(ctx, id)
		if got.OwnerID != "u2" || got.OwnerName != "Bo" || !got.ConqueredAt.Equal(at) {
			t.Fatalf("after update %+v", got)
		}
		if got.Color != tr.Color || got.Area != tr.Area || len(got.Polygon) != len(tr.Polygon) {
			t.Fatal("update touched geometry or color")
		}
	})

	t.Run("ListingAndNear", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		base := time.Unix(5000, 0).UTC()
		seeds := []struct {
			owner    string
			lat, lng float64
			offset   time.Duration
		}{
			{"u1", 43.2389, 76.8897, 0},
			{"u1", 43.2400, 76.8910, time.Hour},
			{"u2", 51.1694, 71.4491, 2 * time.Hour},
		}
		for _, s := range seeds {
			tr := domain.NewTerritory(domain.Owner{ID: s.owner, Name: s.owner}, Square(s.lat, s.lng, 0.001), base.Add(s.offset))
			if _, err := repo.SaveTerritory(ctx, &tr); err != nil {
				t.Fatalf("SaveTerritory: %v", err)
			}
		}

		all, err := repo.GetAllTerritories(ctx, 0)
		if err != nil || len(all) != 3 {
			t.Fatalf("GetAllTerritories = %d, %v", len(all), err)
		}
		limited, _ := repo.GetAllTerritories(ctx, 2)
		if len(limited) != 2 {
			t.Fatalf("limit 2 returned %d", len(limited))
		}

		near, err := repo.GetTerritoriesNear(ctx, 43.2389, 76.8897, 5)
		if err != nil || len(near) != 2 {
			t.Fatalf("GetTerritoriesNear = %d, %v", len(near), err)
		}

		mine, err := repo.GetTerritoriesByOwner(ctx, "u1")
		if err != nil || len(mine) != 2 {
			t.Fatalf("GetTerritoriesByOwner = %d, %v", len(mine), err)
		}
		if !mine[0].ConqueredAt.After(mine[1].ConqueredAt) {
			t.Fatal("owner territories not newest first")
		}

		none, err := repo.GetTerritoriesByOwner(ctx, "nobody")
		if err != nil || none == nil || len(none) != 0 {
			t.Fatalf("GetTerritoriesByOwner(nobody) = %#v, %v; want empty non-nil", none, err)
		}
	})

	t.Run("Users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created := time.Unix(100, 0).UTC()
		for _, u := range []domain.User{
			{ID: "a", DisplayName: "A", TotalPoints: 50, CreatedAt: created},
			{ID: "b", DisplayName: "B", TotalPoints: 200, TerritoriesCount: 3, CreatedAt: created},
			{ID: "c", DisplayName: "C", TotalPoints: 10, CreatedAt: created},
		} {
			if err := repo.SaveUser(ctx, u); err != nil {
				t.Fatalf("SaveUser: %v", err)
			}
		}

		points, count := 75, 4
		if err := repo.UpdateUser(ctx, "a", domain.UserUpdate{TotalPoints: &points}); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		a, err := repo.GetUser(ctx, "a")
		if err != nil || a.TotalPoints != 75 || a.DisplayName != "A" || !a.CreatedAt.Equal(created) {
			t.Fatalf("GetUser = %+v, %v", a, err)
		}
		if err := repo.UpdateUser(ctx, "b", domain.UserUpdate{TerritoriesCount: &count}); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		b, _ := repo.GetUser(ctx, "b")
		if b.TerritoriesCount != 4 || b.TotalPoints != 200 {
			t.Fatalf("b = %+v", b)
		}

		users, err := repo.ListUsers(ctx, 2)
		if err != nil || len(users) != 2 {
			t.Fatalf("ListUsers = %d, %v", len(users), err)
		}
		if users[0].ID != "b" || users[1].ID != "a" {
			t.Fatalf("ListUsers order = %s, %s", users[0].ID, users[1].ID)
		}
	})

	t.Run("DefaultUserLimit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i := 0; i < domain.DefaultUserListLimit+5; i++ {
			u := domain.User{ID: fmt.Sprintf("u%03d", i), TotalPoints: i}
			if err := repo.SaveUser(ctx, u); err != nil {
				t.Fatalf("SaveUser: %v", err)
			}
		}

		users, err := repo.ListUsers(ctx, 0)
		if err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
		if len(users) != domain.DefaultUserListLimit {
			t.Fatalf("ListUsers(0) = %d users, want %d", len(users), domain.DefaultUserListLimit)
		}
		if users[0].TotalPoints != domain.DefaultUserListLimit+4 {
			t.Fatalf("top user = %+v", users[0])
		}
	})

	t.Run("Health", func(t *testing.T) {
		if err := newRepo(t).Health(context.Background()); err != nil {
			t.Fatalf("Health: %v", err)
		}
	})
}

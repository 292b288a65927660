package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/repository/repotest"
)

var (
	_ domain.Repository = (*MockRepository)(nil)
	_ domain.Repository = (*PostgresRepository)(nil)
)

func TestMockRepositoryContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) domain.Repository { return NewMockRepository() })
}

func TestMockRepositoryReturnsCopies(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()

	tr := domain.NewTerritory(domain.Owner{ID: "u1", Name: "Ana"}, repotest.Square(0, 0, 0.001), time.Now())
	id, _ := repo.SaveTerritory(ctx, &tr)

	got, _ := repo.GetTerritory(ctx, id)
	got.Polygon[0].Latitude = 10
	got.OwnerID = "mallory"

	again, _ := repo.GetTerritory(ctx, id)
	if again.Polygon[0].Latitude != 0 || again.OwnerID != "u1" {
		t.Fatalf("stored territory mutated through a returned copy: %+v", again)
	}
}

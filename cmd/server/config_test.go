package main

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "STORE_DRIVER", "REDIS_DB", "STAMP_RADIUS_METERS", "LEADERBOARD_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg := loadConfig()
	if cfg.Port != "8080" || cfg.LiveAddr != ":9090" || cfg.SQLitePath != "territories.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.StoreDriver != driverMemory {
		t.Fatalf("driver = %q, want memory without DATABASE_URL", cfg.StoreDriver)
	}
	if cfg.StampRadiusMeters != 50 || cfg.SimplifyMeters != 0 || cfg.TerritoryQueryLimit != 200 || cfg.LeaderboardLimit != 50 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/walk")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("STAMP_RADIUS_METERS", "35.5")
	t.Setenv("LEADERBOARD_LIMIT", "many")

	cfg := loadConfig()
	if cfg.StoreDriver != driverPostgres {
		t.Fatalf("driver = %q", cfg.StoreDriver)
	}
	if cfg.RedisDB != 3 || cfg.StampRadiusMeters != 35.5 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.LeaderboardLimit != 50 {
		t.Fatalf("invalid int should fall back, got %d", cfg.LeaderboardLimit)
	}

	t.Setenv("STORE_DRIVER", "sqlite")
	if cfg := loadConfig(); cfg.StoreDriver != driverSQLite {
		t.Fatalf("explicit driver ignored: %q", cfg.StoreDriver)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/walkconquest/backend/internal/conquest"
	"github.com/walkconquest/backend/internal/delivery/http"
	"github.com/walkconquest/backend/internal/delivery/live"
	"github.com/walkconquest/backend/internal/logging"
	"github.com/walkconquest/backend/internal/observability"
	"github.com/walkconquest/backend/internal/repository/postgres"
	"github.com/walkconquest/backend/internal/repository/redis"
	"github.com/walkconquest/backend/internal/repository/sqlite"
	"github.com/walkconquest/backend/internal/service"
	"github.com/walkconquest/backend/internal/territory"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()
	slogger := logging.NewFromEnv()
	slog.SetDefault(slogger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Dependency Injection: Repositories
	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()

	bus, closeBus := openEventBus(ctx, cfg, slogger)
	defer closeBus()

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("Metrics setup failed: %v", err)
	}

	// Dependency Injection: Services
	factory := territory.NewFactory(
		territory.WithStampRadius(cfg.StampRadiusMeters),
		territory.WithSimplify(cfg.SimplifyMeters),
	)
	engine := conquest.NewEngine(repo, repo,
		conquest.WithLogger(slogger),
		conquest.OnStatSkipped(metrics.ObserveStatSkipped),
	)
	territorySvc := service.NewTerritoryService(repo, factory, engine, bus, metrics, slogger, cfg.TerritoryQueryLimit)
	conquestSvc := service.NewConquestService(engine, bus, metrics, slogger)
	userSvc := service.NewUserService(repo)
	leaderboardSvc := service.NewLeaderboardService(repo, cfg.LeaderboardLimit)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "WalkConquest API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	handler := http.NewHandler(territorySvc, conquestSvc, userSvc, leaderboardSvc, repo)
	http.SetupRoutes(app, handler)

	// Live server: websocket stream and /metrics
	liveSrv := &nethttp.Server{
		Addr:              cfg.LiveAddr,
		Handler:           live.NewServer(bus, metrics, slogger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Live server starting on %s", cfg.LiveAddr)
		if err := liveSrv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Printf("Live server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (%s, store=%s)", cfg.Port, cfg.Env, cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := liveSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Live server forced to shutdown: %v", err)
	}

	// Flush pending event publishes before closing the bus
	territorySvc.WaitBackground()
	conquestSvc.WaitBackground()
	log.Println("Server exited gracefully")
}

// openRepository selects the store named by STORE_DRIVER, falling back to
// the in-memory store when the database cannot be reached.
func openRepository(ctx context.Context, cfg *Config) (service.Repository, func()) {
	noop := func() {}

	switch cfg.StoreDriver {
	case driverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Running with in-memory store only")
			if pool != nil {
				pool.Close()
			}
			return postgres.NewMockRepository(), noop
		}
		repo := postgres.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("Schema setup failed: %v", err)
		}
		log.Println("Connected to PostgreSQL")
		return repo, pool.Close

	case driverSQLite:
		repo, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("SQLite setup failed: %v", err)
		}
		log.Printf("Using SQLite store at %s", cfg.SQLitePath)
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Printf("Failed to close SQLite store: %v", err)
			}
		}

	case driverMemory:
		log.Println("Using in-memory store")
		return postgres.NewMockRepository(), noop

	default:
		log.Fatalf("Unknown STORE_DRIVER %q", cfg.StoreDriver)
		return nil, noop
	}
}

// openEventBus uses Redis pub/sub when REDIS_ADDR is set and an in-process
// bus otherwise.
func openEventBus(ctx context.Context, cfg *Config, slogger *slog.Logger) (service.EventBus, func()) {
	client, err := redis.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("Warning: %v", err)
	}
	if client == nil {
		log.Println("Live updates use the in-process bus")
		return service.NewLocalBus(64, slogger), func() {}
	}

	log.Printf("Live updates use Redis at %s", cfg.RedisAddr)
	return redis.NewEventBus(client, redis.DefaultChannel, slogger), func() {
		if err := client.Close(); err != nil {
			log.Println(fmt.Errorf("redis: close: %w", err))
		}
	}
}

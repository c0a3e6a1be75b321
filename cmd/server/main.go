package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"route-planning-service/internal/adapters/cache"
	"route-planning-service/internal/adapters/distance"
	"route-planning-service/internal/adapters/notify"
	"route-planning-service/internal/adapters/repositories"
	"route-planning-service/internal/api"
	"route-planning-service/internal/config"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/ports"
	"route-planning-service/internal/services"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, ORS, Redis, HTTP integrations)
// behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	metrics.RegisterDefault()

	policy, err := config.LoadPolicy(config.Get("POLICY_PATH", "config/policy.yaml"))
	if err != nil {
		log.Fatal(err)
	}
	loc, err := policy.Location()
	if err != nil {
		log.Fatal(err)
	}
	transitions, err := policy.TransitionPolicy()
	if err != nil {
		log.Fatal(err)
	}

	conn, dialect, err := openStore()
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := initAndSeed(ctx, conn, dialect, config.Get("SEED_PATH", "data/seeds/network.json")); err != nil {
		log.Fatal(err)
	}

	var rdb *redis.Client
	if url := config.Get("REDIS_URL", ""); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			log.Fatalf("parse REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	oracle, err := newOracle(conn, dialect, rdb)
	if err != nil {
		log.Fatal(err)
	}

	session := &http.Client{Timeout: config.Duration("INTEGRATION_TIMEOUT", 10*time.Second)}
	requests := notify.NewHTTPRequestService(config.Get("REQUEST_SERVICE_URL", "http://localhost:8081"), session)
	cargo := newCargoTracker(session, rdb)

	store := repositories.NewSQLStore(conn, dialect)
	directory := repositories.NewSQLWarehouseDirectory(conn, dialect)
	params, err := policy.CostParams()
	if err != nil {
		log.Fatal(err)
	}
	costs := domain.CostModel{Params: params}

	selector := services.NewCandidateSelector(services.NewVariantBuilder(oracle, directory), directory, policy.MaxIntermediates)
	committer := services.NewRouteCommitter(requests, selector, directory, store, services.Schedule{
		DwellBuffer: policy.DwellBuffer,
		Location:    loc,
	})

	router := api.NewRouter(api.Dependencies{
		Planner:   services.NewPlanner(requests, selector, store),
		Committer: committer,
		Lifecycle: services.NewSegmentLifecycle(store, directory, requests, cargo, transitions, costs),
		Costs:     services.NewCostService(store, directory, costs),
		DB:        conn,
	})

	port := config.Get("PORT", "8080")

	// Timeouts are tuned for cold-cache planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-stop.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s dialect=%s", port, dialect)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// openStore prefers Postgres when DATABASE_URL is set and falls back to a
// local SQLite file.
func openStore() (*sql.DB, db.Dialect, error) {
	if url := config.Get("DATABASE_URL", ""); url != "" {
		conn, err := db.Open(url)
		return conn, db.Postgres, err
	}

	conn, err := db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
	return conn, db.SQLite, err
}

func initAndSeed(ctx context.Context, conn *sql.DB, dialect db.Dialect, seedPath string) error {
	if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("seed file %s not found, skipping seed", seedPath)
		return nil
	}

	if err := repositories.SeedFromJSON(ctx, conn, dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

// newOracle stacks cache tiers (Redis when configured, then SQL) over a
// rate-limited ORS client. Cache hits never consume rate budget.
func newOracle(conn *sql.DB, dialect db.Dialect, rdb *redis.Client) (ports.DistanceOracle, error) {
	ors, err := distance.NewORSOracle(
		config.Get("ORS_API_KEY", ""),
		distance.WithBaseURL(config.Get("ORS_BASE_URL", "https://api.openrouteservice.org")),
		distance.WithProfile(config.Get("ORS_PROFILE", "driving-hgv")),
		distance.WithMaxAttempts(config.Int("ORS_MAX_ATTEMPTS", 1)),
	)
	if err != nil {
		return nil, fmt.Errorf("distance oracle: %w", err)
	}

	limited := distance.NewRateLimitedOracle(ors, config.Float("ORACLE_RPS", 0.6), config.Int("ORACLE_BURST", 1))

	var tiers cache.Tiered
	if rdb != nil {
		tiers = append(tiers, cache.NewRedisMeasurementCache(rdb, config.Duration("DISTANCE_CACHE_TTL", 30*24*time.Hour)))
	}
	tiers = append(tiers, cache.NewSQLMeasurementCache(conn, dialect))

	return distance.NewCachedOracle(limited, tiers), nil
}

func newCargoTracker(session *http.Client, rdb *redis.Client) ports.CargoTracker {
	var trackers notify.CargoFanOut
	if url := config.Get("CARGO_SERVICE_URL", ""); url != "" {
		trackers = append(trackers, notify.NewHTTPCargoTracker(url, session))
	}
	if rdb != nil {
		trackers = append(trackers, notify.NewRedisCargoTracker(rdb))
	}
	if len(trackers) == 0 {
		log.Println("no cargo tracker configured (CARGO_SERVICE_URL, REDIS_URL); cargo states are not published")
	}
	return trackers
}

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/SscSPs/journal_ledger/internal/adapters/inventory"
	"github.com/SscSPs/journal_ledger/internal/adapters/notify"
	"github.com/SscSPs/journal_ledger/internal/adapters/redislock"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/core/services"
	"github.com/SscSPs/journal_ledger/internal/handlers"
	"github.com/SscSPs/journal_ledger/internal/middleware"
	"github.com/SscSPs/journal_ledger/internal/platform/config"
	"github.com/SscSPs/journal_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/journal_ledger/internal/repositories/memory"
	"github.com/SscSPs/journal_ledger/internal/utils/locking"
	"github.com/SscSPs/journal_ledger/pkg/database"
)

// @title Journal Ledger API
// @version 1.0
// @description Journal entry lifecycle, approvals, reversals and bulk operations.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// --- Storage ---
	var repos portsrepo.RepositoryProvider
	var health handlers.HealthCheck
	switch cfg.Storage {
	case config.StorageMemory:
		repos = memory.NewRepositoryProvider(memory.NewStore())
		logger.Info("Using in-memory storage.")
	default:
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer database.ClosePgxPool(dbPool)
		logger.Info("Database connection pool established.")

		logger.Info("Running database migrations...")
		if err := database.RunMigrations(cfg.DatabaseURL, "file://migrations", logger); err != nil {
			logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}

		repos = pgsql.NewRepositoryProvider(dbPool)
		if cfg.EnableDBCheck {
			health = dbPool.Ping
		}
	}

	// --- Collaborators ---
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("Invalid REDIS_URL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var locker portssvc.EntryLocker
	if redisClient != nil {
		locker = redislock.New(redisClient, cfg.LockTTL)
		logger.Info("Using Redis entry locks.", slog.Duration("ttl", cfg.LockTTL))
	} else {
		locker = locking.NewKeyedMutex()
		logger.Warn("REDIS_URL not set, entry locks only hold within this instance.")
	}

	var inventoryGateway portssvc.InventoryGateway = inventory.NoopGateway{}
	if cfg.InventoryServiceURL != "" {
		inventoryGateway = inventory.NewHTTPGateway(cfg.InventoryServiceURL, cfg.InventoryTimeout, logger)
	}

	posthogNotifier := notify.NewPosthogNotifier(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogNotifier.Close()
	notifier := notify.Fanout{notify.LogNotifier{}, posthogNotifier}

	serviceContainer := services.NewServiceContainer(cfg, repos, inventoryGateway,
		services.WithNotifier(notifier),
		services.WithLocker(locker),
	)

	// --- HTTP ---
	rateLimiter, err := newRateLimiter(cfg, redisClient)
	if err != nil {
		logger.Error("Failed to configure rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	err = r.SetTrustedProxies(nil)
	if err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, health,
		middleware.RateLimit(rateLimiter),
		middleware.UsageTrackingMiddleware(posthogNotifier),
	)

	logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.Storage))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newRateLimiter builds the per-IP limiter, shared through Redis when available.
func newRateLimiter(cfg *config.Config, redisClient *redis.Client) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	if redisClient == nil {
		return limiter.New(limitermemory.NewStore(), rate), nil
	}
	store, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "ledger:ratelimit"})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

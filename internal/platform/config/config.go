package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string
	Storage       string // postgres or memory

	// Locking
	RedisURL string
	LockTTL  time.Duration

	// Inventory collaborator; empty URL disables it
	InventoryServiceURL string
	InventoryTimeout    time.Duration

	// Notifications
	PosthogAPIKey   string
	PosthogEndpoint string

	// Workflow
	ApprovalPolicy   string
	BatchConcurrency int
	BatchMaxItems    int
	ImportMaxBytes   int64

	// HTTP
	RateLimit          string // ulule/limiter format, e.g. 100-M
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("STORAGE", StoragePostgres)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("LOCK_TTL", "10s")
	viper.SetDefault("INVENTORY_SERVICE_URL", "")
	viper.SetDefault("INVENTORY_TIMEOUT", "5s")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "https://us.i.posthog.com")
	viper.SetDefault("APPROVAL_POLICY", "FIRST_RESPONDER")
	viper.SetDefault("BATCH_CONCURRENCY", 4)
	viper.SetDefault("BATCH_MAX_ITEMS", 500)
	viper.SetDefault("IMPORT_MAX_BYTES", 5<<20)
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:         viper.GetString("PGSQL_URL"),
		Port:                viper.GetString("PORT"),
		IsProduction:        viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:       viper.GetBool("ENABLE_DB_CHECK"),
		JWTSecret:           viper.GetString("JWT_SECRET"),
		Storage:             strings.ToLower(viper.GetString("STORAGE")),
		RedisURL:            viper.GetString("REDIS_URL"),
		InventoryServiceURL: viper.GetString("INVENTORY_SERVICE_URL"),
		PosthogAPIKey:       viper.GetString("POSTHOG_API_KEY"),
		PosthogEndpoint:     viper.GetString("POSTHOG_ENDPOINT"),
		ApprovalPolicy:      strings.ToUpper(viper.GetString("APPROVAL_POLICY")),
		BatchConcurrency:    viper.GetInt("BATCH_CONCURRENCY"),
		BatchMaxItems:       viper.GetInt("BATCH_MAX_ITEMS"),
		ImportMaxBytes:      viper.GetInt64("IMPORT_MAX_BYTES"),
		RateLimit:           viper.GetString("RATE_LIMIT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			log.Println("Warning: PGSQL_URL environment variable not set.")
		}
	case StorageMemory:
		log.Println("Warning: STORAGE=memory, entries are lost on restart.")
	default:
		return nil, fmt.Errorf("unsupported STORAGE %q", cfg.Storage)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.LockTTL = durationOr("LOCK_TTL", 10*time.Second)
	cfg.InventoryTimeout = durationOr("INVENTORY_TIMEOUT", 5*time.Second)

	switch cfg.ApprovalPolicy {
	case "FIRST_RESPONDER", "UNANIMOUS":
	default:
		return nil, fmt.Errorf("unsupported APPROVAL_POLICY %q", cfg.ApprovalPolicy)
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

// durationOr parses key as a duration, falling back to def with a warning.
func durationOr(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

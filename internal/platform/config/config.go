// Package config loads the server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"forum_backend/internal/platform/db"
	redisclient "forum_backend/internal/platform/redis"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageAuto     = "auto"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

// Config holds everything cmd/server needs to wire the forum store.
type Config struct {
	Port          string
	Namespace     string
	StorageDriver string

	Redis    redisclient.Config
	DB       db.Config
	MongoURI string
	MongoDB  string

	ResetTokenTTL         time.Duration
	OpTimeout             time.Duration
	SeedSampleGroups      bool
	ZeroCapacityUnlimited bool
	LazyInit              bool
	SeedAdminPassword     string
	SeedGuestPassword     string
	BcryptCost            int

	// ResetRateLimit is the number of reset tokens one user may request per
	// ResetRateWindow. 0 disables the limit.
	ResetRateLimit  int
	ResetRateWindow time.Duration

	JWTSecret     string
	JWTExpiration time.Duration
}

// Load reads the configuration. Unset variables fall back to defaults;
// malformed values are reported all at once.
func Load() (Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := Config{
		Port:          getenv("PORT", "8080"),
		Namespace:     getenv("FORUM_NAMESPACE", "forum"),
		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", StorageAuto)),

		Redis: redisclient.Config{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     os.Getenv("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       p.intVar("REDIS_DB", 0),
		},
		DB:       db.LoadConfigFromEnv(),
		MongoURI: os.Getenv("MONGO_URI"),
		MongoDB:  getenv("MONGO_DB", "forum"),

		ResetTokenTTL:         p.durationVar("RESET_TOKEN_TTL", time.Hour),
		OpTimeout:             p.durationVar("OP_TIMEOUT", 5*time.Second),
		SeedSampleGroups:      p.boolVar("SEED_SAMPLE_GROUPS", true),
		ZeroCapacityUnlimited: p.boolVar("ZERO_CAPACITY_UNLIMITED", true),
		LazyInit:              p.boolVar("LAZY_INIT", true),
		SeedAdminPassword:     os.Getenv("SEED_ADMIN_PASSWORD"),
		SeedGuestPassword:     os.Getenv("SEED_GUEST_PASSWORD"),
		BcryptCost:            p.intVar("BCRYPT_COST", 0),

		ResetRateLimit:  p.intVar("RESET_RATE_LIMIT", 5),
		ResetRateWindow: p.durationVar("RESET_RATE_WINDOW", time.Hour),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTExpiration: p.durationVar("JWT_EXPIRATION", time.Hour),
	}

	switch cfg.StorageDriver {
	case StorageAuto, StorageRedis, StoragePostgres, StorageSQLite, StorageMongo, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unsupported value %q", cfg.StorageDriver))
	}
	if cfg.StorageDriver == StorageSQLite {
		cfg.DB.Driver = db.DriverSQLite
	}

	return cfg, errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser collects conversion errors instead of failing on the first one.
type parser struct {
	errs *[]error
}

func (p parser) fail(key string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p parser) intVar(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return n
}

func (p parser) boolVar(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return b
}

func (p parser) durationVar(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return d
}

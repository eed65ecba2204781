package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Embedded zone database so STORE_TIMEZONE resolves on minimal images.
	_ "time/tzdata"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port              string
	AllowedOrigin     string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisKeyPrefix    string
	AuthSecret        string
	StoreTimezone     string
	LowStockThreshold int
	SeedSampleCatalog bool
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	threshold, err := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10"))
	if err != nil || threshold < 1 {
		threshold = 10
	}
	seed, err := strconv.ParseBool(getEnv("SEED_SAMPLE_CATALOG", "true"))
	if err != nil {
		seed = true
	}

	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		RedisKeyPrefix:    getEnv("REDIS_KEY_PREFIX", "isopos"),
		AuthSecret:        strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		StoreTimezone:     getEnv("STORE_TIMEZONE", "Asia/Manila"),
		LowStockThreshold: threshold,
		SeedSampleCatalog: seed,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Backend picks the persistence adapter: postgres wins over redis, and
// memory is used when neither is configured.
func (c Config) Backend() string {
	switch {
	case c.DatabaseURL != "":
		return BackendPostgres
	case c.RedisAddr != "":
		return BackendRedis
	default:
		return BackendMemory
	}
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("load STORE_TIMEZONE %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

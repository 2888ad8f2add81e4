package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/UkralStul/barfinder-service/internal/discovery"

	"github.com/joho/godotenv"
)

// Поддерживаемые бэкенды документного хранилища.
const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config - вся конфигурация сервиса.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Discovery DiscoveryConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	Backend     string // in-memory, postgres, redis
	DatabaseURL string
	Redis       RedisConfig
	// SeedDemoData заполняет пустое in-memory хранилище тестовыми данными.
	SeedDemoData bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DiscoveryConfig struct {
	RadiusKm float64
	// RegionDataset - путь к YAML со справочником регионов; пусто - встроенный.
	RegionDataset string
}

type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv собирает конфигурацию из окружения процесса и проверяет ее.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		errs = append(errs, "PORT must be a number")
	}
	cfg.Server.Port = port

	cfg.Storage.Backend = getEnvOrDefault("STORAGE", StorageInMemory)
	cfg.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.Storage.Redis.Addr = getEnvOrDefault("REDIS_ADDR", "127.0.0.1:6379")
	cfg.Storage.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, "REDIS_DB must be a number")
		}
		cfg.Storage.Redis.DB = db
	}
	cfg.Storage.SeedDemoData, err = strconv.ParseBool(getEnvOrDefault("SEED_DEMO_DATA", "true"))
	if err != nil {
		errs = append(errs, "SEED_DEMO_DATA must be a boolean")
	}

	cfg.Discovery.RadiusKm = discovery.DefaultRadiusKm
	if v := os.Getenv("DISCOVERY_RADIUS_KM"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, "DISCOVERY_RADIUS_KM must be a number")
		}
		cfg.Discovery.RadiusKm = km
	}
	cfg.Discovery.RegionDataset = os.Getenv("REGION_DATASET")

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет, что конфигурация полна и непротиворечива.
// Возвращает все найденные проблемы одной ошибкой.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "PORT must be between 1 and 65535")
	}

	switch c.Storage.Backend {
	case StorageInMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL must be set for postgres storage")
		}
	case StorageRedis:
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, "REDIS_ADDR must be set for redis storage")
		}
		if c.Storage.Redis.DB < 0 {
			errs = append(errs, "REDIS_DB must not be negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE must be one of %s, %s, %s", StorageInMemory, StoragePostgres, StorageRedis))
	}

	if !(c.Discovery.RadiusKm > 0) {
		errs = append(errs, "DISCOVERY_RADIUS_KM must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errs = append(errs, "LOG_FORMAT must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionStoreFile     = "file"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
	SessionStoreMemory   = "memory"
)

// Config aggregates runtime configuration for the client and the dev backend.
type Config struct {
	App       AppConfig
	API       APIConfig
	Session   SessionConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Ordering  OrderingConfig
	DevServer DevServerConfig
}

// AppConfig identifies the running program.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// APIConfig points the client at the meal backend.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
	RateLimitRPS   float64
	RateBurst      int
}

// SessionConfig selects where the token pair is persisted between runs.
type SessionConfig struct {
	Store   string
	Key     string
	FileDir string
	// RedisTTLHours bounds how long a persisted pair survives in redis. Zero keeps it until logout.
	RedisTTLHours int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Encoding    string
	Output      string
	Development bool
}

// OrderingConfig holds order rules shared by the client and the dev backend.
type OrderingConfig struct {
	LeadDays int
}

// DevServerConfig configures the local development backend.
type DevServerConfig struct {
	Host                  string
	Port                  string
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTTLMinutes     int
	BcryptCost            int
	RequestTimeoutSeconds int
	// TokenBlacklist is "memory" or "redis"; it records rotated refresh tokens.
	TokenBlacklist string
	Seed           bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	appName := getEnv("APP_NAME", "meal-client")

	cfg := &Config{
		App: AppConfig{
			Name:    appName,
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://127.0.0.1:8000/api"), "/"),
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 30),
			RateLimitRPS:   getEnvAsFloat("API_RATE_LIMIT_RPS", 0),
			RateBurst:      getEnvAsInt("API_RATE_BURST", 5),
		},
		Session: SessionConfig{
			Store:         strings.ToLower(getEnv("SESSION_STORE", SessionStoreFile)),
			Key:           getEnv("SESSION_STORE_KEY", "auth-storage"),
			FileDir:       getEnv("SESSION_FILE_DIR", defaultSessionDir(appName)),
			RedisTTLHours: getEnvAsInt("SESSION_REDIS_TTL_HOURS", 24),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Encoding:    getEnv("LOG_ENCODING", "json"),
			Output:      getEnv("LOG_OUTPUT", "stderr"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Ordering: OrderingConfig{
			LeadDays: getEnvAsInt("ORDER_LEAD_DAYS", 2),
		},
		DevServer: DevServerConfig{
			Host:                  getEnv("DEV_HOST", "127.0.0.1"),
			Port:                  getEnv("DEV_PORT", "8000"),
			JWTSecret:             getEnv("DEV_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("DEV_ACCESS_TTL_MINUTES", 60),
			RefreshTTLMinutes:     getEnvAsInt("DEV_REFRESH_TTL_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("DEV_BCRYPT_COST", 10),
			RequestTimeoutSeconds: getEnvAsInt("DEV_REQUEST_TIMEOUT_SECONDS", 30),
			TokenBlacklist:        strings.ToLower(getEnv("DEV_TOKEN_BLACKLIST", "memory")),
			Seed:                  getEnvAsBool("DEV_SEED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the program cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Session.Store {
	case SessionStoreFile, SessionStoreRedis, SessionStoreMemory:
	case SessionStorePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("SESSION_STORE=postgres requires POSTGRES_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.Session.Store))
	}
	if strings.TrimSpace(c.Session.Key) == "" {
		errs = append(errs, errors.New("SESSION_STORE_KEY must not be empty"))
	}
	if c.Ordering.LeadDays < 0 {
		errs = append(errs, fmt.Errorf("ORDER_LEAD_DAYS must not be negative, got %d", c.Ordering.LeadDays))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL must not be empty"))
	}
	switch c.DevServer.TokenBlacklist {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown DEV_TOKEN_BLACKLIST %q", c.DevServer.TokenBlacklist))
	}
	return errors.Join(errs...)
}

// StoreKey namespaces the session key with the application name.
func (s SessionConfig) StoreKey(appName string) string {
	return appName + ":" + s.Key
}

// Timeout returns the HTTP client timeout.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RedisTTL returns the expiry applied to persisted sessions in redis.
func (s SessionConfig) RedisTTL() time.Duration {
	if s.RedisTTLHours <= 0 {
		return 0
	}
	return time.Duration(s.RedisTTLHours) * time.Hour
}

// Addr returns the HTTP bind address.
func (d DevServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", d.Host, d.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (d DevServerConfig) RequestTimeout() time.Duration {
	if d.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(d.RequestTimeoutSeconds) * time.Second
}

func defaultSessionDir(appName string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(dir, appName)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

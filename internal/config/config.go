package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDSN        = "host=localhost user=postgres password=postgres dbname=stockhub port=5432 sslmode=disable"
	defaultCORSOrigin = "http://localhost:3000"
)

type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Log      LogConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Upload   UploadConfig
	Rewards  RewardsConfig

	// Warnings collects non-fatal findings so main can log them once the logger exists.
	Warnings []string
}

type HTTPConfig struct {
	Port        string
	CORSOrigins []string
	BodyLimit   int
}

type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	PermissionCacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type RewardsConfig struct {
	PointValue float64 // currency value of one point
	EarnRate   float64 // points earned per currency unit paid
}

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")
	ErrWeakJWTSecret    = errors.New("JWT_SECRET must be at least 32 characters")
)

func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Port:        getEnv("HTTP_PORT", "8080"),
			CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{defaultCORSOrigin}),
			BodyLimit:   getEnvInt("HTTP_BODY_LIMIT", 10*1024*1024),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", defaultDSN),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			Addr:               getEnv("REDIS_ADDR", ""),
			Password:           getEnv("REDIS_PASSWORD", ""),
			DB:                 getEnvInt("REDIS_DB", 0),
			PermissionCacheTTL: getEnvDuration("PERMISSION_CACHE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC_ORDERS", "orders.events"),
		},
		Upload: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", "./uploads"),
			MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 2*1024*1024)),
		},
		Rewards: RewardsConfig{
			PointValue: getEnvFloat("REWARD_POINT_VALUE", 0.01),
			EarnRate:   getEnvFloat("REWARD_EARN_RATE", 1),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, ErrMissingJWTSecret
	}
	if len(cfg.JWT.Secret) < 32 {
		return nil, ErrWeakJWTSecret
	}
	if cfg.Database.DSN == defaultDSN {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_DSN uses the default value, set your own Postgres DSN in production")
	}
	if len(cfg.HTTP.CORSOrigins) == 1 && cfg.HTTP.CORSOrigins[0] == defaultCORSOrigin {
		cfg.Warnings = append(cfg.Warnings, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain in production")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvSlice(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

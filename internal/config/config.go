// Package config 提供基于环境变量的应用配置加载与校验。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置根结构。
type Config struct {
	App        AppConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	CORS       CORSConfig
	JWT        JWTConfig
	MQ         MQConfig
	Migrations MigrationsConfig
}

// AppConfig 应用基础配置。
type AppConfig struct {
	Name            string
	Env             string // dev, test, prod
	Version         string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig 日志配置。
type LogConfig struct {
	Level    string // debug, info, warn, error
	Encoding string // json, console
}

// DatabaseConfig MySQL连接配置。
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig Redis连接配置。
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig 缓存行为配置。
type CacheConfig struct {
	Enabled bool
	Type    string // redis, memory
	TTL     time.Duration
}

// CORSConfig 跨域配置。
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// JWTConfig 访问令牌校验配置。令牌由外部认证服务签发，这里只做校验。
type JWTConfig struct {
	Secret string
	Issuer string
}

// MQConfig RabbitMQ连接配置。
type MQConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	VHost    string
}

// MigrationsConfig 数据库迁移配置。
type MigrationsConfig struct {
	Dir string
}

// Load 加载配置：先读取 .env（如存在），再以环境变量覆盖默认值，最后整体校验。
func Load() (*Config, error) {
	// .env 不存在不是错误，生产环境通常直接注入环境变量
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:            getEnv("APP_NAME", "inventory-ledger"),
			Env:             getEnv("APP_ENV", "dev"),
			Version:         getEnv("APP_VERSION", "0.1.0"),
			Port:            getEnvInt("APP_PORT", 8080),
			RequestTimeout:  getEnvDuration("APP_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "inventory"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "127.0.0.1"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			Type:    getEnv("CACHE_TYPE", "redis"),
			TTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvList("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Issuer: getEnv("JWT_ISSUER", "auth-service"),
		},
		MQ: MQConfig{
			Host:     getEnv("MQ_HOST", "127.0.0.1"),
			Port:     getEnvInt("MQ_PORT", 5672),
			Username: getEnv("MQ_USERNAME", "guest"),
			Password: getEnv("MQ_PASSWORD", "guest"),
			VHost:    getEnv("MQ_VHOST", "/"),
		},
		Migrations: MigrationsConfig{
			Dir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.App.Env {
	case "dev", "test", "prod":
	default:
		return fmt.Errorf("invalid APP_ENV %q: must be dev, test or prod", c.App.Env)
	}

	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid APP_PORT %d", c.App.Port)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Log.Level)
	}

	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_ENCODING %q", c.Log.Encoding)
	}

	if c.Database.Host == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host and name are required")
	}

	if c.App.Env == "prod" && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in prod")
	}

	if c.Cache.Enabled {
		switch c.Cache.Type {
		case "redis", "memory":
		default:
			return fmt.Errorf("invalid CACHE_TYPE %q", c.Cache.Type)
		}
	}

	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

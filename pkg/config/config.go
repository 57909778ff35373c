package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Paging modes understood by ORDERS_PAGING_MODE
const (
	PagingModeInternal = "internal"
	PagingModeExternal = "external"
)

// Config holds all application configuration
type Config struct {
	Env         string
	LogLevel    string
	Server      ServerConfig
	HospitalAPI HospitalAPIConfig
	Orders      OrdersConfig
	Departments DepartmentsConfig
	Redis       RedisConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// HospitalAPIConfig points at the hospital REST backend that owns orders.
// Token is issued by the session service; this process never refreshes it.
type HospitalAPIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// OrdersConfig scopes the pending-order board
type OrdersConfig struct {
	HospitalID  string
	Role        string
	PageSize    int
	PagingMode  string
	MaxSessions int
}

// DepartmentsConfig tunes the department name lookups
type DepartmentsConfig struct {
	LookupConcurrency int
	CacheTTLSeconds   int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		HospitalAPI: HospitalAPIConfig{
			BaseURL: getEnv("HOSPITAL_API_URL", "http://localhost:4000/api/v1"),
			Token:   getEnv("HOSPITAL_API_TOKEN", ""),
			Timeout: getEnvAsDuration("HOSPITAL_API_TIMEOUT", 10*time.Second),
		},
		Orders: OrdersConfig{
			HospitalID:  getEnv("HOSPITAL_ID", ""),
			Role:        getEnv("STAFF_ROLE", "pharmacy"),
			PageSize:    getEnvAsInt("ORDERS_PAGE_SIZE", 10),
			PagingMode:  strings.ToLower(getEnv("ORDERS_PAGING_MODE", PagingModeInternal)),
			MaxSessions: getEnvAsInt("ORDERS_MAX_SESSIONS", 64),
		},
		Departments: DepartmentsConfig{
			LookupConcurrency: getEnvAsInt("DEPARTMENT_LOOKUP_CONCURRENCY", 8),
			CacheTTLSeconds:   getEnvAsInt("DEPARTMENT_CACHE_TTL_SECONDS", 3600),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "orderdesk"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside the order board
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HospitalAPI.BaseURL) == "" {
		return fmt.Errorf("HOSPITAL_API_URL is required")
	}
	if c.Orders.MaxSessions < 1 {
		return fmt.Errorf("ORDERS_MAX_SESSIONS must be at least 1, got %d", c.Orders.MaxSessions)
	}
	if c.Orders.PageSize < 1 {
		return fmt.Errorf("ORDERS_PAGE_SIZE must be at least 1, got %d", c.Orders.PageSize)
	}
	switch c.Orders.PagingMode {
	case PagingModeInternal, PagingModeExternal:
	default:
		return fmt.Errorf("unknown ORDERS_PAGING_MODE %q", c.Orders.PagingMode)
	}
	if c.Departments.LookupConcurrency < 1 {
		c.Departments.LookupConcurrency = 1
	}
	return nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

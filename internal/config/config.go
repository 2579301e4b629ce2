package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Pricing   PricingConfig
	Reporting ReportingConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
	AutoMigrate    bool
}

// KafkaConfig holds Kafka configuration. An empty broker list disables
// order ingestion and tax snapshot publishing.
type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
	TaxTopic    string
	GroupID     string
}

// RedisConfig holds the FX rate cache configuration. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	RateTTL  time.Duration
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// PricingConfig holds valuation settings
type PricingConfig struct {
	RiskFreeRate   float64
	LookupTimeout  time.Duration
	MarketDataURL  string
	MarketDataKey  string
	MarketDataRate float64
	ListingMaxAge  time.Duration
}

// ReportingConfig holds tax reporting settings
type ReportingConfig struct {
	TaxCurrency string
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// Load reads configuration from a .env file, if present, and environment
// variables. Environment variables win over the file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "portfolio"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "file://db/migrations"),
			AutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvList("KAFKA_BROKERS", nil),
			OrdersTopic: getEnv("KAFKA_ORDERS_TOPIC", "order-events"),
			TaxTopic:    getEnv("KAFKA_TAX_TOPIC", "tax-events"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "portfolio-service"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			RateTTL:  getEnvDuration("FX_RATE_TTL", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Pricing: PricingConfig{
			RiskFreeRate:   getEnvFloat("RISK_FREE_RATE", 0.02),
			LookupTimeout:  getEnvDuration("PRICE_LOOKUP_TIMEOUT", 5*time.Second),
			MarketDataURL:  getEnv("MARKET_DATA_URL", ""),
			MarketDataKey:  getEnv("MARKET_DATA_API_KEY", ""),
			MarketDataRate: getEnvFloat("MARKET_DATA_RATE_LIMIT", 10),
			ListingMaxAge:  getEnvDuration("LISTING_MAX_AGE", 15*time.Minute),
		},
		Reporting: ReportingConfig{
			TaxCurrency: getEnv("TAX_CURRENCY", "RSD"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the HTTP listen address
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
// Set the variable to "-" to get an empty list.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "-" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

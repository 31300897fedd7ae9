package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"eventbooking/internal/cache"
	"eventbooking/internal/database"
	"eventbooking/internal/external"
	"eventbooking/internal/messaging"
	"eventbooking/internal/observability"
	"eventbooking/internal/sweeper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// StorageDriver is "postgres" or "memory"
	StorageDriver string

	// JWTSecret enables bearer tokens when set; Basic auth always works
	JWTSecret string
	JWTTTL    time.Duration

	// AdminEmail and AdminPassword seed an ADMIN account at startup when both are set
	AdminEmail    string
	AdminPassword string

	Database      database.Config
	NATSEnabled   bool
	NATS          messaging.Config
	Analytics     external.AnalyticsConfig
	QR            external.QRConfig
	ValkeyEnabled bool
	Valkey        cache.ValkeyConfig
	Elasticsearch ElasticsearchConfig
	Sweeper       sweeper.Config
	Tracing       observability.TracingConfig
}

// Load reads the environment, after merging an optional .env file
// (ENV_FILE, default ".env"). Real environment variables win.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load env file", "file", envFile, "error", err)
	}

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "release"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        getEnvDuration("JWT_TTL", 24*time.Hour),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "eventbooking"),
			Password:           getEnv("DB_PASSWORD", "eventbooking"),
			DBName:             getEnv("DB_NAME", "eventbooking"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATSEnabled: getEnvBool("NATS_ENABLED", false),
		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "eventbooking"),
			ClientID:  getEnv("NATS_CLIENT_ID", "eventbooking-api"),
		},

		Analytics: external.AnalyticsConfig{
			BaseURL: getEnv("ANALYTICS_SERVICE_URL", "http://localhost:8082"),
			Timeout: time.Duration(getEnvInt("ANALYTICS_TIMEOUT_SEC", 10)) * time.Second,
		},

		QR: external.QRConfig{
			BaseURL: getEnv("QR_SERVICE_URL", "https://api.qrserver.com/v1/create-qr-code/"),
			Size:    getEnv("QR_SIZE", "250x250"),
			Timeout: time.Duration(getEnvInt("QR_TIMEOUT_SEC", 10)) * time.Second,
		},

		ValkeyEnabled: getEnvBool("VALKEY_ENABLED", false),
		Valkey: cache.ValkeyConfig{
			Addr:      getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:  os.Getenv("VALKEY_PASSWORD"),
			KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "eventbooking"),
		},

		Elasticsearch: LoadElasticsearchConfig(),

		Sweeper: sweeper.Config{
			Interval:        getEnvDuration("SWEEPER_INTERVAL", 24*time.Hour),
			InitialDelay:    getEnvDuration("SWEEPER_INITIAL_DELAY", 10*time.Second),
			PrewarmInterval: getEnvDuration("CACHE_PREWARM_INTERVAL", 5*time.Minute),
			Horizon:         getEnvDuration("UPCOMING_HORIZON", 30*24*time.Hour),
			CacheTTL:        getEnvDuration("UPCOMING_CACHE_TTL", 10*time.Minute),
		},

		Tracing: observability.TracingConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "eventbooking-api"),
			ServiceVersion: getEnv("SERVICE_VERSION", "1.0.0"),
			Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			URLPath:        os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PATH"),
			Insecure:       getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ExportTimeout:  getEnvDuration("OTEL_EXPORT_TIMEOUT", 10*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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

// getEnvDuration accepts Go durations ("90s", "24h") or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

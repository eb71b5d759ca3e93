package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	StoreDriver        string
	DatabaseURL        string
	SQLitePath         string
	JWTSecret          string
	StoragePath        string
	ConverterBaseURL   string
	ConverterAPIKey    string
	ToolRegistryFile   string
	OTLPEndpoint       string
	CORSAllowedOrigins []string
	ProfileTimeout     time.Duration
	ExtractTimeout     time.Duration
	LedgerTimeout      time.Duration
	ExecuteTimeout     time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	MaxUploadMB        int
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "./pdfgate.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		ConverterBaseURL:   getEnv("CONVERTER_BASE_URL", "http://localhost:9090"),
		ConverterAPIKey:    os.Getenv("CONVERTER_API_KEY"),
		ToolRegistryFile:   os.Getenv("TOOL_REGISTRY_FILE"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		ProfileTimeout:     time.Millisecond * time.Duration(getEnvInt("PROFILE_TIMEOUT_MS", 2000)),
		ExtractTimeout:     time.Millisecond * time.Duration(getEnvInt("EXTRACT_TIMEOUT_MS", 10000)),
		LedgerTimeout:      time.Millisecond * time.Duration(getEnvInt("LEDGER_TIMEOUT_MS", 2000)),
		ExecuteTimeout:     time.Second * time.Duration(getEnvInt("EXECUTE_TIMEOUT_SECONDS", 120)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		MaxUploadMB:        getEnvInt("MAX_UPLOAD_MB", 50),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	return cfg, nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

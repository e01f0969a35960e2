package config

import (
	"os"
	"strings"
)

// Ledger drivers accepted in RECAUDIT_LEDGER_DRIVER.
const (
	LedgerMemory   = "memory"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

// Config holds process configuration.
type Config struct {
	LogLevel     string
	LogFormat    string
	LedgerDriver string
	LedgerDSN    string
	RedisAddr    string // empty = in-memory verdict cache
	ProfilePath  string // empty = built-in policy
	OTelEnabled  bool
	OTelEndpoint string
	PlatformID   string
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("RECAUDIT_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	logFormat := strings.ToLower(os.Getenv("RECAUDIT_LOG_FORMAT"))
	if logFormat == "" {
		logFormat = "json"
	}

	driver := strings.ToLower(os.Getenv("RECAUDIT_LEDGER_DRIVER"))
	if driver == "" {
		driver = LedgerMemory
	}

	dsn := os.Getenv("RECAUDIT_LEDGER_DSN")
	if dsn == "" && driver == LedgerSQLite {
		dsn = "recaudit-ledger.db"
	}

	endpoint := os.Getenv("RECAUDIT_OTEL_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		LedgerDriver: driver,
		LedgerDSN:    dsn,
		RedisAddr:    os.Getenv("RECAUDIT_REDIS_ADDR"),
		ProfilePath:  os.Getenv("RECAUDIT_PROFILE"),
		OTelEnabled:  os.Getenv("RECAUDIT_OTEL_ENABLED") == "true",
		OTelEndpoint: endpoint,
		PlatformID:   os.Getenv("RECAUDIT_PLATFORM_ID"),
	}
}

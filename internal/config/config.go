// Package config loads process configuration from the environment, with
// optional .env support for local development.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration.
type Config struct {
	// DataDir holds knowledge.db and ledger.db.
	DataDir string
	// LogFile receives structured logs; empty disables the file sink.
	LogFile string
	Debug   bool

	// Oracle settings; see oracle.NewFromEnv for provider selection.
	OracleProvider string
	OracleModel    string

	SearchLimit    int
	IngestTimeout  time.Duration
	IngestParallel int
}

// Load reads configuration, pulling in a .env file when present.
func Load() *Config {
	// Missing .env is normal outside development.
	godotenv.Load()

	return &Config{
		DataDir:        getEnv("CARDIOKB_DATA", defaultDataDir()),
		LogFile:        getEnv("CARDIOKB_LOG_FILE", ""),
		Debug:          getEnvAsBool("CARDIOKB_DEBUG", false),
		OracleProvider: getEnv("CARDIOKB_ORACLE", "template"),
		OracleModel:    getEnv("CARDIOKB_ORACLE_MODEL", ""),
		SearchLimit:    getEnvAsInt("CARDIOKB_SEARCH_LIMIT", 5),
		IngestTimeout:  time.Duration(getEnvAsInt("CARDIOKB_INGEST_TIMEOUT_SECONDS", 30)) * time.Second,
		IngestParallel: getEnvAsInt("CARDIOKB_INGEST_PARALLEL", 1),
	}
}

// KnowledgePath is the knowledge database location.
func (c *Config) KnowledgePath() string { return filepath.Join(c.DataDir, "knowledge.db") }

// LedgerPath is the ledger database location.
func (c *Config) LedgerPath() string { return filepath.Join(c.DataDir, "ledger.db") }

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cardiokb"
	}
	return filepath.Join(home, ".cardiokb")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Package config loads application configuration from environment variables,
// with an optional .env file overlay.
//
// Data Directory Priority (highest to lowest):
//  1. --data-dir CLI flag (if provided)
//  2. WALLET_DATA_DIR environment variable
//  3. ./data (default, resolved to an absolute path)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir           string // base directory for ledger.db and wallet.db, always absolute
	Port              int    // HTTP server port
	DevMode           bool
	LogLevel          string
	SessionServiceURL string // base URL for the session/auth collaborator
	QuotesServiceURL  string // base URL for the market-data collaborator
	EncryptionKeyHex  string // hex-encoded 32-byte key used to derive account-number enc/mac keys
}

// Load reads configuration from environment variables, applying any .env
// file found in the working directory first. dataDirOverride, if non-empty,
// takes priority over WALLET_DATA_DIR.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("WALLET_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("GO_PORT", 8001),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SessionServiceURL: getEnv("SESSION_SERVICE_URL", "http://localhost:9100"),
		QuotesServiceURL:  getEnv("QUOTES_SERVICE_URL", "http://localhost:9200"),
		EncryptionKeyHex:  getEnv("WALLET_ENCRYPTION_KEY", ""),
	}

	return cfg, nil
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

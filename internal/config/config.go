// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds process configuration read from the environment
type Config struct {
	DataDir      string // base directory for outputs and the cache, always absolute
	ConfigDir    string // rules, tickers and settings files
	LogLevel     string
	LogPretty    bool
	LogToFile    bool
	Port         int
	DevMode      bool
	Alpaca       AlpacaConfig
	Storage      StorageConfig
	UploadOutput bool
}

// AlpacaConfig holds market data credentials
type AlpacaConfig struct {
	APIKey            string
	APISecret         string
	DataURL           string
	TradingURL        string
	Feed              string
	RequestsPerMinute int
}

// StorageConfig holds S3-compatible blob storage settings
type StorageConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables, after loading a
// .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("BULLBEAR_DATA_DIR", "data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	configDir, err := filepath.Abs(getEnv("BULLBEAR_CONFIG_DIR", "config"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory path: %w", err)
	}

	cfg := &Config{
		DataDir:   dataDir,
		ConfigDir: configDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		LogToFile: getEnvAsBool("LOG_TO_FILE", true),
		Port:      getEnvAsInt("GO_PORT", 8001),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		Alpaca: AlpacaConfig{
			APIKey:            getEnv("ALPACA_API_KEY", ""),
			APISecret:         getEnv("ALPACA_API_SECRET", ""),
			DataURL:           getEnv("ALPACA_DATA_URL", ""),
			TradingURL:        getEnv("ALPACA_TRADING_URL", ""),
			Feed:              getEnv("ALPACA_FEED", "iex"),
			RequestsPerMinute: getEnvAsInt("ALPACA_REQUESTS_PER_MINUTE", 180),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", ""),
			Region:          getEnv("S3_REGION", "auto"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		UploadOutput: getEnvAsBool("UPLOAD_OUTPUT", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.UploadOutput && c.Storage.Bucket == "" {
		return fmt.Errorf("UPLOAD_OUTPUT requires S3_BUCKET")
	}
	return nil
}

// Output locations under DataDir

func (c *Config) SnapshotDir() string { return filepath.Join(c.DataDir, "output", "stock_data") }
func (c *Config) AnalysisDir() string { return filepath.Join(c.DataDir, "output", "bull_bear_analysis") }
func (c *Config) BacktestDir() string { return filepath.Join(c.DataDir, "output", "backtest") }

// HistorySnapshotDir holds the Monday snapshots the backtest replays. It is
// kept apart from SnapshotDir so the daily files never enter the weekly
// price index.
func (c *Config) HistorySnapshotDir() string { return filepath.Join(c.BacktestDir(), "indicators") }
func (c *Config) TradesDir() string { return filepath.Join(c.DataDir, "output", "bull_bear_trades_out") }
func (c *Config) ReportDir() string { return filepath.Join(c.DataDir, "output", "reports") }
func (c *Config) LogDir() string { return filepath.Join(c.DataDir, "logs") }
func (c *Config) CachePath() string { return filepath.Join(c.DataDir, "cache", "client_data.db") }

// Configuration files under ConfigDir

func (c *Config) RulesPath() string { return filepath.Join(c.ConfigDir, "credit_spread_indicator.json") }
func (c *Config) TickersPath() string { return filepath.Join(c.ConfigDir, "tickers.json") }
func (c *Config) SettingsPath() string { return filepath.Join(c.ConfigDir, "settings.yaml") }

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

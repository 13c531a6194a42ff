package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/aristath/bullbear/internal/modules/backtest"
	"github.com/aristath/bullbear/internal/modules/strategy"
	"github.com/aristath/bullbear/internal/modules/trades"
	"gopkg.in/yaml.v3"
)

// Settings is the tunable behaviour of the pipeline, read once at startup
// and passed by value to the components that need it.
type Settings struct {
	Signals    SignalSettings    `yaml:"signals"`
	Backtest   backtest.Config   `yaml:"backtest"`
	Trades     trades.Config     `yaml:"trades"`
	Indicators IndicatorSettings `yaml:"indicators"`
	Schedules  ScheduleSettings  `yaml:"schedules"`
}

// SignalSettings configures the rule evaluator
type SignalSettings struct {
	Thresholds strategy.Thresholds `yaml:"thresholds"`
	// EarningsWindowDays of 0 flags only same-day earnings
	EarningsWindowDays int `yaml:"earnings_window_days"`
}

// IndicatorSettings configures snapshot building
type IndicatorSettings struct {
	Concurrency int `yaml:"concurrency"`
}

// ScheduleSettings holds cron expressions for the server's jobs. An empty
// expression disables the job.
type ScheduleSettings struct {
	Daily         string `yaml:"daily"`
	Backtest      string `yaml:"backtest"`
	CacheCleanup  string `yaml:"cache_cleanup"`
	WALCheckpoint string `yaml:"wal_checkpoint"`
}

// DefaultSettings returns the production settings
func DefaultSettings() Settings {
	return Settings{
		Signals: SignalSettings{
			Thresholds:         strategy.DefaultThresholds(),
			EarningsWindowDays: strategy.DefaultEarningsWindowDays,
		},
		Backtest:   backtest.DefaultConfig(),
		Trades:     trades.DefaultConfig(),
		Indicators: IndicatorSettings{Concurrency: 4},
		Schedules: ScheduleSettings{
			Daily:         "CRON_TZ=America/New_York 30 16 * * 1-5",
			Backtest:      "CRON_TZ=America/New_York 0 9 * * 6",
			CacheCleanup:  "0 3 * * *",
			WALCheckpoint: "@hourly",
		},
	}
}

// LoadSettings reads a YAML settings file over the defaults. A missing file
// yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// Validate checks every section
func (s Settings) Validate() error {
	if err := s.Signals.Thresholds.Validate(); err != nil {
		return err
	}
	if s.Signals.EarningsWindowDays < 0 {
		return fmt.Errorf("earnings_window_days must not be negative")
	}
	if err := s.Backtest.Validate(); err != nil {
		return err
	}
	if s.Trades.MaxSpreadsPerExpiry < 0 || s.Trades.Concurrency < 0 {
		return fmt.Errorf("trade limits must not be negative")
	}
	if s.Indicators.Concurrency < 0 {
		return fmt.Errorf("indicator concurrency must not be negative")
	}
	return nil
}

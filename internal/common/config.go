// Package common provides shared utilities for Divvy
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Divvy
type Config struct {
	Environment       string          `toml:"environment"`
	ReferenceCurrency string          `toml:"reference_currency"` // Currency budgets and income are expressed in (default "HKD")
	Server            ServerConfig    `toml:"server"`
	Scan              ScanConfig      `toml:"scan"`
	Analysis          AnalysisConfig  `toml:"analysis"`
	Cache             CacheConfig     `toml:"cache"`
	Lots              LotsConfig      `toml:"lots"`
	FX                FXConfig        `toml:"fx"`
	Fees              FeesConfig      `toml:"fees"`
	Provider          ProviderConfig  `toml:"provider"`
	Clients           ClientsConfig   `toml:"clients"`
	Scheduler         SchedulerConfig `toml:"scheduler"`
	Logging           LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// ScanConfig controls the watchlist scan
type ScanConfig struct {
	Symbols       []string `toml:"symbols"`
	Budget        float64  `toml:"budget"`
	Concurrency   int      `toml:"concurrency"`
	SymbolTimeout string   `toml:"symbol_timeout"`
	Sort          string   `toml:"sort"` // yield, payout, valuation, urgency, input
}

// GetSymbolTimeout parses and returns the per-symbol fetch budget
func (c *ScanConfig) GetSymbolTimeout() time.Duration {
	d, err := time.ParseDuration(c.SymbolTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// GetConcurrency returns the worker count, never less than one
func (c *ScanConfig) GetConcurrency() int {
	if c.Concurrency < 1 {
		return 8
	}
	return c.Concurrency
}

// AnalysisConfig holds the tunable thresholds of the per-symbol analysis
type AnalysisConfig struct {
	DividendLookbackDays int     `toml:"dividend_lookback_days"`
	UrgentWindowDays     int     `toml:"urgent_window_days"`
	ValuationMargin      float64 `toml:"valuation_margin"`
	RSIPeriod            int     `toml:"rsi_period"`
	PriceHistoryPeriod   string  `toml:"price_history_period"`
	DividendHistoryYears int     `toml:"dividend_history_years"`
	NewsLimit            int     `toml:"news_limit"` // headlines per single lookup, 0 disables
}

// CacheConfig holds the market data cache configuration
type CacheConfig struct {
	TTL string `toml:"ttl"`
}

// GetTTL parses and returns the cache TTL
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// LotsConfig holds board-lot conventions
type LotsConfig struct {
	DefaultHK int            `toml:"default_hk"`
	Overrides map[string]int `toml:"overrides"`
}

// FXConfig holds conversion rates into the reference currency
type FXConfig struct {
	Rates   map[string]float64 `toml:"rates"`
	Live    bool               `toml:"live"`
	Refresh string             `toml:"refresh"`
}

// GetRefresh parses and returns how long a live rate is trusted
func (c *FXConfig) GetRefresh() time.Duration {
	d, err := time.ParseDuration(c.Refresh)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// FeesConfig holds trading cost assumptions, all in percent
type FeesConfig struct {
	BrokerRatePct     float64 `toml:"broker_rate_pct"`
	HKStampDutyPct    float64 `toml:"hk_stamp_duty_pct"`
	HKTradingFeePct   float64 `toml:"hk_trading_fee_pct"`
	USWithholdingPct  float64 `toml:"us_withholding_pct"`
	MinimumCommission float64 `toml:"minimum_commission"`
}

// ProviderConfig selects the market data sources
type ProviderConfig struct {
	Primary  string `toml:"primary"`  // "yahoo" or "eodhd"
	Fallback string `toml:"fallback"` // optional, "" disables
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
	Yahoo YahooConfig `toml:"yahoo"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// YahooConfig holds Yahoo Finance client configuration
type YahooConfig struct {
	RateLimit int `toml:"rate_limit"`
	Retries   int `toml:"retries"`
}

// SchedulerConfig holds the background cache warm-up schedule
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	WarmCron string `toml:"warm_cron"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:       "development",
		ReferenceCurrency: "HKD",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Scan: ScanConfig{
			Symbols: []string{
				"0005.HK", "0011.HK", "0939.HK", "1398.HK", "0941.HK",
				"0002.HK", "0003.HK", "0006.HK", "0823.HK", "2800.HK",
				"SCHD", "O", "VZ",
			},
			Budget:        50000,
			Concurrency:   8,
			SymbolTimeout: "15s",
			Sort:          "yield",
		},
		Analysis: AnalysisConfig{
			DividendLookbackDays: 366,
			UrgentWindowDays:     21,
			ValuationMargin:      1.05,
			RSIPeriod:            14,
			PriceHistoryPeriod:   "3mo",
			DividendHistoryYears: 5,
			NewsLimit:            5,
		},
		Cache: CacheConfig{TTL: "15m"},
		Lots: LotsConfig{
			DefaultHK: 100,
			Overrides: map[string]int{
				"0005.HK": 400,
				"0011.HK": 100,
				"0939.HK": 1000,
				"1398.HK": 1000,
				"0941.HK": 500,
				"0002.HK": 500,
				"0003.HK": 1000,
				"0006.HK": 500,
				"0823.HK": 100,
				"2800.HK": 500,
			},
		},
		FX: FXConfig{
			Rates:   map[string]float64{"HKD": 1.0, "USD": 7.8},
			Refresh: "1h",
		},
		Fees: FeesConfig{
			BrokerRatePct:    0.03,
			HKStampDutyPct:   0.1,
			HKTradingFeePct:  0.00565,
			USWithholdingPct: 30,
		},
		Provider: ProviderConfig{
			Primary:  "yahoo",
			Fallback: "eodhd",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Yahoo: YahooConfig{
				RateLimit: 5,
				Retries:   2,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			WarmCron: "*/30 * * * *",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Outputs:  []string{"console"},
			FilePath: "./logs/divvy.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory, if present, is loaded first so its
// values take part in the environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	config.ReferenceCurrency = strings.ToUpper(strings.TrimSpace(config.ReferenceCurrency))
	if config.ReferenceCurrency == "" {
		config.ReferenceCurrency = "HKD"
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DIVVY_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("DIVVY_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("DIVVY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("DIVVY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if rc := os.Getenv("DIVVY_REFERENCE_CURRENCY"); rc != "" {
		config.ReferenceCurrency = strings.ToUpper(rc)
	}

	if b := os.Getenv("DIVVY_BUDGET"); b != "" {
		if v, err := strconv.ParseFloat(b, 64); err == nil {
			config.Scan.Budget = v
		}
	}

	if s := os.Getenv("DIVVY_SYMBOLS"); s != "" {
		fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == ' ' })
		if len(fields) > 0 {
			config.Scan.Symbols = fields
		}
	}

	if v := os.Getenv("DIVVY_PROVIDER"); v != "" {
		config.Provider.Primary = strings.ToLower(v)
	}

	if key := os.Getenv("EODHD_API_KEY"); key != "" {
		config.Clients.EODHD.APIKey = key
	} else if key := os.Getenv("DIVVY_EODHD_API_KEY"); key != "" {
		config.Clients.EODHD.APIKey = key
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// UsesProvider reports whether the named provider is primary or fallback
func (c *Config) UsesProvider(name string) bool {
	return strings.EqualFold(c.Provider.Primary, name) || strings.EqualFold(c.Provider.Fallback, name)
}

// ValidateRequired returns the names of settings that must be present but are not
func (c *Config) ValidateRequired() []string {
	var missing []string
	if c.UsesProvider("eodhd") && c.Clients.EODHD.APIKey == "" {
		missing = append(missing, "clients.eodhd.api_key (EODHD_API_KEY)")
	}
	if c.Scan.Budget <= 0 {
		missing = append(missing, "scan.budget (must be positive)")
	}
	if _, ok := c.FX.Rates[c.ReferenceCurrency]; !ok {
		missing = append(missing, "fx.rates."+c.ReferenceCurrency)
	}
	return missing
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Scraper     ScraperConfig     `mapstructure:"scraper"`
	Profit      ProfitConfig      `mapstructure:"profit"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// MarketplaceConfig holds the target marketplace search URL format
type MarketplaceConfig struct {
	SearchBaseURL string            `mapstructure:"search_base_url"`
	KeywordParam  string            `mapstructure:"keyword_param"`
	MinPriceParam string            `mapstructure:"min_price_param"`
	FixedParams   map[string]string `mapstructure:"fixed_params"`
}

// ScraperConfig holds browser and result-selection configuration
type ScraperConfig struct {
	Headless          bool          `mapstructure:"headless"`
	PageTimeout       time.Duration `mapstructure:"page_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	MinFetchInterval  time.Duration `mapstructure:"min_fetch_interval"`
	MaxBestMatchItems int           `mapstructure:"max_bestmatch_items"`
	MaxLeastMatchItem int           `mapstructure:"max_leastmatch_items"`
}

// ProfitConfig holds the profitability decision parameters
type ProfitConfig struct {
	MinProfitThreshold float64 `mapstructure:"min_profit_threshold"`
	CommissionPct      float64 `mapstructure:"commission_pct"`
	ShippingEstimate   float64 `mapstructure:"shipping_estimate"`
}

// PipelineConfig holds evaluation scheduling configuration
type PipelineConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Staleness     time.Duration `mapstructure:"staleness"`
	BatchSize     int           `mapstructure:"batch_size"`
	Workers       int           `mapstructure:"workers"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	FilePath string `mapstructure:"file_path"` // Optional rotating log file; empty = stderr only
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("DEALSCOUT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Marketplace defaults (eBay.de: buy-it-now, domestic, price+shipping ascending)
	v.SetDefault("marketplace.search_base_url", "https://www.ebay.de/sch/i.html")
	v.SetDefault("marketplace.keyword_param", "_nkw")
	v.SetDefault("marketplace.min_price_param", "_udlo")
	v.SetDefault("marketplace.fixed_params", map[string]string{
		"_from":      "R40",
		"_sacat":     "0",
		"LH_PrefLoc": "6",
		"LH_BIN":     "1",
		"_sop":       "15",
	})

	// Scraper defaults
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.page_timeout", "30s")
	v.SetDefault("scraper.settle_delay", "2s")
	v.SetDefault("scraper.min_fetch_interval", "5s")
	v.SetDefault("scraper.max_bestmatch_items", 10)
	v.SetDefault("scraper.max_leastmatch_items", 3)

	// Profit defaults
	v.SetDefault("profit.min_profit_threshold", 20.0)
	v.SetDefault("profit.commission_pct", 11.0)
	v.SetDefault("profit.shipping_estimate", 5.0)

	// Pipeline defaults
	v.SetDefault("pipeline.check_interval", "30m")
	v.SetDefault("pipeline.staleness", "336h") // 14 days
	v.SetDefault("pipeline.batch_size", 25)
	v.SetDefault("pipeline.workers", 2)

	// Telegram defaults
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/dealscout.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Marketplace.SearchBaseURL == "" {
		return fmt.Errorf("marketplace.search_base_url is required")
	}
	if c.Marketplace.KeywordParam == "" {
		return fmt.Errorf("marketplace.keyword_param is required")
	}
	if c.Marketplace.MinPriceParam == "" {
		return fmt.Errorf("marketplace.min_price_param is required")
	}

	if c.Scraper.PageTimeout < 5*time.Second {
		return fmt.Errorf("scraper.page_timeout must be at least 5 seconds")
	}
	if c.Scraper.MaxBestMatchItems < 1 {
		return fmt.Errorf("scraper.max_bestmatch_items must be at least 1")
	}
	if c.Scraper.MaxLeastMatchItem < 1 {
		return fmt.Errorf("scraper.max_leastmatch_items must be at least 1")
	}

	if c.Profit.MinProfitThreshold <= 0 {
		return fmt.Errorf("profit.min_profit_threshold must be positive")
	}
	if c.Profit.CommissionPct < 0 || c.Profit.CommissionPct > 100 {
		return fmt.Errorf("profit.commission_pct must be between 0 and 100")
	}
	if c.Profit.ShippingEstimate < 0 {
		return fmt.Errorf("profit.shipping_estimate must not be negative")
	}

	if c.Pipeline.CheckInterval < 1*time.Minute {
		return fmt.Errorf("pipeline.check_interval must be at least 1 minute")
	}
	if c.Pipeline.Staleness < 1*time.Hour {
		return fmt.Errorf("pipeline.staleness must be at least 1 hour")
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline.batch_size must be at least 1")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

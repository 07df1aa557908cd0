package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/autodropshipper/dealscout/internal/classify"
	"github.com/autodropshipper/dealscout/internal/config"
	"github.com/autodropshipper/dealscout/internal/dispatch"
	"github.com/autodropshipper/dealscout/internal/evaluate"
	"github.com/autodropshipper/dealscout/internal/fetcher"
	"github.com/autodropshipper/dealscout/internal/logger"
	"github.com/autodropshipper/dealscout/internal/pipeline"
	"github.com/autodropshipper/dealscout/internal/query"
	"github.com/autodropshipper/dealscout/internal/refine"
	"github.com/autodropshipper/dealscout/internal/storage"
	"github.com/autodropshipper/dealscout/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.FilePath)
	logger.Info("Configuration loaded from %s", *configPath)

	// Initialize storage
	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	// Initialize the browser-backed page fetcher
	ebay := fetcher.NewEbay(fetcher.BrowserConfig{
		Headless:    cfg.Scraper.Headless,
		PageTimeout: cfg.Scraper.PageTimeout,
		SettleDelay: cfg.Scraper.SettleDelay,
		RateLimit:   rate.Every(cfg.Scraper.MinFetchInterval),
	})
	if err := ebay.Start(); err != nil {
		logger.Fatal("Failed to start browser: %v", err)
	}
	defer func() {
		if err := ebay.Close(); err != nil {
			logger.Error("Failed to close browser: %v", err)
		}
	}()

	// Initialize Telegram client
	var notifier dispatch.Notifier
	if cfg.Telegram.Enabled {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = client
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Assemble the evaluation pipeline
	machine := refine.New(
		query.New(query.Params{
			BaseURL:       cfg.Marketplace.SearchBaseURL,
			KeywordParam:  cfg.Marketplace.KeywordParam,
			MinPriceParam: cfg.Marketplace.MinPriceParam,
			Fixed:         cfg.Marketplace.FixedParams,
		}),
		classify.New(cfg.Scraper.MaxBestMatchItems, cfg.Scraper.MaxLeastMatchItem),
		ebay,
	)
	evaluator := evaluate.New(
		evaluate.CommissionAndShipping(
			decimal.NewFromFloat(cfg.Profit.CommissionPct),
			decimal.NewFromFloat(cfg.Profit.ShippingEstimate),
		),
		decimal.NewFromFloat(cfg.Profit.MinProfitThreshold),
	)
	runner := pipeline.New(machine, evaluator, dispatch.New(store, notifier), store, cfg.Pipeline.Workers)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	logger.Info("Starting evaluation service (interval: %v, staleness: %v, batch: %d, workers: %d)",
		cfg.Pipeline.CheckInterval, cfg.Pipeline.Staleness, cfg.Pipeline.BatchSize, cfg.Pipeline.Workers)

	ticker := time.NewTicker(cfg.Pipeline.CheckInterval)
	defer ticker.Stop()

	// Run initial cycle immediately
	runEvaluationCycle(ctx, store, runner, cfg)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return
		case <-ticker.C:
			runEvaluationCycle(ctx, store, runner, cfg)
		}
	}
}

// runEvaluationCycle loads the products due for evaluation and runs them
// through the pipeline.
func runEvaluationCycle(ctx context.Context, store *storage.Storage, runner *pipeline.Runner, cfg *config.Config) {
	startTime := time.Now()
	logger.Info("Starting evaluation cycle")

	products, err := store.ProductsDueForCheck(ctx, cfg.Pipeline.Staleness, cfg.Pipeline.BatchSize)
	if err != nil {
		logger.Error("Failed to load products due for check: %v", err)
		return
	}
	if len(products) == 0 {
		logger.Info("No products due for evaluation this cycle")
		return
	}
	logger.Info("Evaluating %d products", len(products))

	stats := runner.RunBatch(ctx, products)

	logger.Info("Evaluation cycle completed in %v: evaluated=%d profitable=%d notified=%d failed=%d sink_errors=%d",
		time.Since(startTime), stats.Evaluated, stats.Profitable, stats.Notified, stats.Failed, stats.SinkErrors)
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tradebot/internal/backtest"
	"tradebot/internal/codegen"
	"tradebot/internal/config"
	"tradebot/internal/httpapi"
	"tradebot/internal/marketdata"
	"tradebot/internal/store"
	"tradebot/internal/util"
)

func main() {
	// Load config.
	cfgPath := "config/tradebot.yaml"
	if p := os.Getenv("TRADEBOT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Open the bot/result store.
	dbPath := cfg.Storage.SQLitePath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Storage.DataDir, "tradebot.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	// Market data: Alpaca behind an on-disk Parquet cache.
	alpaca := marketdata.NewAlpacaSource(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
		cfg.Alpaca.RateLimitPerMin)
	source := marketdata.NewCachedSource(alpaca, cfg.Storage.DataDir,
		time.Duration(cfg.Storage.CacheTTLMin)*time.Minute)

	engine := backtest.NewEngine(source, nil)

	// Code generation is optional; without an API key those endpoints 503.
	var gen httpapi.Generator
	if cfg.Groq.APIKey != "" {
		gen = codegen.NewClient(cfg.Groq.APIKey, cfg.Groq.BaseURL)
	} else {
		logger.Warn("GROQ_API_KEY not set, code generation disabled")
	}

	api := httpapi.NewServer(engine, st, st, gen, cfg.Backtest, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("tradebot server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down tradebot server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

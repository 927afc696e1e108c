// Command tradebot-backtest runs a single backtest from the command line and
// prints the summary. Without a signals file it uses generated demo signals.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"tradebot/internal/backtest"
	"tradebot/internal/config"
	"tradebot/internal/domain"
	"tradebot/internal/marketdata"
	"tradebot/internal/util"
)

func main() {
	var (
		cfgPath     = flag.String("config", "config/tradebot.yaml", "config file path")
		symbol      = flag.String("symbol", "SPY", "symbol to backtest")
		timeframe   = flag.String("timeframe", "D1", "bar timeframe (M1..MN)")
		years       = flag.Int("years", 5, "years of history")
		capital     = flag.Float64("capital", 10000, "initial capital")
		commission  = flag.Float64("commission", 0.0001, "commission rate per leg")
		seed        = flag.Int64("seed", 0, "demo signal seed (0 = time-based)")
		signalsPath = flag.String("signals", "", "JSON signals file (default: demo signals)")
		asJSON      = flag.Bool("json", false, "print the full result as JSON")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, "text")
	util.SetDefault(logger)

	alpaca := marketdata.NewAlpacaSource(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
		cfg.Alpaca.RateLimitPerMin)
	source := marketdata.NewCachedSource(alpaca, cfg.Storage.DataDir,
		time.Duration(cfg.Storage.CacheTTLMin)*time.Minute)

	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}
	engine := backtest.NewEngine(source, rng)

	var signals []domain.Signal
	if *signalsPath != "" {
		data, err := os.ReadFile(*signalsPath)
		if err != nil {
			log.Fatalf("reading signals file: %v", err)
		}
		if err := json.Unmarshal(data, &signals); err != nil {
			log.Fatalf("parsing signals file: %v", err)
		}
	}

	res := engine.Run(context.Background(), backtest.Request{
		Symbol:         *symbol,
		Timeframe:      *timeframe,
		Years:          *years,
		InitialCapital: *capital,
		Commission:     *commission,
		Signals:        signals,
	})

	if res.Status != "success" {
		log.Fatalf("backtest failed: %s", res.Message)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("encoding result: %v", err)
		}
		return
	}

	fmt.Printf("Backtest %s %s over %d years\n", res.Symbol, res.Timeframe, res.PeriodYears)
	fmt.Printf("  Initial capital:  %12.2f\n", res.InitialCapital)
	fmt.Printf("  Final capital:    %12.2f\n", res.FinalCapital)
	fmt.Printf("  Total return:     %11.2f%%\n", res.TotalReturnPct)
	fmt.Printf("  Sharpe ratio:     %12.2f\n", res.SharpeRatio)
	fmt.Printf("  Max drawdown:     %11.2f%%\n", res.MaxDrawdownPct)
	fmt.Printf("  Win rate:         %11.2f%%\n", res.WinRatePct)
	fmt.Printf("  Profit factor:    %12.2f\n", res.ProfitFactor)
	fmt.Printf("  Trades:           %12d\n", res.TotalTrades)
}

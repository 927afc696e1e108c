// Package backtest implements the strategy backtest engine: it replays an
// ordered list of trade signals against a historical price series, building
// a trade ledger and a mark-to-market equity curve, and derives summary
// performance statistics from them.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"tradebot/internal/domain"
	"tradebot/internal/marketdata"
)

// Request describes a single backtest run.
type Request struct {
	Symbol         string
	Timeframe      string
	Years          int
	InitialCapital float64
	Commission     float64

	// Signals is the strategy's ordered signal list. When nil the engine
	// generates alternating demo signals from the price series.
	Signals []domain.Signal
}

// Result is the complete outcome of a backtest run. Status is "success" or
// "error"; on error only Message and the echoed request parameters are
// meaningful.
type Result struct {
	Status         string         `json:"status"`
	Symbol         string         `json:"symbol"`
	Timeframe      string         `json:"timeframe"`
	PeriodYears    int            `json:"period_years"`
	InitialCapital float64        `json:"initial_capital"`
	FinalCapital   float64        `json:"final_capital"`
	TotalReturnPct float64        `json:"total_return_pct"`
	SharpeRatio    float64        `json:"sharpe_ratio"`
	MaxDrawdownPct float64        `json:"max_drawdown_pct"`
	WinRatePct     float64        `json:"win_rate_pct"`
	ProfitFactor   float64        `json:"profit_factor"`
	TotalTrades    int            `json:"total_trades"`
	EquityCurve    []float64      `json:"equity_curve"`
	Trades         []domain.Trade `json:"trades"`
	Message        string         `json:"message,omitempty"`
}

// Engine composes signal generation, trade simulation, and metrics into a
// single run. Each Run owns its own ledger, curve, and cash counter, so
// concurrent runs never interact.
type Engine struct {
	source marketdata.Source
	rng    *rand.Rand
	log    *slog.Logger
}

// NewEngine creates an Engine that reads price series from source. rng seeds
// the demo-signal sampler; pass nil for a time-seeded source.
func NewEngine(source marketdata.Source, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		source: source,
		rng:    rng,
		log:    slog.Default().With("component", "backtest"),
	}
}

// Run executes a backtest and always returns a complete Result: any failure
// in data acquisition, simulation, or metrics is absorbed into an error
// result so callers only branch on Status.
func (e *Engine) Run(ctx context.Context, req Request) (res *Result) {
	res = &Result{
		Status:         "success",
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		PeriodYears:    req.Years,
		InitialCapital: req.InitialCapital,
		FinalCapital:   req.InitialCapital,
		EquityCurve:    []float64{},
		Trades:         []domain.Trade{},
	}

	// The engine's contract is total: a panic anywhere in the pipeline is
	// converted to an error result instead of unwinding past Run.
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("backtest panicked", "symbol", req.Symbol, "panic", r)
			res.Status = "error"
			res.Message = fmt.Sprintf("computation failed: %v", r)
		}
	}()

	bars, err := e.source.Bars(ctx, req.Symbol, req.Timeframe, req.Years)
	if err != nil {
		return e.fail(res, err)
	}
	if len(bars) == 0 {
		return e.fail(res, fmt.Errorf("%w for %s", marketdata.ErrNoData, req.Symbol))
	}

	signals := req.Signals
	if signals == nil {
		signals = DemoSignals(bars, defaultDemoTrades, e.rng)
	}

	trades, equity := simulate(signals, req.InitialCapital, req.Commission)
	m := computeMetrics(trades, equity, req.InitialCapital)

	res.FinalCapital = equity[len(equity)-1]
	res.TotalReturnPct = m.TotalReturnPct
	res.SharpeRatio = m.SharpeRatio
	res.MaxDrawdownPct = m.MaxDrawdownPct
	res.WinRatePct = m.WinRatePct
	res.ProfitFactor = m.ProfitFactor
	res.TotalTrades = len(trades)
	res.EquityCurve = equity
	res.Trades = trades

	e.log.Info("backtest complete",
		"symbol", req.Symbol,
		"timeframe", req.Timeframe,
		"bars", len(bars),
		"signals", len(signals),
		"trades", len(trades),
		"return_pct", m.TotalReturnPct,
	)
	return res
}

func (e *Engine) fail(res *Result, err error) *Result {
	e.log.Warn("backtest failed", "symbol", res.Symbol, "error", err)
	res.Status = "error"
	res.Message = err.Error()
	return res
}

// Package store persists strategy bots and backtest results.
package store

import (
	"context"
	"errors"
	"time"

	"tradebot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Bot is a saved trading strategy: its configuration plus the generated
// strategy code, if any.
type Bot struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	Timeframe    string    `json:"timeframe"`
	StrategyType string    `json:"strategy_type"`
	Code         string    `json:"code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Result is a persisted backtest run. EquityCurve and Trades are stored as
// JSON columns so the full run can be replayed in the dashboard.
type Result struct {
	ID             int64          `json:"id"`
	BotID          *int64         `json:"bot_id,omitempty"`
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
	CreatedAt      time.Time      `json:"created_at"`
}

// ResultFilter narrows ListResults. Zero values mean "no filter"; a zero
// Limit falls back to a server-side default.
type ResultFilter struct {
	Symbol string
	Limit  int
	Offset int
}

// StatsSummary aggregates all saved results.
type StatsSummary struct {
	TotalResults   int     `json:"total_results"`
	AvgReturnPct   float64 `json:"avg_return_pct"`
	AvgSharpeRatio float64 `json:"avg_sharpe_ratio"`
	BestReturnPct  float64 `json:"best_return_pct"`
	BestSymbol     string  `json:"best_symbol"`
}

// BotStore persists and retrieves strategy bots.
type BotStore interface {
	// CreateBot inserts a new bot and fills in its ID and timestamps.
	CreateBot(ctx context.Context, bot *Bot) error

	// GetBot retrieves a single bot by ID.
	GetBot(ctx context.Context, id int64) (*Bot, error)

	// ListBots returns all bots, newest first.
	ListBots(ctx context.Context) ([]Bot, error)

	// UpdateBot persists changes to an existing bot.
	UpdateBot(ctx context.Context, bot *Bot) error

	// DeleteBot removes a bot by ID.
	DeleteBot(ctx context.Context, id int64) error
}

// ResultStore persists and retrieves backtest results.
type ResultStore interface {
	// SaveResult inserts a new result and fills in its ID and timestamp.
	SaveResult(ctx context.Context, res *Result) error

	// GetResult retrieves a single result by ID.
	GetResult(ctx context.Context, id int64) (*Result, error)

	// ListResults returns saved results matching the filter, newest first.
	ListResults(ctx context.Context, filter ResultFilter) ([]Result, error)

	// DeleteResult removes a result by ID.
	DeleteResult(ctx context.Context, id int64) error

	// Stats aggregates all saved results.
	Stats(ctx context.Context) (*StatsSummary, error)
}

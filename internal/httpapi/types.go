// Package httpapi provides the HTTP REST API for running backtests, managing
// strategy bots, and browsing saved results.
package httpapi

import (
	"tradebot/internal/domain"
	"tradebot/internal/store"
)

// BacktestRequest is the POST body for /api/backtest/run. Zero values for
// Years, InitialCapital, and Commission fall back to the configured defaults.
type BacktestRequest struct {
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	Years          int             `json:"years"`
	InitialCapital float64         `json:"initial_capital"`
	Commission     float64         `json:"commission"`
	Signals        []domain.Signal `json:"signals"`
}

// BotRequest is the POST/PUT body for creating or updating a bot.
type BotRequest struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Timeframe    string `json:"timeframe"`
	StrategyType string `json:"strategy_type"`
	Code         string `json:"code"`
}

// BotsResponse lists saved bots.
type BotsResponse struct {
	Bots []store.Bot `json:"bots"`
}

// ResultsResponse lists saved backtest results.
type ResultsResponse struct {
	Results []store.Result `json:"results"`
}

// RefineRequest is the POST body for /api/generate/refine.
type RefineRequest struct {
	Code         string `json:"code"`
	ErrorMessage string `json:"error_message"`
}

// CodeResponse carries generated strategy source.
type CodeResponse struct {
	Code string `json:"code"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status"`
}

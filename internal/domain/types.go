// Package domain defines the core types shared across the tradebot platform:
// OHLCV bars, trade signals, and the records produced by a backtest run.
package domain

import "time"

// Bar is a single OHLCV price bar.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// SignalSide is the direction of a trade signal.
type SignalSide string

// Signal sides.
const (
	SignalBuy  SignalSide = "BUY"
	SignalSell SignalSide = "SELL"
)

// Signal is a single timestamped trade instruction with a reference price.
// Signals are consumed in the order supplied; the caller's order is
// authoritative and the engine never reorders them.
type Signal struct {
	Timestamp time.Time  `json:"date"`
	Side      SignalSide `json:"type"`
	Price     float64    `json:"price"`
}

// Position is an open long position. It exists only between a BUY and the
// matching SELL signal.
type Position struct {
	EntryPrice float64
	EntryTime  time.Time
	Size       float64
}

// Trade is a closed round-trip: one BUY matched with one SELL. Immutable
// once created. Profit is net of commission; ReturnPct is relative to the
// capital committed at entry.
type Trade struct {
	EntryTime  time.Time `json:"entry_date"`
	ExitTime   time.Time `json:"exit_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Size       float64   `json:"size"`
	Profit     float64   `json:"profit"`
	ReturnPct  float64   `json:"return_pct"`
}

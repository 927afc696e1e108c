// Package marketdata acquires historical OHLCV price series for backtesting.
// The Alpaca market-data API is the primary source; a Parquet-backed cache
// can wrap any source to avoid re-downloading the same series.
package marketdata

import (
	"context"
	"errors"

	"tradebot/internal/domain"
)

// ErrNoData indicates the source returned an empty series for the request.
// The request itself was well-formed; the provider just had nothing.
var ErrNoData = errors.New("no price data available")

// Source supplies a cleaned, time-ordered price series for a symbol.
// Implementations return ErrNoData (possibly wrapped) when the provider has
// no bars for the requested window.
type Source interface {
	// Bars returns years worth of historical bars for the symbol at the
	// given timeframe, oldest first.
	Bars(ctx context.Context, symbol, timeframe string, years int) ([]domain.Bar, error)
}

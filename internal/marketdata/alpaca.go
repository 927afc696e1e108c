package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradebot/internal/domain"
	"tradebot/internal/util"
)

// Compile-time interface check.
var _ Source = (*AlpacaSource)(nil)

// AlpacaSource fetches historical bars from the Alpaca market-data API.
type AlpacaSource struct {
	client  *alpacamd.Client
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource configured with the given
// credentials and data endpoint. ratePerMin caps outgoing API calls.
func NewAlpacaSource(apiKey, apiSecret, dataURL string, ratePerMin int) *AlpacaSource {
	opts := alpacamd.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaSource{
		client:  alpacamd.NewClient(opts),
		limiter: util.NewRateLimiter(ratePerMin),
		log:     slog.Default().With("source", "alpaca"),
	}
}

// Bars fetches up to years of history for the symbol, oldest first.
func (s *AlpacaSource) Bars(ctx context.Context, symbol, timeframe string, years int) ([]domain.Bar, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(-years, 0, 0)

	alpacaBars, err := s.client.GetBars(symbol, alpacamd.GetBarsRequest{
		TimeFrame: TimeFrameFor(timeframe),
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(alpacaBars) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, symbol, timeframe)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:    strings.ToUpper(symbol),
			Timestamp: ab.Timestamp,
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    int64(ab.Volume),
		})
	}

	s.log.Debug("fetched bars", "symbol", symbol, "timeframe", timeframe, "count", len(bars))
	return bars, nil
}

// TimeFrameFor maps MT5-style timeframe strings (M1, H1, D1, ...) to Alpaca
// bar timeframes. Unknown strings fall back to daily bars.
func TimeFrameFor(timeframe string) alpacamd.TimeFrame {
	switch strings.ToUpper(timeframe) {
	case "M1":
		return alpacamd.NewTimeFrame(1, alpacamd.Min)
	case "M5":
		return alpacamd.NewTimeFrame(5, alpacamd.Min)
	case "M15":
		return alpacamd.NewTimeFrame(15, alpacamd.Min)
	case "M30":
		return alpacamd.NewTimeFrame(30, alpacamd.Min)
	case "H1":
		return alpacamd.NewTimeFrame(1, alpacamd.Hour)
	case "H4":
		return alpacamd.NewTimeFrame(4, alpacamd.Hour)
	case "D1":
		return alpacamd.OneDay
	case "W1":
		return alpacamd.NewTimeFrame(1, alpacamd.Week)
	case "MN":
		return alpacamd.NewTimeFrame(1, alpacamd.Month)
	default:
		return alpacamd.OneDay
	}
}

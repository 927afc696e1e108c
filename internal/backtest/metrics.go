package backtest

import (
	"math"

	"tradebot/internal/domain"
)

// annualizationFactor is applied to the per-step Sharpe ratio. The sampling
// rate is assumed daily-equivalent regardless of the requested timeframe;
// minute and hour series use the same multiplier. Known simplification,
// kept for compatibility with stored results.
const annualizationFactor = 252

// Metrics is the summary statistics bundle derived from a trade ledger and
// an equity curve. All values are rounded to 2 decimal places.
type Metrics struct {
	TotalReturnPct float64
	SharpeRatio    float64
	MaxDrawdownPct float64
	WinRatePct     float64
	ProfitFactor   float64
}

// computeMetrics derives summary statistics from the closed-trade ledger and
// the equity curve. It is a pure function: same inputs always produce the
// same output, and neither slice is mutated.
func computeMetrics(trades []domain.Trade, equity []float64, initialCapital float64) Metrics {
	var m Metrics

	// Total return relative to starting capital.
	if len(equity) > 0 {
		m.TotalReturnPct = (equity[len(equity)-1] - initialCapital) / initialCapital * 100
	}

	// Sharpe ratio over per-step equity returns, population stddev. A flat
	// or single-point curve has zero variance and yields 0.
	if len(equity) > 1 {
		returns := make([]float64, 0, len(equity)-1)
		for i := 1; i < len(equity); i++ {
			returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
		}

		var sum float64
		for _, r := range returns {
			sum += r
		}
		mean := sum / float64(len(returns))

		var variance float64
		for _, r := range returns {
			d := r - mean
			variance += d * d
		}
		variance /= float64(len(returns))

		if std := math.Sqrt(variance); std > 0 {
			m.SharpeRatio = mean / std * math.Sqrt(annualizationFactor)
		}
	}

	// Maximum drawdown: most negative excursion below the running peak.
	if len(equity) > 0 {
		peak := equity[0]
		for _, v := range equity {
			if v > peak {
				peak = v
			}
			if dd := (v - peak) / peak * 100; dd < m.MaxDrawdownPct {
				m.MaxDrawdownPct = dd
			}
		}
	}

	// Win rate and profit factor over closed trades.
	if len(trades) > 0 {
		var wins int
		var totalWin, totalLoss float64
		for _, t := range trades {
			if t.Profit > 0 {
				wins++
				totalWin += t.Profit
			} else if t.Profit < 0 {
				totalLoss += -t.Profit
			}
		}

		m.WinRatePct = float64(wins) / float64(len(trades)) * 100

		// With no losses the profit factor is the raw win total rather than
		// an infinite sentinel; downstream consumers expect a finite number.
		if totalLoss > 0 {
			m.ProfitFactor = totalWin / totalLoss
		} else if totalWin > 0 {
			m.ProfitFactor = totalWin
		}
	}

	// Rounding happens only here, at the boundary; everything above keeps
	// full precision.
	m.TotalReturnPct = round2(m.TotalReturnPct)
	m.SharpeRatio = round2(m.SharpeRatio)
	m.MaxDrawdownPct = round2(m.MaxDrawdownPct)
	m.WinRatePct = round2(m.WinRatePct)
	m.ProfitFactor = round2(m.ProfitFactor)

	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

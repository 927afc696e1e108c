package backtest

import (
	"math/rand"
	"sort"

	"tradebot/internal/domain"
)

// defaultDemoTrades is the target signal count for demo runs without an
// explicit signal list.
const defaultDemoTrades = 50

// DemoSignals generates alternating BUY/SELL signals at min(count, len(bars))
// distinct bar indices, sampled uniformly without replacement and sorted
// ascending. The first signal is always a BUY. Each signal takes its price
// from the bar's close and its timestamp from the bar.
//
// The random source is supplied by the caller so runs are reproducible under
// a fixed seed.
func DemoSignals(bars []domain.Bar, count int, rng *rand.Rand) []domain.Signal {
	if len(bars) == 0 {
		return nil
	}
	if count > len(bars) {
		count = len(bars)
	}

	idx := rng.Perm(len(bars))[:count]
	sort.Ints(idx)

	signals := make([]domain.Signal, 0, count)
	buy := true
	for _, i := range idx {
		side := domain.SignalSell
		if buy {
			side = domain.SignalBuy
		}
		signals = append(signals, domain.Signal{
			Timestamp: bars[i].Timestamp,
			Side:      side,
			Price:     bars[i].Close,
		})
		buy = !buy
	}
	return signals
}

package backtest

import (
	"tradebot/internal/domain"
)

// positionSizeFraction is the share of current cash committed when a
// position is opened.
const positionSizeFraction = 0.95

// simulate replays signals in input order through a two-state machine
// (flat / long) and returns the ledger of closed trades plus the
// mark-to-market equity curve. The curve is seeded with initialCapital and
// gains one entry per processed signal.
//
// A SELL while flat and a BUY while long are no-ops: signals are assumed
// pre-filtered by the strategy layer, and the simulator stays total rather
// than failing mid-run on out-of-phase input.
func simulate(signals []domain.Signal, initialCapital, commission float64) ([]domain.Trade, []float64) {
	trades := []domain.Trade{}
	equity := make([]float64, 0, len(signals)+1)
	equity = append(equity, initialCapital)

	cash := initialCapital
	var pos *domain.Position

	for _, sig := range signals {
		switch {
		case sig.Side == domain.SignalBuy && pos == nil:
			// Open long. Cash is not debited; capital commitment shows up
			// through the unrealized P&L term below.
			pos = &domain.Position{
				EntryPrice: sig.Price,
				EntryTime:  sig.Timestamp,
				Size:       cash * positionSizeFraction / sig.Price,
			}

		case sig.Side == domain.SignalSell && pos != nil:
			profit := (sig.Price - pos.EntryPrice) * pos.Size
			// Round trip: entry and exit legs both charged against exit notional.
			commissionCost := pos.Size * sig.Price * commission * 2
			netProfit := profit - commissionCost

			returnPct := 0.0
			if notional := pos.EntryPrice * pos.Size; notional != 0 {
				returnPct = netProfit / notional * 100
			}

			trades = append(trades, domain.Trade{
				EntryTime:  pos.EntryTime,
				ExitTime:   sig.Timestamp,
				EntryPrice: pos.EntryPrice,
				ExitPrice:  sig.Price,
				Size:       pos.Size,
				Profit:     netProfit,
				ReturnPct:  returnPct,
			})

			cash += netProfit
			pos = nil
		}

		// Mark to market after every signal, transition or not, using the
		// current signal's price.
		if pos != nil {
			equity = append(equity, cash+(sig.Price-pos.EntryPrice)*pos.Size)
		} else {
			equity = append(equity, cash)
		}
	}

	return trades, equity
}

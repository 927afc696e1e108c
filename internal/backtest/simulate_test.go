package backtest

import (
	"math"
	"testing"
	"time"

	"tradebot/internal/domain"
)

func ts(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
}

func TestSimulateNoSignals(t *testing.T) {
	trades, equity := simulate(nil, 10000, 0.0001)

	if len(trades) != 0 {
		t.Errorf("got %d trades, want 0", len(trades))
	}
	if len(equity) != 1 {
		t.Fatalf("equity curve has %d points, want 1", len(equity))
	}
	if equity[0] != 10000 {
		t.Errorf("equity[0] = %v, want 10000", equity[0])
	}
}

func TestSimulateRoundTrip(t *testing.T) {
	// initial_capital=10000, commission=0.0001, BUY@100 then SELL@110:
	// size = 10000*0.95/100 = 95
	// profit = (110-100)*95 = 950
	// commission = 95*110*0.0001*2 = 2.09
	// net = 947.91, final = 10947.91
	signals := []domain.Signal{
		{Timestamp: ts(0), Side: domain.SignalBuy, Price: 100},
		{Timestamp: ts(1), Side: domain.SignalSell, Price: 110},
	}

	trades, equity := simulate(signals, 10000, 0.0001)

	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if tr.Size != 95 {
		t.Errorf("Size = %v, want 95", tr.Size)
	}
	if math.Abs(tr.Profit-947.91) > 1e-9 {
		t.Errorf("Profit = %v, want 947.91", tr.Profit)
	}
	wantReturn := 947.91 / (100 * 95) * 100
	if math.Abs(tr.ReturnPct-wantReturn) > 1e-9 {
		t.Errorf("ReturnPct = %v, want %v", tr.ReturnPct, wantReturn)
	}
	if !tr.ExitTime.After(tr.EntryTime) {
		t.Error("exit time should be after entry time")
	}

	want := []float64{10000, 10000, 10947.91}
	if len(equity) != len(want) {
		t.Fatalf("equity curve has %d points, want %d", len(equity), len(want))
	}
	for i := range want {
		if math.Abs(equity[i]-want[i]) > 1e-9 {
			t.Errorf("equity[%d] = %v, want %v", i, equity[i], want[i])
		}
	}
}

func TestSimulateUnmatchedBuyMarksToMarket(t *testing.T) {
	// A trailing BUY never realizes a trade but the curve tracks unrealized
	// P&L at each subsequent signal.
	signals := []domain.Signal{
		{Timestamp: ts(0), Side: domain.SignalBuy, Price: 100},
		{Timestamp: ts(1), Side: domain.SignalBuy, Price: 120}, // no-op while long
	}

	trades, equity := simulate(signals, 10000, 0)

	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0 (position never closed)", len(trades))
	}
	if len(equity) != 3 {
		t.Fatalf("equity curve has %d points, want 3", len(equity))
	}
	// size = 95; at 120 the unrealized gain is (120-100)*95 = 1900.
	if math.Abs(equity[2]-11900) > 1e-9 {
		t.Errorf("equity[2] = %v, want 11900", equity[2])
	}
}

func TestSimulateSellWhileFlatIsNoOp(t *testing.T) {
	signals := []domain.Signal{
		{Timestamp: ts(0), Side: domain.SignalSell, Price: 100},
		{Timestamp: ts(1), Side: domain.SignalSell, Price: 90},
	}

	trades, equity := simulate(signals, 5000, 0.001)

	if len(trades) != 0 {
		t.Errorf("got %d trades, want 0", len(trades))
	}
	for i, v := range equity {
		if v != 5000 {
			t.Errorf("equity[%d] = %v, want 5000 (flat cash unchanged)", i, v)
		}
	}
}

func TestSimulateTradeCausality(t *testing.T) {
	signals := []domain.Signal{
		{Timestamp: ts(0), Side: domain.SignalBuy, Price: 100},
		{Timestamp: ts(1), Side: domain.SignalSell, Price: 105},
		{Timestamp: ts(2), Side: domain.SignalBuy, Price: 103},
		{Timestamp: ts(3), Side: domain.SignalSell, Price: 99},
	}

	trades, _ := simulate(signals, 10000, 0.0001)

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	for i, tr := range trades {
		if !tr.ExitTime.After(tr.EntryTime) {
			t.Errorf("trade %d: exit %v not after entry %v", i, tr.ExitTime, tr.EntryTime)
		}
	}
	// Ledger is in chronological signal order.
	if trades[1].EntryTime.Before(trades[0].ExitTime) {
		t.Error("trades are not in chronological order")
	}
}

func TestSimulateCompoundsCash(t *testing.T) {
	// Second position is sized from cash after the first trade's net profit.
	signals := []domain.Signal{
		{Timestamp: ts(0), Side: domain.SignalBuy, Price: 100},
		{Timestamp: ts(1), Side: domain.SignalSell, Price: 110},
		{Timestamp: ts(2), Side: domain.SignalBuy, Price: 100},
	}

	_, equity := simulate(signals, 10000, 0)

	cashAfterFirst := 10000 + (110.0-100.0)*95.0
	if math.Abs(equity[2]-cashAfterFirst) > 1e-9 {
		t.Fatalf("equity[2] = %v, want %v", equity[2], cashAfterFirst)
	}
	// Entry at the same price leaves mark-to-market equal to cash.
	if math.Abs(equity[3]-cashAfterFirst) > 1e-9 {
		t.Errorf("equity[3] = %v, want %v", equity[3], cashAfterFirst)
	}
}

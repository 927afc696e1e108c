package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tradebot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestSQLiteStoreOpen(t *testing.T) {
	s := newTestStore(t)
	if err := s.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func TestBotCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bot := &Bot{
		Name:         "momentum-eurusd",
		Symbol:       "EURUSD",
		Timeframe:    "H1",
		StrategyType: "trend",
		Code:         "// strategy body",
	}
	if err := s.CreateBot(ctx, bot); err != nil {
		t.Fatalf("CreateBot: %v", err)
	}
	if bot.ID == 0 {
		t.Fatal("CreateBot did not assign an ID")
	}
	if bot.CreatedAt.IsZero() || bot.UpdatedAt.IsZero() {
		t.Error("CreateBot did not set timestamps")
	}

	got, err := s.GetBot(ctx, bot.ID)
	if err != nil {
		t.Fatalf("GetBot: %v", err)
	}
	if got.Name != "momentum-eurusd" || got.Symbol != "EURUSD" || got.Timeframe != "H1" {
		t.Errorf("GetBot returned %+v", got)
	}
	if got.Code != "// strategy body" {
		t.Errorf("GetBot Code = %q", got.Code)
	}

	got.Name = "momentum-eurusd-v2"
	got.Code = "// revised"
	if err := s.UpdateBot(ctx, got); err != nil {
		t.Fatalf("UpdateBot: %v", err)
	}
	again, err := s.GetBot(ctx, bot.ID)
	if err != nil {
		t.Fatalf("GetBot after update: %v", err)
	}
	if again.Name != "momentum-eurusd-v2" || again.Code != "// revised" {
		t.Errorf("update not persisted: %+v", again)
	}

	if err := s.DeleteBot(ctx, bot.ID); err != nil {
		t.Fatalf("DeleteBot: %v", err)
	}
	if _, err := s.GetBot(ctx, bot.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBot after delete: err = %v, want ErrNotFound", err)
	}
}

func TestBotNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetBot(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBot(999): err = %v, want ErrNotFound", err)
	}
	if err := s.UpdateBot(ctx, &Bot{ID: 999, Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateBot(999): err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteBot(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteBot(999): err = %v, want ErrNotFound", err)
	}
}

func TestListBotsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if err := s.CreateBot(ctx, &Bot{Name: name, Symbol: "SPY", Timeframe: "D1"}); err != nil {
			t.Fatalf("CreateBot(%s): %v", name, err)
		}
	}

	bots, err := s.ListBots(ctx)
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}
	if len(bots) != 3 {
		t.Fatalf("ListBots returned %d bots, want 3", len(bots))
	}
	if bots[0].Name != "third" || bots[2].Name != "first" {
		t.Errorf("ListBots order = [%s %s %s], want newest first",
			bots[0].Name, bots[1].Name, bots[2].Name)
	}
}

func sampleResult(symbol string, returnPct float64) *Result {
	return &Result{
		Symbol:         symbol,
		Timeframe:      "H1",
		PeriodYears:    5,
		InitialCapital: 10000,
		FinalCapital:   10000 * (1 + returnPct/100),
		TotalReturnPct: returnPct,
		SharpeRatio:    1.2,
		MaxDrawdownPct: -8.5,
		WinRatePct:     60,
		ProfitFactor:   1.5,
		TotalTrades:    25,
		EquityCurve:    []float64{10000, 10500, 10000 * (1 + returnPct/100)},
		Trades: []domain.Trade{
			{
				EntryTime:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
				ExitTime:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				EntryPrice: 100,
				ExitPrice:  105,
				Size:       95,
				Profit:     475,
				ReturnPct:  5,
			},
		},
	}
}

func TestResultSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res := sampleResult("EURUSD", 9.48)
	if err := s.SaveResult(ctx, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if res.ID == 0 {
		t.Fatal("SaveResult did not assign an ID")
	}

	got, err := s.GetResult(ctx, res.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Symbol != "EURUSD" || got.TotalReturnPct != 9.48 || got.TotalTrades != 25 {
		t.Errorf("GetResult returned %+v", got)
	}
	if len(got.EquityCurve) != 3 || got.EquityCurve[1] != 10500 {
		t.Errorf("EquityCurve = %v", got.EquityCurve)
	}
	if len(got.Trades) != 1 || got.Trades[0].Profit != 475 {
		t.Errorf("Trades = %+v", got.Trades)
	}
	if !got.Trades[0].EntryTime.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("trade EntryTime = %v", got.Trades[0].EntryTime)
	}
	if got.BotID != nil {
		t.Errorf("BotID = %v, want nil", got.BotID)
	}
}

func TestResultBotLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bot := &Bot{Name: "linked", Symbol: "SPY", Timeframe: "D1"}
	if err := s.CreateBot(ctx, bot); err != nil {
		t.Fatalf("CreateBot: %v", err)
	}

	res := sampleResult("SPY", 3.2)
	res.BotID = &bot.ID
	if err := s.SaveResult(ctx, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := s.GetResult(ctx, res.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.BotID == nil || *got.BotID != bot.ID {
		t.Errorf("BotID = %v, want %d", got.BotID, bot.ID)
	}
}

func TestListResultsFilterAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.SaveResult(ctx, sampleResult("EURUSD", float64(i))); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}
	if err := s.SaveResult(ctx, sampleResult("XAUUSD", 12)); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	all, err := s.ListResults(ctx, ResultFilter{})
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("ListResults returned %d results, want 6", len(all))
	}

	eur, err := s.ListResults(ctx, ResultFilter{Symbol: "EURUSD"})
	if err != nil {
		t.Fatalf("ListResults(EURUSD): %v", err)
	}
	if len(eur) != 5 {
		t.Errorf("symbol filter returned %d results, want 5", len(eur))
	}

	page, err := s.ListResults(ctx, ResultFilter{Symbol: "EURUSD", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListResults(paged): %v", err)
	}
	if len(page) != 2 {
		t.Errorf("paged query returned %d results, want 2", len(page))
	}
	// Newest first, so offset 2 skips the runs with returns 4 and 3.
	if len(page) == 2 && page[0].TotalReturnPct != 2 {
		t.Errorf("page[0].TotalReturnPct = %v, want 2", page[0].TotalReturnPct)
	}
}

func TestDeleteResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res := sampleResult("SPY", 1)
	if err := s.SaveResult(ctx, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := s.DeleteResult(ctx, res.ID); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
	if _, err := s.GetResult(ctx, res.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetResult after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteResult(ctx, res.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalResults != 0 || stats.AvgReturnPct != 0 || stats.BestSymbol != "" {
		t.Errorf("empty Stats = %+v, want zero values", stats)
	}
}

func TestStatsSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, c := range []struct {
		symbol string
		ret    float64
	}{
		{"EURUSD", 10},
		{"XAUUSD", 30},
		{"SPY", -10},
	} {
		if err := s.SaveResult(ctx, sampleResult(c.symbol, c.ret)); err != nil {
			t.Fatalf("SaveResult(%s): %v", c.symbol, err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalResults != 3 {
		t.Errorf("TotalResults = %d, want 3", stats.TotalResults)
	}
	if stats.AvgReturnPct != 10 {
		t.Errorf("AvgReturnPct = %v, want 10", stats.AvgReturnPct)
	}
	if stats.BestSymbol != "XAUUSD" || stats.BestReturnPct != 30 {
		t.Errorf("best = %s %v, want XAUUSD 30", stats.BestSymbol, stats.BestReturnPct)
	}
}

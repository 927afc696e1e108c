package tradebot

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tradebot/internal/backtest"
	"tradebot/internal/config"
	"tradebot/internal/domain"
	"tradebot/internal/httpapi"
	"tradebot/internal/store"
)

type fixedSource struct {
	bars []domain.Bar
}

func (s *fixedSource) Bars(_ context.Context, _, _ string, _ int) ([]domain.Bar, error) {
	return s.bars, nil
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sdk.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	bars := make([]domain.Bar, 200)
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol:    "SPY",
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close:     100 + float64(i),
		}
	}

	engine := backtest.NewEngine(&fixedSource{bars: bars}, rand.New(rand.NewSource(7)))
	defaults := config.BacktestConfig{InitialCapital: 10000, Commission: 0.0001, PeriodYears: 5}
	api := httpapi.NewServer(engine, st, st, nil, defaults, slog.Default())

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	c := NewClient(baseURL)

	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.baseURL != baseURL {
		t.Errorf("expected baseURL %q, got %q", baseURL, c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestClientRunBacktest(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	res, err := c.RunBacktest(ctx, httpapi.BacktestRequest{
		Symbol: "EURUSD",
		Signals: []domain.Signal{
			{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Side: domain.SignalBuy, Price: 100},
			{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Side: domain.SignalSell, Price: 110},
		},
	})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if res.Status != "success" || res.TotalTrades != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestClientRunDemo(t *testing.T) {
	c := newTestClient(t)

	res, err := c.RunDemo(context.Background(), "SPY", "D1")
	if err != nil {
		t.Fatalf("RunDemo: %v", err)
	}
	if res.Status != "success" || res.TotalTrades == 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestClientBotRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	bot, err := c.CreateBot(ctx, httpapi.BotRequest{Name: "sdk-bot", Symbol: "SPY", Timeframe: "D1"})
	if err != nil {
		t.Fatalf("CreateBot: %v", err)
	}
	if bot.ID == 0 {
		t.Fatal("CreateBot returned zero ID")
	}

	bots, err := c.ListBots(ctx)
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}
	if len(bots) != 1 {
		t.Fatalf("ListBots returned %d bots, want 1", len(bots))
	}

	updated, err := c.UpdateBot(ctx, bot.ID, httpapi.BotRequest{Name: "sdk-bot-v2", Symbol: "SPY", Timeframe: "H1"})
	if err != nil {
		t.Fatalf("UpdateBot: %v", err)
	}
	if updated.Name != "sdk-bot-v2" {
		t.Errorf("updated name = %q", updated.Name)
	}

	if err := c.DeleteBot(ctx, bot.ID); err != nil {
		t.Fatalf("DeleteBot: %v", err)
	}
	if _, err := c.GetBot(ctx, bot.ID); err == nil {
		t.Error("GetBot after delete should fail")
	}
}

func TestClientResultsAndStats(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	saved, err := c.SaveResult(ctx, store.Result{
		Symbol:         "XAUUSD",
		Timeframe:      "H4",
		PeriodYears:    3,
		InitialCapital: 10000,
		FinalCapital:   12000,
		TotalReturnPct: 20,
		TotalTrades:    10,
		EquityCurve:    []float64{10000, 12000},
	})
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := c.GetResult(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Symbol != "XAUUSD" || got.TotalReturnPct != 20 {
		t.Errorf("GetResult = %+v", got)
	}

	results, err := c.ListResults(ctx, store.ResultFilter{Symbol: "XAUUSD"})
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("ListResults returned %d, want 1", len(results))
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalResults != 1 || stats.BestSymbol != "XAUUSD" {
		t.Errorf("stats = %+v", stats)
	}

	if err := c.DeleteResult(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
}

func TestClientErrorCarriesServerMessage(t *testing.T) {
	c := newTestClient(t)

	_, err := c.RunBacktest(context.Background(), httpapi.BacktestRequest{})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tradebot/internal/backtest"
	"tradebot/internal/codegen"
	"tradebot/internal/config"
	"tradebot/internal/store"
)

const maxPeriodYears = 20

// Generator produces strategy source code.
type Generator interface {
	GenerateBot(ctx context.Context, req codegen.GenerateRequest) (string, error)
	RefineBot(ctx context.Context, code, errorMessage string) (string, error)
}

// Server serves the tradebot HTTP API.
type Server struct {
	engine   *backtest.Engine
	bots     store.BotStore
	results  store.ResultStore
	gen      Generator // nil when code generation is not configured
	defaults config.BacktestConfig
	log      *slog.Logger
}

// NewServer creates the API server. gen may be nil; the generate endpoints
// then answer 503.
func NewServer(
	engine *backtest.Engine,
	bots store.BotStore,
	results store.ResultStore,
	gen Generator,
	defaults config.BacktestConfig,
	log *slog.Logger,
) *Server {
	return &Server{
		engine:   engine,
		bots:     bots,
		results:  results,
		gen:      gen,
		defaults: defaults,
		log:      log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/backtest/run", s.handleBacktestRun)
	mux.HandleFunc("GET /api/backtest/demo", s.handleBacktestDemo)

	mux.HandleFunc("GET /api/bots/list", s.handleListBots)
	mux.HandleFunc("POST /api/bots/create", s.handleCreateBot)
	mux.HandleFunc("GET /api/bots/{id}", s.handleGetBot)
	mux.HandleFunc("PUT /api/bots/{id}", s.handleUpdateBot)
	mux.HandleFunc("DELETE /api/bots/{id}", s.handleDeleteBot)

	mux.HandleFunc("GET /api/results/list", s.handleListResults)
	mux.HandleFunc("POST /api/results/save", s.handleSaveResult)
	mux.HandleFunc("GET /api/results/stats/summary", s.handleStats)
	mux.HandleFunc("GET /api/results/{id}", s.handleGetResult)
	mux.HandleFunc("DELETE /api/results/{id}", s.handleDeleteResult)

	mux.HandleFunc("POST /api/generate/bot", s.handleGenerateBot)
	mux.HandleFunc("POST /api/generate/refine", s.handleRefineBot)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeStoreError maps store errors to HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// idParam parses the {id} path segment.
func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// ---------------------------------------------------------------------------
// Backtests
// ---------------------------------------------------------------------------

// applyDefaults fills omitted request fields from the configured defaults.
func (s *Server) applyDefaults(req *BacktestRequest) {
	if req.Timeframe == "" {
		req.Timeframe = "D1"
	}
	if req.Years == 0 {
		req.Years = s.defaults.PeriodYears
	}
	if req.InitialCapital == 0 {
		req.InitialCapital = s.defaults.InitialCapital
	}
	if req.Commission == 0 {
		req.Commission = s.defaults.Commission
	}
}

func validateBacktest(req *BacktestRequest) error {
	if strings.TrimSpace(req.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if req.Years < 1 || req.Years > maxPeriodYears {
		return fmt.Errorf("years must be between 1 and %d", maxPeriodYears)
	}
	if req.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if req.Commission < 0 {
		return fmt.Errorf("commission must not be negative")
	}
	return nil
}

func (s *Server) handleBacktestRun(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.applyDefaults(&req)
	if err := validateBacktest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.engine.Run(r.Context(), backtest.Request{
		Symbol:         strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Timeframe:      req.Timeframe,
		Years:          req.Years,
		InitialCapital: req.InitialCapital,
		Commission:     req.Commission,
		Signals:        req.Signals,
	})
	writeJSON(w, res)
}

// handleBacktestDemo runs a demo backtest with generated signals. Symbol and
// timeframe can be overridden with query params.
func (s *Server) handleBacktestDemo(w http.ResponseWriter, r *http.Request) {
	req := BacktestRequest{
		Symbol:    r.URL.Query().Get("symbol"),
		Timeframe: r.URL.Query().Get("timeframe"),
	}
	if req.Symbol == "" {
		req.Symbol = "SPY"
	}
	s.applyDefaults(&req)

	res := s.engine.Run(r.Context(), backtest.Request{
		Symbol:         strings.ToUpper(req.Symbol),
		Timeframe:      req.Timeframe,
		Years:          req.Years,
		InitialCapital: req.InitialCapital,
		Commission:     req.Commission,
	})
	writeJSON(w, res)
}

// ---------------------------------------------------------------------------
// Bots
// ---------------------------------------------------------------------------

func validateBot(req *BotRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(req.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if strings.TrimSpace(req.Timeframe) == "" {
		return fmt.Errorf("timeframe is required")
	}
	return nil
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := s.bots.ListBots(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if bots == nil {
		bots = []store.Bot{}
	}
	writeJSON(w, BotsResponse{Bots: bots})
}

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var req BotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateBot(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bot := &store.Bot{
		Name:         req.Name,
		Symbol:       strings.ToUpper(req.Symbol),
		Timeframe:    req.Timeframe,
		StrategyType: req.StrategyType,
		Code:         req.Code,
	}
	if err := s.bots.CreateBot(r.Context(), bot); err != nil {
		writeStoreError(w, err)
		return
	}
	s.log.Info("bot created", "id", bot.ID, "name", bot.Name)
	writeJSONStatus(w, http.StatusCreated, bot)
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bot, err := s.bots.GetBot(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, bot)
}

func (s *Server) handleUpdateBot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req BotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateBot(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bot := &store.Bot{
		ID:           id,
		Name:         req.Name,
		Symbol:       strings.ToUpper(req.Symbol),
		Timeframe:    req.Timeframe,
		StrategyType: req.StrategyType,
		Code:         req.Code,
	}
	if err := s.bots.UpdateBot(r.Context(), bot); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, bot)
}

func (s *Server) handleDeleteBot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.bots.DeleteBot(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ResultFilter{Symbol: strings.ToUpper(q.Get("symbol"))}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	results, err := s.results.ListResults(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if results == nil {
		results = []store.Result{}
	}
	writeJSON(w, ResultsResponse{Results: results})
}

func (s *Server) handleSaveResult(w http.ResponseWriter, r *http.Request) {
	var res store.Result
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(res.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	res.ID = 0
	res.Symbol = strings.ToUpper(res.Symbol)

	if err := s.results.SaveResult(r.Context(), &res); err != nil {
		writeStoreError(w, err)
		return
	}
	s.log.Info("result saved", "id", res.ID, "symbol", res.Symbol)
	writeJSONStatus(w, http.StatusCreated, res)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.results.GetResult(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.results.DeleteResult(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.results.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, stats)
}

// ---------------------------------------------------------------------------
// Code generation
// ---------------------------------------------------------------------------

func (s *Server) handleGenerateBot(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "code generation not configured")
		return
	}
	var req codegen.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	code, err := s.gen.GenerateBot(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, CodeResponse{Code: code})
}

func (s *Server) handleRefineBot(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "code generation not configured")
		return
	}
	var req RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	code, err := s.gen.RefineBot(r.Context(), req.Code, req.ErrorMessage)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, CodeResponse{Code: code})
}

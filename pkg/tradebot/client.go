// Package tradebot provides a Go SDK for the tradebot-server API.
package tradebot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tradebot/internal/backtest"
	"tradebot/internal/codegen"
	"tradebot/internal/domain"
	"tradebot/internal/httpapi"
	"tradebot/internal/store"
)

// Client talks to a running tradebot-server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new tradebot API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// RunBacktest executes a backtest with the caller's signal list. Use RunDemo
// for server-generated signals.
func (c *Client) RunBacktest(ctx context.Context, req httpapi.BacktestRequest) (*backtest.Result, error) {
	if req.Signals == nil {
		req.Signals = []domain.Signal{}
	}
	var res backtest.Result
	if err := c.do(ctx, http.MethodPost, "/api/backtest/run", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RunDemo executes a demo backtest with server-generated signals.
func (c *Client) RunDemo(ctx context.Context, symbol, timeframe string) (*backtest.Result, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	if timeframe != "" {
		q.Set("timeframe", timeframe)
	}
	path := "/api/backtest/demo"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var res backtest.Result
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateBot saves a new bot.
func (c *Client) CreateBot(ctx context.Context, req httpapi.BotRequest) (*store.Bot, error) {
	var bot store.Bot
	if err := c.do(ctx, http.MethodPost, "/api/bots/create", req, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

// ListBots returns all saved bots.
func (c *Client) ListBots(ctx context.Context) ([]store.Bot, error) {
	var resp httpapi.BotsResponse
	if err := c.do(ctx, http.MethodGet, "/api/bots/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bots, nil
}

// GetBot retrieves a bot by ID.
func (c *Client) GetBot(ctx context.Context, id int64) (*store.Bot, error) {
	var bot store.Bot
	if err := c.do(ctx, http.MethodGet, "/api/bots/"+strconv.FormatInt(id, 10), nil, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

// UpdateBot replaces a bot's fields.
func (c *Client) UpdateBot(ctx context.Context, id int64, req httpapi.BotRequest) (*store.Bot, error) {
	var bot store.Bot
	if err := c.do(ctx, http.MethodPut, "/api/bots/"+strconv.FormatInt(id, 10), req, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

// DeleteBot removes a bot by ID.
func (c *Client) DeleteBot(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/bots/"+strconv.FormatInt(id, 10), nil, nil)
}

// SaveResult persists a backtest result.
func (c *Client) SaveResult(ctx context.Context, res store.Result) (*store.Result, error) {
	var saved store.Result
	if err := c.do(ctx, http.MethodPost, "/api/results/save", res, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListResults returns saved results, newest first.
func (c *Client) ListResults(ctx context.Context, filter store.ResultFilter) ([]store.Result, error) {
	q := url.Values{}
	if filter.Symbol != "" {
		q.Set("symbol", filter.Symbol)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	path := "/api/results/list"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp httpapi.ResultsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetResult retrieves a result by ID.
func (c *Client) GetResult(ctx context.Context, id int64) (*store.Result, error) {
	var res store.Result
	if err := c.do(ctx, http.MethodGet, "/api/results/"+strconv.FormatInt(id, 10), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteResult removes a result by ID.
func (c *Client) DeleteResult(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/results/"+strconv.FormatInt(id, 10), nil, nil)
}

// Stats returns the aggregate summary over all saved results.
func (c *Client) Stats(ctx context.Context) (*store.StatsSummary, error) {
	var stats store.StatsSummary
	if err := c.do(ctx, http.MethodGet, "/api/results/stats/summary", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GenerateBot asks the server to generate strategy source.
func (c *Client) GenerateBot(ctx context.Context, req codegen.GenerateRequest) (string, error) {
	var resp httpapi.CodeResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate/bot", req, &resp); err != nil {
		return "", err
	}
	return resp.Code, nil
}

// RefineBot asks the server to fix strategy source against an error message.
func (c *Client) RefineBot(ctx context.Context, code, errorMessage string) (string, error) {
	var resp httpapi.CodeResponse
	err := c.do(ctx, http.MethodPost, "/api/generate/refine",
		httpapi.RefineRequest{Code: code, ErrorMessage: errorMessage}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Code, nil
}

// do sends one JSON request and decodes the response into out (when non-nil).
// Non-2xx responses are turned into errors carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

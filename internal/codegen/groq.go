// Package codegen generates trading-strategy source code with the Groq
// chat-completions API.
package codegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tradebot/internal/util"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

const defaultModel = "mixtral-8x7b-32768"

const systemPrompt = "You are an expert MQL5 developer. Generate complete, " +
	"compilable MQL5 Expert Advisor code. Output only code, no explanations."

// Client talks to the Groq chat-completions endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Groq client. baseURL overrides the production endpoint
// when non-empty.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        slog.Default().With("component", "codegen"),
	}
}

// GenerateRequest describes the strategy to generate.
type GenerateRequest struct {
	Indicators   []string `json:"indicators"`
	Symbol       string   `json:"symbol"`
	Timeframe    string   `json:"timeframe"`
	StrategyType string   `json:"strategy_type"`
}

// GenerateBot produces strategy source for the requested configuration.
func (c *Client) GenerateBot(ctx context.Context, req GenerateRequest) (string, error) {
	prompt := fmt.Sprintf(
		"Create an MQL5 Expert Advisor for %s on the %s timeframe.\n"+
			"Strategy type: %s\n"+
			"Indicators: %s\n"+
			"Include input parameters, position sizing, and stop loss / take profit handling.",
		req.Symbol, req.Timeframe, req.StrategyType, strings.Join(req.Indicators, ", "))
	return c.complete(ctx, prompt)
}

// RefineBot rewrites existing strategy source so it fixes the given compiler
// or runtime error.
func (c *Client) RefineBot(ctx context.Context, code, errorMessage string) (string, error) {
	prompt := fmt.Sprintf(
		"The following MQL5 code fails with this error:\n%s\n\n"+
			"Fix the error and return the complete corrected code.\n\n%s",
		errorMessage, code)
	return c.complete(ctx, prompt)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// complete sends one chat completion and returns the stripped code body.
// Transient failures are retried with backoff.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var code string
	err = util.Retry(ctx, 3, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("groq status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		var cr chatResponse
		if err := json.Unmarshal(raw, &cr); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		if cr.Error != nil {
			return fmt.Errorf("groq error: %s", cr.Error.Message)
		}
		if len(cr.Choices) == 0 {
			return fmt.Errorf("groq returned no choices")
		}
		code = StripCodeFences(cr.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}

	c.log.Debug("generated code", "bytes", len(code))
	return code, nil
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a language tag, and trims whitespace.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first != "" && !strings.ContainsAny(first, " \t") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ContractAuditor/internal/config"
	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/ports"
)

var (
	// ErrNotConfigured is returned when endpoint, model or credentials are missing.
	ErrNotConfigured = errors.New("llm client misconfigured")
	// ErrResponseInvalid is returned when the model answer has no usable JSON.
	ErrResponseInvalid = fmt.Errorf("llm response is not valid analysis JSON: %w", ports.ErrMalformedAnalysis)
)

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	logger       *slog.Logger
}

var (
	_ ports.Analyzer  = (*Client)(nil)
	_ ports.Assistant = (*Client)(nil)
)

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// Configured reports whether the client has everything needed to send requests.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.endpoint != "" && c.model != ""
}

// Analyze asks the model for contract issues and parses its JSON answer.
func (c *Client) Analyze(ctx context.Context, req ports.AnalysisRequest) (domain.AIAnalysis, error) {
	answer, err := c.complete(ctx, analysisPrompt(req))
	if err != nil {
		return domain.AIAnalysis{}, err
	}

	analysis, err := parseAnalysis(answer)
	if err != nil {
		c.debug("unparseable analysis", "answer_bytes", len(answer), "error", err)
		return domain.AIAnalysis{}, err
	}

	c.debug("analysis received", "issues", len(analysis.Issues))
	return analysis, nil
}

// Ask answers a free-form question about a contract in plain text.
func (c *Client) Ask(ctx context.Context, question, details string) (string, error) {
	answer, err := c.complete(ctx, questionPrompt(question, details))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one user message and returns the first choice.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	var resp chatResponse
	err := c.post(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: prompt},
		},
	}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrResponseInvalid)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrResponseInvalid, err)
	}
	return nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Ты - внимательный юрист по государственным закупкам. Отвечай по-русски."
	}
	return prompt
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

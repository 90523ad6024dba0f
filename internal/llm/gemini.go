package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/config"
	"github.com/bobmcallan/marketbrief/internal/faults"
	"github.com/bobmcallan/marketbrief/internal/models"
	"github.com/bobmcallan/marketbrief/internal/retry"
)

// GeminiClient calls the Gemini generateContent REST API.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	policy     retry.Policy
	httpClient *http.Client
	logger     *common.Logger
}

// NewGeminiClient creates a Gemini-backed report client.
func NewGeminiClient(cfg *config.GeminiConfig, policy retry.Policy, logger *common.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		timeout: cfg.GetTimeout(),
		policy:  policy,
		// No client-level timeout: the per-call context owns the deadline.
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateReport invokes the model with retries and parses the response
// through the strict extractor. A malformed response is not retried.
func (c *GeminiClient) GenerateReport(ctx context.Context, req *models.ReportRequest) (*models.RawReportPayload, error) {
	userPrompt, err := buildUserPrompt(req.TradingDate, req.Tickers, req.MarketData, req.NewsItems, req.MacroContext)
	if err != nil {
		return nil, faults.Wrap(faults.NonRetryable, "failed to build prompt", err)
	}

	text, err := retry.Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		return c.generateOnce(ctx, userPrompt)
	})
	if err != nil {
		return nil, err
	}

	return parsePayload(text)
}

// generateOnce performs a single generateContent call under the configured
// wall-clock timeout.
func (c *GeminiClient) generateOnce(ctx context.Context, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", faults.Wrap(faults.NonRetryable, "failed to encode request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", faults.Wrap(faults.NonRetryable, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(ctx, callCtx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", faults.Wrap(faults.Transient, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, raw)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", faults.Wrap(faults.MalformedResponse, "unparseable provider envelope", err).WithSnippet(string(raw))
	}
	if len(parsed.Candidates) == 0 {
		return "", faults.New(faults.MalformedResponse, "no candidates in provider response").WithSnippet(string(raw))
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// classifyStatus maps HTTP status codes onto the failure taxonomy:
// rate limits and server errors are transient, auth and validation are not.
func classifyStatus(code int, body []byte) error {
	msg := fmt.Sprintf("provider returned %d", code)
	switch {
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests:
		return faults.New(faults.Transient, msg).WithSnippet(string(body))
	case code >= 500:
		return faults.New(faults.Transient, msg).WithSnippet(string(body))
	default:
		return faults.New(faults.NonRetryable, msg).WithSnippet(string(body))
	}
}

// classifyTransportError distinguishes our per-call timeout (transient,
// retryable by policy) from caller cancellation (propagated as-is).
func classifyTransportError(parent, call context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return faults.Wrap(faults.Transient, "model call timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return faults.Wrap(faults.Transient, "network timeout", err)
	}
	return faults.Wrap(faults.Transient, "transport failure", err)
}

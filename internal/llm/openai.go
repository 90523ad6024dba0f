package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/config"
	"github.com/bobmcallan/marketbrief/internal/faults"
	"github.com/bobmcallan/marketbrief/internal/models"
	"github.com/bobmcallan/marketbrief/internal/retry"
)

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	client  *openai.Client
	model   openai.ChatModel
	timeout time.Duration
	policy  retry.Policy
	logger  *common.Logger
}

// NewOpenAIClient creates an OpenAI-backed report client.
func NewOpenAIClient(cfg *config.OpenAIConfig, policy retry.Policy, logger *common.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	model := openai.ChatModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.ChatModelGPT4oMini
	}

	// The SDK's own retries are disabled: the shared retry policy owns
	// backoff so behavior matches the Gemini client.
	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &OpenAIClient{
		client:  &client,
		model:   model,
		timeout: cfg.GetTimeout(),
		policy:  policy,
		logger:  logger,
	}, nil
}

// GenerateReport invokes the model with retries and parses the response
// through the strict extractor. A malformed response is not retried.
func (c *OpenAIClient) GenerateReport(ctx context.Context, req *models.ReportRequest) (*models.RawReportPayload, error) {
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

func (c *OpenAIClient) generateOnce(ctx context.Context, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", classifyOpenAIError(ctx, callCtx, err)
	}

	if len(resp.Choices) == 0 {
		return "", faults.New(faults.MalformedResponse, "no choices in provider response")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps SDK errors onto the failure taxonomy using the
// same status rules as the Gemini client.
func classifyOpenAIError(parent, call context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return faults.Wrap(faults.Transient, "model call timed out", err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, []byte(apiErr.Error()))
	}
	return faults.Wrap(faults.Transient, "transport failure", err)
}

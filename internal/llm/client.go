// Package llm invokes a generative model to produce the daily report
// payload. Provider output is treated as untrusted text: it is decoded
// through the repair extractor, and transport failures are retried with
// exponential backoff while malformed responses fail the attempt outright.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/config"
	"github.com/bobmcallan/marketbrief/internal/faults"
	"github.com/bobmcallan/marketbrief/internal/jsonx"
	"github.com/bobmcallan/marketbrief/internal/models"
	"github.com/bobmcallan/marketbrief/internal/retry"
)

// Client generates a raw report payload from a normalized request.
type Client interface {
	GenerateReport(ctx context.Context, req *models.ReportRequest) (*models.RawReportPayload, error)
}

// NewClient constructs the configured provider client.
func NewClient(cfg *config.Config, logger *common.Logger) (Client, error) {
	policy := policyFromConfig(&cfg.Retry, logger)

	switch cfg.Clients.Provider {
	case "", "gemini":
		return NewGeminiClient(&cfg.Clients.Gemini, policy, logger)
	case "openai":
		return NewOpenAIClient(&cfg.Clients.OpenAI, policy, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.Clients.Provider)
	}
}

// policyFromConfig builds the retry policy for model calls. Only transient
// failures are retried: retrying an LLM rarely fixes a structurally
// malformed answer, and auth/validation failures never heal on their own.
func policyFromConfig(cfg *config.RetryConfig, logger *common.Logger) retry.Policy {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return retry.Policy{
		MaxRetries:      maxRetries,
		InitialDelay:    cfg.GetInitialDelay(),
		MaxDelay:        cfg.GetMaxDelay(),
		ExponentialBase: cfg.ExponentialBase,
		RetryableKinds:  []faults.Kind{faults.Transient},
		OnRetry: func(err error, attempt int) {
			logger.Warn().
				Int("attempt", attempt+1).
				Err(err).
				Msg("model call retrying")
		},
	}
}

// parsePayload runs raw model text through the strict extractor and shapes
// the result into a RawReportPayload. The full parsed object is retained in
// Raw for replay and debugging.
func parsePayload(raw string) (*models.RawReportPayload, error) {
	obj, err := jsonx.ParseOrFail(raw)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, faults.Wrap(faults.MalformedResponse, "failed to re-encode model output", err)
	}

	var payload models.RawReportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, faults.Wrap(faults.MalformedResponse, "model output has wrong section types", err).WithSnippet(raw)
	}
	payload.Raw = obj

	return &payload, nil
}

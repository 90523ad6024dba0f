// Package report orchestrates daily report generation: it normalizes caller
// input, invokes the AI client, validates the structured result, and
// persists it. The orchestrator is the single place that decides whether a
// failure is terminal or retried.
package report

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/faults"
	"github.com/bobmcallan/marketbrief/internal/interfaces"
	"github.com/bobmcallan/marketbrief/internal/llm"
	"github.com/bobmcallan/marketbrief/internal/models"
	"github.com/bobmcallan/marketbrief/internal/retry"
)

// requiredSections are the top-level keys a generated payload must carry.
// A missing section fails the request rather than being silently defaulted:
// a client relying on audio playback must not receive an empty script
// without knowing generation failed.
var requiredSections = []string{
	"report_markdown",
	"core_tickers_in_depth_markdown",
	"reports",
	"audio_report",
}

// Service generates and retrieves daily reports.
type Service struct {
	ai            llm.Client
	storage       interfaces.StorageManager
	storagePolicy retry.Policy
	logger        *common.Logger
}

// NewService creates a report service. Storage upserts are retried a small,
// bounded number of times since upsert-by-key is idempotent.
func NewService(ai llm.Client, storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		ai:      ai,
		storage: storage,
		storagePolicy: retry.Policy{
			MaxRetries:      2,
			InitialDelay:    200 * time.Millisecond,
			MaxDelay:        2 * time.Second,
			ExponentialBase: 2.0,
			RetryableKinds:  []faults.Kind{faults.StorageUnavailable},
			OnRetry: func(err error, attempt int) {
				logger.Warn().Int("attempt", attempt+1).Err(err).Msg("report upsert retrying")
			},
		},
		logger: logger,
	}
}

// Generate runs the full pipeline for one trading day and returns the
// persisted report. A failed generation leaves any prior report for that
// date untouched.
func (s *Service) Generate(ctx context.Context, req *models.GenerateRequest) (*models.DailyReport, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("trading_date", normalized.TradingDate).
		Str("client_id", normalized.ClientID).
		Int("market_records", len(normalized.MarketData)).
		Int("news_items", len(normalized.NewsItems)).
		Msg("generating daily report")

	payload, err := s.ai.GenerateReport(ctx, normalized)
	if err != nil {
		s.logger.Warn().
			Str("trading_date", normalized.TradingDate).
			Err(err).
			Msg("report generation failed")
		return nil, err
	}

	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	report := buildReport(normalized, payload)

	stored, err := retry.Do(ctx, s.storagePolicy, func(ctx context.Context) (*models.DailyReport, error) {
		return s.storage.ReportStorage().Upsert(ctx, report)
	})
	if err != nil {
		return nil, err
	}

	s.updateTickerSummaries(ctx, normalized)

	s.logger.Info().
		Str("trading_date", stored.TradingDate).
		Int("tickers", len(stored.Tickers)).
		Msg("daily report stored")

	return stored, nil
}

// Fetch retrieves a stored report by trading date, optionally checking it
// belongs to the given client.
func (s *Service) Fetch(ctx context.Context, tradingDate, clientID string) (*models.DailyReport, error) {
	report, err := s.storage.ReportStorage().GetByDate(ctx, tradingDate)
	if err != nil {
		return nil, err
	}
	if clientID != "" && report.ClientID != clientID {
		return nil, faults.New(faults.NotFound, "no report for "+tradingDate)
	}
	return report, nil
}

// Latest retrieves the most recent stored report.
func (s *Service) Latest(ctx context.Context) (*models.DailyReport, error) {
	return s.storage.ReportStorage().GetLatest(ctx)
}

// List returns a page of stored reports.
func (s *Service) List(ctx context.Context, opts interfaces.ListOptions) (*models.ReportList, error) {
	return s.storage.ReportStorage().ListByClient(ctx, opts)
}

// AttachAudio records the path of an uploaded audio rendition. It is
// independent of generation so a slow TTS step can attach its result after
// the report is already visible to readers.
func (s *Service) AttachAudio(ctx context.Context, tradingDate, path, provider string) (*models.DailyReport, error) {
	if path == "" {
		return nil, faults.New(faults.NonRetryable, "audio path is required")
	}
	return s.storage.ReportStorage().UpdateAudioPath(ctx, tradingDate, path, provider)
}

// normalize reshapes loosely-typed caller input into the canonical request
// shape. Absent optional sections become empty, never nil, so downstream
// steps need no nil-checks.
func (s *Service) normalize(req *models.GenerateRequest) (*models.ReportRequest, error) {
	date := strings.TrimSpace(req.TradingDate)
	if date == "" {
		return nil, faults.New(faults.NonRetryable, "trading_date is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, faults.New(faults.NonRetryable, "trading_date must be ISO YYYY-MM-DD: "+date)
	}

	normalized := &models.ReportRequest{
		TradingDate:  date,
		ClientID:     strings.TrimSpace(req.ClientID),
		Tickers:      extractTickers(req.MarketData),
		MarketData:   req.MarketData,
		NewsItems:    req.NewsItems,
		MacroContext: req.MacroContext,
	}
	if normalized.MarketData == nil {
		normalized.MarketData = []map[string]any{}
	}
	if normalized.NewsItems == nil {
		normalized.NewsItems = []map[string]any{}
	}
	if normalized.MacroContext == nil {
		normalized.MacroContext = map[string]any{}
	}
	return normalized, nil
}

// validatePayload checks the parsed payload carries every required section.
func validatePayload(payload *models.RawReportPayload) error {
	var missing []string
	for _, section := range requiredSections {
		if _, present := payload.Raw[section]; !present {
			missing = append(missing, section)
		}
	}
	if payload.ReportMarkdown == "" && !contains(missing, "report_markdown") {
		missing = append(missing, "report_markdown")
	}
	if payload.AudioReport == "" && !contains(missing, "audio_report") {
		missing = append(missing, "audio_report")
	}
	if len(missing) > 0 {
		return faults.New(faults.IncompleteResponse, "model response missing required sections: "+strings.Join(missing, ", "))
	}
	return nil
}

// buildReport assembles the DailyReport draft from the normalized request
// and the validated payload.
func buildReport(req *models.ReportRequest, payload *models.RawReportPayload) *models.DailyReport {
	tickers := req.Tickers
	if len(payload.Reports) > 0 {
		seen := make(map[string]bool, len(tickers))
		for _, t := range tickers {
			seen[t] = true
		}
		for _, tr := range payload.Reports {
			symbol := strings.ToUpper(strings.TrimSpace(tr.Ticker))
			if symbol != "" && !seen[symbol] {
				tickers = append(tickers, symbol)
				seen[symbol] = true
			}
		}
	}

	return &models.DailyReport{
		TradingDate:   req.TradingDate,
		ClientID:      req.ClientID,
		Tickers:       tickers,
		SummaryText:   payload.ReportMarkdown,
		KeyInsights:   payload.KeyInsights,
		MarketContext: req.MacroContext,
		EmailStatus:   models.EmailPending,
		RawPayload:    payload.Raw,
	}
}

// updateTickerSummaries merges the latest market snapshot into each ticker's
// summary. Summaries are eventually-consistent auxiliary state: failures are
// logged and never fail the request.
func (s *Service) updateTickerSummaries(ctx context.Context, req *models.ReportRequest) {
	for _, record := range req.MarketData {
		ticker := tickerOf(record)
		if ticker == "" {
			continue
		}
		if _, err := s.storage.TickerSummaryStorage().Update(ctx, ticker, record, ""); err != nil {
			s.logger.Warn().Str("ticker", ticker).Err(err).Msg("ticker summary update failed")
		}
	}
}

// extractTickers pulls the distinct uppercased ticker symbols out of the
// loosely-typed market records, in stable sorted order.
func extractTickers(records []map[string]any) []string {
	seen := map[string]bool{}
	for _, record := range records {
		if ticker := tickerOf(record); ticker != "" {
			seen[ticker] = true
		}
	}
	tickers := make([]string, 0, len(seen))
	for t := range seen {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// tickerOf reads the ticker symbol from a loosely-typed market record.
func tickerOf(record map[string]any) string {
	for _, key := range []string{"ticker", "symbol"} {
		if v, ok := record[key].(string); ok {
			if symbol := strings.ToUpper(strings.TrimSpace(v)); symbol != "" {
				return symbol
			}
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

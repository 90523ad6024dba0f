package models

// GenerateRequest is the loosely-typed inbound payload for report
// generation. Market and news records arrive as free-form objects; the
// orchestrator normalizes them before the AI call.
type GenerateRequest struct {
	TradingDate  string           `json:"trading_date"`
	ClientID     string           `json:"client_id"`
	MarketData   []map[string]any `json:"market_data"`
	NewsItems    []map[string]any `json:"news_items"`
	MacroContext map[string]any   `json:"macro_context"`
}

// ReportRequest is the canonical request shape the AI client expects.
// Optional sections are always present (empty, never nil) so downstream
// steps need no nil-checks.
type ReportRequest struct {
	TradingDate  string
	ClientID     string
	Tickers      []string
	MarketData   []map[string]any
	NewsItems    []map[string]any
	MacroContext map[string]any
}

// RawReportPayload is the normalized AI response. Raw retains the full
// parsed object for replay and debugging.
type RawReportPayload struct {
	ReportMarkdown             string         `json:"report_markdown"`
	CoreTickersInDepthMarkdown string         `json:"core_tickers_in_depth_markdown"`
	Reports                    []TickerReport `json:"reports"`
	AudioReport                string         `json:"audio_report"`
	KeyInsights                []string       `json:"key_insights,omitempty"`
	Raw                        map[string]any `json:"-"`
}

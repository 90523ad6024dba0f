// Package models defines data structures for marketbrief.
package models

import (
	"encoding/gob"
	"time"
)

func init() {
	gob.Register(DailyReport{})
	gob.Register(TickerSummary{})
	gob.Register(TickerReport{})
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

// EmailStatus tracks delivery of the report email. Delivery itself is
// handled outside this service; only the status is persisted.
type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// Valid reports whether s is a known email status.
func (s EmailStatus) Valid() bool {
	switch s {
	case EmailPending, EmailSent, EmailFailed:
		return true
	}
	return false
}

// DailyReport is the stored report for one trading day. TradingDate
// (ISO YYYY-MM-DD) is the natural key: regeneration replaces the prior
// document for that date rather than creating a duplicate.
type DailyReport struct {
	TradingDate   string         `json:"trading_date" badgerhold:"key"`
	ClientID      string         `json:"client_id" badgerhold:"index"`
	Tickers       []string       `json:"tickers"`
	SummaryText   string         `json:"summary_text"`
	KeyInsights   []string       `json:"key_insights,omitempty"`
	MarketContext map[string]any `json:"market_context,omitempty"`
	AudioPath     string         `json:"audio_path,omitempty"`
	TTSProvider   string         `json:"tts_provider,omitempty"`
	EmailStatus   EmailStatus    `json:"email_status"`
	RawPayload    map[string]any `json:"raw_payload,omitempty"`
	CreatedAt     time.Time      `json:"created_at" badgerhold:"index"`
}

// TickerSummary accumulates per-ticker observations across reports.
// Keyed by uppercased ticker symbol; updates merge into LatestSnapshot.
type TickerSummary struct {
	Ticker         string         `json:"ticker" badgerhold:"key"`
	LatestSnapshot map[string]any `json:"latest_snapshot"`
	LastUpdated    time.Time      `json:"last_updated"`
	Notes          string         `json:"notes,omitempty"`
}

// TickerReport is the structured per-ticker section of a generated report.
type TickerReport struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name,omitempty"`
	Markdown string `json:"markdown"`
}

// ReportList is a page of reports from a cursor-based listing.
type ReportList struct {
	Reports []DailyReport `json:"reports"`
	HasMore bool          `json:"has_more"`
	LastKey string        `json:"last_key,omitempty"`
	Count   int           `json:"count"`
}

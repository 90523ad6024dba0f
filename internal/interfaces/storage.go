// Package interfaces defines storage and service contracts for marketbrief.
package interfaces

import (
	"context"

	"github.com/bobmcallan/marketbrief/internal/models"
)

// StorageManager coordinates all storage backends.
// Implementations can be swapped (BadgerDB now, centralised DB later).
type StorageManager interface {
	ReportStorage() ReportStorage
	TickerSummaryStorage() TickerSummaryStorage

	// Lifecycle
	Close() error
}

// ListOptions controls cursor-based report listing.
type ListOptions struct {
	// ClientID filters to one client when non-empty.
	ClientID string
	// Limit is the requested page size; implementations cap it at a hard
	// maximum regardless of the caller's request.
	Limit int
	// OrderField is "trading_date" (default) or "created_at".
	OrderField string
	// Descending reverses the sort order.
	Descending bool
	// Cursor resumes listing after the document with this trading date.
	Cursor string
}

// ReportStorage handles daily report persistence.
type ReportStorage interface {
	// Upsert writes a report keyed by trading date. CreatedAt is stamped on
	// first write and preserved on replacement; all other fields are
	// overwritten (last-write-wins).
	Upsert(ctx context.Context, report *models.DailyReport) (*models.DailyReport, error)

	// GetByDate retrieves the report for a trading date.
	GetByDate(ctx context.Context, tradingDate string) (*models.DailyReport, error)

	// GetLatest retrieves the most recent report by trading date.
	GetLatest(ctx context.Context) (*models.DailyReport, error)

	// ListByClient returns a page of reports with a resumable cursor.
	ListByClient(ctx context.Context, opts ListOptions) (*models.ReportList, error)

	// UpdateAudioPath sets exactly the audio fields on an existing report,
	// leaving everything else untouched.
	UpdateAudioPath(ctx context.Context, tradingDate, path, provider string) (*models.DailyReport, error)
}

// TickerSummaryStorage handles per-ticker summary persistence.
type TickerSummaryStorage interface {
	// GetOrCreate retrieves the summary for a ticker, creating an empty one
	// on first reference.
	GetOrCreate(ctx context.Context, ticker string) (*models.TickerSummary, error)

	// Update merges snapshot fields into the stored summary and bumps
	// LastUpdated. Notes replaces the stored notes when non-empty.
	Update(ctx context.Context, ticker string, snapshot map[string]any, notes string) (*models.TickerSummary, error)

	// Get retrieves the summary for a ticker without creating it.
	Get(ctx context.Context, ticker string) (*models.TickerSummary, error)
}

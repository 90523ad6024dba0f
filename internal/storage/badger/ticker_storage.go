package badger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/faults"
	"github.com/bobmcallan/marketbrief/internal/models"
)

// TickerSummaryStorage implements interfaces.TickerSummaryStorage over
// badgerhold. Unlike reports, ticker summaries merge on update: they
// accumulate observations over time rather than being regenerated wholesale.
type TickerSummaryStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewTickerSummaryStorage creates a new ticker summary storage.
func NewTickerSummaryStorage(db *BadgerDB, logger *common.Logger) *TickerSummaryStorage {
	return &TickerSummaryStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the summary for a ticker without creating it.
func (s *TickerSummaryStorage) Get(_ context.Context, ticker string) (*models.TickerSummary, error) {
	key := normalizeTicker(ticker)

	var summary models.TickerSummary
	err := s.db.Store().Get(key, &summary)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, faults.New(faults.NotFound, "no summary for "+key)
		}
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to get ticker summary", err)
	}
	return &summary, nil
}

// GetOrCreate retrieves the summary for a ticker, creating an empty one on
// first reference.
func (s *TickerSummaryStorage) GetOrCreate(ctx context.Context, ticker string) (*models.TickerSummary, error) {
	key := normalizeTicker(ticker)

	summary, err := s.Get(ctx, key)
	if err == nil {
		return summary, nil
	}
	if !faults.Is(err, faults.NotFound) {
		return nil, err
	}

	fresh := &models.TickerSummary{
		Ticker:         key,
		LatestSnapshot: map[string]any{},
		LastUpdated:    time.Now().UTC(),
	}
	if err := s.db.Store().Insert(key, fresh); err != nil {
		// A concurrent caller may have created it first.
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return s.Get(ctx, key)
		}
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to create ticker summary", err)
	}

	s.logger.Debug().Str("ticker", key).Msg("ticker summary created")

	return fresh, nil
}

// Update merges snapshot fields into the stored summary and bumps
// LastUpdated. Notes replaces the stored notes only when non-empty.
func (s *TickerSummaryStorage) Update(ctx context.Context, ticker string, snapshot map[string]any, notes string) (*models.TickerSummary, error) {
	key := normalizeTicker(ticker)

	summary, err := s.GetOrCreate(ctx, key)
	if err != nil {
		return nil, err
	}

	if summary.LatestSnapshot == nil {
		summary.LatestSnapshot = map[string]any{}
	}
	for k, v := range snapshot {
		summary.LatestSnapshot[k] = v
	}
	if notes != "" {
		summary.Notes = notes
	}
	summary.LastUpdated = time.Now().UTC()

	if err := s.db.Store().Upsert(key, summary); err != nil {
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to update ticker summary", err)
	}

	return summary, nil
}

// normalizeTicker uppercases and trims a ticker symbol for use as a key.
func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

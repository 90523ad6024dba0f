package badger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/faults"
	"github.com/bobmcallan/marketbrief/internal/interfaces"
	"github.com/bobmcallan/marketbrief/internal/models"
)

const (
	// defaultListLimit is the page size when the caller does not specify one.
	defaultListLimit = 20
	// maxListLimit caps the page size regardless of the caller's request.
	maxListLimit = 50
)

// ReportStorage implements interfaces.ReportStorage over badgerhold.
type ReportStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewReportStorage creates a new report storage backed by BadgerDB.
func NewReportStorage(db *BadgerDB, logger *common.Logger) *ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert writes a report keyed by trading date. CreatedAt from an existing
// document is preserved; every other field is overwritten, so regeneration
// cannot leave stale fields behind.
func (s *ReportStorage) Upsert(_ context.Context, report *models.DailyReport) (*models.DailyReport, error) {
	doc := *report

	var existing models.DailyReport
	err := s.db.Store().Get(doc.TradingDate, &existing)
	switch {
	case err == nil:
		doc.CreatedAt = existing.CreatedAt
	case errors.Is(err, badgerhold.ErrNotFound):
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now().UTC()
		}
	default:
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to read existing report", err)
	}

	if doc.EmailStatus == "" {
		doc.EmailStatus = models.EmailPending
	}

	if err := s.db.Store().Upsert(doc.TradingDate, &doc); err != nil {
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to upsert report", err)
	}

	s.logger.Debug().
		Str("trading_date", doc.TradingDate).
		Str("client_id", doc.ClientID).
		Msg("report upserted")

	return &doc, nil
}

// GetByDate retrieves the report for a trading date.
func (s *ReportStorage) GetByDate(_ context.Context, tradingDate string) (*models.DailyReport, error) {
	var report models.DailyReport
	err := s.db.Store().Get(tradingDate, &report)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, faults.New(faults.NotFound, "no report for "+tradingDate)
		}
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to get report", err)
	}
	return &report, nil
}

// GetLatest retrieves the most recent report by trading date.
func (s *ReportStorage) GetLatest(_ context.Context) (*models.DailyReport, error) {
	var reports []models.DailyReport
	q := badgerhold.Where("TradingDate").Ne("").SortBy("TradingDate").Reverse().Limit(1)
	if err := s.db.Store().Find(&reports, q); err != nil {
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to query latest report", err)
	}
	if len(reports) == 0 {
		return nil, faults.New(faults.NotFound, "no reports stored")
	}
	return &reports[0], nil
}

// ListByClient returns one page of reports. It fetches limit+1 records to
// determine has_more without a separate count query; the returned last key
// resumes the listing after the final document of the page.
func (s *ReportStorage) ListByClient(ctx context.Context, opts interfaces.ListOptions) (*models.ReportList, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	orderField, err := resolveOrderField(opts.OrderField)
	if err != nil {
		return nil, err
	}

	q, err := s.buildListQuery(ctx, opts, orderField)
	if err != nil {
		return nil, err
	}
	// CreatedAt is not unique: the key breaks ties so page order is total.
	sortFields := []string{orderField}
	if orderField == "CreatedAt" {
		sortFields = append(sortFields, "TradingDate")
	}
	q = q.SortBy(sortFields...).Limit(limit + 1)
	if opts.Descending {
		q = q.Reverse()
	}

	var reports []models.DailyReport
	if err := s.db.Store().Find(&reports, q); err != nil {
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to list reports", err)
	}

	hasMore := len(reports) > limit
	if hasMore {
		reports = reports[:limit]
	}

	list := &models.ReportList{
		Reports: reports,
		HasMore: hasMore,
		Count:   len(reports),
	}
	if len(reports) > 0 {
		list.LastKey = reports[len(reports)-1].TradingDate
	}
	return list, nil
}

// buildListQuery constructs the filter part of the listing query: the
// optional client filter plus the cursor boundary on the order field.
func (s *ReportStorage) buildListQuery(ctx context.Context, opts interfaces.ListOptions, orderField string) (*badgerhold.Query, error) {
	if opts.Cursor == "" {
		if opts.ClientID != "" {
			return badgerhold.Where("ClientID").Eq(opts.ClientID), nil
		}
		return badgerhold.Where("TradingDate").Ne(""), nil
	}

	cursorDoc, err := s.GetByDate(ctx, opts.Cursor)
	if err != nil {
		if faults.Is(err, faults.NotFound) {
			return nil, faults.New(faults.NonRetryable, "cursor document not found: "+opts.Cursor)
		}
		return nil, err
	}

	if orderField == "CreatedAt" {
		return createdAtCursorQuery(cursorDoc, opts), nil
	}

	boundary := cursorDoc.TradingDate
	if opts.ClientID != "" {
		c := badgerhold.Where("ClientID").Eq(opts.ClientID)
		if opts.Descending {
			return c.And(orderField).Lt(boundary), nil
		}
		return c.And(orderField).Gt(boundary), nil
	}
	if opts.Descending {
		return badgerhold.Where(orderField).Lt(boundary), nil
	}
	return badgerhold.Where(orderField).Gt(boundary), nil
}

// createdAtCursorQuery resumes a created_at-ordered listing. CreatedAt is
// not unique, so a strict boundary would skip documents sharing the cursor
// document's timestamp: ties resume by trading date, and documents strictly
// past the timestamp are taken whole.
func createdAtCursorQuery(cursorDoc *models.DailyReport, opts interfaces.ListOptions) *badgerhold.Query {
	boundary := cursorDoc.CreatedAt

	past := badgerhold.Where("CreatedAt").Gt(boundary)
	tie := badgerhold.Where("CreatedAt").Eq(boundary).And("TradingDate").Gt(cursorDoc.TradingDate)
	if opts.Descending {
		past = badgerhold.Where("CreatedAt").Lt(boundary)
		tie = badgerhold.Where("CreatedAt").Eq(boundary).And("TradingDate").Lt(cursorDoc.TradingDate)
	}
	if opts.ClientID != "" {
		past = past.And("ClientID").Eq(opts.ClientID)
		tie = tie.And("ClientID").Eq(opts.ClientID)
	}
	return past.Or(tie)
}

// UpdateAudioPath sets exactly the audio fields on an existing report. This
// lets a slow TTS step attach its result after the report is already visible.
func (s *ReportStorage) UpdateAudioPath(ctx context.Context, tradingDate, path, provider string) (*models.DailyReport, error) {
	report, err := s.GetByDate(ctx, tradingDate)
	if err != nil {
		return nil, err
	}

	report.AudioPath = path
	if provider != "" {
		report.TTSProvider = provider
	}

	if err := s.db.Store().Update(tradingDate, report); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, faults.New(faults.NotFound, "no report for "+tradingDate)
		}
		return nil, faults.Wrap(faults.StorageUnavailable, "failed to update audio path", err)
	}

	s.logger.Debug().
		Str("trading_date", tradingDate).
		Str("audio_path", path).
		Msg("audio path updated")

	return report, nil
}

// resolveOrderField maps the API order field to the struct field name.
func resolveOrderField(field string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "", "trading_date":
		return "TradingDate", nil
	case "created_at":
		return "CreatedAt", nil
	default:
		return "", faults.New(faults.NonRetryable, "unsupported order field: "+field)
	}
}

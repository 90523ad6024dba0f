package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/marketbrief/internal/cache"
	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/faults"
	"github.com/bobmcallan/marketbrief/internal/interfaces"
	"github.com/bobmcallan/marketbrief/internal/models"
	"github.com/bobmcallan/marketbrief/internal/report"
)

// --- Fakes ---

type fakeAI struct {
	payload *models.RawReportPayload
	err     error
}

func (f *fakeAI) GenerateReport(ctx context.Context, req *models.ReportRequest) (*models.RawReportPayload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

type fakeReportStorage struct {
	reports      map[string]*models.DailyReport
	getByDateHit int
}

func (f *fakeReportStorage) Upsert(_ context.Context, r *models.DailyReport) (*models.DailyReport, error) {
	stored := *r
	if existing, ok := f.reports[r.TradingDate]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = time.Now().UTC()
	}
	f.reports[r.TradingDate] = &stored
	return &stored, nil
}

func (f *fakeReportStorage) GetByDate(_ context.Context, tradingDate string) (*models.DailyReport, error) {
	f.getByDateHit++
	r, ok := f.reports[tradingDate]
	if !ok {
		return nil, faults.New(faults.NotFound, "no report for "+tradingDate)
	}
	return r, nil
}

func (f *fakeReportStorage) GetLatest(_ context.Context) (*models.DailyReport, error) {
	var latest *models.DailyReport
	for _, r := range f.reports {
		if latest == nil || r.TradingDate > latest.TradingDate {
			latest = r
		}
	}
	if latest == nil {
		return nil, faults.New(faults.NotFound, "no reports stored")
	}
	return latest, nil
}

func (f *fakeReportStorage) ListByClient(_ context.Context, opts interfaces.ListOptions) (*models.ReportList, error) {
	list := &models.ReportList{Reports: []models.DailyReport{}}
	for _, r := range f.reports {
		list.Reports = append(list.Reports, *r)
	}
	list.Count = len(list.Reports)
	return list, nil
}

func (f *fakeReportStorage) UpdateAudioPath(_ context.Context, tradingDate, path, provider string) (*models.DailyReport, error) {
	r, ok := f.reports[tradingDate]
	if !ok {
		return nil, faults.New(faults.NotFound, "no report for "+tradingDate)
	}
	r.AudioPath = path
	if provider != "" {
		r.TTSProvider = provider
	}
	return r, nil
}

type fakeTickerStorage struct{}

func (f *fakeTickerStorage) GetOrCreate(_ context.Context, ticker string) (*models.TickerSummary, error) {
	return &models.TickerSummary{Ticker: ticker, LatestSnapshot: map[string]any{}}, nil
}

func (f *fakeTickerStorage) Update(_ context.Context, ticker string, snapshot map[string]any, notes string) (*models.TickerSummary, error) {
	return &models.TickerSummary{Ticker: ticker, LatestSnapshot: snapshot, Notes: notes}, nil
}

func (f *fakeTickerStorage) Get(_ context.Context, ticker string) (*models.TickerSummary, error) {
	return nil, faults.New(faults.NotFound, "no summary for "+ticker)
}

type fakeStorageManager struct {
	reports *fakeReportStorage
	tickers *fakeTickerStorage
}

func (f *fakeStorageManager) ReportStorage() interfaces.ReportStorage { return f.reports }

func (f *fakeStorageManager) TickerSummaryStorage() interfaces.TickerSummaryStorage {
	return f.tickers
}

func (f *fakeStorageManager) Close() error { return nil }

func validPayload() *models.RawReportPayload {
	return &models.RawReportPayload{
		ReportMarkdown:             "# Market wrap",
		CoreTickersInDepthMarkdown: "## BHP",
		Reports:                    []models.TickerReport{{Ticker: "BHP", Markdown: "steady"}},
		AudioReport:                "Markets were steady today.",
		Raw: map[string]any{
			"report_markdown":                "# Market wrap",
			"core_tickers_in_depth_markdown": "## BHP",
			"reports":                        []any{map[string]any{"ticker": "BHP", "markdown": "steady"}},
			"audio_report":                   "Markets were steady today.",
		},
	}
}

func newTestHandler(t *testing.T, ai *fakeAI) (*ReportHandler, *fakeReportStorage) {
	t.Helper()

	storage := &fakeStorageManager{
		reports: &fakeReportStorage{reports: map[string]*models.DailyReport{}},
		tickers: &fakeTickerStorage{},
	}
	svc := report.NewService(ai, storage, common.NewSilentLogger())
	h := NewReportHandler(svc, cache.New(time.Minute, 16), common.NewSilentLogger())
	return h, storage.reports
}

// --- Tests ---

func TestHandleGenerate(t *testing.T) {
	h, storage := newTestHandler(t, &fakeAI{payload: validPayload()})

	body := `{"trading_date":"2026-08-25","client_id":"acme","market_data":[{"ticker":"BHP","close":45.2}]}`
	req := httptest.NewRequest("POST", "/api/reports/generate", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleGenerate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var stored models.DailyReport
	if err := json.Unmarshal(w.Body.Bytes(), &stored); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if stored.TradingDate != "2026-08-25" {
		t.Errorf("expected trading date 2026-08-25, got %s", stored.TradingDate)
	}
	if stored.EmailStatus != models.EmailPending {
		t.Errorf("expected email status pending, got %s", stored.EmailStatus)
	}
	if _, ok := storage.reports["2026-08-25"]; !ok {
		t.Error("expected report to be persisted")
	}
}

func TestHandleGenerateInvalidBody(t *testing.T) {
	h, _ := newTestHandler(t, &fakeAI{payload: validPayload()})

	req := httptest.NewRequest("POST", "/api/reports/generate", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.HandleGenerate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandleGenerateIncompleteResponse(t *testing.T) {
	payload := validPayload()
	delete(payload.Raw, "audio_report")
	payload.AudioReport = ""
	h, storage := newTestHandler(t, &fakeAI{payload: payload})

	req := httptest.NewRequest("POST", "/api/reports/generate",
		strings.NewReader(`{"trading_date":"2026-08-25"}`))
	w := httptest.NewRecorder()

	h.HandleGenerate(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected status 502 for incomplete model output, got %d", w.Code)
	}
	if len(storage.reports) != 0 {
		t.Error("expected nothing persisted on validation failure")
	}
}

func TestFetchServesFromCache(t *testing.T) {
	h, storage := newTestHandler(t, &fakeAI{payload: validPayload()})
	storage.reports["2026-08-25"] = &models.DailyReport{TradingDate: "2026-08-25"}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/reports/2026-08-25", nil)
		w := httptest.NewRecorder()
		h.HandleByDate(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("fetch %d: expected status 200, got %d", i+1, w.Code)
		}
	}

	if storage.getByDateHit != 1 {
		t.Errorf("expected 1 storage read with warm cache, got %d", storage.getByDateHit)
	}
}

func TestFetchClientScopedBypassesCache(t *testing.T) {
	h, storage := newTestHandler(t, &fakeAI{payload: validPayload()})
	storage.reports["2026-08-25"] = &models.DailyReport{TradingDate: "2026-08-25", ClientID: "acme"}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/reports/2026-08-25?client_id=acme", nil)
		w := httptest.NewRecorder()
		h.HandleByDate(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("fetch %d: expected status 200, got %d", i+1, w.Code)
		}
	}

	if storage.getByDateHit != 2 {
		t.Errorf("expected client-scoped fetches to bypass cache, got %d reads", storage.getByDateHit)
	}
}

func TestUpdateAudioInvalidatesCache(t *testing.T) {
	h, storage := newTestHandler(t, &fakeAI{payload: validPayload()})
	storage.reports["2026-08-25"] = &models.DailyReport{TradingDate: "2026-08-25"}

	// Warm the cache
	req := httptest.NewRequest("GET", "/api/reports/2026-08-25", nil)
	h.HandleByDate(httptest.NewRecorder(), req)

	// Attach audio
	req = httptest.NewRequest("PUT", "/api/reports/2026-08-25/audio",
		strings.NewReader(`{"audio_path":"/audio/brief.mp3","tts_provider":"elevenlabs"}`))
	w := httptest.NewRecorder()
	h.HandleByDate(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// Next fetch must see the new audio path, not the cached document
	req = httptest.NewRequest("GET", "/api/reports/2026-08-25", nil)
	w = httptest.NewRecorder()
	h.HandleByDate(w, req)

	var fetched models.DailyReport
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if fetched.AudioPath != "/audio/brief.mp3" {
		t.Errorf("expected fresh audio path after invalidation, got %q", fetched.AudioPath)
	}
}

func TestUpdateAudioEmptyPath(t *testing.T) {
	h, storage := newTestHandler(t, &fakeAI{payload: validPayload()})
	storage.reports["2026-08-25"] = &models.DailyReport{TradingDate: "2026-08-25"}

	req := httptest.NewRequest("PUT", "/api/reports/2026-08-25/audio",
		strings.NewReader(`{"audio_path":""}`))
	w := httptest.NewRecorder()
	h.HandleByDate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty audio path, got %d", w.Code)
	}
}

func TestHandleListInvalidLimit(t *testing.T) {
	h, _ := newTestHandler(t, &fakeAI{payload: validPayload()})

	req := httptest.NewRequest("GET", "/api/reports?limit=abc", nil)
	w := httptest.NewRecorder()
	h.HandleList(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandleByDateUnknownPath(t *testing.T) {
	h, _ := newTestHandler(t, &fakeAI{payload: validPayload()})

	req := httptest.NewRequest("GET", "/api/reports/2026-08-25/extra/bits", nil)
	w := httptest.NewRecorder()
	h.HandleByDate(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestWriteFaultStatusMapping(t *testing.T) {
	tests := []struct {
		kind faults.Kind
		want int
	}{
		{faults.NotFound, http.StatusNotFound},
		{faults.NonRetryable, http.StatusBadRequest},
		{faults.MalformedResponse, http.StatusBadGateway},
		{faults.IncompleteResponse, http.StatusBadGateway},
		{faults.Transient, http.StatusServiceUnavailable},
		{faults.StorageUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteFault(w, faults.New(tt.kind, "failure"))
		if w.Code != tt.want {
			t.Errorf("kind %s: expected status %d, got %d", tt.kind, tt.want, w.Code)
		}
	}
}

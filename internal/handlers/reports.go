package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/marketbrief/internal/cache"
	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/interfaces"
	"github.com/bobmcallan/marketbrief/internal/models"
	"github.com/bobmcallan/marketbrief/internal/report"
)

// maxRequestBody bounds inbound JSON payloads (market/news records).
const maxRequestBody = 4 << 20

// ReportHandler handles report generation and retrieval requests.
type ReportHandler struct {
	service *report.Service
	cache   *cache.ReportCache
	logger  *common.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(service *report.Service, reportCache *cache.ReportCache, logger *common.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		cache:   reportCache,
		logger:  logger,
	}
}

// HandleGenerate handles POST /api/reports/generate.
func (h *ReportHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.GenerateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	generated, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		WriteFault(w, err)
		return
	}

	h.cache.Invalidate(generated.TradingDate)
	WriteJSON(w, http.StatusOK, generated)
}

// HandleList handles GET /api/reports.
func (h *ReportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	q := r.URL.Query()
	opts := interfaces.ListOptions{
		ClientID:   q.Get("client_id"),
		OrderField: q.Get("order"),
		Cursor:     q.Get("cursor"),
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "invalid limit: "+limit)
			return
		}
		opts.Limit = n
	}
	if desc := q.Get("desc"); desc != "" {
		b, err := strconv.ParseBool(desc)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid desc flag: "+desc)
			return
		}
		opts.Descending = b
	}

	list, err := h.service.List(r.Context(), opts)
	if err != nil {
		WriteFault(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// HandleLatest handles GET /api/reports/latest.
func (h *ReportHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	latest, err := h.service.Latest(r.Context())
	if err != nil {
		WriteFault(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, latest)
}

// HandleByDate dispatches /api/reports/{date} and /api/reports/{date}/audio.
func (h *ReportHandler) HandleByDate(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.fetch(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "audio":
		h.updateAudio(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "unknown report endpoint")
	}
}

// fetch handles GET /api/reports/{date}, serving from the read cache when warm.
func (h *ReportHandler) fetch(w http.ResponseWriter, r *http.Request, date string) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	clientID := r.URL.Query().Get("client_id")

	if clientID == "" {
		if cached, ok := h.cache.Get(date); ok {
			WriteJSON(w, http.StatusOK, cached)
			return
		}
	}

	fetched, err := h.service.Fetch(r.Context(), date, clientID)
	if err != nil {
		WriteFault(w, err)
		return
	}
	if clientID == "" {
		h.cache.Set(date, fetched)
	}
	WriteJSON(w, http.StatusOK, fetched)
}

// updateAudio handles PUT /api/reports/{date}/audio.
func (h *ReportHandler) updateAudio(w http.ResponseWriter, r *http.Request, date string) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var body struct {
		AudioPath   string `json:"audio_path"`
		TTSProvider string `json:"tts_provider"`
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	updated, err := h.service.AttachAudio(r.Context(), date, body.AudioPath, body.TTSProvider)
	if err != nil {
		WriteFault(w, err)
		return
	}

	h.cache.Invalidate(date)
	WriteJSON(w, http.StatusOK, updated)
}

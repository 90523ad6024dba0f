package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/interfaces"
)

// TickerHandler handles ticker summary requests.
type TickerHandler struct {
	storage interfaces.TickerSummaryStorage
	logger  *common.Logger
}

// NewTickerHandler creates a new ticker summary handler.
func NewTickerHandler(storage interfaces.TickerSummaryStorage, logger *common.Logger) *TickerHandler {
	return &TickerHandler{storage: storage, logger: logger}
}

// ServeHTTP dispatches /api/tickers/{symbol}.
func (h *TickerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	symbol := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tickers/"), "/")
	if symbol == "" || strings.Contains(symbol, "/") {
		WriteError(w, http.StatusNotFound, "unknown ticker endpoint")
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.get(w, r, symbol)
	case http.MethodPut:
		h.update(w, r, symbol)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TickerHandler) get(w http.ResponseWriter, r *http.Request, symbol string) {
	summary, err := h.storage.Get(r.Context(), symbol)
	if err != nil {
		WriteFault(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

func (h *TickerHandler) update(w http.ResponseWriter, r *http.Request, symbol string) {
	var body struct {
		Snapshot map[string]any `json:"snapshot"`
		Notes    string         `json:"notes"`
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.storage.Update(r.Context(), symbol, body.Snapshot, body.Notes)
	if err != nil {
		WriteFault(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

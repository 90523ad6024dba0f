package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// Report routes. Exact patterns win over the /api/reports/ prefix,
	// which handles per-date fetch and audio updates.
	mux.HandleFunc("/api/reports/generate", s.app.ReportHandler.HandleGenerate)
	mux.HandleFunc("/api/reports/latest", s.app.ReportHandler.HandleLatest)
	mux.HandleFunc("/api/reports", s.app.ReportHandler.HandleList)
	mux.HandleFunc("/api/reports/", s.app.ReportHandler.HandleByDate)

	// Ticker summary routes
	mux.HandleFunc("/api/tickers/", s.app.TickerHandler.ServeHTTP)

	// Operational routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}

// Package mcp exposes the report pipeline as MCP tools over the
// Streamable HTTP transport, mountable on the main server mux.
package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/config"
)

// Handler serves MCP JSON-RPC requests at /mcp.
type Handler struct {
	http.Handler
	logger *common.Logger
}

// NewHandler builds the MCP server, registers the report tools, and
// wraps it in a stateless Streamable HTTP transport.
func NewHandler(svc ReportService, logger *common.Logger) *Handler {
	mcpServer := mcpserver.NewMCPServer(
		"MarketBrief",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	registerTools(mcpServer, svc)

	httpServer := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithStateLess(true),
	)

	return &Handler{
		Handler: httpServer,
		logger:  logger,
	}
}

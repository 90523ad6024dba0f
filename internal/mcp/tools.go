package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerTools registers all MCP tools on the server, wiring each to a
// handler that calls the report service directly.
func registerTools(s *server.MCPServer, svc ReportService) {
	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createGenerateReportTool(), handleGenerateReport(svc))
	s.AddTool(createGetReportTool(), handleGetReport(svc))
	s.AddTool(createGetLatestReportTool(), handleGetLatestReport(svc))
	s.AddTool(createListReportsTool(), handleListReports(svc))
}

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the MarketBrief server version and status. Use this to verify connectivity."),
	)
}

func createGenerateReportTool() mcp.Tool {
	return mcp.NewTool("generate_report",
		mcp.WithDescription("SLOW: Generate a daily market report for a trading date from supplied market data and news. Calls the AI provider and persists the result — can take minutes."),
		mcp.WithString("trading_date", mcp.Required(), mcp.Description("Trading date in YYYY-MM-DD format (e.g., '2026-08-25')")),
		mcp.WithString("client_id", mcp.Description("Client identifier the report is generated for")),
		mcp.WithArray("market_data", mcp.Description("Per-ticker market data objects (each with a 'ticker' or 'symbol' field)")),
		mcp.WithArray("news_items", mcp.Description("News item objects to fold into the report")),
		mcp.WithObject("macro_context", mcp.Description("Macro context (rates, FX, commodities) for the trading day")),
	)
}

func createGetReportTool() mcp.Tool {
	return mcp.NewTool("get_report",
		mcp.WithDescription("FAST: Fetch the stored report for a trading date. Returns the report markdown and metadata."),
		mcp.WithString("trading_date", mcp.Required(), mcp.Description("Trading date in YYYY-MM-DD format (e.g., '2026-08-25')")),
		mcp.WithString("client_id", mcp.Description("Scope the lookup to a client; reports for other clients read as missing")),
	)
}

func createGetLatestReportTool() mcp.Tool {
	return mcp.NewTool("get_latest_report",
		mcp.WithDescription("FAST: Fetch the most recent stored report by trading date."),
	)
}

func createListReportsTool() mcp.Tool {
	return mcp.NewTool("list_reports",
		mcp.WithDescription("List stored reports, newest page first by default. Returns trading dates, ticker counts, and a cursor for the next page."),
		mcp.WithString("client_id", mcp.Description("Filter to reports for a single client")),
		mcp.WithNumber("limit", mcp.Description("Page size (default: 20, max: 50)")),
		mcp.WithBoolean("descending", mcp.Description("Newest first (default: true)")),
		mcp.WithString("cursor", mcp.Description("Trading date of the last report from the previous page")),
	)
}

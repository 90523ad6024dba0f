package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/marketbrief/internal/config"
	"github.com/bobmcallan/marketbrief/internal/interfaces"
	"github.com/bobmcallan/marketbrief/internal/models"
)

// ReportService is the slice of the report service the tools need.
type ReportService interface {
	Generate(ctx context.Context, req *models.GenerateRequest) (*models.DailyReport, error)
	Fetch(ctx context.Context, tradingDate, clientID string) (*models.DailyReport, error)
	Latest(ctx context.Context) (*models.DailyReport, error)
	List(ctx context.Context, opts interfaces.ListOptions) (*models.ReportList, error)
}

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// objectSlice pulls an argument that arrives as a JSON array of objects.
func objectSlice(request mcp.CallToolRequest, key string) []map[string]any {
	raw, ok := request.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

func objectArg(request mcp.CallToolRequest, key string) map[string]any {
	m, _ := request.GetArguments()[key].(map[string]any)
	return m
}

// --- Handlers ---

func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("MarketBrief MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			config.GetVersion(), config.GetBuild(), config.GetGitCommit())
		return textResult(result), nil
	}
}

func handleGenerateReport(svc ReportService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tradingDate, err := request.RequireString("trading_date")
		if err != nil {
			return errorResult("Error: trading_date parameter is required (YYYY-MM-DD)"), nil
		}

		req := &models.GenerateRequest{
			TradingDate:  tradingDate,
			ClientID:     request.GetString("client_id", ""),
			MarketData:   objectSlice(request, "market_data"),
			NewsItems:    objectSlice(request, "news_items"),
			MacroContext: objectArg(request, "macro_context"),
		}

		stored, err := svc.Generate(ctx, req)
		if err != nil {
			return errorResult(fmt.Sprintf("Generation error: %v", err)), nil
		}

		return textResult(formatReport(stored)), nil
	}
}

func handleGetReport(svc ReportService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tradingDate, err := request.RequireString("trading_date")
		if err != nil {
			return errorResult("Error: trading_date parameter is required (YYYY-MM-DD)"), nil
		}

		stored, err := svc.Fetch(ctx, tradingDate, request.GetString("client_id", ""))
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		return textResult(formatReport(stored)), nil
	}
}

func handleGetLatestReport(svc ReportService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stored, err := svc.Latest(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		return textResult(formatReport(stored)), nil
	}
}

func handleListReports(svc ReportService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		opts := interfaces.ListOptions{
			ClientID:   request.GetString("client_id", ""),
			Limit:      request.GetInt("limit", 0),
			Descending: request.GetBool("descending", true),
			Cursor:     request.GetString("cursor", ""),
		}

		list, err := svc.List(ctx, opts)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		return textResult(formatReportList(list)), nil
	}
}

// --- Formatters ---

func formatReport(r *models.DailyReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Daily Report — %s\n\n", r.TradingDate)
	if r.ClientID != "" {
		fmt.Fprintf(&sb, "**Client:** %s\n", r.ClientID)
	}
	if len(r.Tickers) > 0 {
		fmt.Fprintf(&sb, "**Tickers:** %s\n", strings.Join(r.Tickers, ", "))
	}
	fmt.Fprintf(&sb, "**Email status:** %s\n", r.EmailStatus)
	if r.AudioPath != "" {
		fmt.Fprintf(&sb, "**Audio:** %s", r.AudioPath)
		if r.TTSProvider != "" {
			fmt.Fprintf(&sb, " (%s)", r.TTSProvider)
		}
		sb.WriteString("\n")
	}

	if len(r.KeyInsights) > 0 {
		sb.WriteString("\n## Key Insights\n\n")
		for _, insight := range r.KeyInsights {
			fmt.Fprintf(&sb, "- %s\n", insight)
		}
	}

	if r.SummaryText != "" {
		sb.WriteString("\n")
		sb.WriteString(r.SummaryText)
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatReportList(list *models.ReportList) string {
	if list.Count == 0 {
		return "No reports found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Reports (%d)\n\n", list.Count)
	sb.WriteString("| Trading Date | Client | Tickers | Audio |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, r := range list.Reports {
		audio := "no"
		if r.AudioPath != "" {
			audio = "yes"
		}
		client := r.ClientID
		if client == "" {
			client = "-"
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %s |\n", r.TradingDate, client, len(r.Tickers), audio)
	}

	if list.HasMore {
		fmt.Fprintf(&sb, "\nMore reports available — pass cursor %q to fetch the next page.\n", list.LastKey)
	}

	return sb.String()
}

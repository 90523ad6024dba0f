package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are a market analyst writing a daily trading report for a professional audience.

Given structured market data, news items, and macro context for one trading day, produce:
1. A narrative market report in Markdown.
2. An in-depth Markdown section covering the core tickers.
3. A structured per-ticker list.
4. A plain-spoken audio script suitable for text-to-speech, with no Markdown.

Output as JSON only, no other text:
{
  "report_markdown": "the narrative report in Markdown",
  "core_tickers_in_depth_markdown": "per-ticker deep dive in Markdown",
  "reports": [{"ticker": "SYMBOL", "name": "Company Name", "markdown": "ticker analysis"}],
  "audio_report": "the audio script, plain text",
  "key_insights": ["insight 1", "insight 2"]
}`

// buildUserPrompt renders the normalized request as the model's user turn.
// Sections are always present; empty ones are rendered as empty arrays so
// the model never sees a missing key.
func buildUserPrompt(tradingDate string, tickers []string, marketData, newsItems []map[string]any, macroContext map[string]any) (string, error) {
	body := map[string]any{
		"trading_date":  tradingDate,
		"tickers":       tickers,
		"market_data":   marketData,
		"news_items":    newsItems,
		"macro_context": macroContext,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request payload: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Generate the daily report for ")
	sb.WriteString(tradingDate)
	sb.WriteString(" from the following data:\n\n")
	sb.Write(data)
	return sb.String(), nil
}

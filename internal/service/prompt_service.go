package service

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/valyala/fasttemplate"
)

//go:embed templates/analysis_prompt.txt
var analysisPromptTemplate string

//go:embed templates/discovery_prompt.txt
var discoveryPromptTemplate string

// PromptService AI提示词生成服务
type PromptService struct{}

// NewPromptService 创建提示词服务
func NewPromptService() *PromptService {
	return &PromptService{}
}

// AnalysisPrompt 生成单只股票的二元决策提示词
func (s *PromptService) AnalysisPrompt(symbol string, snapshot *StockSnapshot, overview []IndexQuote) string {
	tmpl := fasttemplate.New(analysisPromptTemplate, "{{", "}}")
	return strings.TrimSpace(tmpl.ExecuteString(map[string]interface{}{
		"symbol":         symbol,
		"market_context": s.formatMarketOverview(overview),
		"stock_summary":  s.formatStockSummary(snapshot),
	}))
}

// DiscoveryPrompt 生成候选股票搜索提示词
func (s *PromptService) DiscoveryPrompt(count int) string {
	tmpl := fasttemplate.New(discoveryPromptTemplate, "{{", "}}")
	return strings.TrimSpace(tmpl.ExecuteString(map[string]interface{}{
		"count": fmt.Sprintf("%d", count),
	}))
}

// formatMarketOverview 格式化大盘指数行情
func (s *PromptService) formatMarketOverview(overview []IndexQuote) string {
	if len(overview) == 0 {
		return "Market data unavailable"
	}

	lines := make([]string, 0, len(overview))
	for _, quote := range overview {
		lines = append(lines, fmt.Sprintf("%s: %.2f (%+.2f%%)", quote.Name, quote.Price, quote.ChangePercent))
	}
	return strings.Join(lines, "\n")
}

// formatStockSummary 格式化单只股票的市场数据摘要
func (s *PromptService) formatStockSummary(snapshot *StockSnapshot) string {
	if snapshot == nil {
		return "No data available"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Current Price: $%.2f\n", snapshot.CurrentPrice))
	if snapshot.PreviousClose > 0 {
		sb.WriteString(fmt.Sprintf("Previous Close: $%.2f\n", snapshot.PreviousClose))
	}
	if snapshot.FiftyTwoWeekLow > 0 && snapshot.FiftyTwoWeekHigh > 0 {
		sb.WriteString(fmt.Sprintf("52-Week Range: $%.2f - $%.2f\n",
			snapshot.FiftyTwoWeekLow, snapshot.FiftyTwoWeekHigh))
	}

	// 盘前盘后价格
	if snapshot.PremarketPrice != nil {
		sb.WriteString(fmt.Sprintf("Pre-Market Price: $%.2f\n", *snapshot.PremarketPrice))
	}
	if snapshot.AfterhoursPrice != nil {
		sb.WriteString(fmt.Sprintf("After-Hours Price: $%.2f\n", *snapshot.AfterhoursPrice))
	}

	if ind := snapshot.Indicators; ind != nil {
		sb.WriteString("\nTechnical Indicators (daily):\n")
		sb.WriteString(fmt.Sprintf("- Price Change: %+.2f%%\n", ind.PriceChangePercent))
		if ind.RSI14 > 0 {
			sb.WriteString(fmt.Sprintf("- RSI (14): %.1f\n", ind.RSI14))
		}
		if ind.MA5 > 0 {
			sb.WriteString(fmt.Sprintf("- MA5: $%.2f\n", ind.MA5))
		}
		if ind.MA20 > 0 {
			sb.WriteString(fmt.Sprintf("- MA20: $%.2f\n", ind.MA20))
		}
		sb.WriteString(fmt.Sprintf("- Volume: %.0f (ratio vs avg: %.2f)\n", ind.Volume, ind.VolumeRatio))
	}

	return strings.TrimRight(sb.String(), "\n")
}

package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/dushixiang/sibyl/internal/models"
	"github.com/dushixiang/sibyl/internal/repo"
	"github.com/dushixiang/sibyl/internal/xe"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 候选发现失败时的兜底股票池
var defaultStocks = []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA", "META", "AMZN", "SPY", "QQQ", "IWM"}

// AnalyzerService LLM二元决策服务
type AnalyzerService struct {
	logger *zap.Logger

	*orz.Service
	*repo.LLMLogRepo

	provider      DecisionProvider
	promptService *PromptService
	analysisConf  config.AnalysisConf
	model         string
}

// NewAnalyzerService 创建决策服务
func NewAnalyzerService(
	db *gorm.DB,
	provider DecisionProvider,
	promptService *PromptService,
	logger *zap.Logger,
	conf *config.Config,
) *AnalyzerService {
	return &AnalyzerService{
		logger:        logger,
		Service:       orz.NewService(db),
		LLMLogRepo:    repo.NewLLMLogRepo(db),
		provider:      provider,
		promptService: promptService,
		analysisConf:  conf.Analysis,
		model:         conf.LLM.Model,
	}
}

// Decision 二元决策结果
type Decision struct {
	Decision         string   `json:"decision"`   // buy/sell
	Confidence       int      `json:"confidence"` // 1-10
	TargetPrice      *float64 `json:"target_price"`
	StopLoss         *float64 `json:"stop_loss"`
	Catalyst         string   `json:"catalyst"`
	Timeframe        string   `json:"timeframe"`
	Reasoning        string   `json:"reasoning"`
	Model            string   `json:"model"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
}

// IsConfigured 是否已配置可用的LLM提供商
func (s *AnalyzerService) IsConfigured() bool {
	return s.provider != nil
}

// AnalyzeDecision 对单只股票执行一次二元决策
func (s *AnalyzerService) AnalyzeDecision(ctx context.Context, recordID, symbol string,
	snapshot *StockSnapshot, overview []IndexQuote) (*Decision, error) {
	if s.provider == nil {
		return nil, xe.ErrLLMNotConfigured
	}

	s.logger.Info("running LLM analysis",
		zap.String("symbol", symbol),
		zap.String("provider", s.provider.Name()))

	prompt := s.promptService.AnalysisPrompt(symbol, snapshot, overview)

	start := time.Now()
	result, err := s.provider.Generate(ctx, prompt)
	s.saveLog(ctx, recordID, "analysis", prompt, result, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	decision, err := ParseBinaryResponse(result.Text)
	if err != nil {
		return nil, err
	}

	decision.Model = s.model
	decision.PromptTokens = result.PromptTokens
	decision.CompletionTokens = result.CompletionTokens
	return decision, nil
}

// DiscoverCandidates 通过联网搜索发现候选股票，失败时回退到默认股票池
func (s *AnalyzerService) DiscoverCandidates(ctx context.Context, count int) ([]string, error) {
	if s.provider == nil {
		return nil, xe.ErrLLMNotConfigured
	}

	if count <= 0 {
		count = s.analysisConf.DefaultCount
	}
	if count <= 0 {
		count = 10
	}
	if max := s.analysisConf.MaxSymbols; max > 0 && count > max {
		count = max
	}

	s.logger.Info("discovering candidate stocks", zap.Int("count", count))

	prompt := s.promptService.DiscoveryPrompt(count)

	start := time.Now()
	result, err := s.provider.Generate(ctx, prompt)
	s.saveLog(ctx, "", "discovery", prompt, result, err, time.Since(start))
	if err != nil {
		s.logger.Warn("discovery failed, using fallback stocks", zap.Error(err))
		return s.fallbackStocks(count), nil
	}

	symbols := ParseCandidateSymbols(result.Text, count)
	if len(symbols) == 0 {
		s.logger.Warn("no valid symbols found, using fallback stocks")
		return s.fallbackStocks(count), nil
	}

	s.logger.Info("selected candidate stocks", zap.Strings("symbols", symbols))
	return symbols, nil
}

// fallbackStocks 默认股票池，优先取配置
func (s *AnalyzerService) fallbackStocks(count int) []string {
	stocks := s.analysisConf.DefaultSymbols
	if len(stocks) == 0 {
		stocks = defaultStocks
	}
	if count < len(stocks) {
		stocks = stocks[:count]
	}
	return stocks
}

// saveLog 记录模型调用日志，写入失败不影响主流程
func (s *AnalyzerService) saveLog(ctx context.Context, recordID, purpose, prompt string,
	result *LLMResult, callErr error, duration time.Duration) {
	log := &models.LLMLog{
		ID:         ulid.Make().String(),
		RecordID:   recordID,
		Purpose:    purpose,
		Model:      s.model,
		Prompt:     prompt,
		Duration:   duration.Milliseconds(),
		ExecutedAt: time.Now(),
	}
	if result != nil {
		log.ResponseText = result.Text
		log.PromptTokens = result.PromptTokens
		log.CompletionTokens = result.CompletionTokens
	}
	if callErr != nil {
		log.Error = callErr.Error()
	}

	if err := s.LLMLogRepo.Create(ctx, log); err != nil {
		s.logger.Warn("failed to save llm log", zap.Error(err))
	}
}

// ParseBinaryResponse 逐行解析模型输出中的结构化决策字段
// 标记匹配在大写文本上进行，取值保留原始大小写
func ParseBinaryResponse(text string) (*Decision, error) {
	decision := &Decision{
		Confidence: 5,
		Timeframe:  "1-5 days",
		Reasoning:  strings.TrimSpace(text),
	}

	found := false
	for _, line := range strings.Split(text, "\n") {
		upper := strings.ToUpper(line)

		switch {
		case strings.Contains(upper, "DECISION:"):
			value := markerValue(line, upper, "DECISION:")
			valueUpper := strings.ToUpper(value)
			if strings.Contains(valueUpper, "BUY") {
				decision.Decision = models.DecisionBuy
				found = true
			} else if strings.Contains(valueUpper, "SELL") {
				decision.Decision = models.DecisionSell
				found = true
			}

		case strings.Contains(upper, "CONFIDENCE:"):
			if v, ok := firstNumber(markerValue(line, upper, "CONFIDENCE:")); ok {
				confidence := int(v)
				if confidence < 1 {
					confidence = 1
				}
				if confidence > 10 {
					confidence = 10
				}
				decision.Confidence = confidence
			}

		case strings.Contains(upper, "STOP LOSS:"):
			if v, ok := firstNumber(markerValue(line, upper, "STOP LOSS:")); ok {
				decision.StopLoss = &v
			}

		case strings.Contains(upper, "TARGET:"):
			if v, ok := firstNumber(markerValue(line, upper, "TARGET:")); ok {
				decision.TargetPrice = &v
			}

		case strings.Contains(upper, "CATALYST:"):
			catalyst := markerValue(line, upper, "CATALYST:")
			// 按字符截断，避免把多字节字符切坏
			if runes := []rune(catalyst); len(runes) > 100 {
				catalyst = string(runes[:100])
			}
			decision.Catalyst = catalyst

		case strings.Contains(upper, "TIMEFRAME:"):
			if value := markerValue(line, upper, "TIMEFRAME:"); value != "" {
				decision.Timeframe = value
			}
		}
	}

	if !found {
		return nil, xe.ErrDecisionUnparsed
	}
	return decision, nil
}

// markerValue 按大写文本定位标记，从原始行中截取取值部分
func markerValue(line, upper, marker string) string {
	idx := strings.Index(upper, marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+len(marker):])
}

// firstNumber 提取首个数字，容忍 "$185.50 (+5%)" 这类格式
func firstNumber(value string) (float64, bool) {
	value = strings.ReplaceAll(value, "$", "")
	value = strings.ReplaceAll(value, ",", "")
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCandidateSymbols 从模型输出中提取合法的股票代码
func ParseCandidateSymbols(text string, count int) []string {
	seen := make(map[string]struct{})
	symbols := make([]string, 0, count)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.Contains(trimmed, ",") {
			continue
		}
		if strings.HasPrefix(trimmed, "Based on") || strings.HasPrefix(trimmed, "Here are") {
			continue
		}

		for _, part := range strings.Split(trimmed, ",") {
			symbol := strings.ToUpper(strings.TrimSpace(part))
			if !isAlpha(symbol) || len(symbol) < 1 || len(symbol) > 5 {
				continue
			}
			if _, ok := seen[symbol]; ok {
				continue
			}
			seen[symbol] = struct{}{}
			symbols = append(symbols, symbol)
			if len(symbols) >= count {
				return symbols
			}
		}
	}

	return symbols
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

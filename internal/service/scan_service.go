package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/dushixiang/sibyl/internal/models"
	"github.com/dushixiang/sibyl/internal/repo"
	"github.com/dushixiang/sibyl/internal/telegram"
	"github.com/dushixiang/sibyl/internal/xe"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MarketProvider 扫描所需的行情数据能力
type MarketProvider interface {
	GetSnapshot(ctx context.Context, symbol string) (*StockSnapshot, error)
	GetMarketOverview(ctx context.Context) []IndexQuote
}

// DecisionMaker 扫描所需的AI决策能力
type DecisionMaker interface {
	IsConfigured() bool
	AnalyzeDecision(ctx context.Context, recordID, symbol string, snapshot *StockSnapshot, overview []IndexQuote) (*Decision, error)
	DiscoverCandidates(ctx context.Context, count int) ([]string, error)
}

var (
	_ MarketProvider = (*MarketService)(nil)
	_ DecisionMaker  = (*AnalyzerService)(nil)
)

// ScanService 批量扫描编排服务
type ScanService struct {
	logger *zap.Logger

	*orz.Service
	recordRepo  *repo.AnalysisRecordRepo
	scanRunRepo *repo.ScanRunRepo

	market   MarketProvider
	analyzer DecisionMaker
	tg       *telegram.Telegram

	analysisConf config.AnalysisConf
	telegramConf config.TelegramConf

	scanning atomic.Bool
}

// NewScanService 创建扫描服务
func NewScanService(
	db *gorm.DB,
	market MarketProvider,
	analyzer DecisionMaker,
	tg *telegram.Telegram,
	logger *zap.Logger,
	conf *config.Config,
) *ScanService {
	return &ScanService{
		logger:       logger,
		Service:      orz.NewService(db),
		recordRepo:   repo.NewAnalysisRecordRepo(db),
		scanRunRepo:  repo.NewScanRunRepo(db),
		market:       market,
		analyzer:     analyzer,
		tg:           tg,
		analysisConf: conf.Analysis,
		telegramConf: conf.Telegram,
	}
}

// ScanFailure 单只股票分析失败的记录
type ScanFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// ScanSummary 一次批量扫描的汇总结果
type ScanSummary struct {
	RunID         string                  `json:"run_id"`
	Source        string                  `json:"source"` // manual/discovery
	Symbols       []string                `json:"symbols"`
	Analyzed      int                     `json:"analyzed"`
	BuyCount      int                     `json:"buy_count"`
	SellCount     int                     `json:"sell_count"`
	AvgConfidence float64                 `json:"avg_confidence"`
	Failures      []ScanFailure           `json:"failures"`
	Records       []models.AnalysisRecord `json:"records"`
	Duration      int64                   `json:"duration"` // 毫秒
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    time.Time               `json:"finished_at"`
}

// AnalyzeSymbol 分析单只股票并持久化结果
func (s *ScanService) AnalyzeSymbol(ctx context.Context, symbol string) (*models.AnalysisRecord, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, xe.ErrInvalidParams
	}

	overview := s.market.GetMarketOverview(ctx)
	return s.analyzeOne(ctx, symbol, overview)
}

// Scan 批量扫描：显式列表或AI发现候选，逐只顺序分析，单只失败不中断
func (s *ScanService) Scan(ctx context.Context, symbols []string, count int) (*ScanSummary, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return nil, xe.ErrScanInProgress
	}
	defer s.scanning.Store(false)

	// LLM未配置时逐只分析必然全部失败，直接整体报错
	if !s.analyzer.IsConfigured() {
		return nil, xe.ErrLLMNotConfigured
	}

	startedAt := time.Now()

	source := "manual"
	targets := normalizeSymbols(symbols)
	if len(targets) == 0 {
		source = "discovery"
		discovered, err := s.analyzer.DiscoverCandidates(ctx, count)
		if err != nil {
			return nil, err
		}
		targets = normalizeSymbols(discovered)
	}
	if len(targets) == 0 {
		return nil, xe.ErrInvalidParams
	}
	if max := s.analysisConf.MaxSymbols; max > 0 && len(targets) > max {
		targets = targets[:max]
	}

	s.logger.Info("scan started",
		zap.String("source", source),
		zap.Strings("symbols", targets))

	// 大盘行情对一次扫描内的所有股票复用
	overview := s.market.GetMarketOverview(ctx)

	summary := &ScanSummary{
		RunID:     ulid.Make().String(),
		Source:    source,
		Symbols:   targets,
		Failures:  make([]ScanFailure, 0),
		Records:   make([]models.AnalysisRecord, 0, len(targets)),
		StartedAt: startedAt,
	}

	confidenceSum := 0
	for _, symbol := range targets {
		record, err := s.analyzeOne(ctx, symbol, overview)
		if err != nil {
			s.logger.Warn("symbol analysis failed, skipping",
				zap.String("symbol", symbol),
				zap.Error(err))
			summary.Failures = append(summary.Failures, ScanFailure{
				Symbol: symbol,
				Error:  err.Error(),
			})
			continue
		}

		summary.Records = append(summary.Records, *record)
		summary.Analyzed++
		confidenceSum += record.Confidence
		if record.Decision == models.DecisionBuy {
			summary.BuyCount++
		} else {
			summary.SellCount++
		}
	}

	summary.FinishedAt = time.Now()
	summary.Duration = summary.FinishedAt.Sub(startedAt).Milliseconds()
	if summary.Analyzed > 0 {
		summary.AvgConfidence = float64(confidenceSum) / float64(summary.Analyzed)
	}

	s.logger.Info("scan finished",
		zap.String("run_id", summary.RunID),
		zap.Int("analyzed", summary.Analyzed),
		zap.Int("buy", summary.BuyCount),
		zap.Int("sell", summary.SellCount),
		zap.Int("failed", len(summary.Failures)),
		zap.Int64("duration_ms", summary.Duration))

	if err := s.saveRun(ctx, summary, count); err != nil {
		s.logger.Error("failed to save scan run", zap.Error(err))
	}

	s.notify(summary)

	return summary, nil
}

// analyzeOne 分析单只股票：行情快照 + AI决策，合并后落库
func (s *ScanService) analyzeOne(ctx context.Context, symbol string, overview []IndexQuote) (*models.AnalysisRecord, error) {
	snapshot, err := s.market.GetSnapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}

	recordID := ulid.Make().String()
	decision, err := s.analyzer.AnalyzeDecision(ctx, recordID, symbol, snapshot, overview)
	if err != nil {
		return nil, err
	}

	record := &models.AnalysisRecord{
		ID:           recordID,
		Symbol:       symbol,
		Decision:     decision.Decision,
		Confidence:   decision.Confidence,
		Model:        decision.Model,
		CurrentPrice: snapshot.CurrentPrice,
		TargetPrice:  decision.TargetPrice,
		StopLoss:     decision.StopLoss,
		Catalyst:     decision.Catalyst,
		Timeframe:    decision.Timeframe,
		Reasoning:    decision.Reasoning,

		PremarketPrice:  snapshot.PremarketPrice,
		AfterhoursPrice: snapshot.AfterhoursPrice,
	}
	if ind := snapshot.Indicators; ind != nil {
		record.RSI = ind.RSI14
		record.MA5 = ind.MA5
		record.MA20 = ind.MA20
		record.Volume = ind.Volume
		record.VolumeRatio = ind.VolumeRatio
		record.PriceChangePercent = ind.PriceChangePercent
	}

	if err := s.recordRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("analysis record created",
		zap.String("id", record.ID),
		zap.String("symbol", symbol),
		zap.String("decision", record.Decision),
		zap.Int("confidence", record.Confidence))

	return record, nil
}

// saveRun 持久化扫描汇总
func (s *ScanService) saveRun(ctx context.Context, summary *ScanSummary, requestedCount int) error {
	symbolsJSON, err := json.Marshal(summary.Symbols)
	if err != nil {
		return err
	}
	failuresJSON, err := json.Marshal(summary.Failures)
	if err != nil {
		return err
	}

	run := &models.ScanRun{
		ID:             summary.RunID,
		Source:         summary.Source,
		RequestedCount: requestedCount,
		Symbols:        symbolsJSON,
		Analyzed:       summary.Analyzed,
		BuyCount:       summary.BuyCount,
		SellCount:      summary.SellCount,
		AvgConfidence:  summary.AvgConfidence,
		Failures:       failuresJSON,
		Duration:       summary.Duration,
		StartedAt:      summary.StartedAt,
		FinishedAt:     summary.FinishedAt,
	}
	return s.scanRunRepo.Create(ctx, run)
}

// notify 扫描完成后推送Telegram通知
func (s *ScanService) notify(summary *ScanSummary) {
	if s.tg == nil || s.telegramConf.ChatID == "" {
		return
	}

	var sb strings.Builder
	sb.WriteString("*扫描完成*\n")
	sb.WriteString(fmt.Sprintf("分析 %d 只，buy %d / sell %d，平均置信度 %.1f\n",
		summary.Analyzed, summary.BuyCount, summary.SellCount, summary.AvgConfidence))
	for _, record := range summary.Records {
		sb.WriteString(fmt.Sprintf("%s: %s (%d/10) $%.2f\n",
			record.Symbol, strings.ToUpper(record.Decision), record.Confidence, record.CurrentPrice))
	}
	for _, failure := range summary.Failures {
		sb.WriteString(fmt.Sprintf("%s 失败: %s\n", failure.Symbol, telegram.EscapeMarkdown(failure.Error)))
	}

	if err := s.tg.Notify(s.telegramConf.ChatID, sb.String()); err != nil {
		s.logger.Warn("failed to send telegram notification", zap.Error(err))
	}
}

// GetRecord 查询单条分析记录
func (s *ScanService) GetRecord(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	record, err := s.recordRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xe.ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

// GetHistory 查询某只股票的历史分析记录
func (s *ScanService) GetHistory(ctx context.Context, symbol string, limit int) ([]models.AnalysisRecord, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, xe.ErrInvalidParams
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.recordRepo.FindBySymbol(ctx, symbol, limit)
}

// GetRecentRecords 查询最近的分析记录
func (s *ScanService) GetRecentRecords(ctx context.Context, limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.recordRepo.FindRecent(ctx, limit)
}

// GetRecentRuns 查询最近的扫描记录
func (s *ScanService) GetRecentRuns(ctx context.Context, limit int) ([]models.ScanRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.scanRunRepo.FindRecent(ctx, limit)
}

// IsScanning 是否有扫描正在执行
func (s *ScanService) IsScanning() bool {
	return s.scanning.Load()
}

// normalizeSymbols 规范化股票代码：去空白、大写、去重
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	result := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		result = append(result, symbol)
	}
	return result
}

package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dushixiang/sibyl/internal/models"
	"github.com/dushixiang/sibyl/internal/repo"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 无目标价时按5%参考波动计算准确度
const defaultReferenceMove = 0.05

// 预测周期解析不出时的默认天数
const defaultTimeframeDays = 5

// QuoteProvider 核对任务所需的行情能力
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (float64, error)
}

var _ QuoteProvider = (*MarketService)(nil)

// TrackerService 预测核对服务
type TrackerService struct {
	logger *zap.Logger

	*orz.Service
	recordRepo *repo.AnalysisRecordRepo

	quotes QuoteProvider
}

// NewTrackerService 创建预测核对服务
func NewTrackerService(db *gorm.DB, quotes QuoteProvider, logger *zap.Logger) *TrackerService {
	return &TrackerService{
		logger:     logger,
		Service:    orz.NewService(db),
		recordRepo: repo.NewAnalysisRecordRepo(db),
		quotes:     quotes,
	}
}

// ReconcileReport 一轮核对的统计
type ReconcileReport struct {
	Pending   int       `json:"pending"`   // 未核对记录总数
	Due       int       `json:"due"`       // 周期已届满的记录数
	Processed int       `json:"processed"` // 成功写入核对结果的记录数
	Skipped   int       `json:"skipped"`   // 被并发核对抢先的记录数
	Failed    int       `json:"failed"`    // 行情获取或写库失败的记录数
	CheckedAt time.Time `json:"checked_at"`
}

// ReconcileDue 核对所有周期已届满的记录，单条失败不中断
func (s *TrackerService) ReconcileDue(ctx context.Context) (*ReconcileReport, error) {
	records, err := s.recordRepo.FindPending(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	report := &ReconcileReport{
		Pending:   len(records),
		CheckedAt: now,
	}

	for i := range records {
		record := &records[i]

		daysElapsed := int(now.Sub(record.CreatedAt).Hours() / 24)
		if daysElapsed < ParseTimeframeDays(record.Timeframe) {
			continue
		}
		report.Due++

		actualPrice, err := s.quotes.GetQuote(ctx, record.Symbol)
		if err != nil {
			s.logger.Warn("failed to fetch quote for reconciliation",
				zap.String("id", record.ID),
				zap.String("symbol", record.Symbol),
				zap.Error(err))
			report.Failed++
			continue
		}

		outcome := s.buildOutcome(record, actualPrice, now, daysElapsed)

		updated, err := s.recordRepo.CompleteReconciliation(ctx, record.ID, outcome)
		if err != nil {
			s.logger.Error("failed to write reconciliation result",
				zap.String("id", record.ID),
				zap.Error(err))
			report.Failed++
			continue
		}
		if !updated {
			// 另一轮核对已经写过了
			report.Skipped++
			continue
		}

		report.Processed++
		s.logger.Info("prediction reconciled",
			zap.String("id", record.ID),
			zap.String("symbol", record.Symbol),
			zap.String("decision", record.Decision),
			zap.Float64("actual_price", actualPrice),
			zap.Float64("accuracy", outcome.PredictionAccuracy),
			zap.Int("days_elapsed", daysElapsed))
	}

	s.logger.Info("reconciliation finished",
		zap.Int("pending", report.Pending),
		zap.Int("due", report.Due),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))

	return report, nil
}

// buildOutcome 计算单条记录的核对结果
func (s *TrackerService) buildOutcome(record *models.AnalysisRecord, actualPrice float64,
	now time.Time, daysElapsed int) repo.ReconcileOutcome {
	actualChangePercent := 0.0
	if record.CurrentPrice > 0 {
		actualChangePercent = (actualPrice - record.CurrentPrice) / record.CurrentPrice * 100
	}

	return repo.ReconcileOutcome{
		ActualPrice:         actualPrice,
		ActualChangePercent: actualChangePercent,
		PredictionAccuracy:  AccuracyScore(record.Decision, record.CurrentPrice, actualPrice, record.TargetPrice),
		TargetReached:       targetReached(record.Decision, actualPrice, record.TargetPrice),
		LastChecked:         now,
		DaysElapsed:         daysElapsed,
	}
}

// AccuracyStats 已核对记录的汇总统计
type AccuracyStats struct {
	Total         int     `json:"total"`
	Correct       int     `json:"correct"`
	Incorrect     int     `json:"incorrect"`
	AccuracyRate  float64 `json:"accuracy_rate"` // correct / total
	AvgScore      float64 `json:"avg_score"`
	TargetReached int     `json:"target_reached"`
	BuyTotal      int     `json:"buy_total"`
	BuyCorrect    int     `json:"buy_correct"`
	SellTotal     int     `json:"sell_total"`
	SellCorrect   int     `json:"sell_correct"`
}

// GetAccuracyStats 统计所有已核对记录
func (s *TrackerService) GetAccuracyStats(ctx context.Context) (*AccuracyStats, []models.AnalysisRecord, error) {
	records, err := s.recordRepo.FindReconciled(ctx)
	if err != nil {
		return nil, nil, err
	}

	stats := &AccuracyStats{Total: len(records)}
	scoreSum := 0.0

	for i := range records {
		record := &records[i]
		correct := record.IsCorrect()
		if correct {
			stats.Correct++
		} else {
			stats.Incorrect++
		}
		if record.PredictionAccuracy != nil {
			scoreSum += *record.PredictionAccuracy
		}
		if record.TargetReached != nil && *record.TargetReached {
			stats.TargetReached++
		}

		if record.Decision == models.DecisionBuy {
			stats.BuyTotal++
			if correct {
				stats.BuyCorrect++
			}
		} else {
			stats.SellTotal++
			if correct {
				stats.SellCorrect++
			}
		}
	}

	if stats.Total > 0 {
		stats.AccuracyRate = float64(stats.Correct) / float64(stats.Total)
		stats.AvgScore = scoreSum / float64(stats.Total)
	}

	return stats, records, nil
}

var (
	rangeDaysPattern = regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*day`)
	daysPattern      = regexp.MustCompile(`(\d+)\s*day`)
	weeksPattern     = regexp.MustCompile(`(\d+)\s*week`)
	monthsPattern    = regexp.MustCompile(`(\d+)\s*month`)
)

// ParseTimeframeDays 把自然语言预测周期解析为天数。
// "3 days"→3，"3-5 days"→4，"1 week"→7，"2 months"→60，解析失败→5。
// 历史记录依赖这套规则，不能改变已存在取值的解析结果。
func ParseTimeframeDays(timeframe string) int {
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	if tf == "" {
		return defaultTimeframeDays
	}

	if m := rangeDaysPattern.FindStringSubmatch(tf); m != nil {
		low, _ := strconv.Atoi(m[1])
		high, _ := strconv.Atoi(m[2])
		return (low + high) / 2
	}
	if m := daysPattern.FindStringSubmatch(tf); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := weeksPattern.FindStringSubmatch(tf); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 7
	}
	if m := monthsPattern.FindStringSubmatch(tf); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 30
	}

	return defaultTimeframeDays
}

// AccuracyScore 计算预测准确度评分，范围 [-1, 1]。
// 以实际涨跌方向与决策方向的一致性定符号，以向目标价靠近的程度定大小：
// 正好到达目标价记满分1，反向同等幅度记-1，无目标价时按5%参考波动折算。
func AccuracyScore(decision string, currentPrice, actualPrice float64, targetPrice *float64) float64 {
	if currentPrice <= 0 {
		return 0
	}

	change := (actualPrice - currentPrice) / currentPrice

	direction := 1.0
	if decision == models.DecisionSell {
		direction = -1.0
	}
	signedMove := direction * change

	reference := defaultReferenceMove
	if targetPrice != nil {
		if distance := (*targetPrice - currentPrice) / currentPrice; distance != 0 {
			if distance < 0 {
				distance = -distance
			}
			reference = distance
		}
	}

	score := signedMove / reference
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

// targetReached 是否到达目标价：buy要求实际价不低于目标价，sell要求不高于
func targetReached(decision string, actualPrice float64, targetPrice *float64) bool {
	if targetPrice == nil {
		return false
	}
	if decision == models.DecisionBuy {
		return actualPrice >= *targetPrice
	}
	return actualPrice <= *targetPrice
}

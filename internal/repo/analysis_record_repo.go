package repo

import (
	"context"
	"time"

	"github.com/dushixiang/sibyl/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewAnalysisRecordRepo(db *gorm.DB) *AnalysisRecordRepo {
	return &AnalysisRecordRepo{
		Repository: orz.NewRepository[models.AnalysisRecord, string](db),
	}
}

type AnalysisRecordRepo struct {
	orz.Repository[models.AnalysisRecord, string]
}

// FindByID 根据ID查询记录
func (r AnalysisRecordRepo) FindByID(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindBySymbol 查询某只股票的历史分析记录，按创建时间倒序
func (r AnalysisRecordRepo) FindBySymbol(ctx context.Context, symbol string, limit int) ([]models.AnalysisRecord, error) {
	var records []models.AnalysisRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("symbol = ?", symbol).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// FindRecent 查询最近的分析记录
func (r AnalysisRecordRepo) FindRecent(ctx context.Context, limit int) ([]models.AnalysisRecord, error) {
	var records []models.AnalysisRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// FindPending 查询所有未核对的记录（预测字段全部为空）
func (r AnalysisRecordRepo) FindPending(ctx context.Context) ([]models.AnalysisRecord, error) {
	var records []models.AnalysisRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("prediction_accuracy IS NULL").
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

// FindReconciled 查询所有已核对的记录
func (r AnalysisRecordRepo) FindReconciled(ctx context.Context) ([]models.AnalysisRecord, error) {
	var records []models.AnalysisRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("prediction_accuracy IS NOT NULL").
		Order("last_checked DESC").
		Find(&records).Error
	return records, err
}

// ReconcileOutcome 预测核对结果，所有字段一次性写入
type ReconcileOutcome struct {
	ActualPrice         float64
	ActualChangePercent float64
	PredictionAccuracy  float64
	TargetReached       bool
	LastChecked         time.Time
	DaysElapsed         int
}

// CompleteReconciliation 条件更新：仅当记录仍未核对时写入预测字段。
// 返回是否真正更新了记录，并发重复执行时后到者得到 false。
func (r AnalysisRecordRepo) CompleteReconciliation(ctx context.Context, id string, outcome ReconcileOutcome) (bool, error) {
	db := r.GetDB(ctx)
	result := db.Table(r.GetTableName()).
		Where("id = ? AND prediction_accuracy IS NULL", id).
		Updates(map[string]interface{}{
			"actual_price":          outcome.ActualPrice,
			"actual_change_percent": outcome.ActualChangePercent,
			"prediction_accuracy":   outcome.PredictionAccuracy,
			"target_reached":        outcome.TargetReached,
			"last_checked":          outcome.LastChecked,
			"days_elapsed":          outcome.DaysElapsed,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

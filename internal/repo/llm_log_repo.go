package repo

import (
	"context"

	"github.com/dushixiang/sibyl/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewLLMLogRepo(db *gorm.DB) *LLMLogRepo {
	return &LLMLogRepo{
		Repository: orz.NewRepository[models.LLMLog, string](db),
	}
}

type LLMLogRepo struct {
	orz.Repository[models.LLMLog, string]
}

// FindByRecordID 根据分析记录ID查询所有日志
func (r LLMLogRepo) FindByRecordID(ctx context.Context, recordID string) ([]models.LLMLog, error) {
	var logs []models.LLMLog
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("record_id = ?", recordID).
		Order("executed_at ASC").
		Find(&logs).Error
	return logs, err
}

// FindRecentLogs 获取最近的日志记录
func (r LLMLogRepo) FindRecentLogs(ctx context.Context, limit int) ([]models.LLMLog, error) {
	var logs []models.LLMLog
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("executed_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

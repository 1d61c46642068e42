package repo

import (
	"context"

	"github.com/dushixiang/sibyl/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewScanRunRepo(db *gorm.DB) *ScanRunRepo {
	return &ScanRunRepo{
		Repository: orz.NewRepository[models.ScanRun, string](db),
	}
}

type ScanRunRepo struct {
	orz.Repository[models.ScanRun, string]
}

// FindRecent 获取最近的扫描记录
func (r ScanRunRepo) FindRecent(ctx context.Context, limit int) ([]models.ScanRun, error) {
	var runs []models.ScanRun
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScanRun 批量扫描记录
type ScanRun struct {
	ID             string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Source         string         `gorm:"type:varchar(20);not null" json:"source"` // manual/discovery
	RequestedCount int            `gorm:"type:int" json:"requested_count"`         // 请求分析的股票数
	Symbols        datatypes.JSON `gorm:"type:json" json:"symbols"`                // 实际分析的股票列表
	Analyzed       int            `gorm:"type:int" json:"analyzed"`                // 成功分析数
	BuyCount       int            `gorm:"type:int" json:"buy_count"`               // buy信号数
	SellCount      int            `gorm:"type:int" json:"sell_count"`              // sell信号数
	AvgConfidence  float64        `gorm:"type:decimal(10,4)" json:"avg_confidence"` // 平均置信度（仅成功项）
	Failures       datatypes.JSON `gorm:"type:json" json:"failures"`               // 失败列表 [{symbol, error}]
	Duration       int64          `json:"duration"`                                // 耗时（毫秒）
	StartedAt      time.Time      `gorm:"not null;index" json:"started_at"`        // 开始时间
	FinishedAt     time.Time      `json:"finished_at"`                             // 结束时间
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (ScanRun) TableName() string {
	return "scan_runs"
}

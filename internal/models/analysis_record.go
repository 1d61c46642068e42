package models

import (
	"time"

	"gorm.io/gorm"
)

// 决策方向，二元判定，不存在第三种取值
const (
	DecisionBuy  = "buy"
	DecisionSell = "sell"
)

// AnalysisRecord AI分析记录
// 创建后除预测核对字段外全部不可变；预测核对字段由核对任务一次性写入，
// 要么全部为空（待核对），要么全部有值（已核对），不允许出现中间状态。
type AnalysisRecord struct {
	ID         string  `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Symbol     string  `gorm:"type:varchar(10);not null;index" json:"symbol"` // 股票代码，大写
	Decision   string  `gorm:"type:varchar(10);not null" json:"decision"`     // buy/sell
	Confidence int     `gorm:"type:int;not null" json:"confidence"`           // 置信度 1-10
	Model      string  `gorm:"type:varchar(50)" json:"model"`                 // 使用的AI模型

	CurrentPrice float64  `gorm:"type:decimal(20,8);not null" json:"current_price"` // 分析时价格
	TargetPrice  *float64 `gorm:"type:decimal(20,8)" json:"target_price"`           // 目标价
	StopLoss     *float64 `gorm:"type:decimal(20,8)" json:"stop_loss"`              // 止损价

	// 技术指标快照，创建时计算一次，之后不变
	RSI                float64  `gorm:"type:decimal(10,4)" json:"rsi"`                  // RSI14
	MA5                float64  `gorm:"type:decimal(20,8)" json:"ma5"`                  // 5日均线
	MA20               float64  `gorm:"type:decimal(20,8)" json:"ma20"`                 // 20日均线
	Volume             float64  `gorm:"type:decimal(20,8)" json:"volume"`               // 成交量
	VolumeRatio        float64  `gorm:"type:decimal(10,4)" json:"volume_ratio"`         // 量比
	PriceChangePercent float64  `gorm:"type:decimal(10,4)" json:"price_change_percent"` // 当日涨跌幅
	PremarketPrice     *float64 `gorm:"type:decimal(20,8)" json:"premarket_price"`      // 盘前价格
	AfterhoursPrice    *float64 `gorm:"type:decimal(20,8)" json:"afterhours_price"`     // 盘后价格

	Catalyst  string `gorm:"type:varchar(200)" json:"catalyst"` // 主要催化剂
	Timeframe string `gorm:"type:varchar(50)" json:"timeframe"` // 预测周期，如 "3-5 days"
	Reasoning string `gorm:"type:text" json:"reasoning"`        // AI分析说明

	// 预测核对字段，核对任务一次性写入
	ActualPrice         *float64   `gorm:"type:decimal(20,8)" json:"actual_price"`          // 核对时价格
	ActualChangePercent *float64   `gorm:"type:decimal(10,4)" json:"actual_change_percent"` // 实际涨跌幅
	PredictionAccuracy  *float64   `gorm:"type:decimal(10,4)" json:"prediction_accuracy"`   // 准确度评分 -1..1
	TargetReached       *bool      `json:"target_reached"`                                  // 是否到达目标价
	LastChecked         *time.Time `json:"last_checked"`                                    // 核对时间
	DaysElapsed         *int       `json:"days_elapsed"`                                    // 核对时已过天数

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

// IsReconciled 是否已完成预测核对
func (r *AnalysisRecord) IsReconciled() bool {
	return r.PredictionAccuracy != nil
}

// IsCorrect 预测方向是否正确，仅在已核对时有意义
func (r *AnalysisRecord) IsCorrect() bool {
	return r.PredictionAccuracy != nil && *r.PredictionAccuracy > 0
}

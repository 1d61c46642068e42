package models

import (
	"time"

	"gorm.io/gorm"
)

// LLMLog LLM通信日志记录
type LLMLog struct {
	ID               string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	RecordID         string         `gorm:"type:varchar(26);index" json:"record_id"` // 关联的分析记录ID，候选发现时为空
	Purpose          string         `gorm:"type:varchar(20)" json:"purpose"`         // analysis/discovery
	Model            string         `json:"model"`                                   // 使用的AI模型
	Prompt           string         `gorm:"type:text" json:"prompt"`                 // 请求提示词
	ResponseText     string         `gorm:"type:text" json:"response_text"`          // AI返回的内容
	PromptTokens     int            `json:"prompt_tokens"`                           // 提示词token数
	CompletionTokens int            `json:"completion_tokens"`                       // 完成token数
	Duration         int64          `json:"duration"`                                // 请求耗时(毫秒)
	Error            string         `json:"error"`                                   // 错误信息(如果有)
	ExecutedAt       time.Time      `gorm:"not null;index" json:"executed_at"`       // 执行时间
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (LLMLog) TableName() string {
	return "llm_logs"
}

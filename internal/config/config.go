package config

type Config struct {
	Telegram TelegramConf `json:"telegram"`
	Market   MarketConf   `json:"market"`
	Analysis AnalysisConf `json:"analysis"`
	Tracker  TrackerConf  `json:"tracker"`
	LLM      LlmConf      `json:"llm"`
	Auth     AuthConf     `json:"auth"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type MarketConf struct {
	BaseURL        string `json:"base_url"`        // 行情接口基础URL，默认 https://query1.finance.yahoo.com
	Lookback       string `json:"lookback"`        // 历史K线回看范围，默认 3mo
	TimeoutSeconds int    `json:"timeout_seconds"` // 单次请求超时（秒），默认15
}

type AnalysisConf struct {
	DefaultSymbols []string `json:"default_symbols"` // 候选发现失败时的兜底股票列表
	MaxSymbols     int      `json:"max_symbols"`     // 单次批量扫描的最大股票数，默认10
	DefaultCount   int      `json:"default_count"`   // 未指定数量时的扫描数量，默认8
}

type TrackerConf struct {
	Enabled         bool `json:"enabled"`          // 是否启用后台预测核对任务
	IntervalMinutes int  `json:"interval_minutes"` // 核对周期（分钟），默认60
}

type LlmConf struct {
	Provider        string `json:"provider"`         // openai 或 google
	BaseURL         string `json:"base_url"`         // LLM API基础URL
	APIKey          string `json:"api_key"`          // LLM API密钥
	Model           string `json:"model"`            // 模型名称
	ReasoningEffort string `json:"reasoning_effort"` // 推理强度：low/medium/high
	ProxyURL        string `json:"proxy_url"`        // 代理地址，例如: http://127.0.0.1:7890
}

type AuthConf struct {
	Enabled   bool   `json:"enabled"`    // 是否启用登录认证
	JWTSecret string `json:"jwt_secret"` // JWT签名密钥，留空则每次启动随机生成
}

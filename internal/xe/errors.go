package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams = orz.NewError(10400, "参数无效")
	ErrInvalidToken  = orz.NewError(10403, "令牌无效")

	ErrLLMNotConfigured = orz.NewError(10010, "未配置LLM API密钥")
	ErrSymbolNoData     = orz.NewError(10011, "无法获取该股票的行情数据")
	ErrRecordNotFound   = orz.NewError(10012, "分析记录不存在")
	ErrScanInProgress   = orz.NewError(10013, "已有扫描任务正在执行")
	ErrDecisionUnparsed = orz.NewError(10014, "无法解析AI决策结果")
)

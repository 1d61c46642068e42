package handler

import (
	"net/http"
	"strconv"

	"github.com/dushixiang/sibyl/internal/service"
	"github.com/dushixiang/sibyl/internal/xe"
	"github.com/go-orz/orz"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AnalysisHandler 股票分析HTTP处理器
type AnalysisHandler struct {
	scanService     *service.ScanService
	trackerService  *service.TrackerService
	trackerLoop     *service.TrackerLoop
	analyzerService *service.AnalyzerService
	marketService   *service.MarketService
	logger          *zap.Logger
}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler(
	scanService *service.ScanService,
	trackerService *service.TrackerService,
	trackerLoop *service.TrackerLoop,
	analyzerService *service.AnalyzerService,
	marketService *service.MarketService,
	logger *zap.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		scanService:     scanService,
		trackerService:  trackerService,
		trackerLoop:     trackerLoop,
		analyzerService: analyzerService,
		marketService:   marketService,
		logger:          logger,
	}
}

// Analyze 分析单只股票
// POST /api/analysis/analyze
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Symbol string `json:"symbol" validate:"required,max=10"`
	}
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	record, err := h.scanService.AnalyzeSymbol(ctx, req.Symbol)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}

// Scan 批量扫描：显式股票列表，或由AI发现count只候选
// POST /api/analysis/scan
func (h *AnalysisHandler) Scan(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Symbols []string `json:"symbols"`
		Count   int      `json:"count" validate:"min=0,max=20"`
	}
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	summary, err := h.scanService.Scan(ctx, req.Symbols, req.Count)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}

// GetRecords 查询分析记录，可按股票代码过滤
// GET /api/analysis/records?symbol=&limit=
func (h *AnalysisHandler) GetRecords(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	symbol := c.QueryParam("symbol")
	if symbol != "" {
		records, err := h.scanService.GetHistory(ctx, symbol, limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, records)
	}

	records, err := h.scanService.GetRecentRecords(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// GetRecord 查询单条分析记录
// GET /api/analysis/records/:id
func (h *AnalysisHandler) GetRecord(c echo.Context) error {
	ctx := c.Request().Context()

	record, err := h.scanService.GetRecord(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}

// GetRuns 查询最近的扫描记录
// GET /api/analysis/runs
func (h *AnalysisHandler) GetRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := h.scanService.GetRecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, runs)
}

// GetLLMLogs 查询LLM调用日志
// GET /api/analysis/llm-logs?record_id=&limit=
func (h *AnalysisHandler) GetLLMLogs(c echo.Context) error {
	ctx := c.Request().Context()

	if recordID := c.QueryParam("record_id"); recordID != "" {
		logs, err := h.analyzerService.FindByRecordID(ctx, recordID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, logs)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	logs, err := h.analyzerService.FindRecentLogs(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}

// Reconcile 手动触发一轮预测核对
// POST /api/analysis/reconcile
func (h *AnalysisHandler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()

	report, err := h.trackerService.ReconcileDue(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}

// GetAccuracy 查询已核对记录及汇总统计
// GET /api/analysis/accuracy
func (h *AnalysisHandler) GetAccuracy(c echo.Context) error {
	ctx := c.Request().Context()

	stats, records, err := h.trackerService.GetAccuracyStats(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orz.Map{
		"stats":   stats,
		"records": records,
	})
}

// GetStatus 查询系统状态
// GET /api/analysis/status
func (h *AnalysisHandler) GetStatus(c echo.Context) error {
	ctx := c.Request().Context()

	status := orz.Map{
		"scanning": h.scanService.IsScanning(),
		"tracker":  h.trackerLoop.GetStatus(),
	}

	// 大盘指数顺带返回，供仪表盘头部展示
	if overview := h.marketService.GetMarketOverview(ctx); len(overview) > 0 {
		status["market_overview"] = overview
	}

	return c.JSON(http.StatusOK, status)
}

// RegisterRoutes 注册路由
func (h *AnalysisHandler) RegisterRoutes(g *echo.Group) {
	analysis := g.Group("/analysis")

	// 查询接口
	analysis.GET("/records", h.GetRecords)
	analysis.GET("/records/:id", h.GetRecord)
	analysis.GET("/runs", h.GetRuns)
	analysis.GET("/llm-logs", h.GetLLMLogs)
	analysis.GET("/accuracy", h.GetAccuracy)
	analysis.GET("/status", h.GetStatus)

	// 操作接口
	analysis.POST("/analyze", h.Analyze)
	analysis.POST("/scan", h.Scan)
	analysis.POST("/reconcile", h.Reconcile)
}

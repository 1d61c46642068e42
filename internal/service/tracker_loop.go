package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TrackerLoop 预测核对定时调度器
type TrackerLoop struct {
	config         config.TrackerConf
	trackerService *TrackerService
	logger         *zap.Logger

	mu        sync.Mutex // 保护下面的运行状态，cron协程和状态查询并发访问
	startTime time.Time
	lastRun   time.Time
	runs      int
	isRunning bool

	stopChan chan struct{}
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewTrackerLoop 创建核对调度器
func NewTrackerLoop(
	conf *config.Config,
	trackerService *TrackerService,
	logger *zap.Logger,
) *TrackerLoop {
	trackerConf := conf.Tracker
	if trackerConf.IntervalMinutes <= 0 {
		trackerConf.IntervalMinutes = 60
	}
	return &TrackerLoop{
		config:         trackerConf,
		trackerService: trackerService,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start 启动调度循环，阻塞直到停止
func (t *TrackerLoop) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return fmt.Errorf("tracker loop is already running")
	}
	t.isRunning = true
	t.startTime = time.Now()
	t.mu.Unlock()

	t.ctx, t.cancel = context.WithCancel(ctx)

	// 每 N 分钟的整点执行
	cronExpr := fmt.Sprintf("*/%d * * * *", t.config.IntervalMinutes)

	t.logger.Info("tracker loop started",
		zap.Int("interval_minutes", t.config.IntervalMinutes),
		zap.String("cron_expression", cronExpr))

	t.cron = cron.New()

	_, err := t.cron.AddFunc(cronExpr, func() {
		if err := t.ExecuteCycle(context.Background()); err != nil {
			t.logger.Error("reconciliation cycle failed", zap.Error(err))
		}
	})
	if err != nil {
		t.mu.Lock()
		t.isRunning = false
		t.mu.Unlock()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	t.cron.Start()

	// 立即执行第一次
	go func() {
		if err := t.ExecuteCycle(context.Background()); err != nil {
			t.logger.Error("first reconciliation cycle failed", zap.Error(err))
		}
	}()

	select {
	case <-t.stopChan:
		t.logger.Info("tracker loop stopped by user")
		return nil
	case <-ctx.Done():
		t.logger.Info("tracker loop stopped by context")
		return ctx.Err()
	}
}

// Stop 停止调度循环
func (t *TrackerLoop) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	t.mu.Unlock()

	t.logger.Info("stopping tracker loop...")

	if t.cron != nil {
		ctx := t.cron.Stop()
		<-ctx.Done() // 等待在途任务完成
	}
	if t.cancel != nil {
		t.cancel()
	}

	close(t.stopChan)
	t.logger.Info("tracker loop stopped")
}

// ExecuteCycle 执行一轮核对
func (t *TrackerLoop) ExecuteCycle(ctx context.Context) error {
	t.mu.Lock()
	t.runs++
	run := t.runs
	started := time.Now()
	t.lastRun = started
	t.mu.Unlock()

	t.logger.Info("reconciliation cycle start", zap.Int("run", run))

	report, err := t.trackerService.ReconcileDue(ctx)
	if err != nil {
		return fmt.Errorf("reconcile due records: %w", err)
	}

	t.logger.Info("reconciliation cycle end",
		zap.Int("run", run),
		zap.Int("due", report.Due),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", time.Since(started)))

	return nil
}

// IsRunning 是否正在运行
func (t *TrackerLoop) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

// GetStatus 获取状态信息
func (t *TrackerLoop) GetStatus() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := map[string]interface{}{
		"is_running":       t.isRunning,
		"runs":             t.runs,
		"interval_minutes": t.config.IntervalMinutes,
	}
	if !t.startTime.IsZero() {
		status["start_time"] = t.startTime
		status["elapsed_hours"] = time.Since(t.startTime).Hours()
	}
	if !t.lastRun.IsZero() {
		status["last_run"] = t.lastRun
	}
	return status
}

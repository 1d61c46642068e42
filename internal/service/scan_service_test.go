package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/dushixiang/sibyl/internal/models"
	"github.com/dushixiang/sibyl/internal/xe"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AnalysisRecord{},
		&models.ScanRun{},
		&models.LLMLog{},
	))
	return db
}

type MockMarketProvider struct {
	mock.Mock
}

func (m *MockMarketProvider) GetSnapshot(ctx context.Context, symbol string) (*StockSnapshot, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StockSnapshot), args.Error(1)
}

func (m *MockMarketProvider) GetMarketOverview(ctx context.Context) []IndexQuote {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]IndexQuote)
}

type MockDecisionMaker struct {
	mock.Mock
	notConfigured bool
}

func (m *MockDecisionMaker) IsConfigured() bool {
	return !m.notConfigured
}

func (m *MockDecisionMaker) AnalyzeDecision(ctx context.Context, recordID, symbol string,
	snapshot *StockSnapshot, overview []IndexQuote) (*Decision, error) {
	args := m.Called(ctx, recordID, symbol, snapshot, overview)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Decision), args.Error(1)
}

func (m *MockDecisionMaker) DiscoverCandidates(ctx context.Context, count int) ([]string, error) {
	args := m.Called(ctx, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestScanService(t *testing.T, market MarketProvider, analyzer DecisionMaker) *ScanService {
	t.Helper()
	conf := &config.Config{
		Analysis: config.AnalysisConf{MaxSymbols: 10, DefaultCount: 5},
	}
	return NewScanService(newTestDB(t), market, analyzer, nil, zap.NewNop(), conf)
}

func testSnapshot(symbol string, price float64) *StockSnapshot {
	return &StockSnapshot{
		Symbol:       symbol,
		CurrentPrice: price,
		Indicators:   &StockIndicators{Price: price, RSI14: 55},
	}
}

func TestScanService_AnalyzeSymbol(t *testing.T) {
	market := new(MockMarketProvider)
	analyzer := new(MockDecisionMaker)
	svc := newTestScanService(t, market, analyzer)
	ctx := context.Background()

	market.On("GetMarketOverview", mock.Anything).Return([]IndexQuote{})
	market.On("GetSnapshot", mock.Anything, "AAPL").Return(testSnapshot("AAPL", 190.5), nil)
	analyzer.On("AnalyzeDecision", mock.Anything, mock.Anything, "AAPL", mock.Anything, mock.Anything).
		Return(&Decision{Decision: "buy", Confidence: 8, Timeframe: "3-5 days"}, nil)

	t.Run("小写输入被规范化并落库", func(t *testing.T) {
		record, err := svc.AnalyzeSymbol(ctx, " aapl ")
		require.NoError(t, err)
		assert.Equal(t, "AAPL", record.Symbol)
		assert.Equal(t, "buy", record.Decision)
		assert.Equal(t, 8, record.Confidence)
		assert.Equal(t, 190.5, record.CurrentPrice)
		assert.Equal(t, 55.0, record.RSI)

		saved, err := svc.GetRecord(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.Symbol, saved.Symbol)
		assert.False(t, saved.IsReconciled())
	})

	t.Run("空代码报参数错误", func(t *testing.T) {
		_, err := svc.AnalyzeSymbol(ctx, "   ")
		assert.ErrorIs(t, err, xe.ErrInvalidParams)
	})
}

func TestScanService_Scan(t *testing.T) {
	ctx := context.Background()

	t.Run("单只失败不中断整轮扫描", func(t *testing.T) {
		market := new(MockMarketProvider)
		analyzer := new(MockDecisionMaker)
		svc := newTestScanService(t, market, analyzer)

		market.On("GetMarketOverview", mock.Anything).Return([]IndexQuote{})
		for _, symbol := range []string{"AAPL", "MSFT", "TSLA", "META"} {
			market.On("GetSnapshot", mock.Anything, symbol).Return(testSnapshot(symbol, 100), nil)
		}
		market.On("GetSnapshot", mock.Anything, "NVDA").Return(nil, errors.New("no data"))

		analyzer.On("AnalyzeDecision", mock.Anything, mock.Anything, "AAPL", mock.Anything, mock.Anything).
			Return(&Decision{Decision: "buy", Confidence: 8}, nil)
		analyzer.On("AnalyzeDecision", mock.Anything, mock.Anything, "MSFT", mock.Anything, mock.Anything).
			Return(&Decision{Decision: "buy", Confidence: 6}, nil)
		analyzer.On("AnalyzeDecision", mock.Anything, mock.Anything, "TSLA", mock.Anything, mock.Anything).
			Return(&Decision{Decision: "sell", Confidence: 7, Timeframe: "1 week"}, nil)
		analyzer.On("AnalyzeDecision", mock.Anything, mock.Anything, "META", mock.Anything, mock.Anything).
			Return(&Decision{Decision: "sell", Confidence: 9}, nil)

		summary, err := svc.Scan(ctx, []string{"AAPL", "MSFT", "NVDA", "TSLA", "META"}, 0)
		require.NoError(t, err)

		assert.Equal(t, "manual", summary.Source)
		assert.Equal(t, 4, summary.Analyzed)
		assert.Equal(t, 2, summary.BuyCount)
		assert.Equal(t, 2, summary.SellCount)
		assert.InDelta(t, 7.5, summary.AvgConfidence, 1e-9)
		require.Len(t, summary.Failures, 1)
		assert.Equal(t, "NVDA", summary.Failures[0].Symbol)
		assert.Len(t, summary.Records, 4)
		assert.False(t, svc.IsScanning())

		runs, err := svc.GetRecentRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, summary.RunID, runs[0].ID)
		assert.Equal(t, 4, runs[0].Analyzed)
	})

	t.Run("无显式列表走AI发现", func(t *testing.T) {
		market := new(MockMarketProvider)
		analyzer := new(MockDecisionMaker)
		svc := newTestScanService(t, market, analyzer)

		analyzer.On("DiscoverCandidates", mock.Anything, 2).Return([]string{"PLTR", "SMCI"}, nil)
		market.On("GetMarketOverview", mock.Anything).Return([]IndexQuote{})
		market.On("GetSnapshot", mock.Anything, mock.Anything).Return(testSnapshot("PLTR", 30), nil)
		analyzer.On("AnalyzeDecision", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&Decision{Decision: "buy", Confidence: 7}, nil)

		summary, err := svc.Scan(ctx, nil, 2)
		require.NoError(t, err)
		assert.Equal(t, "discovery", summary.Source)
		assert.Equal(t, []string{"PLTR", "SMCI"}, summary.Symbols)
		assert.Equal(t, 2, summary.Analyzed)
	})

	t.Run("超出上限的列表被截断", func(t *testing.T) {
		market := new(MockMarketProvider)
		analyzer := new(MockDecisionMaker)
		conf := &config.Config{Analysis: config.AnalysisConf{MaxSymbols: 2}}
		svc := NewScanService(newTestDB(t), market, analyzer, nil, zap.NewNop(), conf)

		market.On("GetMarketOverview", mock.Anything).Return([]IndexQuote{})
		market.On("GetSnapshot", mock.Anything, mock.Anything).Return(testSnapshot("AAPL", 100), nil)
		analyzer.On("AnalyzeDecision", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&Decision{Decision: "buy", Confidence: 5}, nil)

		summary, err := svc.Scan(ctx, []string{"AAPL", "MSFT", "TSLA"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "MSFT"}, summary.Symbols)
	})

	t.Run("LLM未配置时整体报错而非逐只失败", func(t *testing.T) {
		market := new(MockMarketProvider)
		analyzer := &MockDecisionMaker{notConfigured: true}
		svc := newTestScanService(t, market, analyzer)

		_, err := svc.Scan(ctx, []string{"AAPL", "MSFT"}, 0)
		assert.ErrorIs(t, err, xe.ErrLLMNotConfigured)
		assert.False(t, svc.IsScanning())
		market.AssertNotCalled(t, "GetSnapshot", mock.Anything, mock.Anything)

		runs, err := svc.GetRecentRuns(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("发现失败直接返回错误", func(t *testing.T) {
		market := new(MockMarketProvider)
		analyzer := new(MockDecisionMaker)
		svc := newTestScanService(t, market, analyzer)

		analyzer.On("DiscoverCandidates", mock.Anything, mock.Anything).
			Return(nil, xe.ErrLLMNotConfigured)

		_, err := svc.Scan(ctx, nil, 3)
		assert.ErrorIs(t, err, xe.ErrLLMNotConfigured)
		assert.False(t, svc.IsScanning())
	})
}

func TestScanService_GetHistory(t *testing.T) {
	market := new(MockMarketProvider)
	analyzer := new(MockDecisionMaker)
	svc := newTestScanService(t, market, analyzer)
	ctx := context.Background()

	market.On("GetMarketOverview", mock.Anything).Return([]IndexQuote{})
	market.On("GetSnapshot", mock.Anything, mock.Anything).Return(testSnapshot("AAPL", 100), nil)
	analyzer.On("AnalyzeDecision", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&Decision{Decision: "buy", Confidence: 5}, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.AnalyzeSymbol(ctx, "AAPL")
		require.NoError(t, err)
	}

	records, err := svc.GetHistory(ctx, "aapl", 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = svc.GetHistory(ctx, "", 10)
	assert.ErrorIs(t, err, xe.ErrInvalidParams)

	_, err = svc.GetRecord(ctx, "missing")
	assert.ErrorIs(t, err, xe.ErrRecordNotFound)
}

func TestNormalizeSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT"}, normalizeSymbols([]string{" aapl", "AAPL", "msft", ""}))
	assert.Empty(t, normalizeSymbols(nil))
}

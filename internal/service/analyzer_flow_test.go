package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/dushixiang/sibyl/internal/xe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockDecisionProvider struct {
	mock.Mock
}

func (m *MockDecisionProvider) Name() string { return "mock" }

func (m *MockDecisionProvider) Generate(ctx context.Context, prompt string) (*LLMResult, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LLMResult), args.Error(1)
}

func newTestAnalyzerService(t *testing.T, provider DecisionProvider) *AnalyzerService {
	t.Helper()
	conf := &config.Config{
		Analysis: config.AnalysisConf{MaxSymbols: 10, DefaultCount: 5},
		LLM:      config.LlmConf{Model: "test-model"},
	}
	return NewAnalyzerService(newTestDB(t), provider, NewPromptService(), zap.NewNop(), conf)
}

func TestAnalyzerService_AnalyzeDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("成功解析并记录日志", func(t *testing.T) {
		provider := new(MockDecisionProvider)
		svc := newTestAnalyzerService(t, provider)

		provider.On("Generate", mock.Anything, mock.Anything).Return(&LLMResult{
			Text:             "DECISION: BUY\nCONFIDENCE: 8\nTARGET: $110",
			PromptTokens:     1200,
			CompletionTokens: 80,
		}, nil)

		decision, err := svc.AnalyzeDecision(ctx, "record-1", "AAPL", testSnapshot("AAPL", 100), nil)
		require.NoError(t, err)
		assert.Equal(t, "buy", decision.Decision)
		assert.Equal(t, "test-model", decision.Model)
		assert.Equal(t, 1200, decision.PromptTokens)

		logs, err := svc.FindByRecordID(ctx, "record-1")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "analysis", logs[0].Purpose)
		assert.Contains(t, logs[0].ResponseText, "DECISION: BUY")
		assert.Empty(t, logs[0].Error)
	})

	t.Run("调用失败也记录日志", func(t *testing.T) {
		provider := new(MockDecisionProvider)
		svc := newTestAnalyzerService(t, provider)

		provider.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

		_, err := svc.AnalyzeDecision(ctx, "record-2", "AAPL", testSnapshot("AAPL", 100), nil)
		require.Error(t, err)

		logs, err := svc.FindByRecordID(ctx, "record-2")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "rate limited", logs[0].Error)
	})

	t.Run("未配置LLM", func(t *testing.T) {
		svc := newTestAnalyzerService(t, nil)
		_, err := svc.AnalyzeDecision(ctx, "record-3", "AAPL", nil, nil)
		assert.ErrorIs(t, err, xe.ErrLLMNotConfigured)
	})
}

func TestAnalyzerService_DiscoverCandidates(t *testing.T) {
	ctx := context.Background()

	t.Run("正常发现", func(t *testing.T) {
		provider := new(MockDecisionProvider)
		svc := newTestAnalyzerService(t, provider)

		provider.On("Generate", mock.Anything, mock.Anything).
			Return(&LLMResult{Text: "NVDA, SMCI, ARM"}, nil)

		symbols, err := svc.DiscoverCandidates(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"NVDA", "SMCI", "ARM"}, symbols)
	})

	t.Run("调用失败回退默认股票池", func(t *testing.T) {
		provider := new(MockDecisionProvider)
		svc := newTestAnalyzerService(t, provider)

		provider.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		symbols, err := svc.DiscoverCandidates(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT"}, symbols)
	})

	t.Run("输出无合法代码回退默认股票池", func(t *testing.T) {
		provider := new(MockDecisionProvider)
		svc := newTestAnalyzerService(t, provider)

		provider.On("Generate", mock.Anything, mock.Anything).
			Return(&LLMResult{Text: "I could not find any suitable stocks."}, nil)

		symbols, err := svc.DiscoverCandidates(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "GOOGL"}, symbols)
	})
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeframeDays(t *testing.T) {
	tests := []struct {
		name      string
		timeframe string
		want      int
	}{
		{"单日", "3 days", 3},
		{"单日无空格", "3days", 3},
		{"天数区间取均值", "3-5 days", 4},
		{"默认周期", "1-5 days", 3},
		{"周", "1 week", 7},
		{"复数周", "2 weeks", 14},
		{"月", "2 months", 60},
		{"大小写混合", "1 Week", 7},
		{"空字符串", "", 5},
		{"无法解析", "soon", 5},
		{"无法解析的短语", "next quarter", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTimeframeDays(tt.timeframe))
		})
	}
}

func TestAccuracyScore(t *testing.T) {
	target := func(v float64) *float64 { return &v }

	t.Run("买入到达目标价得满分", func(t *testing.T) {
		score := AccuracyScore("buy", 100, 110, target(110))
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("买入走到一半得一半", func(t *testing.T) {
		score := AccuracyScore("buy", 100, 105, target(110))
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("买入反向亏损为负分", func(t *testing.T) {
		score := AccuracyScore("buy", 100, 95, target(110))
		assert.InDelta(t, -0.5, score, 1e-9)
	})

	t.Run("卖出下跌为正分", func(t *testing.T) {
		score := AccuracyScore("sell", 100, 95, target(90))
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("卖出上涨为负分", func(t *testing.T) {
		score := AccuracyScore("sell", 100, 110, target(90))
		assert.InDelta(t, -1.0, score, 1e-9)
	})

	t.Run("超出目标价也封顶为1", func(t *testing.T) {
		score := AccuracyScore("buy", 100, 150, target(110))
		assert.Equal(t, 1.0, score)
	})

	t.Run("反向超幅封底为-1", func(t *testing.T) {
		score := AccuracyScore("buy", 100, 50, target(110))
		assert.Equal(t, -1.0, score)
	})

	t.Run("无目标价按5%参考波动", func(t *testing.T) {
		score := AccuracyScore("buy", 100, 102.5, nil)
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("目标价等于现价退回默认参考", func(t *testing.T) {
		score := AccuracyScore("buy", 100, 105, target(100))
		assert.Equal(t, 1.0, score)
	})

	t.Run("现价非法返回0", func(t *testing.T) {
		assert.Equal(t, 0.0, AccuracyScore("buy", 0, 105, target(110)))
		assert.Equal(t, 0.0, AccuracyScore("sell", -1, 105, nil))
	})

	t.Run("评分始终在区间内", func(t *testing.T) {
		for _, decision := range []string{"buy", "sell"} {
			for _, actual := range []float64{1, 50, 99, 100, 101, 200, 1000} {
				score := AccuracyScore(decision, 100, actual, target(103))
				assert.GreaterOrEqual(t, score, -1.0)
				assert.LessOrEqual(t, score, 1.0)
			}
		}
	})
}

func TestTargetReached(t *testing.T) {
	target := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		decision string
		actual   float64
		target   *float64
		want     bool
	}{
		{"买入高于目标价", "buy", 111, target(110), true},
		{"买入恰好到达", "buy", 110, target(110), true},
		{"买入未到达", "buy", 109, target(110), false},
		{"卖出低于目标价", "sell", 89, target(90), true},
		{"卖出恰好到达", "sell", 90, target(90), true},
		{"卖出未到达", "sell", 91, target(90), false},
		{"无目标价", "buy", 200, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, targetReached(tt.decision, tt.actual, tt.target))
		})
	}
}

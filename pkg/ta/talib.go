package ta

import (
	"github.com/markcheno/go-talib"
)

// RSI 相对强弱指标
func RSI(closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	return talib.Rsi(closes, period)
}

// SMA 简单移动平均线
func SMA(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	return talib.Sma(values, period)
}

// EMA 指数移动平均线
func EMA(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	return talib.Ema(values, period)
}

package service

import (
	"github.com/dushixiang/sibyl/pkg/marketdata"
	"github.com/dushixiang/sibyl/pkg/ta"
)

// 放量判断参照近20个交易日的均量
const volumeAvgPeriod = 20

// IndicatorService 技术指标计算服务
type IndicatorService struct{}

// NewIndicatorService 创建技术指标服务
func NewIndicatorService() *IndicatorService {
	return &IndicatorService{}
}

// StockIndicators 日线技术指标快照
type StockIndicators struct {
	Price              float64 `json:"price"`
	RSI14              float64 `json:"rsi14"`
	MA5                float64 `json:"ma5"`
	MA20               float64 `json:"ma20"`
	Volume             float64 `json:"volume"`
	AvgVolume          float64 `json:"avg_volume"`
	VolumeRatio        float64 `json:"volume_ratio"`         // 最新成交量 / 近20日均量
	PriceChangePercent float64 `json:"price_change_percent"` // 相对前一收盘的涨跌幅
}

// CalculateIndicators 基于日K线计算指标，数据不足的指标留0
func (s *IndicatorService) CalculateIndicators(bars []marketdata.Bar) *StockIndicators {
	if len(bars) == 0 {
		return nil
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	lastIdx := len(closes) - 1
	indicators := &StockIndicators{
		Price:  closes[lastIdx],
		Volume: volumes[lastIdx],
	}

	if rsi := ta.RSI(closes, 14); rsi != nil {
		indicators.RSI14 = ta.Last(rsi, 0)
	}
	if ma5 := ta.SMA(closes, 5); ma5 != nil {
		indicators.MA5 = ta.Last(ma5, 0)
	}
	if ma20 := ta.SMA(closes, 20); ma20 != nil {
		indicators.MA20 = ta.Last(ma20, 0)
	}

	if len(volumes) >= volumeAvgPeriod {
		indicators.AvgVolume = ta.Mean(ta.LastValues(volumes, volumeAvgPeriod))
	} else {
		indicators.AvgVolume = indicators.Volume
	}
	if indicators.AvgVolume > 0 {
		indicators.VolumeRatio = indicators.Volume / indicators.AvgVolume
	}

	if lastIdx >= 1 && closes[lastIdx-1] > 0 {
		indicators.PriceChangePercent = (closes[lastIdx] - closes[lastIdx-1]) / closes[lastIdx-1] * 100
	}

	return indicators
}

// ValidateIndicators 验证指标数据质量
func (s *IndicatorService) ValidateIndicators(indicators *StockIndicators) []string {
	issues := make([]string, 0)

	if indicators.Price <= 0 {
		issues = append(issues, "invalid price")
	}
	if indicators.RSI14 < 0 || indicators.RSI14 > 100 {
		issues = append(issues, "RSI14 out of range")
	}
	if indicators.Volume < 0 {
		issues = append(issues, "negative volume")
	}

	return issues
}

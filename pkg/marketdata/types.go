package marketdata

import "time"

// Bar 日K线数据
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Chart 单只股票的行情图表数据
type Chart struct {
	Symbol             string
	Currency           string
	RegularMarketPrice float64
	PreviousClose      float64
	PreMarketPrice     *float64 // 盘前价格，收盘期间为空
	PostMarketPrice    *float64 // 盘后价格
	FiftyTwoWeekHigh   float64
	FiftyTwoWeekLow    float64
	Bars               []Bar
}

// LastClose 最后一根K线的收盘价，没有K线时回退到实时价
func (c *Chart) LastClose() float64 {
	if len(c.Bars) == 0 {
		return c.RegularMarketPrice
	}
	return c.Bars[len(c.Bars)-1].Close
}

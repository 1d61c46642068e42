package service

import (
	"context"
	"errors"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/dushixiang/sibyl/internal/xe"
	"github.com/dushixiang/sibyl/pkg/marketdata"
	"go.uber.org/zap"
)

// 大盘指数
var marketIndexes = []struct {
	Symbol string
	Name   string
}{
	{"^GSPC", "S&P 500"},
	{"^DJI", "Dow Jones"},
	{"^IXIC", "Nasdaq"},
	{"^VIX", "VIX"},
}

// MarketService 市场数据收集服务
type MarketService struct {
	logger *zap.Logger
	conf   config.MarketConf

	yahooClient      *marketdata.YahooClient
	indicatorService *IndicatorService
}

// NewMarketService 创建市场数据服务
func NewMarketService(conf config.MarketConf, yahooClient *marketdata.YahooClient,
	indicatorService *IndicatorService, logger *zap.Logger) *MarketService {
	if conf.Lookback == "" {
		conf.Lookback = "3mo"
	}
	return &MarketService{
		logger:           logger,
		conf:             conf,
		yahooClient:      yahooClient,
		indicatorService: indicatorService,
	}
}

// StockSnapshot 单只股票的市场数据快照
type StockSnapshot struct {
	Symbol           string           `json:"symbol"`
	CurrentPrice     float64          `json:"current_price"`
	PreviousClose    float64          `json:"previous_close"`
	FiftyTwoWeekHigh float64          `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64          `json:"fifty_two_week_low"`
	PremarketPrice   *float64         `json:"premarket_price"`  // 盘前价，常规时段为nil
	AfterhoursPrice  *float64         `json:"afterhours_price"` // 盘后价，常规时段为nil
	Indicators       *StockIndicators `json:"indicators"`
}

// IndexQuote 大盘指数行情
type IndexQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// GetSnapshot 收集指定股票的市场数据并计算日线指标
func (s *MarketService) GetSnapshot(ctx context.Context, symbol string) (*StockSnapshot, error) {
	s.logger.Info("collecting market data", zap.String("symbol", symbol))

	chart, err := s.yahooClient.GetChart(ctx, symbol, s.conf.Lookback, "1d")
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			return nil, xe.ErrSymbolNoData
		}
		return nil, err
	}

	price := chart.RegularMarketPrice
	if price <= 0 {
		price = chart.LastClose()
	}
	if price <= 0 {
		return nil, xe.ErrSymbolNoData
	}

	snapshot := &StockSnapshot{
		Symbol:           symbol,
		CurrentPrice:     price,
		PreviousClose:    chart.PreviousClose,
		FiftyTwoWeekHigh: chart.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  chart.FiftyTwoWeekLow,
		PremarketPrice:   chart.PreMarketPrice,
		AfterhoursPrice:  chart.PostMarketPrice,
	}

	indicators := s.indicatorService.CalculateIndicators(chart.Bars)
	if indicators != nil {
		indicators.Price = price
		snapshot.Indicators = indicators

		issues := s.indicatorService.ValidateIndicators(indicators)
		if len(issues) > 0 {
			s.logger.Warn("data quality issues",
				zap.String("symbol", symbol),
				zap.Strings("issues", issues))
		}
	}

	return snapshot, nil
}

// GetQuote 获取最新价格，用于预测核对
func (s *MarketService) GetQuote(ctx context.Context, symbol string) (float64, error) {
	price, err := s.yahooClient.GetQuote(ctx, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			return 0, xe.ErrSymbolNoData
		}
		return 0, err
	}
	return price, nil
}

// GetMarketOverview 获取大盘指数行情，单个指数失败不影响其余
func (s *MarketService) GetMarketOverview(ctx context.Context) []IndexQuote {
	quotes := make([]IndexQuote, 0, len(marketIndexes))

	for _, index := range marketIndexes {
		chart, err := s.yahooClient.GetChart(ctx, index.Symbol, "5d", "1d")
		if err != nil {
			s.logger.Warn("failed to get index quote",
				zap.String("symbol", index.Symbol),
				zap.Error(err))
			continue
		}

		quote := IndexQuote{
			Symbol: index.Symbol,
			Name:   index.Name,
			Price:  chart.RegularMarketPrice,
		}
		if chart.PreviousClose > 0 {
			quote.ChangePercent = (chart.RegularMarketPrice - chart.PreviousClose) / chart.PreviousClose * 100
		}
		quotes = append(quotes, quote)
	}

	return quotes
}

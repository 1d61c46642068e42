package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// Yahoo对无User-Agent的请求返回429
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) Sibyl/1.0"
)

// ErrNoData 上游没有该股票的行情数据
var ErrNoData = errors.New("no market data for symbol")

// YahooClient Yahoo Finance行情客户端
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewYahooClient 创建行情客户端
func NewYahooClient(baseURL string, timeout time.Duration) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &YahooClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetChart 获取K线及实时行情
func (c *YahooClient) GetChart(ctx context.Context, symbol, rng, interval string) (*Chart, error) {
	query := url.Values{}
	query.Set("range", rng)
	query.Set("interval", interval)
	query.Set("includePrePost", "true")

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart request failed with status %d", resp.StatusCode)
	}

	return ParseChart(symbol, body)
}

// GetQuote 仅获取当前价格
func (c *YahooClient) GetQuote(ctx context.Context, symbol string) (float64, error) {
	chart, err := c.GetChart(ctx, symbol, "1d", "1m")
	if err != nil {
		return 0, err
	}
	if chart.RegularMarketPrice <= 0 {
		return 0, ErrNoData
	}
	return chart.RegularMarketPrice, nil
}

// ParseChart 解析chart接口的JSON响应
func ParseChart(symbol string, body []byte) (*Chart, error) {
	root := gjson.ParseBytes(body)

	if errDesc := root.Get("chart.error.description"); errDesc.Exists() && errDesc.String() != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoData, errDesc.String())
	}

	result := root.Get("chart.result.0")
	if !result.Exists() {
		return nil, ErrNoData
	}

	meta := result.Get("meta")
	chart := &Chart{
		Symbol:             symbol,
		Currency:           meta.Get("currency").String(),
		RegularMarketPrice: meta.Get("regularMarketPrice").Float(),
		PreviousClose:      meta.Get("chartPreviousClose").Float(),
		FiftyTwoWeekHigh:   meta.Get("fiftyTwoWeekHigh").Float(),
		FiftyTwoWeekLow:    meta.Get("fiftyTwoWeekLow").Float(),
	}

	if v := meta.Get("preMarketPrice"); v.Exists() && v.Float() > 0 {
		price := v.Float()
		chart.PreMarketPrice = &price
	}
	if v := meta.Get("postMarketPrice"); v.Exists() && v.Float() > 0 {
		price := v.Float()
		chart.PostMarketPrice = &price
	}

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	for i, ts := range timestamps {
		if i >= len(closes) {
			break
		}
		// 停牌或未结束的时间段，Yahoo会返回null
		if closes[i].Type == gjson.Null {
			continue
		}
		bar := Bar{
			Timestamp: time.Unix(ts.Int(), 0),
			Close:     closes[i].Float(),
		}
		if i < len(opens) {
			bar.Open = opens[i].Float()
		}
		if i < len(highs) {
			bar.High = highs[i].Float()
		}
		if i < len(lows) {
			bar.Low = lows[i].Float()
		}
		if i < len(volumes) {
			bar.Volume = volumes[i].Float()
		}
		chart.Bars = append(chart.Bars, bar)
	}

	if len(chart.Bars) == 0 && chart.RegularMarketPrice <= 0 {
		return nil, ErrNoData
	}

	return chart, nil
}

package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/dushixiang/sibyl/internal/xe"
	"github.com/dushixiang/sibyl/pkg/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const snapshotFixture = `{
  "chart": {
    "result": [
      {
        "meta": {
          "currency": "USD",
          "regularMarketPrice": 190.25,
          "chartPreviousClose": 188.0,
          "fiftyTwoWeekHigh": 199.62,
          "fiftyTwoWeekLow": 164.08,
          "postMarketPrice": 191.1
        },
        "timestamp": [1700000000, 1700086400],
        "indicators": {
          "quote": [
            {
              "open":   [186.1, 187.3],
              "high":   [188.2, 189.9],
              "low":    [185.4, 186.8],
              "close":  [187.5, 189.1],
              "volume": [52000000, 48000000]
            }
          ]
        }
      }
    ],
    "error": null
  }
}`

func newTestMarketService(t *testing.T, handler http.HandlerFunc) *MarketService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := marketdata.NewYahooClient(server.URL, 5*time.Second)
	return NewMarketService(config.MarketConf{}, client, NewIndicatorService(), zap.NewNop())
}

func TestMarketService_GetSnapshot(t *testing.T) {
	svc := newTestMarketService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3mo", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(snapshotFixture))
	})

	snapshot, err := svc.GetSnapshot(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", snapshot.Symbol)
	assert.Equal(t, 190.25, snapshot.CurrentPrice)
	assert.Equal(t, 188.0, snapshot.PreviousClose)
	assert.Nil(t, snapshot.PremarketPrice)
	require.NotNil(t, snapshot.AfterhoursPrice)
	assert.Equal(t, 191.1, *snapshot.AfterhoursPrice)

	require.NotNil(t, snapshot.Indicators)
	// 指标中的价格与快照价格一致
	assert.Equal(t, 190.25, snapshot.Indicators.Price)
	assert.Equal(t, 48000000.0, snapshot.Indicators.Volume)
}

func TestMarketService_GetSnapshotNoData(t *testing.T) {
	svc := newTestMarketService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := svc.GetSnapshot(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, xe.ErrSymbolNoData)
}

func TestMarketService_GetMarketOverview(t *testing.T) {
	svc := newTestMarketService(t, func(w http.ResponseWriter, r *http.Request) {
		// VIX失败，其余指数正常
		if strings.Contains(r.URL.Path, "VIX") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(snapshotFixture))
	})

	quotes := svc.GetMarketOverview(context.Background())
	require.Len(t, quotes, 3)
	assert.Equal(t, "S&P 500", quotes[0].Name)
	assert.InDelta(t, (190.25-188.0)/188.0*100, quotes[0].ChangePercent, 1e-9)
}

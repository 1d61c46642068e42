//go:build wireinject
// +build wireinject

package internal

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dushixiang/sibyl/pkg/marketdata"
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/dushixiang/sibyl/internal/handler"
	"github.com/dushixiang/sibyl/internal/service"
	"github.com/dushixiang/sibyl/internal/telegram"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

const (
	telegramHTTPTimeout = 10 * time.Second
)

var (
	handlerSet = wire.NewSet(
		handler.NewAnalysisHandler,
		handler.NewAuthHandler,
		handler.NewSetupHandler,
	)

	analysisSet = wire.NewSet(
		provideYahooClient,
		provideDecisionProvider,
		provideAuthService,
		service.NewIndicatorService,
		service.NewMarketService,
		service.NewPromptService,
		service.NewAnalyzerService,
		service.NewScanService,
		service.NewTrackerService,
		service.NewTrackerLoop,
		wire.FieldsOf(new(*config.Config), "Market"),
		wire.Bind(new(service.MarketProvider), new(*service.MarketService)),
		wire.Bind(new(service.QuoteProvider), new(*service.MarketService)),
		wire.Bind(new(service.DecisionMaker), new(*service.AnalyzerService)),
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		analysisSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}

// provideTelegram provides telegram instance
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}

// provideYahooClient provides Yahoo Finance market data client
func provideYahooClient(conf *config.Config, logger *zap.Logger) *marketdata.YahooClient {
	timeout := time.Duration(conf.Market.TimeoutSeconds) * time.Second
	client := marketdata.NewYahooClient(conf.Market.BaseURL, timeout)

	logger.Info("market data client initialized",
		zap.String("base_url", conf.Market.BaseURL),
	)
	return client
}

// provideDecisionProvider provides the configured LLM backend
func provideDecisionProvider(conf *config.Config, logger *zap.Logger) service.DecisionProvider {
	if conf.LLM.APIKey == "" {
		logger.Warn("LLM API key not configured; analysis requests will be rejected")
		return nil
	}

	switch conf.LLM.Provider {
	case "google":
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  conf.LLM.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			logger.Error("failed to init Gemini client", zap.Error(err))
			return nil
		}
		logger.Info("LLM client initialized",
			zap.String("model", conf.LLM.Model),
			zap.String("provider", "google"),
		)
		return service.NewGoogleProvider(client, conf.LLM.Model, logger)

	default:
		var options = []option.RequestOption{
			option.WithAPIKey(conf.LLM.APIKey),
		}
		if conf.LLM.BaseURL != "" {
			options = append(options, option.WithBaseURL(conf.LLM.BaseURL))
		}
		if conf.LLM.ProxyURL != "" {
			u, err := url.Parse(conf.LLM.ProxyURL)
			if err != nil {
				logger.Fatal("failed to parse proxy URL", zap.Error(err))
			}
			httpClient := &http.Client{
				Timeout: 5 * time.Minute,
				Transport: &http.Transport{
					Proxy: http.ProxyURL(u),
				},
			}
			options = append(options, option.WithHTTPClient(httpClient))
		}

		client := openai.NewClient(options...)

		logger.Info("LLM client initialized",
			zap.String("model", conf.LLM.Model),
			zap.String("provider", "openai"),
		)
		return service.NewOpenAIProvider(&client, conf.LLM.Model, conf.LLM.ReasoningEffort, logger)
	}
}

// provideAuthService provides auth service with the configured JWT secret
func provideAuthService(logger *zap.Logger, db *gorm.DB, conf *config.Config) *service.AuthService {
	return service.NewAuthService(logger, db, conf.Auth.JWTSecret)
}

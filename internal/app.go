package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dushixiang/sibyl/internal/config"
	"github.com/dushixiang/sibyl/internal/handler"
	mw "github.com/dushixiang/sibyl/internal/middleware"
	"github.com/dushixiang/sibyl/internal/models"
	"github.com/dushixiang/sibyl/internal/service"
	"github.com/dushixiang/sibyl/internal/telegram"
	"github.com/dushixiang/sibyl/pkg/nostd"
	"github.com/dushixiang/sibyl/web"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewSibylApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewSibylApp() orz.Application {
	return &SibylApp{}
}

var _ orz.Application = (*SibylApp)(nil)

type AppComponents struct {
	AnalysisHandler *handler.AnalysisHandler
	AuthHandler     *handler.AuthHandler
	SetupHandler    *handler.SetupHandler

	TrackerLoop     *service.TrackerLoop
	ScanService     *service.ScanService
	TrackerService  *service.TrackerService
	MarketService   *service.MarketService
	AnalyzerService *service.AnalyzerService
	AuthService     *service.AuthService

	tg *telegram.Telegram
}

type SibylApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *SibylApp) GetComponents() *AppComponents {
	return r.components
}

func (r *SibylApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.AnalysisRecord{}, models.ScanRun{}, models.LLMLog{}, models.AdminUser{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().RequestURI
			if strings.HasPrefix(path, "/api") {
				return true
			}
			return false
		},
		Root:       "",
		Index:      "index.html",
		HTML5:      true,
		Browse:     false,
		IgnoreBase: false,
		Filesystem: http.FS(web.Assets()),
	}))

	api := e.Group("/api")
	{
		r.components.SetupHandler.RegisterRoutes(api)
		r.components.AuthHandler.RegisterRoutes(api)

		protected := api
		if conf.Auth.Enabled {
			protected = api.Group("", mw.JWTAuth(mw.JWTAuthConfig{
				AuthService: r.components.AuthService,
				Logger:      logger,
			}))
			r.components.AuthHandler.RegisterProtectedRoutes(protected.Group("/auth"))
		}
		r.components.AnalysisHandler.RegisterRoutes(protected)
	}

	return nil
}

func (r *SibylApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Sibyl Stock Analysis System Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.tg != nil {
		components.tg.Start()
	}

	if !r.conf.Tracker.Enabled {
		logger.Info("prediction tracker disabled by config")
		return nil
	}

	logger.Info("prediction tracker initialized, starting...")

	go func() {
		if err := components.TrackerLoop.Start(context.Background()); err != nil {
			logger.Error("tracker loop error", zap.Error(err))
		}
	}()
	return nil
}

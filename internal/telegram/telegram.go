package telegram

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

type Settings struct {
	Token  string
	Client *http.Client
}

type Telegram struct {
	logger    *zap.Logger
	settings  Settings
	client    *tele.Bot
	startedAt time.Time
}

type Option func(telegram *Telegram)

func NewTelegram(logger *zap.Logger, settings Settings, options ...Option) (*Telegram, error) {

	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	userMiddleware := tele.NewMiddlewarePoller(poller, func(u *tele.Update) bool {
		return true
	})

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdown,
		Token:     settings.Token,
		Poller:    userMiddleware,
		Client:    settings.Client,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	err = client.SetCommands([]tele.Command{
		{Text: "/start", Description: "启动机器人，显示主菜单"},
		{Text: "/help", Description: "获取帮助信息"},
		{Text: "/status", Description: "查看分析系统状态"},
	})
	if err != nil {
		return nil, err
	}

	bot := &Telegram{
		logger:    logger,
		settings:  settings,
		client:    client,
		startedAt: time.Now(),
	}

	for _, option := range options {
		option(bot)
	}

	client.Handle("/start", func(c tele.Context) error {
		return c.Send("Sibyl 股票分析机器人已就绪，批量扫描完成后会在这里推送结果。")
	})
	client.Handle("/help", func(c tele.Context) error {
		return c.Send("可用命令：\n/status 查看系统状态")
	})
	client.Handle("/status", func(c tele.Context) error {
		return c.Send(fmt.Sprintf("系统运行中，已运行 %.1f 小时", time.Since(bot.startedAt).Hours()))
	})

	return bot, nil
}

func (r *Telegram) Start() {
	go r.client.Start()
}

func (r *Telegram) Notify(chatId, msg string) error {
	_chatId := cast.ToInt(chatId)
	_, err := r.client.Send(tele.ChatID(_chatId), msg, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}

// Package bot is the Telegram surface of the wash shop: order intake via
// a button-driven conversation, plus allow-list administration and report
// export for admins.
package bot

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/oltinwash/backend/config"
	"github.com/oltinwash/backend/internal/metrics"
	"github.com/oltinwash/backend/internal/order"
	"github.com/oltinwash/backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v4"
)

// Bot contains the bot API instance and other information.
type Bot struct {
	bot             *telebot.Bot
	log             *slog.Logger
	usrepo          repository.BotManager
	carepo          repository.CatalogManager
	orrepo          repository.OrderManager
	orderSvc        *order.Service
	metrics         *metrics.Metrics
	redisClient     *redis.Client
	sessions        *SessionStore
	bootstrapAdmins map[int64]bool

	adminMu     sync.Mutex
	adminStates map[int64]string
}

var (
	// inline buttons for the order flow.
	btnService      = telebot.InlineButton{Unique: "svc"}
	btnClass        = telebot.InlineButton{Unique: "cls"}
	btnEmployee     = telebot.InlineButton{Unique: "emp"}
	btnPriceDefault = telebot.InlineButton{Unique: "price_default"}
	btnPriceCustom  = telebot.InlineButton{Unique: "price_custom"}
	btnBack         = telebot.InlineButton{Unique: "flow_back"}
	btnCancel       = telebot.InlineButton{Unique: "flow_cancel"}

	// inline buttons for report period.
	btnReportPeriodCurrent = telebot.InlineButton{Unique: "report_period_current_month"}
	btnReportPeriodLast    = telebot.InlineButton{Unique: "report_period_last_month"}
	btnReportPeriod7Days   = telebot.InlineButton{Unique: "report_period_last_7_days"}
)

// NewBot creates a new bot with the given token. The poller depends on
// telegram.mode: long polling by default, a webhook listener when the
// config names one. Webhook updates are verified against the secret token.
func NewBot(
	log *slog.Logger,
	cfg config.TelegramConfig,
	usrepo repository.BotManager,
	carepo repository.CatalogManager,
	orrepo repository.OrderManager,
	orderSvc *order.Service,
	redisClient *redis.Client,
	metrics *metrics.Metrics,
	bootstrapAdmins []int64,
) (*Bot, error) {
	poller, err := newPoller(cfg)
	if err != nil {
		return nil, err
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: poller,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	admins := make(map[int64]bool, len(bootstrapAdmins))
	for _, id := range bootstrapAdmins {
		admins[id] = true
	}

	botInstance := &Bot{
		bot:             bot,
		log:             log,
		usrepo:          usrepo,
		carepo:          carepo,
		orrepo:          orrepo,
		orderSvc:        orderSvc,
		metrics:         metrics,
		redisClient:     redisClient,
		sessions:        NewSessionStore(),
		bootstrapAdmins: admins,
		adminStates:     make(map[int64]string),
	}

	botInstance.registerRoutes()

	return botInstance, nil
}

func newPoller(cfg config.TelegramConfig) (telebot.Poller, error) {
	switch cfg.Mode {
	case "polling", "":
		return &telebot.LongPoller{Timeout: cfg.PollerTimeout}, nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("telegram mode is webhook but telegram.webhook_url is empty")
		}
		return &telebot.Webhook{
			Listen:      cfg.WebhookListen,
			SecretToken: cfg.WebhookSecret,
			Endpoint:    &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}, nil
	default:
		return nil, fmt.Errorf("unknown telegram mode %q", cfg.Mode)
	}
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.sessions.Stop()
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	b.bot.Use(b.AccessMiddleware)

	// Public routes (still behind the allow-list).
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/new", b.newOrderHandler)
	b.bot.Handle(telebot.OnText, b.textHandler)
	b.bot.Handle(telebot.OnPhoto, b.photoHandler)

	// Order flow callbacks.
	b.bot.Handle(&btnService, b.serviceChosenHandler)
	b.bot.Handle(&btnClass, b.classChosenHandler)
	b.bot.Handle(&btnEmployee, b.employeeChosenHandler)
	b.bot.Handle(&btnPriceDefault, b.priceDefaultHandler)
	b.bot.Handle(&btnPriceCustom, b.priceCustomHandler)
	b.bot.Handle(&btnBack, b.backHandler)
	b.bot.Handle(&btnCancel, b.cancelHandler)

	// Admin routes.
	b.bot.Handle("/users", b.adminOnly(b.listUsersHandler))
	b.bot.Handle("/adduser", b.adminOnly(b.addUserHandler))
	b.bot.Handle("/deluser", b.adminOnly(b.deleteUserHandler))
	b.bot.Handle("/report", b.adminOnly(b.reportMenuHandler))
	b.bot.Handle(&btnReportPeriodCurrent, b.adminOnly(b.generateReportHandler))
	b.bot.Handle(&btnReportPeriodLast, b.adminOnly(b.generateReportHandler))
	b.bot.Handle(&btnReportPeriod7Days, b.adminOnly(b.generateReportHandler))
}

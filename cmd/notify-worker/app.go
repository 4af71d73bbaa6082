package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rapidroute/shipbox/config"
	"github.com/rapidroute/shipbox/internal/broker/kafka"
	"github.com/rapidroute/shipbox/internal/cache/rediscache"
	"github.com/rapidroute/shipbox/internal/integrations/brevo"
	"github.com/rapidroute/shipbox/internal/integrations/telegram"
	"github.com/rapidroute/shipbox/internal/integrations/translate"
	"github.com/rapidroute/shipbox/internal/notify"
	"github.com/rapidroute/shipbox/internal/services/botrelay"
	"github.com/rapidroute/shipbox/internal/services/chatlink"
	"github.com/rapidroute/shipbox/internal/services/dispatch"
	"github.com/rapidroute/shipbox/internal/storage/pgshipment"
)

// Repository объединяет нужды диспетчера и релея: обоих обслуживает
// pgshipment.Storage.
type workerRepository interface {
	dispatch.Repository
	botrelay.Drafts
}

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo workerRepository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) dispatch.Producer
	newRateLimiter func(cfg *config.Config) dispatch.RateLimiter
	newChatLinks   func(cfg *config.Config) *chatlink.Store
	newMailSender  func(cfg *config.Config) dispatch.MailSender
	newTelegram    func(cfg *config.Config) *telegram.Client
	newTranslator  func(cfg *config.Config) notify.Translator
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerRepository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgshipment.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) dispatch.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) dispatch.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newChatLinks: func(cfg *config.Config) *chatlink.Store {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			ttl := time.Duration(cfg.ShipBox.ChatLinkTTLHours) * time.Hour
			return chatlink.New(rediscache.New(redisAddr), ttl)
		},
		newMailSender: func(cfg *config.Config) dispatch.MailSender {
			return brevo.New(cfg.Mail.BrevoBaseURL, cfg.Mail.BrevoAPIKey, cfg.Mail.SenderEmail, cfg.Mail.SenderName)
		},
		newTelegram: func(cfg *config.Config) *telegram.Client {
			return telegram.New(cfg.Telegram.BaseURL, cfg.Telegram.BotToken)
		},
		newTranslator: func(cfg *config.Config) notify.Translator {
			return translate.New(cfg.Mail.TranslateBaseURL, cfg.Mail.TranslateAPIKey, slog.Default())
		},
	}
}

func RunNotifyWorker(ctx context.Context, cfg *config.Config, f workerFactories, swaggerPath string) error {
	topic := cfg.Kafka.DispatchResultTopic
	if topic == "" {
		topic = "notify.result"
	}

	pollInterval := time.Duration(cfg.ShipBox.WorkerPollIntervalSeconds) * time.Second
	lease := time.Duration(cfg.ShipBox.WorkerLeaseSeconds) * time.Second

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	rl := f.newRateLimiter(cfg)
	links := f.newChatLinks(cfg)
	mailSender := f.newMailSender(cfg)
	tg := f.newTelegram(cfg)

	mailer := notify.NewMailer(cfg.Mail.LogoURL, cfg.ShipBox.BaseURL, cfg.Mail.AdminEmail, f.newTranslator(cfg))

	d := dispatch.New(repo, mailSender, mailer, tg, links, producer, rl, topic, cfg.Telegram.AdminChatID).
		WithSettings(pollInterval, cfg.ShipBox.WorkerBatchSize, cfg.ShipBox.WorkerConcurrency, lease).
		WithRateLimits(int64(cfg.ShipBox.WorkerMailPerMinute), int64(cfg.ShipBox.WorkerTelegramPerMinute)).
		WithPlanner(dispatch.PlannerConfig{
			Backoff1: time.Duration(cfg.ShipBox.WorkerBackoff1Seconds) * time.Second,
			Backoff2: time.Duration(cfg.ShipBox.WorkerBackoff2Seconds) * time.Second,
			Backoff3: time.Duration(cfg.ShipBox.WorkerBackoff3Seconds) * time.Second,
			Backoff4: time.Duration(cfg.ShipBox.WorkerBackoff4Seconds) * time.Second,
		})

	relay := botrelay.New(tg, links, repo, cfg.Telegram.AdminChatID)

	dispatchErr := make(chan error, 1)
	go func() { dispatchErr <- d.Run(ctx) }()

	relayErr := make(chan error, 1)
	go func() {
		// Без токена релей не запускаем: доставка писем работает и так.
		if cfg.Telegram.BotToken == "" {
			slog.Warn("telegram bot token is empty, chat relay disabled")
			<-ctx.Done()
			relayErr <- ctx.Err()
			return
		}
		relayErr <- relay.Run(ctx)
	}()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    cfg.ShipBox.WorkerHTTPAddr,
			swaggerPath: swaggerPath,
			dispatcher:  d,
			relay:       relay,
			cfg:         cfg,
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-dispatchErr:
		return err
	case err := <-relayErr:
		return err
	case err := <-httpErr:
		if err == http.ErrServerClosed {
			return ctx.Err()
		}
		return err
	}
}

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/broker/messages"
	"github.com/rapidroute/shipbox/internal/models"
	"github.com/rapidroute/shipbox/internal/notify"
)

type Repository interface {
	ClaimDueNotifications(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Notification, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type MailSender interface {
	Send(ctx context.Context, to, subject, htmlContent string) error
}

type TelegramSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type ChatLinks interface {
	ChatFor(ctx context.Context, tempID string) (int64, error)
}

// Dispatcher забирает due-строки outbox, доставляет их по каналам и
// публикует результат в kafka. Запись в базу делает api-консьюмер,
// воркер базу только читает (claim двигает лизинг).
type Dispatcher struct {
	repo     Repository
	mail     MailSender
	mailer   *notify.Mailer
	telegram TelegramSender
	links    ChatLinks
	producer Producer
	rl       RateLimiter

	topic       string
	adminChatID int64

	planner *Planner

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration

	rateLimitMailPerMinute     int64
	rateLimitTelegramPerMinute int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, mail MailSender, mailer *notify.Mailer, telegram TelegramSender, links ChatLinks, producer Producer, rl RateLimiter, topic string, adminChatID int64) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		mail:     mail,
		mailer:   mailer,
		telegram: telegram,
		links:    links,
		producer: producer,
		rl:       rl,

		topic:       topic,
		adminChatID: adminChatID,

		planner: NewPlanner(DefaultPlannerConfig()),

		pollInterval: 5 * time.Second,
		batchSize:    50,
		concurrency:  5,
		lease:        120 * time.Second,

		rateLimitMailPerMinute:     60,
		rateLimitTelegramPerMinute: 30,

		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (d *Dispatcher) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration) *Dispatcher {
	if pollInterval > 0 {
		d.pollInterval = pollInterval
	}
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	if concurrency > 0 {
		d.concurrency = concurrency
	}
	if lease > 0 {
		d.lease = lease
	}
	return d
}

func (d *Dispatcher) WithPlanner(cfg PlannerConfig) *Dispatcher {
	d.planner = NewPlanner(cfg)
	return d
}

func (d *Dispatcher) WithRateLimits(mailPerMin, telegramPerMin int64) *Dispatcher {
	if mailPerMin > 0 {
		d.rateLimitMailPerMinute = mailPerMin
	}
	if telegramPerMin > 0 {
		d.rateLimitTelegramPerMinute = telegramPerMin
	}
	return d
}

// Trigger forces an immediate dispatch cycle (best-effort, non-blocking).
func (d *Dispatcher) Trigger() {
	d.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case d.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (d *Dispatcher) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, d.startedAtUnixNano).UTC(),
		TotalClaimed:   d.totalClaimed.Load(),
		TotalProcessed: d.totalProcessed.Load(),
		TotalErrors:    d.totalErrors.Load(),
		InFlight:       d.inFlight.Load(),
	}
	if n := d.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := d.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	d.lastErrorMu.Lock()
	st.LastError = d.lastError
	d.lastErrorMu.Unlock()
	return st
}

func (d *Dispatcher) Run(ctx context.Context) error {
	t := time.NewTicker(d.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			d.runOnce(ctx)
		case <-d.triggerCh:
			d.runOnce(ctx)
		}
	}
}

func (d *Dispatcher) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	d.lastCycleUnixNano.Store(now.UnixNano())

	items, err := d.repo.ClaimDueNotifications(ctx, now, d.batchSize, d.lease)
	if err != nil {
		slog.Error("claim due notifications", "error", err.Error())
		d.lastErrorMu.Lock()
		d.lastError = err.Error()
		d.lastErrorMu.Unlock()
		return
	}
	d.totalClaimed.Add(int64(len(items)))

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	for _, n := range items {
		sem <- struct{}{}
		wg.Add(1)
		nCopy := n
		d.inFlight.Add(1)
		go func() {
			defer func() {
				d.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := d.processOne(ctx, nCopy); err != nil {
				d.totalErrors.Add(1)
				d.lastErrorMu.Lock()
				d.lastError = err.Error()
				d.lastErrorMu.Unlock()
				slog.Error("dispatch notification", "outbox_id", nCopy.ID, "kind", nCopy.Kind, "error", err.Error())
			}
			d.totalProcessed.Add(1)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) processOne(ctx context.Context, n *models.Notification) error {
	now := time.Now().UTC()

	if err := d.throttle(ctx, n.Kind, now); err != nil {
		return err
	}

	msg := messages.DispatchResult{
		OutboxID:  n.ID,
		Kind:      n.Kind,
		CheckedAt: now,
	}

	if err := d.deliver(ctx, n); err != nil {
		e := err.Error()
		msg.Error = &e
		msg.NextAttemptAt = now.Add(d.planner.BackoffDelay(n.Attempt + 1))
	}

	return d.publish(ctx, msg)
}

func (d *Dispatcher) throttle(ctx context.Context, kind string, now time.Time) error {
	if d.rl == nil {
		return nil
	}
	channel := "mail"
	limit := d.rateLimitMailPerMinute
	if isTelegramKind(kind) {
		channel = "telegram"
		limit = d.rateLimitTelegramPerMinute
	}
	if limit <= 0 {
		return nil
	}

	minuteKey := fmt.Sprintf("rl:notify:%s:%s", channel, now.Format("200601021504"))
	allowed, count, err := d.rl.Allow(ctx, minuteKey, limit, 70*time.Second)
	if err != nil {
		return err
	}
	if !allowed {
		// Канал перегружен, слегка притормозим вместо жёсткого отказа.
		slog.Warn("rate limit exceeded", "channel", channel, "count", count)
		time.Sleep(500 * time.Millisecond)
	}
	return nil
}

func isTelegramKind(kind string) bool {
	return kind == models.KindTelegramAdminSubmission || kind == models.KindTelegramUserReply
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) error {
	switch n.Kind {
	case models.KindEmailReceiverApproved:
		var p models.ReceiverApprovedPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return errors.Wrap(err, "decode payload")
		}
		mail, err := d.mailer.ReceiverApproved(p)
		if err != nil {
			return err
		}
		return d.mail.Send(ctx, mail.To, mail.Subject, mail.HTML)

	case models.KindEmailReceiverDetails:
		var p models.ReceiverDetailsPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return errors.Wrap(err, "decode payload")
		}
		mail, err := d.mailer.ReceiverDetails(ctx, p)
		if err != nil {
			return err
		}
		return d.mail.Send(ctx, mail.To, mail.Subject, mail.HTML)

	case models.KindEmailAdminSubmission:
		var p models.AdminSubmissionPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return errors.Wrap(err, "decode payload")
		}
		mail, err := d.mailer.AdminSubmission(p)
		if err != nil {
			return err
		}
		return d.mail.Send(ctx, mail.To, mail.Subject, mail.HTML)

	case models.KindEmailContactForm:
		var p models.ContactFormPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return errors.Wrap(err, "decode payload")
		}
		mail, err := d.mailer.ContactForm(p)
		if err != nil {
			return err
		}
		return d.mail.Send(ctx, mail.To, mail.Subject, mail.HTML)

	case models.KindTelegramAdminSubmission:
		var p models.AdminSubmissionPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return errors.Wrap(err, "decode payload")
		}
		return d.telegram.SendMessage(ctx, d.adminChatID, notify.AdminSubmissionText(p))

	case models.KindTelegramUserReply:
		var p models.UserReplyPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return errors.Wrap(err, "decode payload")
		}
		chatID, err := d.links.ChatFor(ctx, p.TempID)
		if apperrors.IsNotLinked(err) {
			// Получатель не привязал чат: доставить некуда, и ретраи
			// это не исправят. Считаем уведомление обработанным.
			slog.Info("chat not linked, skipping reply", "temp_id", p.TempID)
			return nil
		}
		if err != nil {
			return err
		}
		return d.telegram.SendMessage(ctx, chatID, notify.UserReplyText(p))

	default:
		// Неизвестный kind из будущей версии: ретраи бессмысленны.
		slog.Warn("unknown notification kind", "kind", n.Kind)
		return nil
	}
}

func (d *Dispatcher) publish(ctx context.Context, msg messages.DispatchResult) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}

	key := []byte(fmt.Sprintf("%d", msg.OutboxID))
	// Kafka может быть не готова сразу после старта docker compose.
	// Для устойчивости делаем небольшой retry.
	var pubErr error
	for i := 0; i < 10; i++ {
		if err := d.producer.Publish(ctx, d.topic, key, b); err == nil {
			pubErr = nil
			break
		} else {
			pubErr = err
			time.Sleep(time.Duration(150*(i+1)) * time.Millisecond)
		}
	}
	return pubErr
}

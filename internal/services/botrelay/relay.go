package botrelay

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/integrations/telegram"
	"github.com/rapidroute/shipbox/internal/models"
)

type Telegram interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
}

type Links interface {
	Link(ctx context.Context, tempID string, chatID int64) error
	TempIDFor(ctx context.Context, chatID int64) (string, error)
	ChatFor(ctx context.Context, tempID string) (int64, error)
}

type Drafts interface {
	GetDraftByTempID(ctx context.Context, tempID string) (*models.PendingShipment, error)
}

// Relay — двусторонний мост между чатами получателей и админским чатом.
// Привязки живут в redis (chatlink), так что рестарт воркера их не теряет.
type Relay struct {
	tg          Telegram
	links       Links
	drafts      Drafts
	adminChatID int64

	pollTimeout time.Duration

	lastUpdateID   atomic.Int64
	totalHandled   atomic.Int64
	totalErrors    atomic.Int64
	lastUpdateUnix atomic.Int64
}

func New(tg Telegram, links Links, drafts Drafts, adminChatID int64) *Relay {
	return &Relay{
		tg:          tg,
		links:       links,
		drafts:      drafts,
		adminChatID: adminChatID,
		pollTimeout: 30 * time.Second,
	}
}

type Stats struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	LastUpdateAt *time.Time `json:"lastUpdateAt,omitempty"`
	TotalHandled int64      `json:"totalHandled"`
	TotalErrors  int64      `json:"totalErrors"`
}

func (r *Relay) Stats() Stats {
	st := Stats{
		LastUpdateID: r.lastUpdateID.Load(),
		TotalHandled: r.totalHandled.Load(),
		TotalErrors:  r.totalErrors.Load(),
	}
	if n := r.lastUpdateUnix.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastUpdateAt = &t
	}
	return st
}

func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := r.tg.GetUpdates(ctx, r.lastUpdateID.Load()+1, r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("telegram getUpdates", "error", err.Error())
			r.totalErrors.Add(1)
			time.Sleep(2 * time.Second)
			continue
		}

		for _, u := range updates {
			r.lastUpdateID.Store(u.UpdateID)
			r.lastUpdateUnix.Store(time.Now().UTC().UnixNano())
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			if err := r.handleMessage(ctx, u.Message); err != nil {
				r.totalErrors.Add(1)
				slog.Error("handle telegram message", "chat_id", u.Message.Chat.ID, "error", err.Error())
				continue
			}
			r.totalHandled.Add(1)
		}
	}
}

var tempIDRe = regexp.MustCompile(`TMP-[A-Z0-9]{8}`)

func (r *Relay) handleMessage(ctx context.Context, m *telegram.Message) error {
	text := strings.TrimSpace(m.Text)
	chatID := m.Chat.ID

	if strings.HasPrefix(text, "/start") {
		return r.handleStart(ctx, chatID, text)
	}
	if chatID == r.adminChatID {
		return r.handleAdmin(ctx, m)
	}
	return r.handleUser(ctx, chatID, text)
}

// /start TMP-XXXXXXXX — привязка чата к черновику.
func (r *Relay) handleStart(ctx context.Context, chatID int64, text string) error {
	tempID := tempIDRe.FindString(strings.ToUpper(text))
	if tempID == "" {
		return r.tg.SendMessage(ctx, chatID,
			"Welcome to Rapid Route Logistics! To link your shipment, send /start followed by your reference, e.g. /start TMP-AB12CD34.")
	}

	if _, err := r.drafts.GetDraftByTempID(ctx, tempID); err != nil {
		if apperrors.IsNotFound(err) {
			return r.tg.SendMessage(ctx, chatID,
				fmt.Sprintf("We couldn't find a shipment with reference %s. Please check the link and try again.", tempID))
		}
		return err
	}

	if err := r.links.Link(ctx, tempID, chatID); err != nil {
		return err
	}
	if err := r.tg.SendMessage(ctx, chatID,
		fmt.Sprintf("You're now connected for shipment %s. Any message you send here will reach our support team.", tempID)); err != nil {
		return err
	}
	// Админу — сигнал, что с получателем теперь есть канал.
	return r.tg.SendMessage(ctx, r.adminChatID,
		fmt.Sprintf("🔗 Receiver linked a chat for %s", tempID))
}

func (r *Relay) handleAdmin(ctx context.Context, m *telegram.Message) error {
	text := strings.TrimSpace(m.Text)

	// /msg TMP-XXXXXXXX текст — адресное сообщение получателю.
	if strings.HasPrefix(text, "/msg") {
		rest := strings.TrimSpace(strings.TrimPrefix(text, "/msg"))
		tempID := tempIDRe.FindString(strings.ToUpper(rest))
		if tempID == "" {
			return r.tg.SendMessage(ctx, m.Chat.ID, "Usage: /msg TMP-XXXXXXXX your message")
		}
		body := strings.TrimSpace(rest[strings.Index(strings.ToUpper(rest), tempID)+len(tempID):])
		if body == "" {
			return r.tg.SendMessage(ctx, m.Chat.ID, "Usage: /msg TMP-XXXXXXXX your message")
		}
		return r.sendToReceiver(ctx, m.Chat.ID, tempID, body)
	}

	// Ответ reply'ем на пересланное сообщение — относим к тому же TMP.
	if m.ReplyToMessage != nil {
		tempID := tempIDRe.FindString(m.ReplyToMessage.Text)
		if tempID == "" {
			return r.tg.SendMessage(ctx, m.Chat.ID, "Can't tell which shipment this reply belongs to. Use /msg TMP-XXXXXXXX instead.")
		}
		return r.sendToReceiver(ctx, m.Chat.ID, tempID, text)
	}

	return nil
}

func (r *Relay) sendToReceiver(ctx context.Context, adminChat int64, tempID, body string) error {
	chatID, err := r.links.ChatFor(ctx, tempID)
	if apperrors.IsNotLinked(err) {
		return r.tg.SendMessage(ctx, adminChat,
			fmt.Sprintf("%s has not linked a chat yet.", tempID))
	}
	if err != nil {
		return err
	}
	return r.tg.SendMessage(ctx, chatID, body)
}

// Сообщение получателя — пересылаем админу с пометкой, от кого.
func (r *Relay) handleUser(ctx context.Context, chatID int64, text string) error {
	tempID, err := r.links.TempIDFor(ctx, chatID)
	if apperrors.IsNotLinked(err) {
		return r.tg.SendMessage(ctx, chatID,
			"Please link your shipment first: /start TMP-XXXXXXXX (the reference from your email).")
	}
	if err != nil {
		return err
	}
	return r.tg.SendMessage(ctx, r.adminChatID,
		fmt.Sprintf("✉️ Message from %s:\n%s", tempID, text))
}

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/broker/messages"
	"github.com/rapidroute/shipbox/internal/models"
	"github.com/rapidroute/shipbox/internal/notify"
)

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

type fakeMail struct {
	to      string
	subject string
	calls   int
	err     error
}

func (m *fakeMail) Send(ctx context.Context, to, subject, htmlContent string) error {
	m.calls++
	m.to, m.subject = to, subject
	return m.err
}

type fakeTelegram struct {
	chatID int64
	text   string
	calls  int
	err    error
}

func (t *fakeTelegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	t.calls++
	t.chatID, t.text = chatID, text
	return t.err
}

type fakeLinks struct {
	chatID int64
	err    error
}

func (l fakeLinks) ChatFor(ctx context.Context, tempID string) (int64, error) {
	return l.chatID, l.err
}

type fakeRL struct {
	allowed bool
	count   int64
	err     error
}

func (r fakeRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return r.allowed, r.count, r.err
}

type noTranslate struct{}

func (noTranslate) Translate(_ context.Context, text, _ string) string { return text }

func newTestDispatcher(mail *fakeMail, tg *fakeTelegram, links ChatLinks, fp *fakeProducer) *Dispatcher {
	mailer := notify.NewMailer("", "https://ship.example.com", "admin@example.com", noTranslate{})
	return New(nil, mail, mailer, tg, links, fp, fakeRL{allowed: true}, "notify.result", 777)
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func decodeResult(t *testing.T, b []byte) messages.DispatchResult {
	t.Helper()
	var msg messages.DispatchResult
	require.NoError(t, json.Unmarshal(b, &msg))
	return msg
}

func TestDispatcher_processOne_emailOK(t *testing.T) {
	mail := &fakeMail{}
	fp := &fakeProducer{}
	d := newTestDispatcher(mail, &fakeTelegram{}, fakeLinks{}, fp)

	n := &models.Notification{
		ID:   42,
		Kind: models.KindEmailReceiverApproved,
		Payload: mustPayload(t, models.ReceiverApprovedPayload{
			TrackingNumber: "CRJ-123456789",
			ReceiverEmail:  "jane@example.com",
			ReceiverName:   "Jane",
		}),
	}
	require.NoError(t, d.processOne(context.Background(), n))

	require.Equal(t, 1, mail.calls)
	require.Equal(t, "jane@example.com", mail.to)

	require.Equal(t, 1, fp.calls)
	require.Equal(t, "notify.result", fp.topic)
	msg := decodeResult(t, fp.value)
	require.Equal(t, uint64(42), msg.OutboxID)
	require.Nil(t, msg.Error)
}

func TestDispatcher_processOne_sendErrorPlansRetry(t *testing.T) {
	mail := &fakeMail{err: errors.New("brevo down")}
	fp := &fakeProducer{}
	d := newTestDispatcher(mail, &fakeTelegram{}, fakeLinks{}, fp)

	n := &models.Notification{
		ID:      7,
		Kind:    models.KindEmailContactForm,
		Attempt: 1,
		Payload: mustPayload(t, models.ContactFormPayload{Name: "Bob", Email: "b@example.com", Message: "hi"}),
	}
	require.NoError(t, d.processOne(context.Background(), n))

	msg := decodeResult(t, fp.value)
	require.NotNil(t, msg.Error)
	require.Contains(t, *msg.Error, "brevo down")
	// вторая неудача -> вторая ступень лестницы
	require.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), msg.NextAttemptAt, 5*time.Second)
}

func TestDispatcher_processOne_telegramAdmin(t *testing.T) {
	tg := &fakeTelegram{}
	fp := &fakeProducer{}
	d := newTestDispatcher(&fakeMail{}, tg, fakeLinks{}, fp)

	n := &models.Notification{
		ID:   3,
		Kind: models.KindTelegramAdminSubmission,
		Payload: mustPayload(t, models.AdminSubmissionPayload{
			TempID: "TMP-AAAA1111",
			Name:   "Jane",
		}),
	}
	require.NoError(t, d.processOne(context.Background(), n))
	require.Equal(t, int64(777), tg.chatID)
	require.Contains(t, tg.text, "TMP-AAAA1111")
	msg := decodeResult(t, fp.value)
	require.Nil(t, msg.Error)
}

func TestDispatcher_processOne_userReplyLinked(t *testing.T) {
	tg := &fakeTelegram{}
	fp := &fakeProducer{}
	d := newTestDispatcher(&fakeMail{}, tg, fakeLinks{chatID: 555}, fp)

	n := &models.Notification{
		ID:   4,
		Kind: models.KindTelegramUserReply,
		Payload: mustPayload(t, models.UserReplyPayload{
			TempID: "TMP-AAAA1111",
			Text:   "Your parcel left the warehouse",
		}),
	}
	require.NoError(t, d.processOne(context.Background(), n))
	require.Equal(t, int64(555), tg.chatID)
	require.Equal(t, "Your parcel left the warehouse", tg.text)
}

func TestDispatcher_processOne_userReplyNotLinkedIsSuccess(t *testing.T) {
	tg := &fakeTelegram{}
	fp := &fakeProducer{}
	d := newTestDispatcher(&fakeMail{}, tg, fakeLinks{err: apperrors.NotLinked("TMP-AAAA1111")}, fp)

	n := &models.Notification{
		ID:      5,
		Kind:    models.KindTelegramUserReply,
		Payload: mustPayload(t, models.UserReplyPayload{TempID: "TMP-AAAA1111", Text: "hi"}),
	}
	require.NoError(t, d.processOne(context.Background(), n))
	require.Equal(t, 0, tg.calls)
	msg := decodeResult(t, fp.value)
	require.Nil(t, msg.Error)
}

func TestDispatcher_processOne_badPayloadPlansRetry(t *testing.T) {
	fp := &fakeProducer{}
	d := newTestDispatcher(&fakeMail{}, &fakeTelegram{}, fakeLinks{}, fp)

	n := &models.Notification{
		ID:      6,
		Kind:    models.KindEmailReceiverDetails,
		Payload: json.RawMessage(`not json`),
	}
	require.NoError(t, d.processOne(context.Background(), n))
	msg := decodeResult(t, fp.value)
	require.NotNil(t, msg.Error)
}

func TestDispatcher_WithSettingsAndRateLimits(t *testing.T) {
	d := newTestDispatcher(&fakeMail{}, &fakeTelegram{}, fakeLinks{}, &fakeProducer{}).
		WithSettings(3*time.Second, 7, 9, 11*time.Second).
		WithRateLimits(100, 20)
	require.Equal(t, 3*time.Second, d.pollInterval)
	require.Equal(t, 7, d.batchSize)
	require.Equal(t, 9, d.concurrency)
	require.Equal(t, 11*time.Second, d.lease)
	require.Equal(t, int64(100), d.rateLimitMailPerMinute)
	require.Equal(t, int64(20), d.rateLimitTelegramPerMinute)
}

func TestDispatcher_Stats(t *testing.T) {
	d := newTestDispatcher(&fakeMail{}, &fakeTelegram{}, fakeLinks{}, &fakeProducer{})
	d.Trigger()
	st := d.Stats()
	require.False(t, st.StartedAt.IsZero())
	require.NotNil(t, st.LastTriggerAt)
	require.Zero(t, st.TotalClaimed)
}

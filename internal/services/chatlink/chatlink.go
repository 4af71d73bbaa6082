package chatlink

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/cache"
)

// Store связывает tempId черновика с Telegram chat id в обе стороны.
// Живёт в redis с TTL: линк переживает рестарты процессов, но не вечен;
// пользователь всегда может перелинковаться через /start.
type Store struct {
	cache cache.BytesCache
	ttl   time.Duration
}

func New(c cache.BytesCache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Store{cache: c, ttl: ttl}
}

func linkKey(tempID string) string  { return "chatlink:" + tempID }
func peerKey(chatID int64) string   { return "chatpeer:" + strconv.FormatInt(chatID, 10) }

func (s *Store) Link(ctx context.Context, tempID string, chatID int64) error {
	v := []byte(strconv.FormatInt(chatID, 10))
	if err := s.cache.Set(ctx, linkKey(tempID), v, s.ttl); err != nil {
		return errors.Wrap(err, "link chat")
	}
	if err := s.cache.Set(ctx, peerKey(chatID), []byte(tempID), s.ttl); err != nil {
		return errors.Wrap(err, "link peer")
	}
	return nil
}

// ChatFor возвращает chat id для tempId или NotLinked.
func (s *Store) ChatFor(ctx context.Context, tempID string) (int64, error) {
	b, ok, err := s.cache.Get(ctx, linkKey(tempID))
	if err != nil {
		return 0, errors.Wrap(err, "get chat link")
	}
	if !ok {
		return 0, apperrors.NotLinked(tempID)
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse chat id")
	}
	return id, nil
}

// TempIDFor — обратное отображение для пересылки сообщений пользователя админу.
func (s *Store) TempIDFor(ctx context.Context, chatID int64) (string, error) {
	b, ok, err := s.cache.Get(ctx, peerKey(chatID))
	if err != nil {
		return "", errors.Wrap(err, "get chat peer")
	}
	if !ok {
		return "", apperrors.ErrNotLinked
	}
	return string(b), nil
}

func (s *Store) Unlink(ctx context.Context, tempID string) error {
	chatID, err := s.ChatFor(ctx, tempID)
	if err == nil {
		_ = s.cache.Del(ctx, peerKey(chatID))
	}
	return s.cache.Del(ctx, linkKey(tempID))
}

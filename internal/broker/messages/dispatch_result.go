package messages

import "time"

// DispatchResult публикуется воркером после попытки доставки одной
// записи outbox. API-процесс применяет результат к строке outbox:
// успех закрывает её, ошибка переносит следующую попытку.
type DispatchResult struct {
	OutboxID  uint64    `json:"outbox_id"`
	Kind      string    `json:"kind"`
	CheckedAt time.Time `json:"checked_at"`

	NextAttemptAt time.Time `json:"next_attempt_at"`

	Error *string `json:"error,omitempty"`
}

package pgshipment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rapidroute/shipbox/internal/models"
)

func enqueueTx(ctx context.Context, tx pgx.Tx, notifications []*models.Notification) error {
	for _, n := range notifications {
		_, err := tx.Exec(ctx, `
INSERT INTO notify_outbox (kind, payload, status, next_attempt_at, created_at)
VALUES ($1, $2, $3, now(), now())
`, n.Kind, []byte(n.Payload), models.NotificationStatusPending)
		if err != nil {
			return errors.Wrap(err, "insert outbox")
		}
	}
	return nil
}

// Enqueue кладёт уведомления вне чужой транзакции (notify-эндпоинты).
func (s *Storage) Enqueue(ctx context.Context, notifications []*models.Notification) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := enqueueTx(ctx, tx, notifications); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

// ClaimDueNotifications выбирает пачку строк outbox, готовых к отправке,
// и "бронирует" их, чтобы они не попадали в повторную выборку, пока
// воркер их обрабатывает. Использует SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueNotifications(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Notification, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT id, kind, payload, status, attempt, next_attempt_at, last_error, created_at, sent_at
FROM notify_outbox
WHERE status = $1
  AND next_attempt_at <= $2
ORDER BY next_attempt_at ASC
LIMIT $3
FOR UPDATE SKIP LOCKED
`, models.NotificationStatusPending, now.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due notifications")
	}
	defer rows.Close()

	var picked []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.Kind, &n.Payload, &n.Status, &n.Attempt,
			&n.NextAttemptAt, &n.LastError, &n.CreatedAt, &n.SentAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan due notification")
		}
		picked = append(picked, &n)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for _, n := range picked {
		_, err := tx.Exec(ctx, `UPDATE notify_outbox SET next_attempt_at = $2 WHERE id = $1`, n.ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease notification")
		}
		n.NextAttemptAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

type DispatchSettle struct {
	OutboxID  uint64
	CheckedAt time.Time

	NextAttemptAt time.Time

	Error *string

	// MaxAttempts: исчерпав попытки, строка помечается FAILED и
	// больше не выбирается воркером.
	MaxAttempts int32
}

// SettleDispatch применяет результат попытки доставки к строке outbox.
func (s *Storage) SettleDispatch(ctx context.Context, upd DispatchSettle) error {
	if upd.Error != nil && *upd.Error != "" {
		status := models.NotificationStatusPending
		var failed bool
		if upd.MaxAttempts > 0 {
			// attempt ещё не инкрементирован в БД.
			var attempt int32
			if err := s.db.QueryRow(ctx, `SELECT attempt FROM notify_outbox WHERE id = $1`, upd.OutboxID).Scan(&attempt); err == nil {
				failed = attempt+1 >= upd.MaxAttempts
			}
		}
		if failed {
			status = models.NotificationStatusFailed
		}
		_, err := s.db.Exec(ctx, `
UPDATE notify_outbox
SET attempt = attempt + 1,
    last_error = $2,
    next_attempt_at = $3,
    status = $4
WHERE id = $1
`, upd.OutboxID, *upd.Error, upd.NextAttemptAt.UTC(), status)
		return errors.Wrap(err, "settle dispatch (error)")
	}

	_, err := s.db.Exec(ctx, `
UPDATE notify_outbox
SET status = $2, attempt = attempt + 1, last_error = NULL, sent_at = $3
WHERE id = $1
`, upd.OutboxID, models.NotificationStatusSent, upd.CheckedAt.UTC())
	return errors.Wrap(err, "settle dispatch (ok)")
}

package pgshipment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/models"
)

const recordColumns = `id, tracking_number, sender, receiver, origin, destination, location, status, expected_delivery, created_at`

func scanRecord(row pgx.Row) (*models.TrackingRecord, error) {
	var r models.TrackingRecord
	var sender, receiver []byte
	if err := row.Scan(
		&r.ID, &r.TrackingNumber, &sender, &receiver,
		&r.Origin, &r.Destination, &r.Location, &r.Status,
		&r.ExpectedDelivery, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sender, &r.Sender); err != nil {
		return nil, errors.Wrap(err, "decode sender")
	}
	if err := json.Unmarshal(receiver, &r.Receiver); err != nil {
		return nil, errors.Wrap(err, "decode receiver")
	}
	return &r, nil
}

func insertRecordTx(ctx context.Context, tx pgx.Tx, r *models.TrackingRecord) (uint64, error) {
	now := time.Now().UTC()
	sender, _ := json.Marshal(r.Sender)
	receiver, _ := json.Marshal(r.Receiver)

	var id uint64
	err := tx.QueryRow(ctx, `
INSERT INTO records (
  tracking_number, sender, receiver, origin, destination, location, status,
  expected_delivery, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
RETURNING id
`, r.TrackingNumber, sender, receiver, r.Origin, r.Destination, r.Location, r.Status,
		r.ExpectedDelivery, now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.Duplicate("tracking number")
		}
		return 0, errors.Wrap(err, "insert record")
	}

	for _, it := range r.Items {
		_, err := tx.Exec(ctx, `
INSERT INTO record_items (record_id, item_id, name, description, weight, quantity, cost)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, id, it.ItemID, it.Name, it.Description, it.Weight, it.Quantity, it.Cost)
		if err != nil {
			if isUniqueViolation(err) {
				return 0, apperrors.Duplicate("item id")
			}
			return 0, errors.Wrap(err, "insert record item")
		}
	}

	for _, u := range r.Updates {
		_, err := tx.Exec(ctx, `
INSERT INTO record_updates (record_id, status, location, event_time, created_at)
VALUES ($1,$2,$3,$4, now())
`, id, u.Status, u.Location, u.Timestamp.UTC())
		if err != nil {
			return 0, errors.Wrap(err, "insert record update")
		}
	}

	return id, nil
}

// CreateRecord создаёт запись вместе с позициями и начальной историей.
// Коллизия tracking number отдаётся как Duplicate: генерацию повторяет вызывающий.
func (s *Storage) CreateRecord(ctx context.Context, r *models.TrackingRecord) (*models.TrackingRecord, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := insertRecordTx(ctx, tx, r)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	_ = id
	return s.GetRecordByTrackingNumber(ctx, r.TrackingNumber)
}

// ApproveDraft — атомарный переход: создать запись, положить уведомления
// в outbox, удалить черновик. Конкурентное одобрение того же черновика
// получает NotFound: строка уже удалена первым коммитом.
func (s *Storage) ApproveDraft(ctx context.Context, draftID uint64, r *models.TrackingRecord, notifications []*models.Notification) (*models.TrackingRecord, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM drafts WHERE id = $1`, draftID)
	if err != nil {
		return nil, errors.Wrap(err, "delete draft")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("draft")
	}

	if _, err := insertRecordTx(ctx, tx, r); err != nil {
		return nil, err
	}

	if err := enqueueTx(ctx, tx, notifications); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return s.GetRecordByTrackingNumber(ctx, r.TrackingNumber)
}

func (s *Storage) loadChildren(ctx context.Context, r *models.TrackingRecord) error {
	// История сортируется по времени события, затем по порядку вставки.
	rows, err := s.db.Query(ctx, `
SELECT id, status, location, event_time
FROM record_updates
WHERE record_id = $1
ORDER BY event_time ASC, id ASC
`, r.ID)
	if err != nil {
		return errors.Wrap(err, "select updates")
	}
	defer rows.Close()

	r.Updates = []models.StatusEvent{}
	for rows.Next() {
		var u models.StatusEvent
		if err := rows.Scan(&u.ID, &u.Status, &u.Location, &u.Timestamp); err != nil {
			return errors.Wrap(err, "scan update")
		}
		r.Updates = append(r.Updates, u)
	}
	if rows.Err() != nil {
		return errors.Wrap(rows.Err(), "rows")
	}

	itemRows, err := s.db.Query(ctx, `
SELECT item_id, name, description, weight, quantity, cost
FROM record_items
WHERE record_id = $1
ORDER BY id ASC
`, r.ID)
	if err != nil {
		return errors.Wrap(err, "select items")
	}
	defer itemRows.Close()

	r.Items = []models.Item{}
	for itemRows.Next() {
		var it models.Item
		if err := itemRows.Scan(&it.ItemID, &it.Name, &it.Description, &it.Weight, &it.Quantity, &it.Cost); err != nil {
			return errors.Wrap(err, "scan item")
		}
		r.Items = append(r.Items, it)
	}
	if itemRows.Err() != nil {
		return errors.Wrap(itemRows.Err(), "rows")
	}
	return nil
}

func (s *Storage) GetRecordByTrackingNumber(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error) {
	r, err := scanRecord(s.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE tracking_number = $1`, trackingNumber))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("record")
	}
	if err != nil {
		return nil, errors.Wrap(err, "select record")
	}
	if err := s.loadChildren(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Storage) ListRecords(ctx context.Context) ([]*models.TrackingRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT `+recordColumns+` FROM records ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "select records")
	}

	out := []*models.TrackingRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan record")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		rows.Close()
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	rows.Close()

	for _, r := range out {
		if err := s.loadChildren(ctx, r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AppendStatusUpdate блокирует строку записи, проверяет переход и одной
// транзакцией перезаписывает статус/локацию и дописывает событие.
// Блокировка сериализует конкурентные обновления: порядок истории
// по id монотонный.
func (s *Storage) AppendStatusUpdate(ctx context.Context, trackingNumber, status, location string, ts time.Time) (*models.TrackingRecord, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uint64
	var current string
	err = tx.QueryRow(ctx, `
SELECT id, status FROM records WHERE tracking_number = $1 FOR UPDATE
`, trackingNumber).Scan(&id, &current)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("record")
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock record")
	}

	if !models.CanTransitionRecord(current, status) {
		return nil, apperrors.Validationf("status %q -> %q", current, status)
	}

	_, err = tx.Exec(ctx, `
UPDATE records SET status = $2, location = $3, updated_at = now() WHERE id = $1
`, id, status, location)
	if err != nil {
		return nil, errors.Wrap(err, "update record status")
	}

	_, err = tx.Exec(ctx, `
INSERT INTO record_updates (record_id, status, location, event_time, created_at)
VALUES ($1,$2,$3,$4, now())
`, id, status, location, ts.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "insert record update")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return s.GetRecordByTrackingNumber(ctx, trackingNumber)
}

// SetExpectedDelivery меняет только дату доставки, истории не касается.
func (s *Storage) SetExpectedDelivery(ctx context.Context, trackingNumber string, t time.Time) (*models.TrackingRecord, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE records SET expected_delivery = $2, updated_at = now() WHERE tracking_number = $1
`, trackingNumber, t.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "update expected delivery")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("record")
	}
	return s.GetRecordByTrackingNumber(ctx, trackingNumber)
}

// DeleteRecord не различает «не было» и «удалили» — так ведёт себя контракт.
func (s *Storage) DeleteRecord(ctx context.Context, id uint64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	return errors.Wrap(err, "delete record")
}

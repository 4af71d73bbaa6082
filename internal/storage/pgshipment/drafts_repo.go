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

func (s *Storage) CreateDraft(ctx context.Context, d *models.PendingShipment) (uint64, error) {
	now := time.Now().UTC()
	sender, _ := json.Marshal(d.Sender)
	receiver, _ := json.Marshal(d.Receiver)
	items, _ := json.Marshal(d.Items)

	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO drafts (temp_id, sender, receiver, items, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$6)
RETURNING id
`, d.TempID, sender, receiver, items, d.Status, now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.Duplicate("temp id")
		}
		return 0, errors.Wrap(err, "insert draft")
	}
	return id, nil
}

func scanDraft(row pgx.Row) (*models.PendingShipment, error) {
	var d models.PendingShipment
	var sender, receiver, items []byte
	if err := row.Scan(&d.ID, &d.TempID, &sender, &receiver, &items, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sender, &d.Sender); err != nil {
		return nil, errors.Wrap(err, "decode sender")
	}
	if err := json.Unmarshal(receiver, &d.Receiver); err != nil {
		return nil, errors.Wrap(err, "decode receiver")
	}
	if err := json.Unmarshal(items, &d.Items); err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	return &d, nil
}

const draftColumns = `id, temp_id, sender, receiver, items, status, created_at, updated_at`

func (s *Storage) GetDraftByTempID(ctx context.Context, tempID string) (*models.PendingShipment, error) {
	d, err := scanDraft(s.db.QueryRow(ctx, `SELECT `+draftColumns+` FROM drafts WHERE temp_id = $1`, tempID))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("draft")
	}
	if err != nil {
		return nil, errors.Wrap(err, "select draft")
	}
	return d, nil
}

func (s *Storage) GetDraftByID(ctx context.Context, id uint64) (*models.PendingShipment, error) {
	d, err := scanDraft(s.db.QueryRow(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("draft")
	}
	if err != nil {
		return nil, errors.Wrap(err, "select draft")
	}
	return d, nil
}

func (s *Storage) ListDrafts(ctx context.Context) ([]*models.PendingShipment, error) {
	rows, err := s.db.Query(ctx, `SELECT `+draftColumns+` FROM drafts ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "select drafts")
	}
	defer rows.Close()

	out := []*models.PendingShipment{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan draft")
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SubmitReceiver перезаписывает получателя, переводит статус и кладёт
// уведомления в outbox одной транзакцией.
func (s *Storage) SubmitReceiver(ctx context.Context, tempID string, receiver models.Contact, notifications []*models.Notification) (*models.PendingShipment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	recv, _ := json.Marshal(receiver)
	tag, err := tx.Exec(ctx, `
UPDATE drafts
SET receiver = $2, status = $3, updated_at = now()
WHERE temp_id = $1
`, tempID, recv, models.DraftStatusAwaitingApproval)
	if err != nil {
		return nil, errors.Wrap(err, "update draft receiver")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("draft")
	}

	if err := enqueueTx(ctx, tx, notifications); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return s.GetDraftByTempID(ctx, tempID)
}

// DeleteDraft удаляет черновик; повторный вызов получает NotFound.
func (s *Storage) DeleteDraft(ctx context.Context, id uint64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete draft")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("draft")
	}
	return nil
}

package pgshipment

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS admins (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS drafts (
  id BIGSERIAL PRIMARY KEY,
  temp_id TEXT NOT NULL UNIQUE,
  sender JSONB NOT NULL,
  receiver JSONB NOT NULL DEFAULT '{}',
  items JSONB NOT NULL DEFAULT '[]',
  status TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_created_at ON drafts(created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS records (
  id BIGSERIAL PRIMARY KEY,
  tracking_number TEXT NOT NULL UNIQUE,
  sender JSONB NOT NULL,
  receiver JSONB NOT NULL,
  origin TEXT NOT NULL,
  destination TEXT NOT NULL,
  location TEXT NOT NULL,
  status TEXT NOT NULL,
  expected_delivery TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS record_updates (
  id BIGSERIAL PRIMARY KEY,
  record_id BIGINT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  event_time TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_record_updates_record_id_event_time ON record_updates(record_id, event_time)`,
		`
CREATE TABLE IF NOT EXISTS record_items (
  id BIGSERIAL PRIMARY KEY,
  record_id BIGINT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
  item_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  weight DOUBLE PRECISION NOT NULL DEFAULT 0,
  quantity INT NOT NULL DEFAULT 1,
  cost DOUBLE PRECISION NOT NULL DEFAULT 0
)`,
		`
CREATE TABLE IF NOT EXISTS notify_outbox (
  id BIGSERIAL PRIMARY KEY,
  kind TEXT NOT NULL,
  payload JSONB NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  attempt INT NOT NULL DEFAULT 0,
  next_attempt_at TIMESTAMPTZ NOT NULL,
  last_error TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  sent_at TIMESTAMPTZ NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_notify_outbox_due ON notify_outbox(next_attempt_at) WHERE status = 'PENDING'`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}

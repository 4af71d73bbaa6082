package pgshipment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/models"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Storage) CreateAdmin(ctx context.Context, username, passwordHash string) (uint64, error) {
	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO admins (username, password_hash, created_at)
VALUES ($1, $2, $3)
RETURNING id
`, username, passwordHash, time.Now().UTC()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.Duplicate("username")
		}
		return 0, errors.Wrap(err, "insert admin")
	}
	return id, nil
}

func (s *Storage) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	err := s.db.QueryRow(ctx, `
SELECT id, username, password_hash, created_at
FROM admins
WHERE username = $1
`, username).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("admin")
	}
	if err != nil {
		return nil, errors.Wrap(err, "select admin")
	}
	return &a, nil
}

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/models"
)

type Repository interface {
	CreateAdmin(ctx context.Context, username, passwordHash string) (uint64, error)
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
}

type Service struct {
	repo     Repository
	secret   []byte
	tokenTTL time.Duration
}

func New(repo Repository, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Service{repo: repo, secret: []byte(secret), tokenTTL: tokenTTL}
}

// Signup создаёт админскую учётку. Повтор имени — Duplicate.
func (s *Service) Signup(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return apperrors.Validation("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	_, err = s.repo.CreateAdmin(ctx, username, string(hash))
	return err
}

// Login проверяет пароль и выдаёт HS256-токен с истечением.
// Несуществующий логин и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.repo.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", apperrors.ErrAuth
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", apperrors.ErrAuth
	}

	claims := jwt.MapClaims{
		"sub": admin.ID,
		"usr": admin.Username,
		"exp": time.Now().Add(s.tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// VerifyToken возвращает имя админа из валидного токена.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.ErrAuth
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperrors.ErrAuth
	}
	usr, _ := claims["usr"].(string)
	return usr, nil
}

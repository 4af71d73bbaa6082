package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/models"
)

type fakeAdmins struct {
	byName map[string]*models.Admin
	nextID uint64
}

func newFakeAdmins() *fakeAdmins {
	return &fakeAdmins{byName: map[string]*models.Admin{}}
}

func (f *fakeAdmins) CreateAdmin(ctx context.Context, username, passwordHash string) (uint64, error) {
	if _, ok := f.byName[username]; ok {
		return 0, apperrors.Duplicate("username")
	}
	f.nextID++
	f.byName[username] = &models.Admin{ID: f.nextID, Username: username, PasswordHash: passwordHash}
	return f.nextID, nil
}

func (f *fakeAdmins) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	a, ok := f.byName[username]
	if !ok {
		return nil, apperrors.NotFound("admin")
	}
	return a, nil
}

func TestService_SignupLogin(t *testing.T) {
	repo := newFakeAdmins()
	s := New(repo, "secret", time.Hour)
	ctx := context.Background()

	require.True(t, apperrors.IsValidation(s.Signup(ctx, "", "pw")))
	require.NoError(t, s.Signup(ctx, "admin", "pw"))
	require.True(t, apperrors.IsDuplicate(s.Signup(ctx, "admin", "pw")))

	_, err := s.Login(ctx, "admin", "wrong")
	require.True(t, apperrors.IsAuth(err))

	_, err = s.Login(ctx, "nobody", "pw")
	require.True(t, apperrors.IsAuth(err))

	token, err := s.Login(ctx, "admin", "pw")
	require.NoError(t, err)

	usr, err := s.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, "admin", usr)
}

func TestService_VerifyToken_Expired(t *testing.T) {
	repo := newFakeAdmins()
	s := New(repo, "secret", -time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Signup(ctx, "admin", "pw"))
	token, err := s.Login(ctx, "admin", "pw")
	require.NoError(t, err)

	_, err = s.VerifyToken(token)
	require.True(t, apperrors.IsAuth(err))
}

func TestMiddleware(t *testing.T) {
	repo := newFakeAdmins()
	s := New(repo, "secret", time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Signup(ctx, "admin", "pw"))
	token, err := s.Login(ctx, "admin", "pw")
	require.NoError(t, err)

	var gotAdmin string
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdmin = AdminFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Без токена.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Мусорный токен.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Валидный токен.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "admin", gotAdmin)
}

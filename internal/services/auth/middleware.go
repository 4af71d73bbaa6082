package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// AdminFromContext возвращает имя админа, положенное Middleware.
func AdminFromContext(ctx context.Context) string {
	usr, _ := ctx.Value(ctxKey{}).(string)
	return usr
}

// Middleware закрывает админские маршруты bearer-токеном.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w)
			return
		}

		usr, err := s.VerifyToken(strings.TrimSpace(parts[1]))
		if err != nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, usr)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Invalid or expired token"}`))
}

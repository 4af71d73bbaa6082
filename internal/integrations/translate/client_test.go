package translate

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTranslate_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/language/translate/v2", r.URL.Path)
		require.Equal(t, "secret", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Hola"}]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", discard())
	require.Equal(t, "Hola", c.Translate(context.Background(), "Hello", "es"))
}

func TestTranslate_FallbackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", discard())
	require.Equal(t, "Hello", c.Translate(context.Background(), "Hello", "es"))
}

func TestTranslate_SkipsWithoutKeyOrTarget(t *testing.T) {
	c := New("http://unreachable.invalid", "", discard())
	require.Equal(t, "Hello", c.Translate(context.Background(), "Hello", "es"))

	c = New("http://unreachable.invalid", "secret", discard())
	require.Equal(t, "Hello", c.Translate(context.Background(), "Hello", "en"))
}

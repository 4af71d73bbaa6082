package brevo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidroute/shipbox/internal/apperrors"
)

func TestClient_Send(t *testing.T) {
	var got sendReq
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/smtp/email", r.URL.Path)
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "support@rapidroute.example", "Rapid Route")
	require.NoError(t, c.Send(context.Background(), "bob@example.com", "Subject", "<p>hi</p>"))
	require.Equal(t, "k", gotKey)
	require.Equal(t, "bob@example.com", got.To[0].Email)
	require.Equal(t, "Subject", got.Subject)
	require.Equal(t, "support@rapidroute.example", got.Sender.Email)
}

func TestClient_Send_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", "", "")
	err := c.Send(context.Background(), "bob@example.com", "s", "b")
	require.True(t, apperrors.IsDependency(err))
}

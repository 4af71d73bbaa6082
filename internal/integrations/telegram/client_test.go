package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidroute/shipbox/internal/apperrors"
)

func TestClient_SendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "123:abc")
	require.NoError(t, c.SendMessage(context.Background(), 42, "hello"))
	require.Equal(t, "/bot123:abc/sendMessage", gotPath)
	require.Equal(t, "42", gotBody["chat_id"])
	require.Equal(t, "hello", gotBody["text"])
}

func TestClient_SendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "123:abc")
	err := c.SendMessage(context.Background(), 42, "hello")
	require.True(t, apperrors.IsDependency(err))
}

func TestClient_GetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot123:abc/getUpdates", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":7},"text":"/start TMP-AAAA1111"}}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "123:abc")
	updates, err := c.GetUpdates(context.Background(), 0, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.Equal(t, int64(10), updates[0].UpdateID)
	require.Equal(t, int64(7), updates[0].Message.Chat.ID)
	require.Equal(t, "/start TMP-AAAA1111", updates[0].Message.Text)
}

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/rapidroute/shipbox/internal/apperrors"
)

// Client — минимальный Bot API клиент: sendMessage и getUpdates,
// больше релею ничего не нужно.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc: &http.Client{
			// getUpdates держит long poll, поэтому запас больше таймаута poll'а.
			Timeout: 40 * time.Second,
		},
	}
}

type Chat struct {
	ID int64 `json:"id"`
}

type Message struct {
	MessageID      int64    `json:"message_id"`
	Chat           Chat     `json:"chat"`
	Text           string   `json:"text"`
	ReplyToMessage *Message `json:"reply_to_message,omitempty"`
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type apiResp struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	url := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Dependency(err, "telegram "+method)
	}
	defer resp.Body.Close()

	var r apiResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return apperrors.Dependency(err, "telegram "+method)
	}
	if !r.OK {
		return apperrors.Dependency(fmt.Errorf("api: %s", r.Description), "telegram "+method)
	}
	if out != nil {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return errors.Wrap(err, "decode result")
		}
	}
	return nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.call(ctx, "sendMessage", map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"text":    text,
	}, nil)
}

// GetUpdates — long poll за новыми сообщениями. offset = последний
// обработанный update_id + 1.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]int64{
		"offset":  offset,
		"timeout": int64(timeout / time.Second),
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/rapidroute/shipbox/internal/apperrors"
)

// Client — транзакционная почта через Brevo HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	senderName string
	senderMail string
	httpc      *http.Client
}

func New(baseURL, apiKey, senderMail, senderName string) *Client {
	if baseURL == "" {
		baseURL = "https://api.brevo.com"
	}
	if senderMail == "" {
		senderMail = "support@rapidroute.com"
	}
	if senderName == "" {
		senderName = "Rapid Route Logistics"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		senderMail: senderMail,
		senderName: senderName,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type party struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendReq struct {
	Sender      party   `json:"sender"`
	To          []party `json:"to"`
	Subject     string  `json:"subject"`
	HTMLContent string  `json:"htmlContent,omitempty"`
	TextContent string  `json:"textContent,omitempty"`
}

// Send отправляет одно письмо. Ошибки любого рода — Dependency,
// чтобы вызывающий не различал таймаут сети и отказ API вручную.
func (c *Client) Send(ctx context.Context, to, subject, htmlContent string) error {
	body, err := json.Marshal(sendReq{
		Sender:      party{Email: c.senderMail, Name: c.senderName},
		To:          []party{{Email: to}},
		Subject:     subject,
		HTMLContent: htmlContent,
	})
	if err != nil {
		return errors.Wrap(err, "marshal email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Dependency(err, "brevo send")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return apperrors.Dependency(fmt.Errorf("http %d", resp.StatusCode), "brevo send")
	}
	return nil
}

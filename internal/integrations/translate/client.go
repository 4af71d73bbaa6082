package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client — Google Translate v2. Перевод — косметика для писем: если
// что-то пошло не так, молча возвращаем оригинальный текст.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

func New(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://translation.googleapis.com"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type translateResp struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate переводит text на язык target. Без ключа, при ошибке сети
// или кривом ответе — возвращает text как есть, ошибок наружу нет.
func (c *Client) Translate(ctx context.Context, text, target string) string {
	if c.apiKey == "" || text == "" || target == "" || target == "en" {
		return text
	}

	body, err := json.Marshal(map[string]string{
		"q":      text,
		"target": target,
		"format": "text",
	})
	if err != nil {
		return text
	}

	u := c.baseURL + "/language/translate/v2?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return text
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("translate: request failed", "error", err)
		return text
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("translate: unexpected status", "status", resp.StatusCode)
		return text
	}

	var r translateResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		c.logger.Warn("translate: decode failed", "error", err)
		return text
	}
	if len(r.Data.Translations) == 0 {
		return text
	}
	return r.Data.Translations[0].TranslatedText
}

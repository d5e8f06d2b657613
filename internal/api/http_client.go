package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/eamwealth/backoffice-chat/internal/auth"
	"github.com/eamwealth/backoffice-chat/internal/config"
	"github.com/eamwealth/backoffice-chat/internal/domain"
	"github.com/eamwealth/backoffice-chat/pkg/log"
)

// apiResponse is the platform's REST envelope.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HTTPClient talks to the chat endpoints under the /api/v1 prefix.
type HTTPClient struct {
	baseURL string
	tokens  auth.TokenSource
	http    *http.Client
}

func NewHTTPClient(cfg config.APIConfig, tokens auth.TokenSource) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	if err := c.do(ctx, http.MethodGet, "/api/v1/chat/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) MessageHistory(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var messages []domain.Message
	path := fmt.Sprintf("/api/v1/chat/sessions/%s/messages", url.PathEscape(sessionID))
	if err := c.do(ctx, http.MethodGet, path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *HTTPClient) MarkRead(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/api/v1/chat/sessions/%s/read", url.PathEscape(sessionID))
	return c.do(ctx, http.MethodPost, path, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	if token := c.tokens(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	lg := log.Ctx(ctx)
	lg.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api request")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s", method, path, msg)
	}

	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

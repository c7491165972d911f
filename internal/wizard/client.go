package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/saaskit/backend/internal/models"
	"github.com/saaskit/backend/internal/services"
)

// HTTPBackend talks to the setup endpoints of a running server.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend returns a backend for the API rooted at baseURL, e.g.
// "http://localhost:8080/api".
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) Status(ctx context.Context) (bool, error) {
	var resp struct {
		IsComplete bool `json:"isComplete"`
	}
	if err := b.do(ctx, http.MethodGet, "/setup/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.IsComplete, nil
}

func (b *HTTPBackend) TestDatabase(ctx context.Context, databaseURL string) error {
	return b.do(ctx, http.MethodPost, "/setup/test-db", map[string]string{"databaseUrl": databaseURL}, nil)
}

func (b *HTTPBackend) Configure(ctx context.Context, cfg models.SetupConfiguration) error {
	return b.do(ctx, http.MethodPost, "/setup/configure", cfg, nil)
}

func (b *HTTPBackend) InitDatabase(ctx context.Context) error {
	return b.do(ctx, http.MethodPost, "/setup/init-db", nil, nil)
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", models.ErrExternalService, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", models.ErrExternalService, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var envelope services.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil || envelope.Error == "" {
		envelope.Error = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusConflict || envelope.Code == "setup_already_complete" {
		return models.ErrSetupAlreadyComplete
	}

	msg := envelope.Error
	for field, detail := range envelope.Details {
		msg += fmt.Sprintf("; %s: %s", field, detail)
	}
	return fmt.Errorf("%w: %s (status %d)", models.ErrExternalService, msg, resp.StatusCode)
}

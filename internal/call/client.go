package call

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"mentor-meet-api/internal/auth"
)

const serverTokenTTL = time.Hour

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("call provider returned %d: %s", e.Code, e.Body)
}

type ClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	CallType  string
}

// Client talks to the call provider's REST API.
type Client struct {
	http   *http.Client
	logger *slog.Logger
	cfg    ClientConfig
}

func NewClient(hc *http.Client, logger *slog.Logger, cfg ClientConfig) *Client {
	if cfg.CallType == "" {
		cfg.CallType = "default"
	}
	return &Client{http: hc, logger: logger, cfg: cfg}
}

type callRequest struct {
	Data callData `json:"data"`
}

type callData struct {
	StartsAt string   `json:"starts_at"`
	Custom   Metadata `json:"custom"`
}

type callResponse struct {
	Call struct {
		ID       string    `json:"id"`
		StartsAt time.Time `json:"starts_at"`
		Custom   Metadata  `json:"custom"`
	} `json:"call"`
	Created bool `json:"created"`
}

// Provision issues the provider's get-or-create request for id.
func (c *Client) Provision(ctx context.Context, id string, startsAt time.Time, meta Metadata) (*Handle, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath("video", "call", c.cfg.CallType, id)
	q := u.Query()
	q.Set("api_key", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	body, err := json.Marshal(callRequest{Data: callData{
		StartsAt: startsAt.UTC().Format(time.RFC3339),
		Custom:   meta,
	}})
	if err != nil {
		return nil, fmt.Errorf("encode call request: %w", err)
	}

	tok, err := auth.MakeServerToken(c.cfg.APISecret, serverTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign server token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tok)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("call provider request failed",
			slog.String("call_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read call response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("call provider returned error status",
			slog.String("call_id", id),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	var out callResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode call response: %w", err)
	}
	if out.Call.ID != "" && out.Call.ID != id {
		return nil, fmt.Errorf("call provider returned call %q for %q", out.Call.ID, id)
	}

	h := &Handle{
		ID:       id,
		StartsAt: out.Call.StartsAt,
		Metadata: out.Call.Custom,
		Created:  out.Created,
	}
	if h.StartsAt.IsZero() {
		h.StartsAt = startsAt
	}
	return h, nil
}

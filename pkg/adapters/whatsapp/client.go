// Package whatsapp adapts the WhatsApp Cloud API: it parses inbound webhooks,
// renders responses into provider payloads and downloads voice notes.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/cenkalti/backoff/v4"
)

// DefaultBaseURL is the Graph API root, version included.
const DefaultBaseURL = "https://graph.facebook.com/v21.0"

const maxMediaSize = 16 << 20

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp: status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Config holds the Cloud API credentials.
type Config struct {
	PhoneNumberID string
	AccessToken   string
	BaseURL       string
}

// Client talks to the Cloud API. It implements ports.Gateway and ports.MediaFetcher.
type Client struct {
	phoneID    string
	token      string
	baseURL    string
	http       *http.Client
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBackOff sets the retry policy for outbound calls.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = fn
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client. Sends are retried on 429, 5xx and network errors,
// starting at 500ms and doubling, at most three times.
func New(cfg Config, opts ...Option) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	c := &Client{
		phoneID: cfg.PhoneNumberID,
		token:   cfg.AccessToken,
		baseURL: strings.TrimSuffix(base, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.Multiplier = 2
			b.RandomizationFactor = 0
			return backoff.WithMaxRetries(b, 3)
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send delivers a response, as one or more provider messages.
func (c *Client) Send(ctx context.Context, to string, resp domain.Response) error {
	for _, msg := range compose(to, resp) {
		if err := c.post(ctx, msg); err != nil {
			return fmt.Errorf("failed to send %s message: %w", msg.Type, err)
		}
	}
	return nil
}

// MarkRead acknowledges an inbound message so the customer sees blue ticks.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	return c.post(ctx, markRead{MessagingProduct: "whatsapp", Status: "read", MessageID: messageID})
}

func (c *Client) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		_, err = c.do(req)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return backoff.Permanent(err)
		}
		if err != nil {
			c.logger.Warn("WhatsApp request failed, retrying", "err", err)
		}
		return err
	}, backoff.WithContext(c.newBackOff(), ctx))
}

// FetchMedia resolves a media handle and downloads its content.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID), nil)
	if err != nil {
		return nil, "", err
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve media %s: %w", mediaID, err)
	}
	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil || meta.URL == "" {
		return nil, "", fmt.Errorf("media %s has no download url", mediaID)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download media %s: %w", mediaID, err)
	}
	return data, meta.MimeType, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxMediaSize))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

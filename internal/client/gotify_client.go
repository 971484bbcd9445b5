package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"notify-relay/internal/util"
)

const (
	gotifyKeyHeader  = "X-Gotify-Key"
	maxErrorBodySize = 512
	defaultTimeout   = 10 * time.Second
)

// ErrConfiguration matches any *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("gotify destination not configured")

// ConfigurationError means the destination URL or token is empty.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("gotify %s is not configured", e.Field)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DeliveryError is a non-2xx answer from Gotify. Body holds at most the
// first 512 bytes of the response.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("gotify returned HTTP %d: %s", e.StatusCode, e.Body)
}

// TransportError is a network-level failure or an unreadable response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "gotify transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Destination is a Gotify server plus the application token messages are
// posted with.
type Destination struct {
	URL   string
	Token string
}

type displayExtras struct {
	ContentType string `json:"contentType"`
}

type messageRequest struct {
	Title    string                   `json:"title"`
	Message  string                   `json:"message"`
	Priority int                      `json:"priority"`
	Extras   map[string]displayExtras `json:"extras"`
}

type messageResponse struct {
	ID json.Number `json:"id"`
}

// GotifyClient posts messages to Gotify. It is safe for concurrent use and
// never retries.
type GotifyClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*GotifyClient)

// WithTimeout bounds every call, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(c *GotifyClient) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying client, keeping nothing of the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GotifyClient) {
		c.httpClient = hc
	}
}

func NewGotifyClient(logger *zap.Logger, opts ...Option) *GotifyClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &GotifyClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage creates one markdown message and returns the id Gotify assigned.
func (c *GotifyClient) SendMessage(ctx context.Context, dest Destination, title, message string, priority int) (string, error) {
	if strings.TrimSpace(dest.URL) == "" {
		return "", &ConfigurationError{Field: "url"}
	}
	if strings.TrimSpace(dest.Token) == "" {
		return "", &ConfigurationError{Field: "token"}
	}

	payload, err := json.Marshal(messageRequest{
		Title:    title,
		Message:  message,
		Priority: priority,
		Extras: map[string]displayExtras{
			"client::display": {ContentType: "text/markdown"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode gotify message: %w", err)
	}

	endpoint := strings.TrimRight(dest.URL, "/") + "/message"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(gotifyKeyHeader, dest.Token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &DeliveryError{StatusCode: resp.StatusCode, Body: truncate(body)}
	}

	var out messageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.Debug("Gotify message created",
		util.String("id", out.ID.String()),
		util.Int("priority", priority),
		util.Duration("duration", time.Since(start)),
	)
	return out.ID.String(), nil
}

// HealthCheck calls Gotify's unauthenticated /health endpoint.
func (c *GotifyClient) HealthCheck(ctx context.Context, baseURL string) error {
	if strings.TrimSpace(baseURL) == "" {
		return &ConfigurationError{Field: "url"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return &TransportError{Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if resp.StatusCode != http.StatusOK {
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBodySize {
		body = body[:maxErrorBodySize]
	}
	return strings.TrimSpace(string(body))
}

// Close drops idle keep-alive connections to Gotify.
func (c *GotifyClient) Close() {
	c.httpClient.CloseIdleConnections()
}

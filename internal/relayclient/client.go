package relayclient

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

	"github.com/google/uuid"

	"chat-relay/internal/domain"
)

const (
	DefaultBaseURL = "http://localhost:3001/api"
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20

	msgServerError   = "server error occurred"
	msgUnreachable   = "cannot reach the server, check your network connection"
	msgPrepareFailed = "failed to prepare the request"
)

// Error is a failure whose message is meant to be shown to the user.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client. A client without a Timeout gets
// DefaultTimeout; the caller's client is copied, not modified.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c == nil {
			return
		}
		hc := *c
		if hc.Timeout == 0 {
			hc.Timeout = DefaultTimeout
		}
		cl.httpClient = &hc
	}
}

// New builds a client for the relay rooted at baseURL (DefaultBaseURL when
// empty).
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatRequest struct {
	Messages []domain.Turn `json:"messages"`
}

type chatResponse struct {
	Message *domain.Turn `json:"message"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Send posts the turns to {base}/chat and returns the assistant turn.
func (c *Client) Send(ctx context.Context, turns []domain.Turn) (domain.Turn, error) {
	payload, err := json.Marshal(chatRequest{Messages: turns})
	if err != nil {
		return domain.Turn{}, &Error{Message: msgPrepareFailed, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return domain.Turn{}, &Error{Message: msgPrepareFailed, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Turn{}, &Error{Message: msgUnreachable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Turn{}, &Error{StatusCode: resp.StatusCode, Message: msgUnreachable, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := msgServerError
		var envelope errorResponse
		if json.Unmarshal(body, &envelope) == nil && strings.TrimSpace(envelope.Error.Message) != "" {
			msg = envelope.Error.Message
		}
		return domain.Turn{}, &Error{
			StatusCode: resp.StatusCode,
			Message:    msg,
			Err:        fmt.Errorf("relayclient: status %d", resp.StatusCode),
		}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.Turn{}, &Error{StatusCode: resp.StatusCode, Message: msgServerError, Err: fmt.Errorf("relayclient: decode response: %w", err)}
	}
	if out.Message == nil {
		return domain.Turn{}, &Error{StatusCode: resp.StatusCode, Message: msgServerError, Err: errors.New("relayclient: response has no message")}
	}
	return *out.Message, nil
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chat-relay/internal/domain"
)

// KeySource supplies the API key for each request.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a key taken verbatim from configuration. An empty key reports
// domain.ErrUpstreamUnavailable on use rather than at construction, so the
// relay can start and answer health checks without a credential.
type StaticKey string

func (k StaticKey) APIKey(_ context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", fmt.Errorf("openai: API key is not set: %w", domain.ErrUpstreamUnavailable)
	}
	return key, nil
}

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParamStoreKey reads the key from a parameter store on first use. A
// successful read is reused for the lifetime of the process; a failed one is
// retried on the next request.
type ParamStoreKey struct {
	getter Getter
	name   string

	mu     sync.Mutex
	apiKey string
}

// NewParamStoreKey builds a key source reading "<paramPrefix>/open-ai-token".
func NewParamStoreKey(getter Getter, paramPrefix string) (*ParamStoreKey, error) {
	if getter == nil {
		return nil, errors.New("openai: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}
	return &ParamStoreKey{getter: getter, name: paramPrefix + "/open-ai-token"}, nil
}

func (p *ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.apiKey != "" {
		return p.apiKey, nil
	}
	key, err := fetchAPIKeyFromParamStore(ctx, p.getter, p.name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	p.apiKey = key
	return key, nil
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openai: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("openai: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openai: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openai: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("openai: API token is empty")
	}
	return tp.Token, nil
}

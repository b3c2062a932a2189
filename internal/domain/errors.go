package domain

import "errors"

// Provider-agnostic upstream failures. LLM integrations wrap these so the
// relay can classify a failure without knowing the provider.
var (
	// ErrUpstreamUnavailable means no usable credential is configured.
	ErrUpstreamUnavailable = errors.New("upstream credential not configured")
	// ErrUpstreamMalformed means the provider answered 2xx without usable content.
	ErrUpstreamMalformed = errors.New("upstream response malformed")
	// ErrUpstreamUnreachable means no response was received at all.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
)

package usecase

import "fmt"

// ErrorCode is the stable error taxonomy exposed to API callers.
type ErrorCode string

const (
	ErrorInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrorInvalidMessageFormat ErrorCode = "INVALID_MESSAGE_FORMAT"
	ErrorInvalidRole          ErrorCode = "INVALID_ROLE"
	ErrorInvalidAPIKey        ErrorCode = "INVALID_API_KEY"
	ErrorRateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrorOpenAIAPI            ErrorCode = "OPENAI_API_ERROR"
	ErrorInternal             ErrorCode = "INTERNAL_SERVER_ERROR"
)

// Reasons identify which upstream condition produced an error. Several
// reasons can share one ErrorCode.
const (
	ReasonUpstreamUnavailable   = "upstream_unavailable"
	ReasonUpstreamAuth          = "upstream_auth_error"
	ReasonUpstreamRateLimited   = "upstream_rate_limited"
	ReasonUpstreamServerError   = "upstream_server_error"
	ReasonUpstreamProtocolError = "upstream_protocol_error"
	ReasonUpstreamUnreachable   = "upstream_unreachable"
	ReasonInternal              = "internal_error"
)

// Error carries an explicit taxonomy member. Message is safe to show to end
// users; Err holds the underlying cause for logs.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("usecase: %s (%s): %s: %v", e.Code, e.Reason, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}

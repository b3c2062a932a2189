package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"chat-relay/internal/domain"
)

const (
	defaultModel       = "gpt-3.5-turbo"
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

type LLMClient interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type upstreamMessager interface {
	UpstreamMessage() string
}

// ModelParams are the fixed parameters sent with every completion call.
type ModelParams struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// DefaultModelParams mirrors the relay's built-in configuration.
func DefaultModelParams() ModelParams {
	return ModelParams{
		Model:        defaultModel,
		Temperature:  defaultTemperature,
		MaxTokens:    defaultMaxTokens,
		SystemPrompt: DefaultSystemPrompt,
	}
}

type upstreamFailure struct {
	code    ErrorCode
	reason  string
	message string
}

// upstreamStatusFailures is the fixed mapping from upstream HTTP status to
// taxonomy member. Statuses not listed are protocol errors.
var upstreamStatusFailures = map[int]upstreamFailure{
	http.StatusUnauthorized: {
		code:    ErrorInvalidAPIKey,
		reason:  ReasonUpstreamAuth,
		message: "OpenAI API key is invalid",
	},
	http.StatusTooManyRequests: {
		code:    ErrorRateLimitExceeded,
		reason:  ReasonUpstreamRateLimited,
		message: "API request limit reached, please wait a moment and try again",
	},
	http.StatusInternalServerError: {
		code:    ErrorOpenAIAPI,
		reason:  ReasonUpstreamServerError,
		message: "an error occurred on the OpenAI server",
	},
}

type ChatService struct {
	llm    LLMClient
	params ModelParams
	tracer trace.Tracer
	log    zerolog.Logger
}

type ChatOption func(*ChatService)

func WithTracer(tracer trace.Tracer) ChatOption {
	return func(s *ChatService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func WithLogger(log zerolog.Logger) ChatOption {
	return func(s *ChatService) {
		s.log = log
	}
}

type ChatInput struct {
	Turns []domain.Turn
}

type ChatOutput struct {
	Message domain.Turn
}

func NewChatService(llm LLMClient, params ModelParams, opts ...ChatOption) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if strings.TrimSpace(params.Model) == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if params.MaxTokens <= 0 {
		return nil, errors.New("usecase: max tokens must be positive")
	}
	if strings.TrimSpace(params.SystemPrompt) == "" {
		params.SystemPrompt = DefaultSystemPrompt
	}
	s := &ChatService{
		llm:    llm,
		params: params,
		tracer: noop.NewTracerProvider().Tracer("chat-relay/usecase"),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Chat relays the caller's turns to the upstream provider and returns its
// reply as a single assistant turn.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (out ChatOutput, err error) {
	ctx, span := s.tracer.Start(ctx, "relay.chat", trace.WithAttributes(
		attribute.Int("chat.turns", len(in.Turns)),
		attribute.String("llm.model", s.params.Model),
	))
	defer func() {
		var uerr *Error
		if errors.As(err, &uerr) {
			span.SetAttributes(
				attribute.String("error.code", string(uerr.Code)),
				attribute.String("error.reason", uerr.Reason),
			)
			span.SetStatus(codes.Error, uerr.Message)
		}
		span.End()
	}()

	if err := ValidateTurns(in.Turns); err != nil {
		return ChatOutput{}, err
	}

	text, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Model:       s.params.Model,
		Temperature: s.params.Temperature,
		MaxTokens:   s.params.MaxTokens,
		Messages:    buildPromptMessages(s.params.SystemPrompt, in.Turns),
	})
	if err != nil {
		uerr := classifyUpstream(err)
		s.log.Warn().
			Err(err).
			Str("code", string(uerr.Code)).
			Str("reason", uerr.Reason).
			Msg("upstream completion failed")
		return ChatOutput{}, uerr
	}
	if strings.TrimSpace(text) == "" {
		return ChatOutput{}, newError(ErrorOpenAIAPI, ReasonUpstreamProtocolError, "no valid response was received from the OpenAI API", nil)
	}

	return ChatOutput{
		Message: domain.Turn{Role: domain.RoleAssistant, Content: text},
	}, nil
}

// classifyUpstream maps a completion failure to exactly one taxonomy member.
func classifyUpstream(err error) *Error {
	var statusErr httpStatusCoder
	switch {
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return newError(ErrorInvalidAPIKey, ReasonUpstreamUnavailable, "OpenAI API key is not configured", err)
	case errors.As(err, &statusErr):
		if f, ok := upstreamStatusFailures[statusErr.HTTPStatusCode()]; ok {
			return newError(f.code, f.reason, f.message, err)
		}
		return newError(ErrorOpenAIAPI, ReasonUpstreamProtocolError, upstreamErrorMessage(err), err)
	case errors.Is(err, domain.ErrUpstreamMalformed):
		return newError(ErrorOpenAIAPI, ReasonUpstreamProtocolError, "no valid response was received from the OpenAI API", err)
	case errors.Is(err, domain.ErrUpstreamUnreachable):
		return newError(ErrorOpenAIAPI, ReasonUpstreamUnreachable, "could not reach the OpenAI API", err)
	default:
		return newError(ErrorInternal, ReasonInternal, "an error occurred while processing the chat", err)
	}
}

func upstreamErrorMessage(err error) string {
	var m upstreamMessager
	if errors.As(err, &m) && m.UpstreamMessage() != "" {
		return fmt.Sprintf("OpenAI API error: %s", m.UpstreamMessage())
	}
	return "OpenAI API error occurred"
}

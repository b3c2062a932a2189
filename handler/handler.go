package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chat-relay/internal/domain"
	"chat-relay/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 1 << 20
	defaultVersion    = "1.0.0"

	errorNotFound         = "NOT_FOUND"
	errorMethodNotAllowed = "METHOD_NOT_ALLOWED"
	msgInternal           = "a server error occurred"
	msgNotFound           = "route not found"
	msgMethodNotAllowed   = "method not allowed"
	msgInvalidPayload     = "request body must be a JSON object"
)

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type Handler struct {
	chat    ChatUseCase
	log     zerolog.Logger
	version string
}

type Option func(*Handler)

func WithLogger(log zerolog.Logger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

func WithVersion(version string) Option {
	return func(h *Handler) {
		if strings.TrimSpace(version) != "" {
			h.version = version
		}
	}
}

func NewHandler(chat ChatUseCase, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	h := &Handler{
		chat:    chat,
		log:     zerolog.Nop(),
		version: defaultVersion,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type chatResponse struct {
	Message domain.Turn `json:"message"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type rootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// request is the transport-neutral view of an inbound call shared by the
// net/http and Lambda adapters.
type request struct {
	method        string
	path          string
	body          []byte
	correlationID string
}

type response struct {
	status  int
	body    any
	headers map[string]string
}

// routeMethods lists the methods each known path accepts.
var routeMethods = map[string][]string{
	"/api/chat":   {http.MethodPost},
	"/api/health": {http.MethodGet},
	"":            {http.MethodGet},
}

// statusByCode is the fixed mapping from taxonomy member to HTTP status.
var statusByCode = map[usecase.ErrorCode]int{
	usecase.ErrorInvalidRequest:       http.StatusBadRequest,
	usecase.ErrorInvalidMessageFormat: http.StatusBadRequest,
	usecase.ErrorInvalidRole:          http.StatusBadRequest,
	usecase.ErrorInvalidAPIKey:        http.StatusInternalServerError,
	usecase.ErrorRateLimitExceeded:    http.StatusTooManyRequests,
	usecase.ErrorOpenAIAPI:            http.StatusBadGateway,
	usecase.ErrorInternal:             http.StatusInternalServerError,
}

func (h *Handler) route(ctx context.Context, req request) response {
	path := strings.TrimRight(req.path, "/")
	switch {
	case req.method == http.MethodPost && path == "/api/chat":
		return h.handleChat(ctx, req)
	case req.method == http.MethodGet && path == "/api/health":
		return response{status: http.StatusOK, body: healthResponse{Status: "ok"}}
	case req.method == http.MethodGet && path == "":
		return response{status: http.StatusOK, body: rootResponse{
			Message: "AI Chat Backend API",
			Version: h.version,
			Endpoints: map[string]string{
				"health": "GET /api/health",
				"chat":   "POST /api/chat",
			},
		}}
	default:
		if methods, ok := routeMethods[path]; ok {
			return response{
				status:  http.StatusMethodNotAllowed,
				body:    errorResponse{Error: errorBody{Message: msgMethodNotAllowed, Code: errorMethodNotAllowed}},
				headers: map[string]string{"Allow": strings.Join(methods, ", ")},
			}
		}
		return response{status: http.StatusNotFound, body: errorResponse{Error: errorBody{Message: msgNotFound, Code: errorNotFound}}}
	}
}

func (h *Handler) handleChat(ctx context.Context, req request) response {
	// Decoded as a map so that only the exact "messages" key counts.
	var fields map[string]json.RawMessage
	if body := bytes.TrimSpace(req.body); len(body) > 0 {
		if err := json.Unmarshal(body, &fields); err != nil {
			h.log.Warn().
				Err(err).
				Str("correlation_id", req.correlationID).
				Msg("invalid request body")
			return response{status: http.StatusBadRequest, body: errorResponse{Error: errorBody{
				Message: msgInvalidPayload,
				Code:    string(usecase.ErrorInvalidRequest),
			}}}
		}
	}

	turns, err := usecase.ParseTurns(fields["messages"])
	if err != nil {
		return h.errorResponse(req, err)
	}

	out, err := h.chat.Chat(ctx, usecase.ChatInput{Turns: turns})
	if err != nil {
		return h.errorResponse(req, err)
	}
	return response{status: http.StatusOK, body: chatResponse{Message: out.Message}}
}

// errorResponse classifies err by its taxonomy member and builds the envelope.
func (h *Handler) errorResponse(req request, err error) response {
	status := http.StatusInternalServerError
	body := errorBody{Message: msgInternal, Code: string(usecase.ErrorInternal)}
	reason := ""

	var usecaseErr *usecase.Error
	if errors.As(err, &usecaseErr) {
		if s, ok := statusByCode[usecaseErr.Code]; ok {
			status = s
			body.Code = string(usecaseErr.Code)
			if usecaseErr.Message != "" {
				body.Message = usecaseErr.Message
			}
		}
		reason = usecaseErr.Reason
	}

	event := h.log.Error()
	if status < http.StatusInternalServerError {
		event = h.log.Warn()
	}
	event.
		Err(err).
		Str("method", req.method).
		Str("path", req.path).
		Str("correlation_id", req.correlationID).
		Str("code", body.Code).
		Str("reason", reason).
		Int("status", status).
		Msg("request failed")

	return response{status: status, body: errorResponse{Error: body}}
}

func encodeBody(v any) (int, []byte) {
	buf, err := json.Marshal(v)
	if err != nil {
		buf, _ = json.Marshal(errorResponse{Error: errorBody{Message: msgInternal, Code: string(usecase.ErrorInternal)}})
		return http.StatusInternalServerError, buf
	}
	return 0, buf
}

func correlationID(provided string) string {
	if id := strings.TrimSpace(provided); id != "" {
		return id
	}
	return uuid.NewString()
}

// ServeHTTP adapts the handler to net/http.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := request{
		method:        r.Method,
		path:          r.URL.Path,
		correlationID: correlationID(r.Header.Get(correlationHeader)),
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var resp response
	if err != nil {
		h.log.Warn().Err(err).Str("correlation_id", req.correlationID).Msg("read request body")
		resp = response{status: http.StatusBadRequest, body: errorResponse{Error: errorBody{
			Message: msgInvalidPayload,
			Code:    string(usecase.ErrorInvalidRequest),
		}}}
	} else {
		req.body = body
		resp = h.route(r.Context(), req)
	}

	status, buf := encodeBody(resp.body)
	if status == 0 {
		status = resp.status
	}
	for k, v := range resp.headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(correlationHeader, req.correlationID)
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// Handle adapts the handler to an API Gateway proxy integration.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req := request{
		method:        event.HTTPMethod,
		path:          event.Path,
		correlationID: correlationID(headerValue(event.Headers, correlationHeader)),
	}

	var resp response
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			h.log.Warn().Err(err).Str("correlation_id", req.correlationID).Msg("decode base64 body")
			resp = response{status: http.StatusBadRequest, body: errorResponse{Error: errorBody{
				Message: msgInvalidPayload,
				Code:    string(usecase.ErrorInvalidRequest),
			}}}
		} else {
			req.body = decoded
			resp = h.route(ctx, req)
		}
	} else {
		req.body = []byte(event.Body)
		resp = h.route(ctx, req)
	}

	status, buf := encodeBody(resp.body)
	if status == 0 {
		status = resp.status
	}
	headers := map[string]string{}
	for k, v := range resp.headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	headers[correlationHeader] = req.correlationID
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(buf),
	}, nil
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

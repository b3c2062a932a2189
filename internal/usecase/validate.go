package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"

	"chat-relay/internal/domain"
)

const (
	msgMissingMessages = "messages are not specified"
	msgInvalidFormat   = "message format is invalid"
	msgInvalidRole     = `message role must be "user" or "assistant"`
)

// turnField reads the exact key name from an element. encoding/json matches
// struct tags case-insensitively, so elements are decoded as maps instead.
func turnField(fields map[string]json.RawMessage, key string) (string, bool, error) {
	raw, ok := fields[key]
	if !ok {
		return "", false, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", true, err
	}
	return v, true, nil
}

// ParseTurns validates the raw value of a request's "messages" field and
// returns the caller's turns with role and content only.
func ParseTurns(raw json.RawMessage) ([]domain.Turn, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, newError(ErrorInvalidRequest, "missing_messages", msgMissingMessages, nil)
	}
	if trimmed[0] != '[' {
		return nil, newError(ErrorInvalidRequest, "messages_not_array", msgMissingMessages, nil)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, newError(ErrorInvalidRequest, "messages_not_array", msgMissingMessages, fmt.Errorf("usecase: decode messages: %w", err))
	}
	if len(elems) == 0 {
		return nil, newError(ErrorInvalidRequest, "empty_messages", msgMissingMessages, nil)
	}

	turns := make([]domain.Turn, 0, len(elems))
	for i, elem := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil {
			return nil, newError(ErrorInvalidMessageFormat, "malformed_turn", msgInvalidFormat, fmt.Errorf("usecase: decode turn %d: %w", i, err))
		}
		role, hasRole, err := turnField(fields, "role")
		if err != nil {
			return nil, newError(ErrorInvalidMessageFormat, "malformed_turn", msgInvalidFormat, fmt.Errorf("usecase: decode turn %d role: %w", i, err))
		}
		content, hasContent, err := turnField(fields, "content")
		if err != nil {
			return nil, newError(ErrorInvalidMessageFormat, "malformed_turn", msgInvalidFormat, fmt.Errorf("usecase: decode turn %d content: %w", i, err))
		}
		if !hasRole || !hasContent {
			return nil, newError(ErrorInvalidMessageFormat, "missing_role_or_content", msgInvalidFormat, nil)
		}
		t := domain.Turn{Role: domain.Role(role), Content: content}
		if err := validateTurn(t); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// ValidateTurns applies the turn rules to an already typed list.
func ValidateTurns(turns []domain.Turn) error {
	if len(turns) == 0 {
		return newError(ErrorInvalidRequest, "empty_messages", msgMissingMessages, nil)
	}
	for _, t := range turns {
		if err := validateTurn(t); err != nil {
			return err
		}
	}
	return nil
}

func validateTurn(t domain.Turn) error {
	if t.Role == "" || t.Content == "" {
		return newError(ErrorInvalidMessageFormat, "missing_role_or_content", msgInvalidFormat, nil)
	}
	if !t.Role.IsClientRole() {
		return newError(ErrorInvalidRole, "unknown_role", msgInvalidRole, nil)
	}
	return nil
}

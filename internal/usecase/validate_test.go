package usecase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/internal/domain"
)

func expectCode(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.NotEmpty(t, usecaseErr.Message)
	return usecaseErr
}

func TestParseTurns_Valid(t *testing.T) {
	turns, err := ParseTurns(json.RawMessage(`[
		{"role":"user","content":"Hi","id":"abc","timestamp":"2024-01-01T00:00:00Z"},
		{"role":"assistant","content":"Hello!"},
		{"role":"user","content":" "}
	]`))
	require.NoError(t, err)
	require.Equal(t, []domain.Turn{
		{Role: domain.RoleUser, Content: "Hi"},
		{Role: domain.RoleAssistant, Content: "Hello!"},
		{Role: domain.RoleUser, Content: " "},
	}, turns)
}

func TestParseTurns_InvalidRequest(t *testing.T) {
	for _, raw := range []string{``, `null`, ` null `, `[]`, `{}`, `"hi"`, `42`, `true`} {
		_, err := ParseTurns(json.RawMessage(raw))
		expectCode(t, err, ErrorInvalidRequest)
	}
}

func TestParseTurns_InvalidMessageFormat(t *testing.T) {
	cases := []string{
		`[{"content":"Hi"}]`,
		`[{"role":"user"}]`,
		`[{"role":"","content":"Hi"}]`,
		`[{"role":"user","content":""}]`,
		`[{"role":null,"content":"Hi"}]`,
		`[{"role":"user","content":null}]`,
		`[{"role":"user","content":42}]`,
		`[{"role":7,"content":"Hi"}]`,
		`["just text"]`,
		`[null]`,
		`[{"role":"user","content":"ok"},{"role":"assistant"}]`,
		`[{"ROLE":"user","Content":"Hi"}]`,
		`[{"Role":"user","content":"Hi"}]`,
		`[{"role":"user","CONTENT":"Hi"}]`,
		`[{"role":["user"],"content":"Hi"}]`,
	}
	for _, raw := range cases {
		_, err := ParseTurns(json.RawMessage(raw))
		expectCode(t, err, ErrorInvalidMessageFormat)
	}
}

func TestParseTurns_InvalidRole(t *testing.T) {
	for _, role := range []string{"system", "tool", "USER", "bot"} {
		raw := `[{"role":"user","content":"ok"},{"role":"` + role + `","content":"Hi"}]`
		_, err := ParseTurns(json.RawMessage(raw))
		expectCode(t, err, ErrorInvalidRole)
	}
}

func TestParseTurns_FirstFailingTurnDecides(t *testing.T) {
	_, err := ParseTurns(json.RawMessage(`[{"role":"system","content":"x"},{"role":"user"}]`))
	expectCode(t, err, ErrorInvalidRole)

	_, err = ParseTurns(json.RawMessage(`[{"role":"user"},{"role":"system","content":"x"}]`))
	expectCode(t, err, ErrorInvalidMessageFormat)
}

func TestValidateTurns(t *testing.T) {
	expectCode(t, ValidateTurns(nil), ErrorInvalidRequest)
	expectCode(t, ValidateTurns([]domain.Turn{{Role: domain.RoleUser}}), ErrorInvalidMessageFormat)
	expectCode(t, ValidateTurns([]domain.Turn{{Role: domain.RoleSystem, Content: "x"}}), ErrorInvalidRole)
	require.NoError(t, ValidateTurns([]domain.Turn{{Role: domain.RoleUser, Content: "x"}}))
}

func TestParseTurns_KeysMatchExactly(t *testing.T) {
	turns, err := ParseTurns(json.RawMessage(`[{"role":"user","Role":"system","content":"Hi","Content":"ignored"}]`))
	require.NoError(t, err)
	require.Equal(t, []domain.Turn{{Role: domain.RoleUser, Content: "Hi"}}, turns)

	_, err = ParseTurns(json.RawMessage(`[{"role":"user","role":"system","content":"Hi"}]`))
	expectCode(t, err, ErrorInvalidRole)
}

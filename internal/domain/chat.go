package domain

// Role tags the author of a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. It is the wire shape shared by the
// relay API, the upstream provider and the client.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IsClientRole reports whether r may appear in a caller-submitted turn list.
// System turns are reserved for the relay's injected instruction.
func (r Role) IsClientRole() bool {
	return r == RoleUser || r == RoleAssistant
}

// CompletionRequest is one call to an upstream completion provider. Messages
// already carry the system instruction as their first element.
type CompletionRequest struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []Turn
}

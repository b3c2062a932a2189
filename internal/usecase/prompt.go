package usecase

import (
	"strings"

	"chat-relay/internal/domain"
)

// DefaultSystemPrompt is the instruction prepended to every conversation when
// configuration does not override it.
var DefaultSystemPrompt = strings.Join([]string{
	"You are an AI assistant specialised in programming education.",
	"You mainly support students learning JavaScript, HTML and CSS.",
	"",
	"Follow these principles:",
	behaviorRules(),
	"",
	"When answering:",
	outputContract(),
}, "\n")

func behaviorRules() string {
	return strings.Join([]string{
		"1) Explain step by step so that beginners can follow.",
		"2) Give concrete code examples that actually run.",
		"3) Teach best practices, but prioritise code that works first.",
		"4) Explain the cause of an error and how to fix it clearly.",
		"5) Recommend trustworthy resources such as MDN or W3C where appropriate.",
		"6) Include helpful comments in code.",
	}, "\n")
}

func outputContract() string {
	return strings.Join([]string{
		"- Wrap code blocks in ``` followed by the language name.",
		"- Emphasise important concepts with markdown **bold**.",
		"- Organise information as lists.",
	}, "\n")
}

// buildPromptMessages prepends the system instruction to the caller's turns.
// Only role and content are copied.
func buildPromptMessages(systemPrompt string, turns []domain.Turn) []domain.Turn {
	messages := make([]domain.Turn, 0, len(turns)+1)
	messages = append(messages, domain.Turn{Role: domain.RoleSystem, Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, domain.Turn{Role: t.Role, Content: t.Content})
	}
	return messages
}

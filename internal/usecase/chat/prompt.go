package chat

import (
	"strings"

	"github.com/paperchat/paperchat/internal/domain"
)

// NoKnowledgeMarker is inserted when retrieval yields nothing, so the model
// is explicitly told not to fabricate an answer.
const NoKnowledgeMarker = "No relevant knowledge found."

// GreetingResponse is the canned reply for greeting messages.
const GreetingResponse = "Hey! I'm ChatBot, here to assist you. How can I help today?"

// greetings are matched against the normalized message before any retrieval
// or generation happens.
var greetings = map[string]struct{}{
	"hello":     {},
	"hi":        {},
	"hey":       {},
	"welcome":   {},
	"greetings": {},
	"howdy":     {},
	"hiya":      {},
}

// IsGreeting reports whether the message is a bare greeting. Matching is
// case-insensitive and ignores surrounding punctuation.
func IsGreeting(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, "!.?, ")
	_, ok := greetings[normalized]
	return ok
}

// BuildPrompt composes the grounding prompt from the user message, the
// conversation history, and the retrieved passages. Pure function, no I/O.
func BuildPrompt(message string, history []domain.Turn, passages []domain.Passage) string {
	knowledge := NoKnowledgeMarker
	if len(passages) > 0 {
		parts := make([]string, len(passages))
		for i, p := range passages {
			parts[i] = p.Text
		}
		knowledge = strings.Join(parts, "\n\n")
	}

	transcript := "No prior history available."
	if len(history) > 0 {
		var sb strings.Builder
		for _, turn := range history {
			sb.WriteString(string(turn.Role))
			sb.WriteString(": ")
			sb.WriteString(turn.Text)
			sb.WriteString("\n")
		}
		transcript = strings.TrimRight(sb.String(), "\n")
	}

	var sb strings.Builder
	sb.WriteString("### Role & Purpose\n")
	sb.WriteString("You are an advanced AI assistant designed to provide accurate, concise, and context-aware responses.\n")
	sb.WriteString("Your answers must be derived strictly from the provided knowledge and must avoid speculation or assumptions.\n\n")
	sb.WriteString("### Context\n")
	sb.WriteString("- User Query: ")
	sb.WriteString(message)
	sb.WriteString("\n- Conversation History:\n")
	sb.WriteString(transcript)
	sb.WriteString("\n\n### Instructions\n")
	sb.WriteString("- Prioritize factual accuracy based only on the knowledge provided.\n")
	sb.WriteString("- Avoid using any external sources, assumptions, or personal opinions.\n")
	sb.WriteString("- Maintain a natural, informative, and engaging tone while being clear and concise.\n")
	sb.WriteString("- If the answer is not found within the provided knowledge, state that explicitly rather than guessing.\n\n")
	sb.WriteString("### Knowledge Base:\n")
	sb.WriteString(knowledge)
	sb.WriteString("\n\n### Response Format:\n")
	sb.WriteString("- If the answer is directly available, provide a clear and structured response.\n")
	sb.WriteString("- If the information is ambiguous or missing, acknowledge it and suggest possible clarifications.\n")
	sb.WriteString("- If relevant, provide summaries, step-by-step explanations, or examples for clarity.\n")
	return sb.String()
}

package domain

import "strings"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn written by the human.
	RoleUser Role = "user"
	// RoleAssistant marks a turn written by the model.
	RoleAssistant Role = "assistant"
)

// Turn is one prior message in the conversation. History is supplied by the
// caller on every request and is read-only for the service.
type Turn struct {
	Role Role
	Text string
}

// Provider enumerates the generation backends.
type Provider string

const (
	// ProviderGemini is the native Gemini backend.
	ProviderGemini Provider = "gemini"
	// ProviderDeepseek is the Deepseek model served through the gateway.
	ProviderDeepseek Provider = "deepseek"
	// ProviderOpenAI is the OpenAI model served through the gateway.
	ProviderOpenAI Provider = "openai"
)

// DefaultProvider is the compile-time fallback used when no default is
// configured.
const DefaultProvider = ProviderGemini

// ParseProvider resolves a caller-supplied model name case-insensitively.
// Unrecognized values return false; the dispatcher maps those to its
// configured default so a typo in the request degrades to the default
// backend instead of failing the chat.
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ProviderDeepseek):
		return ProviderDeepseek, true
	case string(ProviderOpenAI):
		return ProviderOpenAI, true
	case string(ProviderGemini):
		return ProviderGemini, true
	default:
		return "", false
	}
}

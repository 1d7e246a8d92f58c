package chat

import (
	"strings"
	"testing"

	"github.com/paperchat/paperchat/internal/domain"
)

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"hello", true},
		{"Hello", true},
		{"HEY!", true},
		{"  hi  ", true},
		{"howdy?", true},
		{"greetings,", true},
		{"hello there", false},
		{"what is attention?", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsGreeting(tt.message); got != tt.want {
			t.Errorf("IsGreeting(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestBuildPrompt_NoKnowledge(t *testing.T) {
	prompt := BuildPrompt("what is X?", nil, nil)

	if !strings.Contains(prompt, NoKnowledgeMarker) {
		t.Errorf("prompt without passages should contain %q", NoKnowledgeMarker)
	}
	if !strings.Contains(prompt, "No prior history available.") {
		t.Error("prompt without history should contain the no-history marker")
	}
	if !strings.Contains(prompt, "User Query: what is X?") {
		t.Error("prompt should embed the user query")
	}
}

func TestBuildPrompt_WithPassagesAndHistory(t *testing.T) {
	history := []domain.Turn{
		{Role: domain.RoleUser, Text: "hello"},
		{Role: domain.RoleAssistant, Text: "hi there"},
	}
	passages := []domain.Passage{
		{Text: "Transformers use attention.", Score: 0.9},
		{Text: "Attention weighs token relevance.", Score: 0.8},
	}

	prompt := BuildPrompt("what is attention?", history, passages)

	if strings.Contains(prompt, NoKnowledgeMarker) {
		t.Error("prompt with passages should not contain the no-knowledge marker")
	}
	if !strings.Contains(prompt, "Transformers use attention.\n\nAttention weighs token relevance.") {
		t.Error("passages should be joined with blank lines in order")
	}
	if !strings.Contains(prompt, "user: hello\nassistant: hi there") {
		t.Error("history turns should be role-labelled in order")
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	passages := []domain.Passage{{Text: "fact", Score: 0.5}}
	a := BuildPrompt("q", nil, passages)
	b := BuildPrompt("q", nil, passages)
	if a != b {
		t.Error("BuildPrompt should be deterministic for identical inputs")
	}
}

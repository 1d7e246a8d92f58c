package domain

import (
	"errors"
	"testing"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in     string
		want   Provider
		wantOK bool
	}{
		{"gemini", ProviderGemini, true},
		{"Gemini", ProviderGemini, true},
		{"DEEPSEEK", ProviderDeepseek, true},
		{"openai", ProviderOpenAI, true},
		{" openai ", ProviderOpenAI, true},
		{"", "", false},
		{"claude", "", false},
		{"gpt-4", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseProvider(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseProvider(%q) = (%s, %v), want (%s, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestGenerationError(t *testing.T) {
	inner := errors.New("quota exceeded")
	err := NewGenerationError(ProviderDeepseek, inner)

	if !errors.Is(err, ErrGenerationProviderError) {
		t.Error("GenerationError must unwrap to ErrGenerationProviderError")
	}
	if !errors.Is(err, inner) {
		t.Error("GenerationError must preserve the cause chain")
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatal("errors.As should match *GenerationError")
	}
	if genErr.Provider != ProviderDeepseek {
		t.Errorf("provider = %s, want deepseek", genErr.Provider)
	}
}

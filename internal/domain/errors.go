package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument signals an upload with no extractable text.
	ErrEmptyDocument = errors.New("document has no extractable text")
	// ErrStoreWrite signals a failed corpus mutation.
	ErrStoreWrite = errors.New("corpus write failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)

// GenerationError wraps ErrGenerationProviderError with the provider identity
// and the upstream message.
type GenerationError struct {
	Provider Provider
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrGenerationProviderError.Error(), e.Provider, e.Err.Error())
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGenerationProviderError, e.Err} }

// NewGenerationError creates a generation error for the given provider.
func NewGenerationError(provider Provider, err error) error {
	return &GenerationError{Provider: provider, Err: err}
}

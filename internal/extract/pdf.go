// Package extract turns uploaded files into plain text.
package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/paperchat/paperchat/internal/domain"
)

// PDFText reads every page of a PDF and joins the page contents. Returns
// domain.ErrEmptyDocument when the file holds no extractable text.
func PDFText(ctx context.Context, r io.ReaderAt, size int64) (string, error) {
	loader := documentloaders.NewPDF(r, size)
	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load pdf: %w", err)
	}

	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(doc.PageContent)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", domain.ErrEmptyDocument
	}
	return text, nil
}

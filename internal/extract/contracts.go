package extract

import (
	"context"
	"errors"
	"time"
)

// ErrDocumentParse is returned when a payload cannot be opened as a PDF.
var ErrDocumentParse = errors.New("document parse error")

// TextExtractor flattens a document payload into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdftotext"
	Duration time.Duration
	Warnings []string
}

package extract

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/certverify/internal/common"
)

// New returns the text extractor selected by cfg.Method ("pdf" or "pdftotext").
func New(cfg common.ExtractConfig, logger *slog.Logger) (TextExtractor, error) {
	switch cfg.Method {
	case "", "pdf":
		return NewPDFExtractor(logger), nil
	case "pdftotext":
		return NewPopplerExtractor(cfg.Pdftotext, logger), nil
	default:
		return nil, fmt.Errorf("unknown text extractor %q", cfg.Method)
	}
}

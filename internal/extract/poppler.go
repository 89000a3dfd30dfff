package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/certverify/constants"
)

// PopplerExtractor shells out to poppler's pdftotext.
type PopplerExtractor struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

func NewPopplerExtractor(bin string, logger *slog.Logger) *PopplerExtractor {
	return newPopplerExtractor(bin, newExecRunner(logger), logger)
}

func newPopplerExtractor(bin string, runner Runner, logger *slog.Logger) *PopplerExtractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PopplerExtractor{bin: bin, runner: runner, logger: logger}
}

// Extract writes data to a temp file and runs
// pdftotext -enc UTF-8 -eol unix <file> -
// Pages come back separated by form feeds, which are dropped.
func (e *PopplerExtractor) Extract(ctx context.Context, data []byte) (TextExtractionResult, error) {
	start := time.Now()
	res := TextExtractionResult{Method: constants.MethodPdftotext}

	tmpDir, err := os.MkdirTemp("", "certverify-*")
	if err != nil {
		return res, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	path := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return res, err
	}

	out, errb, err := e.runner.Run(ctx, e.bin, "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		res.Duration = time.Since(start)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// pdftotext exits 1 when the file cannot be opened
			return res, fmt.Errorf("%w: %s", ErrDocumentParse, strings.TrimSpace(string(errb)))
		}
		return res, err
	}

	pages := strings.Split(string(out), "\f")
	// a trailing form feed terminates the last page
	if len(pages) > 1 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	for i, p := range pages {
		if strings.TrimSpace(p) == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: no text", i+1))
		}
	}
	res.Pages = len(pages)
	res.Text = strings.Join(pages, "")
	res.Duration = time.Since(start)
	return res, nil
}

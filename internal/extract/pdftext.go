package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/certverify/constants"
)

// PDFExtractor reads the text layer of a PDF in process.
type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// Extract walks the pages in order and concatenates their text. A page that
// yields no text contributes nothing and is reported as a warning.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (res TextExtractionResult, err error) {
	start := time.Now()
	res.Method = constants.MethodPDFText
	defer func() { res.Duration = time.Since(start) }()

	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte(constants.PDFMagic)) {
		return res, fmt.Errorf("%w: missing %s header", ErrDocumentParse, constants.PDFMagic)
	}

	r, err := openPDF(data)
	if err != nil {
		return res, err
	}

	var b strings.Builder
	res.Pages = r.NumPage()
	for i := 1; i <= res.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		txt, err := pageText(r, i)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		if txt == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: no text", i))
			continue
		}
		b.WriteString(txt)
	}
	res.Text = b.String()

	e.logger.Debug("pdf text extracted", "pages", res.Pages, "chars", len(res.Text), "warnings", len(res.Warnings))
	return res, nil
}

// openPDF guards against the reader panicking on malformed cross-reference data.
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("%w: %v", ErrDocumentParse, p)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}
	return r, nil
}

// pageText rebuilds the page's lines from glyph positions. When the content
// stream cannot be interpreted that way, the operator-order text is used.
func pageText(r *pdf.Reader, i int) (txt string, err error) {
	defer func() {
		if p := recover(); p != nil {
			txt, err = "", fmt.Errorf("%v", p)
		}
	}()
	page := r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	if s, perr := positionedText(page); perr == nil {
		return s, nil
	}
	return page.GetPlainText(nil)
}

func positionedText(page pdf.Page) (txt string, err error) {
	defer func() {
		if p := recover(); p != nil {
			txt, err = "", fmt.Errorf("%v", p)
		}
	}()
	return joinLines(page.Content().Text), nil
}

// joinLines rebuilds the lines of a page from positioned glyphs. Glyphs keep
// content stream order; a change of baseline starts a new line, and a
// visible horizontal gap between glyphs on one line becomes a space. Lines
// are joined with "\n" and the page carries no trailing newline.
func joinLines(glyphs []pdf.Text) string {
	var (
		lines []string
		cur   strings.Builder
		prev  *pdf.Text
	)
	flush := func() {
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
		}
		cur.Reset()
		prev = nil
	}
	for i := range glyphs {
		g := &glyphs[i]
		if g.S == "" || g.S == "\n" {
			continue
		}
		if prev != nil && math.Abs(g.Y-prev.Y) > baselineTolerance(prev) {
			flush()
		}
		if prev != nil && prev.W > 0 && g.X-(prev.X+prev.W) > wordGap(prev) &&
			!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
			cur.WriteByte(' ')
		}
		cur.WriteString(g.S)
		prev = g
	}
	flush()
	return strings.Join(lines, "\n")
}

func baselineTolerance(g *pdf.Text) float64 {
	return math.Max(g.FontSize/2, 1)
}

func wordGap(g *pdf.Text) float64 {
	return math.Max(g.FontSize*0.15, 0.5)
}

// Package testutil builds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// Layout selects the text operator used to move between lines.
type Layout int

const (
	// LayoutNextLine advances with T* and a fixed leading.
	LayoutNextLine Layout = iota
	// LayoutOffset moves each line with a relative Td.
	LayoutOffset
	// LayoutMatrix places each line with an absolute Tm.
	LayoutMatrix
)

// BuildPDF assembles a minimal single-font PDF with one page per entry. Lines
// of a page are drawn top to bottom; an empty entry produces a page without
// text.
func BuildPDF(pages ...string) []byte {
	return BuildPDFLayout(LayoutNextLine, pages...)
}

// BuildPDFLayout is BuildPDF with an explicit line placement.
func BuildPDFLayout(layout Layout, pages ...string) []byte {
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pages {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+2*i))
		stream := contentStream(layout, text)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func contentStream(layout Layout, text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("BT /F1 12 Tf 16 TL")
	if layout != LayoutMatrix {
		b.WriteString(" 72 720 Td")
	}
	for i, line := range strings.Split(text, "\n") {
		switch {
		case layout == LayoutMatrix:
			fmt.Fprintf(&b, " 1 0 0 1 72 %d Tm", 720-16*i)
		case i == 0:
		case layout == LayoutOffset:
			b.WriteString(" 0 -16 Td")
		default:
			b.WriteString(" T*")
		}
		fmt.Fprintf(&b, " (%s) Tj", escapePDFString(line))
	}
	b.WriteString(" ET")
	return b.String()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}

package constants

import "strings"

// Text extraction methods.
const (
	MethodPDFText   = "pdf-text"
	MethodPdftotext = "pdftotext"
)

// Locator schemes understood by the document fetchers.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeS3    = "s3"
	SchemeFile  = "file"
)

// PDFExt is the extension, without the dot, of files picked up by directory
// import and watch.
const PDFExt = "pdf"

// PDFMagic is the header every PDF payload starts with.
const PDFMagic = "%PDF-"

// NormalizeExt lowercases an extension and drops a leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// NormalizeScheme lowercases a URL scheme and drops a trailing "://".
func NormalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSuffix(scheme, "://"))
}

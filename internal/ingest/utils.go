package ingest

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/certverify/constants"
)

// IsPDF reports whether path has a .pdf extension.
func IsPDF(path string) bool {
	return constants.NormalizeExt(filepath.Ext(path)) == constants.PDFExt
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// CertificateID derives a stable certificate id from the owner and the file
// content, so importing the same bytes twice yields the same certificate.
func CertificateID(ownerID, hashHex string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("certverify:"+ownerID+":"+hashHex)).String()
}

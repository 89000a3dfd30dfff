// Package ingest registers local certificate PDFs as certificates of an owner.
package ingest

import (
	"context"
)

// Result is the per-file import outcome.
type Result struct {
	SourcePath    string `json:"source_path"`
	CertificateID string `json:"certificate_id,omitempty"`
	Locator       string `json:"file_url,omitempty"`
	Deduplicated  bool   `json:"deduplicated"`
	HashHex       string `json:"sha256,omitempty"`
	Err           string `json:"error,omitempty"`
}

// DirStats summarizes a directory import.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// Ingestor is the behavior the CLI depends on.
type Ingestor interface {
	// ImportPath registers a single file.
	ImportPath(ctx context.Context, ownerID, path string) (Result, error)
	// ImportDirectory registers every PDF under root.
	ImportDirectory(ctx context.Context, ownerID, root string, skipHidden bool) ([]Result, DirStats, error)
}

package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
	"github.com/joseph-ayodele/certverify/internal/fetch"
	"github.com/joseph-ayodele/certverify/internal/repository"
)

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	owners repository.OwnerRepository
	certs  repository.CertificateRepository
	logger *slog.Logger
}

func NewFSIngestor(owners repository.OwnerRepository, certs repository.CertificateRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{owners: owners, certs: certs, logger: logger}
}

func (i *FSIngestor) ImportPath(ctx context.Context, ownerID, path string) (Result, error) {
	var out Result

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs
	if !IsPDF(abs) {
		return out, common.InvalidInput(fmt.Sprintf("not a pdf: %s", filepath.Base(abs)))
	}
	if _, err := i.owners.Get(ctx, ownerID); err != nil {
		return out, err
	}

	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = hex.EncodeToString(sum)
	out.CertificateID = CertificateID(ownerID, out.HashHex)
	out.Locator, err = fetch.FileLocator(abs)
	if err != nil {
		return out, err
	}

	logger := i.logger.With("owner_id", ownerID, "certificate_id", out.CertificateID, "path", abs)
	existing, err := i.certs.Get(ctx, out.CertificateID)
	switch {
	case err == nil:
		out.Deduplicated = true
		out.Locator = existing.FileURL
		logger.Debug("ingest.deduplicated")
		return out, nil
	case !errors.Is(err, common.ErrNotFound):
		return out, err
	}

	if _, err := i.certs.Create(ctx, &entity.Certificate{
		ID:      out.CertificateID,
		OwnerID: ownerID,
		FileURL: out.Locator,
	}); err != nil {
		return out, err
	}
	logger.Info("ingest.imported", "sha256", out.HashHex)
	return out, nil
}

// ImportDirectory walks root, skips hidden entries if requested, and calls
// ImportPath for each PDF. An unknown owner fails the whole call; per-file
// failures are reported in the results.
func (i *FSIngestor) ImportDirectory(ctx context.Context, ownerID, root string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInput("root path is required")
	}
	if _, err := i.owners.Get(ctx, ownerID); err != nil {
		return nil, DirStats{}, err
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPDF(path) {
			return nil
		}
		stats.Matched++

		r, err := i.ImportPath(ctx, ownerID, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.done",
		"owner_id", ownerID,
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	return h.Sum(nil), nil
}

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/common"
)

// FileFetcher reads file:// locators that resolve inside root.
type FileFetcher struct {
	root     string
	maxBytes int64
	logger   *slog.Logger
}

func NewFileFetcher(root string, maxBytes int64, logger *slog.Logger) (*FileFetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, common.NewAppError(common.CodeConfig, "file root is required", common.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve file root: %w", err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &FileFetcher{root: abs, maxBytes: maxBytes, logger: logger}, nil
}

// FileLocator returns the file:// locator of path.
func FileLocator(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: constants.SchemeFile, Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// Resolve maps a file:// locator to a path, rejecting anything outside root.
func (f *FileFetcher) Resolve(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil || constants.NormalizeScheme(u.Scheme) != constants.SchemeFile {
		return "", common.Retrieval("malformed file locator", err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", common.Retrieval(fmt.Sprintf("remote file host %q", u.Host), nil)
	}
	path := filepath.Clean(filepath.FromSlash(u.Path))
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	rel, err := filepath.Rel(f.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", common.Retrieval("file locator outside ingest root", nil)
	}
	return path, nil
}

func (f *FileFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	path, err := f.Resolve(locator)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, common.Retrieval("read file", err)
	}

	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.Retrieval("document not found", err)
		}
		return nil, common.Retrieval("open file", err)
	}
	defer func() {
		if err := fh.Close(); err != nil {
			f.logger.Warn("fetch.file.close_failed", "path", path, "error", err)
		}
	}()

	var r io.Reader = fh
	if f.maxBytes > 0 {
		r = io.LimitReader(fh, f.maxBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, common.Retrieval("read file", err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, common.Retrieval(fmt.Sprintf("document exceeds %d bytes", f.maxBytes), nil)
	}
	f.logger.Debug("fetch.file.done", "path", path, "bytes", len(body))
	return body, nil
}

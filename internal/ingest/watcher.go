package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/certverify/internal/async"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // if true, walk roots and emit existing files
	SkipHidden  bool
	Debounce    time.Duration // coalesce rapid write bursts
}

// StartWatcher emits the paths of PDFs created or written under cfg.Roots
// until ctx is done. Both channels close when the watcher stops.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "error", err)
		return nil, nil, err
	}

	pending := map[string]struct{}{}
	// addDir watches dir and everything below it; existing PDFs are queued
	// when emit is set.
	addDir := func(dir string, emit bool) error {
		return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != dir && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if emit && IsPDF(path) {
				pending[path] = struct{}{}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r, cfg.InitialScan); err != nil {
			logger.Error("ingest.watch.add_root_failed", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		flush := func() bool {
			for p := range pending {
				select {
				case evCh <- p:
				case <-ctx.Done():
					return false
				}
				delete(pending, p)
			}
			return true
		}
		if !flush() {
			return
		}

		var timer *time.Timer
		var timerC <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						if cfg.SkipHidden && IsHidden(e.Name) {
							continue
						}
						if err := addDir(e.Name, true); err != nil {
							logger.Warn("ingest.watch.add_dir_failed", "path", e.Name, "error", err)
						}
					}
				}
				if IsPDF(e.Name) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					if cfg.SkipHidden && IsHidden(e.Name) {
						continue
					}
					pending[e.Name] = struct{}{}
				}
				if len(pending) == 0 {
					continue
				}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				timerC = timer.C
			case <-timerC:
				timerC = nil
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Watch imports PDFs appearing under root until ctx is done and hands every
// new certificate to q. Existing files are imported first.
func (i *FSIngestor) Watch(ctx context.Context, ownerID, root string, cfg WatchConfig, q async.Queue) error {
	if _, err := i.owners.Get(ctx, ownerID); err != nil {
		return err
	}
	cfg.Roots = []string{root}
	events, errs, err := StartWatcher(ctx, cfg, i.logger)
	if err != nil {
		return err
	}
	i.logger.Info("ingest.watch.started", "owner_id", ownerID, "root", root)

	for {
		select {
		case path, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			r, err := i.ImportPath(ctx, ownerID, path)
			if err != nil {
				i.logger.Warn("ingest.watch.import_failed", "path", path, "error", err)
				continue
			}
			if r.Deduplicated || q == nil {
				continue
			}
			if err := q.Enqueue(ctx, async.Job{
				OwnerID:       ownerID,
				CertificateID: r.CertificateID,
				Locator:       r.Locator,
			}); err != nil {
				i.logger.Warn("ingest.watch.enqueue_failed", "certificate_id", r.CertificateID, "error", err)
			}
		case err, ok := <-errs:
			if ok {
				i.logger.Warn("ingest.watch.degraded", "error", err)
			} else {
				errs = nil
			}
		}
	}
}

package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
)

type batchJob struct {
	index int
	cert  *entity.Certificate
}

// outcome holds exactly one of record or skipped.
type outcome struct {
	record  *entity.EnrichedRecord
	skipped *entity.SkippedDocument
}

// runBatch fans certificates out to a bounded set of workers. Each worker
// writes only its job's slot, so outcomes come back in input order. When ctx
// is done no further certificates are scheduled and ctx's error is returned.
func (a *Analyzer) runBatch(ctx context.Context, owner *entity.Owner, certs []*entity.Certificate) ([]outcome, error) {
	outcomes := make([]outcome, len(certs))
	if len(certs) == 0 {
		return outcomes, nil
	}

	workers := a.workers
	if workers > len(certs) {
		workers = len(certs)
	}

	ch := make(chan batchJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range ch {
				outcomes[job.index] = a.processDocument(ctx, owner, job.cert, workerID)
			}
		}(i + 1)
	}

	var err error
feed:
	for i, c := range certs {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case ch <- batchJob{index: i, cert: c}:
		}
	}
	close(ch)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// processDocument is the isolation boundary for one certificate: nothing that
// goes wrong here, panics included, reaches sibling certificates.
func (a *Analyzer) processDocument(ctx context.Context, owner *entity.Owner, cert *entity.Certificate, workerID int) (out outcome) {
	logger := common.LoggerFrom(ctx, a.logger).With("certificate_id", cert.ID, "worker_id", workerID)
	stage := constants.StagePending

	defer func() {
		if r := recover(); r != nil {
			logger.Error("analyzer.document.panic", "stage", stage, "panic", r)
			out = skip(logger, cert.ID, stage, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if strings.TrimSpace(cert.FileURL) == "" {
		return skip(logger, cert.ID, constants.StageDownloading, "missing file url")
	}

	rec, err := a.analyze(ctx, logger, owner, cert.ID, cert.FileURL, &stage)
	if err != nil {
		return skip(logger, cert.ID, stage, err.Error())
	}
	logger.Info("analyzer.document.done", "status", rec.Status, "persisted", rec.Persisted)
	return outcome{record: rec}
}

func skip(logger *slog.Logger, certificateID string, stage constants.Stage, reason string) outcome {
	logger.Warn("analyzer.document.skipped", "stage", stage, "next", constants.StageSkipped, "reason", reason)
	return outcome{skipped: &entity.SkippedDocument{
		CertificateID: certificateID,
		Stage:         string(stage),
		Reason:        reason,
	}}
}

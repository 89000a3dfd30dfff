// Package core runs certificates through download, extraction, verification
// and persistence.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/certificate"
	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
	"github.com/joseph-ayodele/certverify/internal/extract"
	"github.com/joseph-ayodele/certverify/internal/fetch"
	"github.com/joseph-ayodele/certverify/internal/repository"
)

// Analyzer coordinates download, text extraction, field extraction,
// verification and write-back for certificates.
type Analyzer struct {
	logger       *slog.Logger
	fetcher      fetch.Fetcher
	extractor    extract.TextExtractor
	verifier     *certificate.Verifier
	ownersRepo   repository.OwnerRepository
	certsRepo    repository.CertificateRepository
	workers      int
	maxDocuments int
	schemes      []string
	now          func() time.Time
}

type Option func(*Analyzer)

// WithWorkers bounds how many certificates of one owner are analyzed at once.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithMaxDocuments caps the certificates analyzed per AnalyzeAll call; 0 means no cap.
func WithMaxDocuments(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.maxDocuments = n
		}
	}
}

// WithLocatorSchemes replaces the locator schemes AnalyzeOne accepts.
func WithLocatorSchemes(schemes ...string) Option {
	return func(a *Analyzer) {
		if len(schemes) > 0 {
			a.schemes = schemes
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAnalyzer(
	logger *slog.Logger,
	fetcher fetch.Fetcher,
	extractor extract.TextExtractor,
	verifier *certificate.Verifier,
	ownersRepo repository.OwnerRepository,
	certsRepo repository.CertificateRepository,
	opts ...Option,
) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if verifier == nil {
		verifier = certificate.NewVerifier()
	}
	a := &Analyzer{
		logger:     logger,
		fetcher:    fetcher,
		extractor:  extractor,
		verifier:   verifier,
		ownersRepo: ownersRepo,
		certsRepo:  certsRepo,
		workers:    4,
		schemes:    []string{constants.SchemeHTTP, constants.SchemeHTTPS, constants.SchemeS3},
		now:        time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// AnalyzeOne analyzes a single certificate of an existing owner. Retrieval and
// extraction failures are returned; a failed write-back is only logged and
// reported through EnrichedRecord.Persisted.
func (a *Analyzer) AnalyzeOne(ctx context.Context, ownerID, certificateID, locator string) (*entity.EnrichedRecord, error) {
	ctx = common.WithOwnerID(ctx, ownerID)
	logger := common.LoggerFrom(ctx, a.logger).With("certificate_id", certificateID)

	v := common.NewValidator().
		Field("owner_id", ownerID, common.Required).
		Field("certificate_id", certificateID, common.Required).
		Field("file_url", locator, common.Required, common.Locator(a.schemes...))
	if err := v.Err(); err != nil {
		logger.Warn("analyzer.one.invalid", "error", err)
		return nil, err
	}

	owner, err := a.ownersRepo.Get(ctx, ownerID)
	if err != nil {
		logger.Error("analyzer.owner.failed", "error", err)
		return nil, err
	}

	var stage constants.Stage
	rec, err := a.analyze(ctx, logger, owner, certificateID, locator, &stage)
	if err != nil {
		logger.Error("analyzer.one.failed", "stage", stage, "error", err)
		return nil, err
	}
	logger.Info("analyzer.one.done",
		"status", rec.Status,
		"missing", rec.Missing,
		"persisted", rec.Persisted,
	)
	return rec, nil
}

// analyze runs one certificate through the pipeline, recording progress in
// stage. Only download and extraction failures are returned.
func (a *Analyzer) analyze(ctx context.Context, logger *slog.Logger, owner *entity.Owner, certificateID, locator string, stage *constants.Stage) (*entity.EnrichedRecord, error) {
	*stage = constants.StageDownloading
	logger.Debug("analyzer.stage", "stage", *stage)
	data, err := a.fetcher.Fetch(ctx, locator)
	if err != nil {
		if !errors.Is(err, common.ErrRetrieval) {
			err = common.Retrieval("download certificate", err)
		}
		return nil, err
	}

	*stage = constants.StageExtracting
	logger.Debug("analyzer.stage", "stage", *stage, "bytes", len(data))
	text, err := a.extractor.Extract(ctx, data)
	if err != nil {
		return nil, common.Extraction("extract certificate text", err)
	}
	if len(text.Warnings) > 0 {
		logger.Warn("analyzer.extract.warnings", "warnings", text.Warnings)
	}

	*stage = constants.StageVerifying
	logger.Debug("analyzer.stage", "stage", *stage, "method", text.Method, "pages", text.Pages)
	candidate := certificate.NewCandidate(owner, certificateID, certificate.ExtractRecord(text.Text, constants.Schema()))
	rec := &entity.EnrichedRecord{
		CandidateRecord: candidate,
		Verdict:         a.verifier.Verify(candidate.Fields),
		ExtractedText:   text.Text,
		AnalysisID:      uuid.New(),
		AnalyzedAt:      a.now().UTC(),
	}

	*stage = constants.StagePersisting
	logger.Debug("analyzer.stage", "stage", *stage, "status", rec.Status)
	if err := a.persist(ctx, candidate.OwnerID, certificateID, rec.Analysis()); err != nil {
		logger.Warn("analyzer.persist.failed", "error", err)
	} else {
		rec.Persisted = true
	}

	*stage = constants.StageDone
	return rec, nil
}

// persist writes the analysis. A failing store, panics included, leaves the
// record unpersisted but never fails the document.
func (a *Analyzer) persist(ctx context.Context, ownerID, certificateID string, an *entity.Analysis) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.Internal(fmt.Sprintf("save analysis: %v", r), nil)
		}
	}()
	return a.certsRepo.SaveAnalysis(ctx, ownerID, certificateID, an)
}

// AnalyzeAll analyzes every certificate of an owner. A certificate that cannot
// be downloaded or parsed is skipped without failing the others; records keep
// the owner's certificate order.
func (a *Analyzer) AnalyzeAll(ctx context.Context, ownerID string) (*entity.OwnerAnalysis, error) {
	ctx = common.WithOwnerID(ctx, ownerID)
	logger := common.LoggerFrom(ctx, a.logger)

	if err := common.NewValidator().Field("owner_id", ownerID, common.Required).Err(); err != nil {
		return nil, err
	}

	owner, err := a.ownersRepo.Get(ctx, ownerID)
	if err != nil {
		logger.Error("analyzer.owner.failed", "error", err)
		return nil, err
	}

	certs, err := a.certsRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.Error("analyzer.list.failed", "error", err)
		return nil, common.Internal("list certificates", err)
	}

	result := &entity.OwnerAnalysis{
		Owner:   owner,
		Message: fmt.Sprintf(constants.BatchMessageFormat, ownerID),
		Records: []*entity.EnrichedRecord{},
	}

	if a.maxDocuments > 0 && len(certs) > a.maxDocuments {
		logger.Warn("analyzer.batch.capped", "documents", len(certs), "max", a.maxDocuments)
		for _, c := range certs[a.maxDocuments:] {
			result.Skipped = append(result.Skipped, entity.SkippedDocument{
				CertificateID: c.ID,
				Stage:         string(constants.StagePending),
				Reason:        "batch document limit reached",
			})
		}
		certs = certs[:a.maxDocuments]
	}

	start := time.Now()
	logger.Info("analyzer.batch.start", "documents", len(certs), "workers", a.workers)
	outcomes, err := a.runBatch(ctx, owner, certs)
	if err != nil {
		logger.Warn("analyzer.batch.interrupted", "error", err)
		return nil, err
	}

	var skipped []entity.SkippedDocument
	for _, o := range outcomes {
		switch {
		case o.record != nil:
			result.Records = append(result.Records, o.record)
		case o.skipped != nil:
			skipped = append(skipped, *o.skipped)
		}
	}
	result.Skipped = append(skipped, result.Skipped...)

	logger.Info("analyzer.batch.done",
		"records", len(result.Records),
		"skipped", len(result.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Package app wires configuration into a ready analyzer and its store.
package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/certverify/internal/certificate"
	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/core"
	"github.com/joseph-ayodele/certverify/internal/export"
	"github.com/joseph-ayodele/certverify/internal/extract"
	"github.com/joseph-ayodele/certverify/internal/fetch"
	repo "github.com/joseph-ayodele/certverify/internal/repository"
	"github.com/joseph-ayodele/certverify/internal/server"
)

type App struct {
	DB       *repo.DB
	Owners   repo.OwnerRepository
	Certs    repo.CertificateRepository
	Analyzer *core.Analyzer
	Exporter *export.Service
}

// New connects to the database and builds the analysis stack. Callers must
// Close the returned App.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	extractor, err := extract.New(cfg.Extract, logger)
	if err != nil {
		return nil, err
	}

	fetcher, err := fetch.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	owners := repo.NewOwnerRepository(db, logger)
	certs := repo.NewCertificateRepository(db, logger)
	analyzer := core.NewAnalyzer(
		logger,
		fetcher,
		extractor,
		certificate.NewVerifier(certificate.WithEmptyAsMissing(cfg.Verify.EmptyAsMissing)),
		owners,
		certs,
		core.WithWorkers(cfg.Batch.Workers),
		core.WithMaxDocuments(cfg.Batch.MaxDocuments),
		core.WithLocatorSchemes(fetch.Schemes(cfg)...),
	)

	return &App{
		DB:       db,
		Owners:   owners,
		Certs:    certs,
		Analyzer: analyzer,
		Exporter: export.NewService(owners, certs, logger),
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

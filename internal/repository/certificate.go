package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
)

const certificatesTable = "certificates"

var certificateColumns = []string{
	"id", "owner_id", "file_url", "created_at",
	"reference_number", "title", "name", "index_number", "year",
	"verification_status", "verification_message", "extracted_text",
	"analysis_id", "analyzed_at",
}

type CertificateRepository interface {
	Get(ctx context.Context, id string) (*entity.Certificate, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Certificate, error)
	Create(ctx context.Context, cert *entity.Certificate) (*entity.Certificate, error)
	// SaveAnalysis overwrites the analysis columns of a certificate that
	// belongs to ownerID. Writing the same analysis twice leaves the same row.
	SaveAnalysis(ctx context.Context, ownerID, certificateID string, a *entity.Analysis) error
}

type certificateRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewCertificateRepository(db *DB, logger *slog.Logger) CertificateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &certificateRepository{db: db, logger: logger}
}

func (r *certificateRepository) Get(ctx context.Context, id string) (*entity.Certificate, error) {
	b := entsql.Dialect(r.db.Dialect())
	query, args := b.Select(certificateColumns...).
		From(b.Table(certificatesTable)).
		Where(entsql.EQ("id", id)).
		Query()

	certs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get certificate", "certificate_id", id, "error", err)
		return nil, common.Persistence("get certificate", err)
	}
	if len(certs) == 0 {
		return nil, common.NotFound(fmt.Sprintf("certificate %s not found", id), nil)
	}
	return certs[0], nil
}

// ListByOwner returns the owner's certificates oldest first.
func (r *certificateRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Certificate, error) {
	b := entsql.Dialect(r.db.Dialect())
	query, args := b.Select(certificateColumns...).
		From(b.Table(certificatesTable)).
		Where(entsql.EQ("owner_id", ownerID)).
		OrderBy("created_at", "id").
		Query()

	certs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list certificates", "owner_id", ownerID, "error", err)
		return nil, common.Persistence("list certificates", err)
	}
	return certs, nil
}

func (r *certificateRepository) Create(ctx context.Context, cert *entity.Certificate) (*entity.Certificate, error) {
	if strings.TrimSpace(cert.OwnerID) == "" {
		return nil, common.InvalidInput("certificate owner id is required")
	}
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = time.Now()
	}

	var fileURL *string
	if cert.FileURL != "" {
		fileURL = &cert.FileURL
	}
	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(certificatesTable).
		Columns("id", "owner_id", "file_url", "created_at").
		Values(cert.ID, cert.OwnerID, nullable(fileURL), formatTime(cert.CreatedAt)).
		Query()

	var res sql.Result
	if err := r.db.Driver().Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to create certificate", "owner_id", cert.OwnerID, "error", err)
		return nil, common.Persistence("create certificate", err)
	}
	r.logger.Info("certificate created", "certificate_id", cert.ID, "owner_id", cert.OwnerID)
	return r.Get(ctx, cert.ID)
}

func (r *certificateRepository) SaveAnalysis(ctx context.Context, ownerID, certificateID string, a *entity.Analysis) error {
	query, args := entsql.Dialect(r.db.Dialect()).
		Update(certificatesTable).
		Set("reference_number", nullable(a.ReferenceNumber)).
		Set("title", nullable(a.Title)).
		Set("name", nullable(a.Name)).
		Set("index_number", nullable(a.IndexNumber)).
		Set("year", nullable(a.Year)).
		Set("verification_status", string(a.Status)).
		Set("verification_message", a.Message).
		Set("extracted_text", a.ExtractedText).
		Set("analysis_id", a.AnalysisID.String()).
		Set("analyzed_at", formatTime(a.AnalyzedAt)).
		Where(entsql.And(
			entsql.EQ("id", certificateID),
			entsql.EQ("owner_id", ownerID),
		)).
		Query()

	var res sql.Result
	if err := r.db.Driver().Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to save analysis", "certificate_id", certificateID, "error", err)
		return common.Persistence("save analysis", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.Persistence("save analysis", err)
	}
	if n == 0 {
		return common.NotFound(fmt.Sprintf("certificate %s of owner %s not found", certificateID, ownerID), nil)
	}
	r.logger.Debug("analysis saved", "certificate_id", certificateID, "status", a.Status)
	return nil
}

func (r *certificateRepository) query(ctx context.Context, query string, args []any) ([]*entity.Certificate, error) {
	rows := &entsql.Rows{}
	if err := r.db.Driver().Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCertificate(rows *entsql.Rows) (*entity.Certificate, error) {
	var (
		c                                     entity.Certificate
		fileURL, created                      sql.NullString
		ref, title, name, index, year         sql.NullString
		status, message, text, analysisID, at sql.NullString
	)
	if err := rows.Scan(
		&c.ID, &c.OwnerID, &fileURL, &created,
		&ref, &title, &name, &index, &year,
		&status, &message, &text, &analysisID, &at,
	); err != nil {
		return nil, err
	}

	c.FileURL = fileURL.String
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = t

	if !status.Valid {
		return &c, nil
	}
	a := &entity.Analysis{
		Fields: entity.Fields{
			ReferenceNumber: fromNull(ref),
			Title:           fromNull(title),
			Name:            fromNull(name),
			IndexNumber:     fromNull(index),
			Year:            fromNull(year),
		},
		Status:        constants.VerificationStatus(status.String),
		Message:       message.String,
		ExtractedText: text.String,
	}
	if analysisID.Valid {
		if id, err := uuid.Parse(analysisID.String); err == nil {
			a.AnalysisID = id
		}
	}
	if a.AnalyzedAt, err = parseTime(at); err != nil {
		return nil, err
	}
	c.Analysis = a
	return &c, nil
}

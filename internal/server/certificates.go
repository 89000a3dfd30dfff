package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
)

// Analyzer is the analysis API the server exposes.
type Analyzer interface {
	AnalyzeOne(ctx context.Context, ownerID, certificateID, locator string) (*entity.EnrichedRecord, error)
	AnalyzeAll(ctx context.Context, ownerID string) (*entity.OwnerAnalysis, error)
}

// Exporter renders an owner's certificates as a workbook.
type Exporter interface {
	ExportOwnerXLSX(ctx context.Context, ownerID string) ([]byte, error)
}

type CertificateServer struct {
	analyzer Analyzer
	exporter Exporter
	schemas  *requestSchemas
	logger   *slog.Logger
}

var _ CertificateServiceServer = (*CertificateServer)(nil)

func NewCertificateServer(analyzer Analyzer, exporter Exporter, logger *slog.Logger) (*CertificateServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schemas, err := compileRequestSchemas()
	if err != nil {
		return nil, err
	}
	return &CertificateServer{analyzer: analyzer, exporter: exporter, schemas: schemas, logger: logger}, nil
}

// AnalyzeCertificate analyzes one certificate. The response message is the
// verification message and data holds the single record.
func (s *CertificateServer) AnalyzeCertificate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doc := req.AsMap()
	if err := s.schemas.validate(MethodAnalyzeCertificate, doc); err != nil {
		return nil, common.ToStatus(err)
	}
	ownerID := stringField(doc, "owner_id")
	certID := stringField(doc, "certificate_id")
	fileURL := stringField(doc, "file_url")
	if fileURL == "" {
		fileURL = stringField(doc, "fileUrl")
	}

	rec, err := s.analyzer.AnalyzeOne(ctx, ownerID, certID, fileURL)
	if err != nil {
		s.logger.Error("server.analyze.failed", "owner_id", ownerID, "certificate_id", certID, "err", err)
		return nil, common.ToStatus(err)
	}

	out, err := structpb.NewStruct(map[string]any{
		"message": rec.Message,
		"data":    []any{recordMap(rec)},
	})
	if err != nil {
		return nil, common.ToStatus(common.Internal("encode response", err))
	}
	return out, nil
}

// AnalyzeCertificates analyzes every certificate of an owner.
func (s *CertificateServer) AnalyzeCertificates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doc := req.AsMap()
	if err := s.schemas.validate(MethodAnalyzeCertificates, doc); err != nil {
		return nil, common.ToStatus(err)
	}
	ownerID := stringField(doc, "owner_id")

	res, err := s.analyzer.AnalyzeAll(ctx, ownerID)
	if err != nil {
		s.logger.Error("server.analyze_all.failed", "owner_id", ownerID, "err", err)
		return nil, common.ToStatus(err)
	}

	data := make([]any, 0, len(res.Records))
	for _, r := range res.Records {
		data = append(data, recordMap(r))
	}
	skipped := make([]any, 0, len(res.Skipped))
	for _, sk := range res.Skipped {
		skipped = append(skipped, map[string]any{
			"certificate_id": sk.CertificateID,
			"stage":          sk.Stage,
			"reason":         sk.Reason,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"message": res.Message,
		"owner": map[string]any{
			"id":         res.Owner.ID,
			"name":       res.Owner.Name,
			"created_at": formatTime(res.Owner.CreatedAt),
		},
		"data":    data,
		"skipped": skipped,
	})
	if err != nil {
		return nil, common.ToStatus(common.Internal("encode response", err))
	}
	return out, nil
}

// ExportCertificates returns the owner's certificates as XLSX bytes.
func (s *CertificateServer) ExportCertificates(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	doc := req.AsMap()
	if err := s.schemas.validate(MethodExportCertificates, doc); err != nil {
		return nil, common.ToStatus(err)
	}
	ownerID := stringField(doc, "owner_id")

	xlsx, err := s.exporter.ExportOwnerXLSX(ctx, ownerID)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "owner_id", ownerID, "err", err)
		return nil, common.ToStatus(err)
	}
	return wrapperspb.Bytes(xlsx), nil
}

func recordMap(r *entity.EnrichedRecord) map[string]any {
	missing := make([]any, 0, len(r.Missing))
	for _, m := range r.Missing {
		missing = append(missing, m)
	}
	return map[string]any{
		"owner_id":             r.OwnerID,
		"owner_name":           r.OwnerName,
		"certificate_id":       r.CertificateID,
		"reference_number":     optional(r.ReferenceNumber),
		"title":                optional(r.Title),
		"name":                 optional(r.Name),
		"index_number":         optional(r.IndexNumber),
		"year":                 optional(r.Year),
		"verification_status":  string(r.Status),
		"verification_message": r.Message,
		"missing_fields":       missing,
		"analysis_id":          r.AnalysisID.String(),
		"analyzed_at":          formatTime(r.AnalyzedAt),
		"persisted":            r.Persisted,
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return strings.TrimSpace(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

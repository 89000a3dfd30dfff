package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/certverify/internal/repository"
)

const sheetName = "Certificates"

var headers = []string{
	"Certificate ID",
	"File URL",
	"Uploaded",
	"Status",
	"Verification Message",
	"Reference Number",
	"Title",
	"Name in Full",
	"Index Number",
	"Year of Examination",
	"Analyzed At",
	"Text Excerpt",
}

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	ownersRepo repository.OwnerRepository
	certsRepo  repository.CertificateRepository
	logger     *slog.Logger
}

func NewService(ownersRepo repository.OwnerRepository, certsRepo repository.CertificateRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ownersRepo: ownersRepo, certsRepo: certsRepo, logger: logger}
}

// ExportOwnerXLSX returns an XLSX workbook (as bytes) with one row per
// certificate of the owner and its last analysis. Certificates that were never
// analyzed have empty analysis columns.
func (s *Service) ExportOwnerXLSX(ctx context.Context, ownerID string) ([]byte, error) {
	start := time.Now()

	owner, err := s.ownersRepo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	certs, err := s.certsRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// rename the default sheet so the workbook has a single tab
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}
	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   "Certificates of " + displayName(owner.Name, owner.ID),
		Creator: "certverify",
	})

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	row := 2
	for _, c := range certs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(1, c.ID)
		write(2, c.FileURL)
		write(3, formatDate(c.CreatedAt))

		if a := c.Analysis; a != nil {
			write(4, string(a.Status))
			write(5, a.Message)
			write(6, deref(a.ReferenceNumber))
			write(7, deref(a.Title))
			write(8, deref(a.Name))
			write(9, deref(a.IndexNumber))
			write(10, deref(a.Year))
			write(11, formatDate(a.AnalyzedAt))
			write(12, truncate(strings.Join(strings.Fields(a.ExtractedText), " "), 140))
		}
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38) // id
	_ = f.SetColWidth(sheetName, "B", "B", 48) // url
	_ = f.SetColWidth(sheetName, "C", "D", 18)
	_ = f.SetColWidth(sheetName, "E", "E", 60) // message
	_ = f.SetColWidth(sheetName, "F", "J", 22)
	_ = f.SetColWidth(sheetName, "K", "K", 20)
	_ = f.SetColWidth(sheetName, "L", "L", 60) // excerpt
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"owner_id", ownerID,
		"rows", len(certs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func displayName(name, id string) string {
	if strings.TrimSpace(name) == "" {
		return id
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

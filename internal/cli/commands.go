package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/async"
	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
	"github.com/joseph-ayodele/certverify/internal/ingest"
	"github.com/joseph-ayodele/certverify/internal/server"
)

func newMigrateCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the certificate store schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.DB.Dialect())
			return nil
		},
	}
}

func newDBHealthCommand(s *session) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "dbhealth",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := server.PingDB(cmd.Context(), a.DB, s.logger, timeout); err != nil {
				return err
			}
			owners, err := a.Owners.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DB health: OK (%d owners)\n", len(owners))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Second, "ping timeout")
	return cmd
}

func newOwnerCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Manage certificate owners",
	}

	var name string
	add := &cobra.Command{
		Use:   "add <owner-id>",
		Short: "Create an owner or rename an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			owner, err := a.Owners.Upsert(cmd.Context(), &entity.Owner{ID: args[0], Name: name})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), owner)
		},
	}
	add.Flags().StringVar(&name, "name", "", "owner display name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List owners",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			owners, err := a.Owners.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), owners)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newCertificateCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "certificate",
		Aliases: []string{"cert"},
		Short:   "Manage certificate documents",
	}

	var id string
	add := &cobra.Command{
		Use:   "add <owner-id> <file-url>",
		Short: "Register a certificate document for an owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Owners.Get(cmd.Context(), args[0]); err != nil {
				return err
			}
			cert, err := a.Certs.Create(cmd.Context(), &entity.Certificate{
				ID:      id,
				OwnerID: args[0],
				FileURL: strings.TrimSpace(args[1]),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cert)
		},
	}
	add.Flags().StringVar(&id, "id", "", "certificate id (default: random uuid)")

	list := &cobra.Command{
		Use:   "list <owner-id>",
		Short: "List an owner's certificates with their last analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			certs, err := a.Certs.ListByOwner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), certs)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// analyzeOutput mirrors the single-document response of the gRPC service.
type analyzeOutput struct {
	Message string                   `json:"message"`
	Data    []*entity.EnrichedRecord `json:"data"`
}

func newAnalyzeCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <owner-id> <certificate-id> <file-url>",
		Short: "Extract and verify one certificate document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			rec, err := a.Analyzer.AnalyzeOne(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), analyzeOutput{
				Message: rec.Message,
				Data:    []*entity.EnrichedRecord{rec},
			})
		},
	}
}

func newAnalyzeAllCommand(s *session) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "analyze-all <owner-id>",
		Short: "Extract and verify every certificate of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.Analyzer.AnalyzeAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if strict {
				return strictCheck(res)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail unless every certificate was analyzed and verified")
	return cmd
}

// strictCheck fails when any document was skipped or left unverified.
func strictCheck(res *entity.OwnerAnalysis) error {
	unverified := 0
	for _, r := range res.Records {
		if r.Status != constants.StatusVerified {
			unverified++
		}
	}
	if unverified == 0 && len(res.Skipped) == 0 {
		return nil
	}
	return common.NewAppError(common.CodeInvalidInput,
		fmt.Sprintf("%d unverified, %d skipped", unverified, len(res.Skipped)), nil)
}

func newExportCommand(s *session) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <owner-id>",
		Short: "Write an owner's certificates to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			data, err := a.Exporter.ExportOwnerXLSX(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = args[0] + "-certificates.xlsx"
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default <owner-id>-certificates.xlsx)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// useIngestRoot confines file:// locators to dir unless a root is configured.
func (s *session) useIngestRoot(dir string) error {
	if s.cfg.Ingest.Root != "" {
		return nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	s.cfg.Ingest.Root = abs
	return nil
}

// importOutput is printed by the import command.
type importOutput struct {
	Results  []ingest.Result       `json:"results"`
	Stats    ingest.DirStats       `json:"stats"`
	Analysis *entity.OwnerAnalysis `json:"analysis,omitempty"`
}

func newImportCommand(s *session) *cobra.Command {
	var (
		analyze    bool
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "import <owner-id> <dir>",
		Short: "Register every PDF under a directory as a certificate of an owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.useIngestRoot(args[1]); err != nil {
				return err
			}
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ing := ingest.NewFSIngestor(a.Owners, a.Certs, s.logger)
			results, stats, err := ing.ImportDirectory(cmd.Context(), args[0], args[1], skipHidden)
			if err != nil {
				return err
			}
			out := importOutput{Results: results, Stats: stats}
			if analyze {
				if out.Analysis, err = a.Analyzer.AnalyzeAll(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&analyze, "analyze", false, "analyze the owner's certificates after importing")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories")
	return cmd
}

func newWatchCommand(s *session) *cobra.Command {
	var skipHidden bool
	cmd := &cobra.Command{
		Use:   "watch <owner-id> <dir>",
		Short: "Import and analyze PDFs as they appear under a directory",
		Long: `watch imports the PDFs already under <dir>, then keeps watching it
(recursively) and analyzes every new certificate on a worker queue. Each
analysis is printed as one JSON line. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.useIngestRoot(args[1]); err != nil {
				return err
			}
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := &lineWriter{w: cmd.OutOrStdout()}
			q := async.NewAnalysisQueue(a.Analyzer, s.logger,
				async.WithWorkers(s.cfg.Batch.Workers),
				async.WithQueueSize(s.cfg.Ingest.QueueSize),
				async.WithProcessTimeout(s.cfg.Ingest.ProcessTimeout),
				async.WithResultFunc(func(job async.Job, rec *entity.EnrichedRecord, err error) {
					if err != nil {
						out.write(map[string]string{"certificate_id": job.CertificateID, "error": err.Error()})
						return
					}
					out.write(rec)
				}),
			)
			defer q.Shutdown(context.Background())

			ing := ingest.NewFSIngestor(a.Owners, a.Certs, s.logger)
			err = ing.Watch(cmd.Context(), args[0], args[1], ingest.WatchConfig{
				InitialScan: true,
				SkipHidden:  skipHidden,
				Debounce:    s.cfg.Ingest.Debounce,
			}, q)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories")
	return cmd
}

// lineWriter serializes JSON lines from queue workers.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) write(v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.w).Encode(v)
}

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/certverify/internal/app"
	"github.com/joseph-ayodele/certverify/internal/common"
)

// Version is reported by the version command.
var Version = "v0.1.0"

// session carries the configuration shared by every subcommand of one run.
type session struct {
	v       *viper.Viper
	cfgFile string
	cfg     *common.Config
	logger  *slog.Logger
}

// NewRootCommand builds the certverify command tree.
func NewRootCommand() *cobra.Command {
	s := &session{v: viper.New()}

	root := &cobra.Command{
		Use:   "certverify",
		Short: "Certificate field extraction and verification",
		Long: `certverify downloads certificate PDFs, extracts their text, locates the
reference number, title, name, index number and year of examination, and
records whether the certificate carries every required field.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.cfgFile, "config", "", "config file (yaml)")
	pf.String("db-url", "", "database DSN (env DB_URL)")
	pf.String("db-driver", "", "postgres or sqlite (env DB_DRIVER)")
	pf.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	_ = s.v.BindPFlag("db_url", pf.Lookup("db-url"))
	_ = s.v.BindPFlag("db_driver", pf.Lookup("db-driver"))
	_ = s.v.BindPFlag("log_level", pf.Lookup("log-level"))

	root.AddCommand(
		newVersionCommand(),
		newConfigCommand(s),
		newMigrateCommand(s),
		newDBHealthCommand(s),
		newOwnerCommand(s),
		newCertificateCommand(s),
		newAnalyzeCommand(s),
		newAnalyzeAllCommand(s),
		newExportCommand(s),
		newImportCommand(s),
		newWatchCommand(s),
	)
	return root
}

// Execute runs the command tree against ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "certverify %s\n", Version)
		},
	}
}

// load reads the optional config file, then environment and flags.
func (s *session) load(cmd *cobra.Command) error {
	if s.cfgFile != "" {
		s.v.SetConfigFile(s.cfgFile)
		if err := s.v.ReadInConfig(); err != nil {
			return common.NewAppError(common.CodeConfig, fmt.Sprintf("reading config %s", s.cfgFile), err)
		}
	}
	s.cfg = common.LoadConfig(s.v)
	s.logger = common.NewLogger(cmd.ErrOrStderr(), s.cfg.Log)
	return nil
}

// open validates the configuration and connects the analysis stack.
func (s *session) open(ctx context.Context) (*app.App, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(ctx, s.cfg, s.logger)
}

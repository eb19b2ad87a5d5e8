// Package commands implements the gitscm CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitscm/pkg/config"
	"github.com/Sumatoshi-tech/gitscm/pkg/observability"
	"github.com/Sumatoshi-tech/gitscm/pkg/scm"
	"github.com/Sumatoshi-tech/gitscm/pkg/version"
)

const (
	rootCmdUse   = "gitscm"
	rootCmdShort = "Git source-control facts for code analysis"
	rootCmdLong  = `gitscm answers the questions a code analyser asks about a git work tree:

  blame          per-line revision, author and committer date
  changed-files  files a branch added or modified since its merge base
  changed-lines  lines a branch added or modified since its merge base
  fork-point     nearest ancestor of HEAD shared with another branch
  revision       the commit HEAD points to
  relpath        a path relative to the work-tree root
  ignored        files excluded by .gitignore
  supports       whether a directory is inside a git work tree`

	flagConfig      = "config"
	flagVerbose     = "verbose"
	flagFormat      = "format"
	flagHostVersion = "host-version"
	flagDir         = "dir"
	flagBranch      = "branch"

	defaultDir = "."
)

// Globals holds the persistent flags shared by every command.
type Globals struct {
	ConfigPath  string
	Verbose     bool
	Format      string
	HostVersion string
}

// NewRootCommand builds the gitscm command tree.
func NewRootCommand() *cobra.Command {
	globals := &Globals{}

	root := &cobra.Command{
		Use:           rootCmdUse,
		Short:         rootCmdShort,
		Long:          rootCmdLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return validateFormat(globals.Format)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&globals.ConfigPath, flagConfig, "", "config file (default: gitscm.yaml in ., ./config or /etc/gitscm)")
	flags.BoolVarP(&globals.Verbose, flagVerbose, "v", false, "verbose output")
	flags.StringVarP(&globals.Format, flagFormat, "f", FormatTable, "output format: table, json or yaml")
	flags.StringVar(&globals.HostVersion, flagHostVersion, "", "host API version (overrides host.version)")

	root.AddCommand(
		newBlameCommand(globals),
		newChangedFilesCommand(globals),
		newChangedLinesCommand(globals),
		newForkPointCommand(globals),
		newRevisionCommand(globals),
		newRelPathCommand(globals),
		newIgnoredCommand(globals),
		newSupportsCommand(globals),
		newVersionCommand(globals),
	)

	return root
}

// session is the provider and telemetry of one command invocation.
type session struct {
	provider *scm.Provider
	logger   *slog.Logger
	format   string
	out      io.Writer
	shutdown func(ctx context.Context) error
}

func openSession(cmd *cobra.Command, globals *Globals) (*session, error) {
	cfg, err := config.LoadConfig(globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	hostVersion := cfg.Host.Version
	if globals.HostVersion != "" {
		hostVersion = globals.HostVersion
	}

	obsCfg := cfg.ObservabilityConfig(version.Version, globals.Verbose)

	providers, err := observability.InitWithWriter(obsCfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewSCMMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	errOut := cmd.ErrOrStderr()
	warn := color.New(color.FgYellow)

	provider := scm.New(scm.Options{
		HostVersion: hostVersion,
		Warn: func(msg string) {
			warn.Fprintf(errOut, "WARNING: %s\n", msg) //nolint:errcheck // best-effort terminal output.
		},
		CircleCI: cfg.CI.OnCircleCI(),
		Workers:  cfg.Blame.Workers,
		Logger:   providers.Logger,
		Tracer:   providers.Tracer,
		Metrics:  metrics,
	})

	return &session{
		provider: provider,
		logger:   providers.Logger,
		format:   globals.Format,
		out:      cmd.OutOrStdout(),
		shutdown: providers.Shutdown,
	}, nil
}

func (s *session) close() {
	err := s.shutdown(context.Background())
	if err != nil {
		s.logger.Warn("observability shutdown failed", "error", err)
	}
}

// withSession runs fn with a session opened for cmd and closed afterwards.
func withSession(globals *Globals, fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, globals)
		if err != nil {
			return err
		}
		defer s.close()

		return fn(cmd, s, args)
	}
}

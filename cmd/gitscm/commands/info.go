package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitscm/pkg/version"
)

const (
	revisionCmdUse   = "revision [path]"
	revisionCmdShort = "Print the commit HEAD points to"
	relPathCmdUse    = "relpath <path>"
	relPathCmdShort  = "Print a path relative to the work-tree root"
	ignoredCmdUse    = "ignored [dir]"
	ignoredCmdShort  = "List files excluded by git ignore rules"
	supportsCmdUse   = "supports [dir]"
	supportsCmdShort = "Report whether a directory is inside a git work tree"
	versionCmdUse    = "version"
	versionCmdShort  = "Show version information"
)

type revisionDoc struct {
	Path     string `json:"path"     yaml:"path"`
	Revision string `json:"revision" yaml:"revision"`
}

type supportsDoc struct {
	Provider  string `json:"provider"  yaml:"provider"`
	Dir       string `json:"dir"       yaml:"dir"`
	Supported bool   `json:"supported" yaml:"supported"`
}

func argOrDefault(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return defaultDir
}

func newRevisionCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   revisionCmdUse,
		Short: revisionCmdShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(globals, func(_ *cobra.Command, s *session, args []string) error {
			path := argOrDefault(args)

			id, err := s.provider.RevisionID(path)
			if err != nil {
				return err
			}

			doc := revisionDoc{Path: path, Revision: id}

			return render(s.out, s.format, doc, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Path", "Revision"})
				tw.AppendRow(table.Row{doc.Path, doc.Revision})
			})
		}),
	}
}

func newRelPathCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   relPathCmdUse,
		Short: relPathCmdShort,
		Args:  cobra.ExactArgs(1),
		RunE: withSession(globals, func(_ *cobra.Command, s *session, args []string) error {
			rel, err := s.provider.RelativePathFromScmRoot(args[0])
			if err != nil {
				return err
			}

			doc := map[string]string{"path": args[0], "relative": rel}

			return render(s.out, s.format, doc, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Path", "Relative"})
				tw.AppendRow(table.Row{args[0], rel})
			})
		}),
	}
}

func newIgnoredCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   ignoredCmdUse,
		Short: ignoredCmdShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(globals, func(_ *cobra.Command, s *session, args []string) error {
			filter, err := s.provider.IgnoreFilter(argOrDefault(args))
			if err != nil {
				return err
			}

			paths := filter.Paths()

			return render(s.out, s.format, paths, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Ignored file"})

				for _, p := range paths {
					tw.AppendRow(table.Row{p})
				}
			})
		}),
	}
}

func newSupportsCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   supportsCmdUse,
		Short: supportsCmdShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(globals, func(_ *cobra.Command, s *session, args []string) error {
			dir := argOrDefault(args)
			doc := supportsDoc{Provider: s.provider.Key(), Dir: dir, Supported: s.provider.Supports(dir)}

			return render(s.out, s.format, doc, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Provider", "Dir", "Supported"})
				tw.AppendRow(table.Row{doc.Provider, doc.Dir, doc.Supported})
			})
		}),
	}
}

func newVersionCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdUse,
		Short: versionCmdShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()

			if globals.Format == FormatTable {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit: %s, built: %s)\n",
					rootCmdUse, info.Version, info.Commit, info.Date)

				return err
			}

			return render(cmd.OutOrStdout(), globals.Format, info, nil)
		},
	}
}

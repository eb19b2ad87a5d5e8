package commands

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const (
	changedFilesCmdUse   = "changed-files"
	changedFilesCmdShort = "List files HEAD added or modified since the merge base with a branch"
	changedLinesCmdUse   = "changed-lines [file]..."
	changedLinesCmdShort = "List lines changed since the merge base with a branch, including uncommitted edits"
	forkPointCmdUse      = "fork-point"
	forkPointCmdShort    = "Find the nearest ancestor of HEAD that lies on another branch"
)

// ErrBranchRequired is returned when --branch is missing.
var ErrBranchRequired = errors.New("target branch is required (use --branch)")

type changedLinesDoc struct {
	File  string `json:"file"  yaml:"file"`
	Lines []int  `json:"lines" yaml:"lines"`
}

type forkPointDoc struct {
	Found    bool   `json:"found"              yaml:"found"`
	Commit   string `json:"commit,omitempty"   yaml:"commit,omitempty"`
	Distance int    `json:"distance,omitempty" yaml:"distance,omitempty"`
}

func newChangedFilesCommand(globals *Globals) *cobra.Command {
	var dir, branch string

	cmd := &cobra.Command{
		Use:   changedFilesCmdUse,
		Short: changedFilesCmdShort,
		Args:  cobra.NoArgs,
		RunE: withSession(globals, func(cmd *cobra.Command, s *session, _ []string) error {
			if branch == "" {
				return ErrBranchRequired
			}

			files, err := s.provider.BranchChangedFiles(cmd.Context(), branch, dir)
			if err != nil {
				return err
			}

			if files == nil {
				files = []string{}
			}

			return render(s.out, s.format, files, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Changed file"})

				for _, f := range files {
					tw.AppendRow(table.Row{f})
				}
			})
		}),
	}

	cmd.Flags().StringVar(&dir, flagDir, defaultDir, "directory inside the work tree")
	cmd.Flags().StringVarP(&branch, flagBranch, "b", "", "target branch")

	return cmd
}

func newChangedLinesCommand(globals *Globals) *cobra.Command {
	var dir, branch string

	cmd := &cobra.Command{
		Use:   changedLinesCmdUse,
		Short: changedLinesCmdShort,
		Long: changedLinesCmdShort + `.

Without file arguments every file reported by changed-files is queried.`,
		RunE: withSession(globals, func(cmd *cobra.Command, s *session, args []string) error {
			if branch == "" {
				return ErrBranchRequired
			}

			files := make([]string, 0, len(args))

			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return err
				}

				files = append(files, abs)
			}

			if len(files) == 0 {
				changed, err := s.provider.BranchChangedFiles(cmd.Context(), branch, dir)
				if err != nil {
					return err
				}

				files = changed
			}

			lines, err := s.provider.BranchChangedLines(cmd.Context(), branch, dir, files)
			if err != nil {
				return err
			}

			docs := make([]changedLinesDoc, 0, len(lines))
			for file, numbers := range lines {
				docs = append(docs, changedLinesDoc{File: file, Lines: numbers})
			}

			slices.SortFunc(docs, func(x, y changedLinesDoc) int { return strings.Compare(x.File, y.File) })

			return render(s.out, s.format, docs, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"File", "Changed lines"})

				for _, doc := range docs {
					tw.AppendRow(table.Row{doc.File, formatRanges(doc.Lines)})
				}
			})
		}),
	}

	cmd.Flags().StringVar(&dir, flagDir, defaultDir, "directory inside the work tree")
	cmd.Flags().StringVarP(&branch, flagBranch, "b", "", "target branch")

	return cmd
}

func newForkPointCommand(globals *Globals) *cobra.Command {
	var dir, branch string

	cmd := &cobra.Command{
		Use:   forkPointCmdUse,
		Short: forkPointCmdShort,
		Long: forkPointCmdShort + `.

Without --branch every other branch of the repository is considered.`,
		Args: cobra.NoArgs,
		RunE: withSession(globals, func(cmd *cobra.Command, s *session, _ []string) error {
			fp, err := s.provider.ForkPoint(cmd.Context(), dir, branch)
			if err != nil {
				return err
			}

			doc := forkPointDoc{}
			if fp != nil {
				doc = forkPointDoc{Found: true, Commit: fp.Commit.String(), Distance: fp.Distance}
			}

			return render(s.out, s.format, doc, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Fork point", "Distance"})

				if doc.Found {
					tw.AppendRow(table.Row{doc.Commit, doc.Distance})
				}
			})
		}),
	}

	cmd.Flags().StringVar(&dir, flagDir, defaultDir, "directory inside the work tree")
	cmd.Flags().StringVarP(&branch, flagBranch, "b", "", "other branch (default: all branches)")

	return cmd
}

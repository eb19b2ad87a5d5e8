package commands

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitscm/pkg/blame"
)

const (
	blameCmdUse   = "blame <file>..."
	blameCmdShort = "Show revision, author and committer date of every line"

	shortRevision = 12
)

type blameLineDoc struct {
	Line     int       `json:"line"     yaml:"line"`
	Revision string    `json:"revision" yaml:"revision"`
	Author   string    `json:"author"   yaml:"author"`
	Date     time.Time `json:"date"     yaml:"date"`
}

type blameFileDoc struct {
	File  string         `json:"file"  yaml:"file"`
	Lines []blameLineDoc `json:"lines" yaml:"lines"`
}

// blameDocs collects results in a stable order for printing.
type blameDocs struct {
	mu   sync.Mutex
	docs []blameFileDoc
}

func (b *blameDocs) BlameResult(file blame.InputFile, lines []blame.Line) {
	doc := blameFileDoc{File: file.Path, Lines: make([]blameLineDoc, len(lines))}

	for i, line := range lines {
		doc.Lines[i] = blameLineDoc{Line: i + 1, Revision: line.Revision, Author: line.Author, Date: line.Date}
	}

	b.mu.Lock()
	b.docs = append(b.docs, doc)
	b.mu.Unlock()
}

func (b *blameDocs) sorted() []blameFileDoc {
	slices.SortFunc(b.docs, func(x, y blameFileDoc) int { return strings.Compare(x.File, y.File) })

	return b.docs
}

func newBlameCommand(globals *Globals) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   blameCmdUse,
		Short: blameCmdShort,
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(globals, func(cmd *cobra.Command, s *session, args []string) error {
			files := make([]blame.InputFile, 0, len(args))

			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}

				files = append(files, blame.InputFile{Path: abs})
			}

			started := time.Now()
			out := &blameDocs{}

			err := s.provider.Blame(cmd.Context(), dir, files, out)
			if err != nil {
				return err
			}

			s.logger.Info("blame done",
				"files", humanize.Comma(int64(len(out.docs))),
				"requested", humanize.Comma(int64(len(files))),
				"took", time.Since(started).Round(time.Millisecond).String(),
			)

			docs := out.sorted()

			return render(s.out, s.format, docs, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"File", "Line", "Revision", "Author", "Committed"})

				for _, doc := range docs {
					for _, line := range doc.Lines {
						tw.AppendRow(table.Row{doc.File, line.Line, abbreviate(line.Revision), line.Author, humanize.Time(line.Date)})
					}
				}
			})
		}),
	}

	cmd.Flags().StringVar(&dir, flagDir, defaultDir, "directory inside the work tree")

	return cmd
}

func abbreviate(revision string) string {
	if len(revision) > shortRevision {
		return revision[:shortRevision]
	}

	return revision
}

package blame

import (
	"bytes"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// splitLines splits content the way git counts lines: each "\n" ends a line
// and a trailing fragment without newline is a line of its own.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}

	text := string(content)
	text = strings.TrimSuffix(text, "\n")

	return strings.Split(text, "\n")
}

// countLines counts lines the way the analyser does: a trailing newline
// opens a final empty line.
func countLines(content []byte) int {
	return bytes.Count(content, []byte{'\n'}) + 1
}

// normalize drops every whitespace character so lines that differ only in
// spacing or line endings compare equal.
func normalize(lines []string) []string {
	out := make([]string, len(lines))

	for i, line := range lines {
		out[i] = strings.Join(strings.Fields(line), "")
	}

	return out
}

// mapLines returns, for every work-tree line, the index of the HEAD line it
// is unchanged from, or -1 for lines that are new or modified. Comparison
// ignores whitespace.
func mapLines(head, work []string) []int {
	mapping := make([]int, len(work))

	headNorm, workNorm := normalize(head), normalize(work)
	if slices.Equal(headNorm, workNorm) {
		for i := range mapping {
			mapping[i] = i
		}

		return mapping
	}

	for i := range mapping {
		mapping[i] = -1
	}

	dmp := diffmatchpatch.New()
	src, dst, _ := dmp.DiffLinesToRunes(joinLines(headNorm), joinLines(workNorm))
	diffs := dmp.DiffMainRunes(src, dst, false)

	headIdx, workIdx := 0, 0

	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for k := range n {
				mapping[workIdx+k] = headIdx + k
			}

			headIdx += n
			workIdx += n
		case diffmatchpatch.DiffDelete:
			headIdx += n
		case diffmatchpatch.DiffInsert:
			workIdx += n
		}
	}

	return mapping
}

func joinLines(lines []string) string {
	var b strings.Builder

	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

package commands

import (
	"strconv"
	"strings"
)

// formatRanges renders sorted line numbers compactly, e.g. "2-3,11-13".
func formatRanges(lines []int) string {
	var b strings.Builder

	for i := 0; i < len(lines); {
		j := i
		for j+1 < len(lines) && lines[j+1] == lines[j]+1 {
			j++
		}

		if b.Len() > 0 {
			b.WriteByte(',')
		}

		b.WriteString(strconv.Itoa(lines[i]))

		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(lines[j]))
		}

		i = j + 1
	}

	return b.String()
}

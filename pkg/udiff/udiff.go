// Package udiff extracts the new-side line numbers added by a unified diff.
package udiff

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedHunkHeader is returned for an "@@" line that cannot be decoded.
var ErrMalformedHunkHeader = errors.New("malformed hunk header")

const (
	hunkPrefix    = "@@"
	initialBuffer = 64 * 1024
	maxLineLength = 16 * 1024 * 1024
)

// parser tracks the position inside the current hunk. A hunk is open while
// either side still expects lines; outside a hunk every line but a hunk
// header is file-level metadata and is skipped.
type parser struct {
	lines   *LineSet
	nextNew int
	oldLeft int
	newLeft int
}

func (p *parser) inHunk() bool {
	return p.oldLeft > 0 || p.newLeft > 0
}

// ChangedLines reads a unified diff and returns the new-side line numbers of
// every added line. Pure deletions contribute nothing. The stream is consumed
// line by line.
func ChangedLines(r io.Reader) (*LineSet, error) {
	p := &parser{lines: NewLineSet()}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialBuffer), maxLineLength)

	for scanner.Scan() {
		err := p.consume(scanner.Text())
		if err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read diff: %w", err)
	}

	return p.lines, nil
}

func (p *parser) consume(line string) error {
	if !p.inHunk() {
		if strings.HasPrefix(line, hunkPrefix) {
			return p.startHunk(line)
		}

		return nil
	}

	if line == "" {
		// Some producers strip the leading space of empty context lines.
		p.context()

		return nil
	}

	switch line[0] {
	case '+':
		p.lines.Add(p.nextNew)
		p.nextNew++
		p.newLeft--
	case '-':
		p.oldLeft--
	case ' ':
		p.context()
	case '\\':
		// "\ No newline at end of file".
	case '@':
		return p.startHunk(line)
	default:
		// Counts overran the body; treat the line as metadata of the next file.
		p.oldLeft, p.newLeft = 0, 0
	}

	return nil
}

func (p *parser) context() {
	p.nextNew++
	p.oldLeft--
	p.newLeft--
}

// startHunk decodes "@@ -a[,b] +c[,d] @@ section".
func (p *parser) startHunk(header string) error {
	fields := strings.Fields(header)
	if len(fields) < 4 || fields[0] != hunkPrefix || fields[3] != hunkPrefix {
		return fmt.Errorf("%w: %q", ErrMalformedHunkHeader, header)
	}

	_, oldCount, err := parseRange(fields[1], '-')
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedHunkHeader, header)
	}

	newStart, newCount, err := parseRange(fields[2], '+')
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedHunkHeader, header)
	}

	p.nextNew = newStart
	p.oldLeft = oldCount
	p.newLeft = newCount

	return nil
}

// parseRange decodes "<sign>start[,count]"; an omitted count means one line.
func parseRange(field string, sign byte) (start, count int, err error) {
	if len(field) < 2 || field[0] != sign {
		return 0, 0, strconv.ErrSyntax
	}

	startText, countText, hasCount := strings.Cut(field[1:], ",")

	start, err = strconv.Atoi(startText)
	if err != nil || start < 0 {
		return 0, 0, strconv.ErrSyntax
	}

	count = 1

	if hasCount {
		count, err = strconv.Atoi(countText)
		if err != nil || count < 0 {
			return 0, 0, strconv.ErrSyntax
		}
	}

	return start, count, nil
}

package blame

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

const missingHeader = "Missing blame information for the following files:"

// InputFile is a file to blame. Lines is the line count the analyser sees;
// zero or less makes the engine count the work-tree content itself.
type InputFile struct {
	Path  string
	Lines int
}

// Line is the blame of one line: committer date, source commit and author email.
type Line struct {
	Date     time.Time
	Revision string
	Author   string
}

// Output receives one call per successfully blamed file. The engine never
// calls it concurrently.
type Output interface {
	BlameResult(file InputFile, lines []Line)
}

// Collector is an Output that keeps every result in memory.
type Collector struct {
	mu      sync.Mutex
	results map[string][]Line
	order   []string
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{results: make(map[string][]Line)}
}

// BlameResult implements Output.
func (c *Collector) BlameResult(file InputFile, lines []Line) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.results[file.Path]; !ok {
		c.order = append(c.order, file.Path)
	}

	c.results[file.Path] = lines
}

// Result returns the lines recorded for path.
func (c *Collector) Result(path string) ([]Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, ok := c.results[path]

	return lines, ok
}

// Paths returns the blamed paths in the order results arrived.
func (c *Collector) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.order...)
}

// Missing returns the inputs that received no result, in input order.
func (c *Collector) Missing(files []InputFile) []InputFile {
	c.mu.Lock()
	defer c.mu.Unlock()

	var missing []InputFile

	for _, f := range files {
		if _, ok := c.results[f.Path]; !ok {
			missing = append(missing, f)
		}
	}

	return missing
}

// LogMissing warns about every input without a result and returns how many
// there were.
func (c *Collector) LogMissing(logger *slog.Logger, files []InputFile) int {
	missing := c.Missing(files)
	if len(missing) == 0 {
		return 0
	}

	if logger == nil {
		logger = slog.Default()
	}

	var b strings.Builder

	b.WriteString(missingHeader)

	for _, f := range missing {
		b.WriteString("\n  * ")
		b.WriteString(f.Path)
	}

	logger.Warn(b.String())

	return len(missing)
}

// syncOutput serializes calls into a caller supplied Output.
type syncOutput struct {
	mu    sync.Mutex
	inner Output
	count int
}

func (s *syncOutput) BlameResult(file InputFile, lines []Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.inner.BlameResult(file, lines)
}

// Package blame computes per-line authorship for work-tree files, blaming
// files in parallel across a pool of workers.
package blame

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitscm/pkg/warnings"
)

// ShallowCloneWarning is reported instead of blaming a shallow clone.
const ShallowCloneWarning = "Shallow clone detected, no blame information will be provided. " +
	"You can convert to non-shallow with 'git fetch --unshallow'."

// Engine blames files of one work tree per Blame call.
type Engine struct {
	workers int
	warn    warnings.Sink
	logger  *slog.Logger
}

// NewEngine returns an engine running workers goroutines; zero or less uses
// one per CPU. A nil sink discards warnings and a nil logger uses slog.Default.
func NewEngine(workers int, warn warnings.Sink, logger *slog.Logger) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if warn == nil {
		warn = warnings.Noop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{workers: workers, warn: warn, logger: logger}
}

// job is one file assigned to the repository that owns it.
type job struct {
	file    InputFile
	root    string
	relPath string
}

// Blame blames files and reports each successful result to out. Per-file
// failures are logged and skipped. Cancelling ctx stops scheduling new files;
// results already delivered stay delivered and Blame returns nil.
func (e *Engine) Blame(ctx context.Context, baseDir string, files []InputFile, out Output) error {
	repo, err := gitlib.Discover(baseDir)
	if err != nil {
		return err
	}
	defer repo.Free()

	shallow, err := repo.IsShallow()
	if err != nil {
		return err
	}

	if shallow {
		e.logger.WarnContext(ctx, ShallowCloneWarning)
		e.warn.AddUnique(ShallowCloneWarning)

		return nil
	}

	jobs := e.plan(ctx, repo, files)
	sink := &syncOutput{inner: out}

	e.runPool(ctx, jobs, sink)

	if ctx.Err() != nil {
		e.logger.InfoContext(ctx, "Git blame interrupted")
	}

	e.logger.DebugContext(ctx, "blame finished", "files", len(files), "blamed", sink.count)

	return nil
}

// plan assigns every input file to the work tree that owns it: the top-level
// repository or the submodule with the longest matching path.
func (e *Engine) plan(ctx context.Context, repo *gitlib.Repository, files []InputFile) []job {
	root := repo.WorkDir()

	submodules, err := repo.SubmodulePaths()
	if err != nil {
		e.logger.WarnContext(ctx, "unable to read submodules", "error", err)
	}

	jobs := make([]job, 0, len(files))

	for _, f := range files {
		rel, ok := relativeTo(root, f.Path)
		if !ok {
			e.logger.DebugContext(ctx, "file is outside the work tree", "file", f.Path, "root", root)

			continue
		}

		j := job{file: f, root: root, relPath: rel}

		if sub := owningSubmodule(submodules, rel); sub != "" {
			j.root = filepath.Join(root, filepath.FromSlash(sub))
			j.relPath = strings.TrimPrefix(rel, sub+"/")
		}

		jobs = append(jobs, j)
	}

	return jobs
}

func owningSubmodule(submodules []string, rel string) string {
	best := ""

	for _, sub := range submodules {
		if strings.HasPrefix(rel, sub+"/") && len(sub) > len(best) {
			best = sub
		}
	}

	return best
}

// relativeTo returns file relative to root in slash form.
func relativeTo(root, file string) (string, bool) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", false
	}

	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}

	return path.Clean(rel), true
}

func (e *Engine) runPool(ctx context.Context, jobs []job, out Output) {
	queue := make(chan job)

	var wg sync.WaitGroup

	for range min(e.workers, max(1, len(jobs))) {
		wg.Add(1)

		go func() {
			defer wg.Done()

			w := newWorker(e.logger)
			defer w.close()

			for j := range queue {
				w.process(ctx, j, out)
			}
		}()
	}

feed:
	for _, j := range jobs {
		// A ready worker must not win the select over an already cancelled ctx.
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
			break feed
		case queue <- j:
		}
	}

	close(queue)
	wg.Wait()
}

// worker owns libgit2 handles; a handle is never shared between goroutines.
type worker struct {
	logger  *slog.Logger
	handles map[string]*handle
}

func newWorker(logger *slog.Logger) *worker {
	return &worker{logger: logger, handles: make(map[string]*handle)}
}

func (w *worker) close() {
	for _, h := range w.handles {
		h.free()
	}
}

func (w *worker) handle(ctx context.Context, root string) (*handle, error) {
	if h, ok := w.handles[root]; ok {
		return h, nil
	}

	h, err := openHandle(ctx, root)
	if err != nil {
		return nil, err
	}

	w.handles[root] = h

	return h, nil
}

func (w *worker) process(ctx context.Context, j job, out Output) {
	w.logger.DebugContext(ctx, "Blame file", "file", j.relPath)

	lines, err := w.blame(ctx, j)
	if err != nil {
		w.logger.WarnContext(ctx, "blame failed", "error", fmt.Errorf("blame file %s: %w", j.file.Path, err))

		return
	}

	if lines != nil {
		out.BlameResult(j.file, lines)
	}
}

// blame returns nil lines when the file must be skipped without error.
func (w *worker) blame(ctx context.Context, j job) ([]Line, error) {
	content, ok := readRegular(j.file.Path)
	if !ok {
		w.logger.DebugContext(ctx, fmt.Sprintf("Unable to blame file %s. It is probably a symlink.", j.relPath))

		return nil, nil
	}

	h, err := w.handle(ctx, j.root)
	if err != nil {
		return nil, err
	}

	headLines, err := h.blameHead(ctx, j.relPath)
	if err != nil {
		return nil, err
	}

	if !headLines.found {
		w.logger.DebugContext(ctx, fmt.Sprintf("Unable to blame file %s. No blame info at line 1. Is file committed?", j.relPath))

		return nil, nil
	}

	work := splitLines(content)
	mapping := mapLines(headLines.text, work)

	expected := j.file.Lines
	if expected <= 0 {
		expected = countLines(content)
	}

	size := len(work)
	duplicateLast := size > 0 && size == expected-1

	if duplicateLast {
		size++
	}

	lines := make([]Line, size)

	for i, headIdx := range mapping {
		if headIdx < 0 || headIdx >= len(headLines.lines) || headLines.lines[headIdx].Revision == "" {
			w.logger.DebugContext(ctx, fmt.Sprintf("Unable to blame file %s. No blame info at line %d. Is file committed?", j.relPath, i+1))

			return nil, nil
		}

		lines[i] = headLines.lines[headIdx]
	}

	if duplicateLast {
		lines[size-1] = lines[size-2]
	}

	return lines, nil
}

// readRegular reads a regular file; symlinks and unreadable paths report false.
func readRegular(file string) ([]byte, bool) {
	info, err := os.Lstat(file)
	if err != nil || info.Mode()&fs.ModeType != 0 {
		return nil, false
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return nil, false
	}

	return content, true
}

var errNoHead = errors.New("repository has no HEAD commit")

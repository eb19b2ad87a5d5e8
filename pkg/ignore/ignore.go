// Package ignore filters out files that git ignores.
package ignore

import (
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
)

// Filter rejects files matched by the work tree's ignore rules.
type Filter struct {
	ignored map[string]struct{}
	logger  *slog.Logger
}

// New snapshots the ignored files of the work tree enclosing baseDir.
func New(baseDir string, logger *slog.Logger) (*Filter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := gitlib.Discover(baseDir)
	if err != nil {
		return nil, err
	}
	defer repo.Free()

	paths, err := repo.IgnoredPaths()
	if err != nil {
		return nil, err
	}

	ignored := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		ignored[filepath.Join(repo.WorkDir(), filepath.FromSlash(p))] = struct{}{}
	}

	return &Filter{ignored: ignored, logger: logger}, nil
}

// Accept reports whether path, an absolute file path, is not ignored.
func (f *Filter) Accept(path string) bool {
	if _, ok := f.ignored[filepath.Clean(path)]; !ok {
		return true
	}

	f.logger.Debug("File " + path + " was ignored by git")

	return false
}

// Len returns the number of ignored files.
func (f *Filter) Len() int {
	return len(f.ignored)
}

// Paths returns the ignored absolute paths in sorted order.
func (f *Filter) Paths() []string {
	paths := make([]string, 0, len(f.ignored))
	for p := range f.ignored {
		paths = append(paths, p)
	}

	slices.Sort(paths)

	return paths
}

// Package branchdiff reports the files and lines a branch changed relative to
// its merge base with a target branch.
package branchdiff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitscm/pkg/refs"
	"github.com/Sumatoshi-tech/gitscm/pkg/udiff"
	"github.com/Sumatoshi-tech/gitscm/pkg/warnings"
)

// ErrUnsupportedDiffAlgorithm is returned when diff.algorithm names a variant
// that cannot be reproduced.
var ErrUnsupportedDiffAlgorithm = errors.New("unsupported diff algorithm")

var errNoCommit = errors.New("ref does not point at a commit")

const (
	diffAlgorithmKey = "diff.algorithm"
	autoCRLFKey      = "core.autocrlf"

	unsupportedAlgorithmWarning = "The diff algorithm configured in git is not supported. " +
		"No information regarding changes in the branch will be collected, which can lead to unexpected results."
)

// Engine computes branch changes. The zero value is not usable; use New.
type Engine struct {
	opts refs.Options
	warn warnings.Sink
}

// New returns an engine. promoteRemote tries refs/remotes/origin before the
// local branch when resolving targets.
func New(promoteRemote bool, warn warnings.Sink, logger *slog.Logger) *Engine {
	if warn == nil {
		warn = warnings.Noop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{opts: refs.Options{PromoteRemote: promoteRemote, Logger: logger}, warn: warn}
}

func (e *Engine) logger() *slog.Logger {
	return e.opts.Logger
}

// ChangedFiles returns the absolute paths of files added or modified on HEAD
// since its merge base with branch.
func (e *Engine) ChangedFiles(ctx context.Context, branch, baseDir string) (map[string]struct{}, error) {
	repo, err := gitlib.Discover(baseDir)
	if err != nil {
		return nil, err
	}
	defer repo.Free()

	target, err := refs.Resolve(repo, branch, e.opts, e.warn)
	if err != nil {
		return nil, err
	}

	algorithm, err := e.diffAlgorithm(ctx, repo)
	if err != nil {
		e.logger().WarnContext(ctx, unsupportedAlgorithmWarning)

		return nil, err
	}

	base, err := e.mergeBaseTree(ctx, repo, target)
	if err != nil {
		return nil, err
	}
	defer base.Free()

	head, err := headTree(ctx, repo)
	if err != nil {
		return nil, err
	}
	defer head.Free()

	diff, err := repo.DiffTreeToTree(base, head, gitlib.DiffOptions{Algorithm: algorithm})
	if err != nil {
		return nil, err
	}
	defer diff.Free()

	deltas, err := diff.Deltas()
	if err != nil {
		return nil, err
	}

	changed := make(map[string]struct{})

	for _, delta := range deltas {
		if delta.Status != gitlib.DeltaAdded && delta.Status != gitlib.DeltaModified {
			continue
		}

		changed[filepath.Join(repo.WorkDir(), filepath.FromSlash(delta.NewPath))] = struct{}{}
	}

	return changed, nil
}

// ChangedLines returns, for every given file that differs from the merge base
// with branch, the 1-based work-tree line numbers that were added or changed.
// Uncommitted and untracked content counts. Whitespace changes are ignored.
// Files that fail or lie outside the work tree are omitted.
func (e *Engine) ChangedLines(ctx context.Context, branch, baseDir string, files []string) (map[string]map[int]struct{}, error) {
	repo, err := gitlib.Discover(baseDir)
	if err != nil {
		return nil, err
	}

	restore := func() {}

	defer func() {
		repo.Free()
		restore()
	}()

	target, err := refs.Resolve(repo, branch, e.opts, e.warn)
	if err != nil {
		return nil, err
	}

	// The warning is reported by ChangedFiles.
	algorithm, err := e.diffAlgorithm(ctx, repo)
	if err != nil {
		return nil, err
	}

	undo, err := repo.OverrideConfigBool(autoCRLFKey, true)
	if err != nil {
		return nil, err
	}

	restore = undo

	base, err := e.mergeBaseTree(ctx, repo, target)
	if err != nil {
		return nil, err
	}
	defer base.Free()

	changed := make(map[string]map[int]struct{})

	for _, file := range files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		rel, ok := gitPath(repo.WorkDir(), file)
		if !ok {
			e.logger().DebugContext(ctx, "file is outside the work tree", "file", file)

			continue
		}

		lines, found, lineErr := changedLines(repo, base, rel, algorithm)
		if lineErr != nil {
			e.logger().WarnContext(ctx, "Failed to get changed lines from git for file "+file, "error", lineErr)

			continue
		}

		if found {
			changed[file] = lines
		}
	}

	return changed, nil
}

func changedLines(repo *gitlib.Repository, base *gitlib.Tree, rel string, algorithm gitlib.DiffAlgorithm) (map[int]struct{}, bool, error) {
	diff, err := repo.DiffTreeToWorkdir(base, gitlib.DiffOptions{
		Algorithm:        algorithm,
		IgnoreWhitespace: true,
		Paths:            []string{rel},
		Untracked:        true,
	})
	if err != nil {
		return nil, false, err
	}
	defer diff.Free()

	deltas, err := diff.Deltas()
	if err != nil {
		return nil, false, err
	}

	found := false

	for _, delta := range deltas {
		switch delta.Status {
		case gitlib.DeltaAdded, gitlib.DeltaModified, gitlib.DeltaUntracked:
			found = true
		case gitlib.DeltaOther, gitlib.DeltaDeleted, gitlib.DeltaRenamed:
		}
	}

	if !found {
		return nil, false, nil
	}

	patch, err := diff.Patch()
	if err != nil {
		return nil, false, err
	}

	set, err := udiff.ChangedLines(bytes.NewReader(patch))
	if err != nil {
		return nil, false, fmt.Errorf("parse diff of %s: %w", rel, err)
	}

	lines := make(map[int]struct{}, set.Len())
	for _, n := range set.Slice() {
		lines[n] = struct{}{}
	}

	return lines, true, nil
}

// diffAlgorithm maps diff.algorithm onto a libgit2 algorithm. Histogram has
// no libgit2 counterpart and runs as patience.
func (e *Engine) diffAlgorithm(ctx context.Context, repo *gitlib.Repository) (gitlib.DiffAlgorithm, error) {
	value, err := repo.ConfigString(diffAlgorithmKey)
	if err != nil {
		return gitlib.DiffAlgorithmMyers, err
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "myers", "default":
		return gitlib.DiffAlgorithmMyers, nil
	case "minimal":
		return gitlib.DiffAlgorithmMinimal, nil
	case "patience":
		return gitlib.DiffAlgorithmPatience, nil
	case "histogram":
		e.logger().DebugContext(ctx, "Diff algorithm histogram is not available, using patience")

		return gitlib.DiffAlgorithmPatience, nil
	}

	return gitlib.DiffAlgorithmMyers, fmt.Errorf("%w: %q", ErrUnsupportedDiffAlgorithm, value)
}

func (e *Engine) mergeBaseTree(ctx context.Context, repo *gitlib.Repository, target *gitlib.Reference) (*gitlib.Tree, error) {
	if target.Commit.IsZero() {
		return nil, fmt.Errorf("%w: %s", errNoCommit, target.Name)
	}

	head, ok, err := repo.HeadTarget()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoCommit, gitlib.HeadRef)
	}

	base, err := repo.MergeBase(target.Commit, head)
	if err != nil {
		return nil, err
	}

	e.logger().DebugContext(ctx, "merge base", "sha1", base.String())

	return commitTree(ctx, repo, base)
}

func headTree(ctx context.Context, repo *gitlib.Repository) (*gitlib.Tree, error) {
	head, ok, err := repo.HeadTarget()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoCommit, gitlib.HeadRef)
	}

	return commitTree(ctx, repo, head)
}

func commitTree(ctx context.Context, repo *gitlib.Repository, hash gitlib.Hash) (*gitlib.Tree, error) {
	commit, err := repo.LookupCommit(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	return commit.Tree()
}

// gitPath returns file relative to root in slash form.
func gitPath(root, file string) (string, bool) {
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

	return rel, true
}

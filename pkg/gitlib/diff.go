package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// DiffAlgorithm selects the line matching strategy of a diff.
type DiffAlgorithm int

// Supported diff algorithms.
const (
	DiffAlgorithmMyers DiffAlgorithm = iota
	DiffAlgorithmMinimal
	DiffAlgorithmPatience
)

// DeltaStatus is the kind of change a delta records.
type DeltaStatus int

// Delta statuses relevant to branch analysis; everything else maps to DeltaOther.
const (
	DeltaOther DeltaStatus = iota
	DeltaAdded
	DeltaModified
	DeltaDeleted
	DeltaRenamed
	DeltaUntracked
)

// String returns a lowercase status name.
func (s DeltaStatus) String() string {
	switch s {
	case DeltaAdded:
		return "added"
	case DeltaModified:
		return "modified"
	case DeltaDeleted:
		return "deleted"
	case DeltaRenamed:
		return "renamed"
	case DeltaUntracked:
		return "untracked"
	case DeltaOther:
		return "other"
	}

	return "other"
}

func deltaStatusOf(delta git2go.Delta) DeltaStatus {
	switch delta {
	case git2go.DeltaAdded:
		return DeltaAdded
	case git2go.DeltaModified:
		return DeltaModified
	case git2go.DeltaDeleted:
		return DeltaDeleted
	case git2go.DeltaRenamed:
		return DeltaRenamed
	case git2go.DeltaUntracked:
		return DeltaUntracked
	case git2go.DeltaUnmodified, git2go.DeltaCopied, git2go.DeltaIgnored,
		git2go.DeltaTypeChange, git2go.DeltaUnreadable, git2go.DeltaConflicted:
		return DeltaOther
	}

	return DeltaOther
}

// DiffOptions configure tree and work-tree diffs.
type DiffOptions struct {
	Algorithm        DiffAlgorithm
	IgnoreWhitespace bool
	// Paths restricts the diff to exact paths; no glob matching is applied.
	Paths []string
	// Untracked includes untracked work-tree files with their content.
	Untracked bool
}

func (o DiffOptions) native() (*git2go.DiffOptions, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("diff options: %w", err)
	}

	switch o.Algorithm {
	case DiffAlgorithmMinimal:
		opts.Flags |= git2go.DiffMinimal
	case DiffAlgorithmPatience:
		opts.Flags |= git2go.DiffPatience
	case DiffAlgorithmMyers:
	}

	if o.IgnoreWhitespace {
		opts.Flags |= git2go.DiffIgnoreWhitespace
	}

	if len(o.Paths) > 0 {
		opts.Pathspec = o.Paths
		opts.Flags |= git2go.DiffDisablePathspecMatch
	}

	if o.Untracked {
		opts.Flags |= git2go.DiffIncludeUntracked | git2go.DiffRecurseUntracked | git2go.DiffShowUntrackedContent
	}

	return &opts, nil
}

// DiffTreeToTree compares two trees. A nil old tree stands for the empty tree.
func (r *Repository) DiffTreeToTree(oldTree, newTree *Tree, opts DiffOptions) (*Diff, error) {
	native, err := opts.native()
	if err != nil {
		return nil, err
	}

	diff, err := r.repo.DiffTreeToTree(oldTree.native(), newTree.native(), native)
	if err != nil {
		return nil, fmt.Errorf("diff tree to tree: %w", err)
	}

	return &Diff{diff: diff}, nil
}

// DiffTreeToWorkdir compares a tree with the work tree, seen through the index
// so staged and unstaged edits both count.
func (r *Repository) DiffTreeToWorkdir(oldTree *Tree, opts DiffOptions) (*Diff, error) {
	native, err := opts.native()
	if err != nil {
		return nil, err
	}

	diff, err := r.repo.DiffTreeToWorkdirWithIndex(oldTree.native(), native)
	if err != nil {
		return nil, fmt.Errorf("diff tree to workdir: %w", err)
	}

	return &Diff{diff: diff}, nil
}

// Diff wraps a libgit2 diff.
type Diff struct {
	diff *git2go.Diff
}

// DiffDelta is a single file change of a diff.
type DiffDelta struct {
	Status  DeltaStatus
	OldPath string
	NewPath string
}

// Deltas returns every file change of the diff in libgit2 order.
func (d *Diff) Deltas() ([]DiffDelta, error) {
	count, err := d.diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	deltas := make([]DiffDelta, 0, count)

	for i := range count {
		delta, deltaErr := d.diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		deltas = append(deltas, DiffDelta{
			Status:  deltaStatusOf(delta.Status),
			OldPath: delta.OldFile.Path,
			NewPath: delta.NewFile.Path,
		})
	}

	return deltas, nil
}

// Patch renders the diff as unified patch text.
func (d *Diff) Patch() ([]byte, error) {
	buf, err := d.diff.ToBuf(git2go.DiffFormatPatch)
	if err != nil {
		return nil, fmt.Errorf("format patch: %w", err)
	}

	return buf, nil
}

// Free releases the diff resources.
func (d *Diff) Free() {
	if d.diff == nil {
		return
	}

	err := d.diff.Free()
	d.diff = nil
	// Consume error - Free() errors are non-actionable in cleanup.
	if err != nil {
		return
	}
}

package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrPathNotInHead is returned when blaming a path HEAD does not contain.
var ErrPathNotInHead = errors.New("path not present in HEAD")

// blameIgnoreWhitespace mirrors GIT_BLAME_IGNORE_WHITESPACE, which git2go does not export.
const blameIgnoreWhitespace git2go.BlameOptionsFlag = 1 << 6

// BlameOptions control a blame run.
type BlameOptions struct {
	IgnoreWhitespace bool
}

// BlameHunk is a run of consecutive lines attributed to a single commit.
// FinalStartLine is 1-based and refers to the blamed revision of the file.
type BlameHunk struct {
	FinalCommit    Hash
	FinalStartLine int
	Lines          int
	Author         Signature
}

// BlameFile blames relPath, a slash separated path relative to the work-tree
// root, as of HEAD. Hunks are returned in line order.
func (r *Repository) BlameFile(relPath string, opts BlameOptions) ([]BlameHunk, error) {
	native, err := git2go.DefaultBlameOptions()
	if err != nil {
		return nil, fmt.Errorf("blame options: %w", err)
	}

	if opts.IgnoreWhitespace {
		native.Flags |= blameIgnoreWhitespace
	}

	blame, err := r.repo.BlameFile(relPath, &native)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotInHead, relPath)
		}

		return nil, fmt.Errorf("blame %s: %w", relPath, err)
	}

	defer func() {
		// Blame.Free only reports a double free.
		_ = blame.Free() //nolint:errcheck // see above.
	}()

	count := blame.HunkCount()
	hunks := make([]BlameHunk, 0, count)

	for i := range count {
		hunk, hunkErr := blame.HunkByIndex(i)
		if hunkErr != nil {
			return nil, fmt.Errorf("blame hunk %d of %s: %w", i, relPath, hunkErr)
		}

		hunks = append(hunks, BlameHunk{
			FinalCommit:    HashFromOid(hunk.FinalCommitId),
			FinalStartLine: int(hunk.FinalStartLineNumber),
			Lines:          int(hunk.LinesInHunk),
			Author:         signatureOf(hunk.FinalSignature),
		})
	}

	return hunks, nil
}

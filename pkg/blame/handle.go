package blame

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
)

// handle is a worker-private repository handle with HEAD and commit dates
// cached across files.
type handle struct {
	repo  *gitlib.Repository
	head  *gitlib.Commit
	dates map[gitlib.Hash]time.Time
}

func openHandle(ctx context.Context, root string) (*handle, error) {
	repo, err := gitlib.OpenRepository(root)
	if err != nil {
		return nil, err
	}

	headHash, ok, err := repo.HeadTarget()
	if err == nil && !ok {
		err = errNoHead
	}

	if err != nil {
		repo.Free()

		return nil, err
	}

	head, err := repo.LookupCommit(ctx, headHash)
	if err != nil {
		repo.Free()

		return nil, err
	}

	return &handle{repo: repo, head: head, dates: make(map[gitlib.Hash]time.Time)}, nil
}

func (h *handle) free() {
	h.head.Free()
	h.repo.Free()
}

// headBlame is the blame of a file as committed in HEAD.
type headBlame struct {
	found bool
	text  []string
	lines []Line
}

// blameHead blames relPath at HEAD. A path HEAD does not contain yields a
// result with found unset.
func (h *handle) blameHead(ctx context.Context, relPath string) (headBlame, error) {
	content, ok, err := h.head.FileContents(relPath)
	if err != nil {
		return headBlame{}, err
	}

	if !ok {
		return headBlame{}, nil
	}

	hunks, err := h.repo.BlameFile(relPath, gitlib.BlameOptions{IgnoreWhitespace: true})
	if errors.Is(err, gitlib.ErrPathNotInHead) {
		return headBlame{}, nil
	}

	if err != nil {
		return headBlame{}, err
	}

	text := splitLines(content)
	lines := make([]Line, len(text))

	for _, hunk := range hunks {
		date, dateErr := h.committerDate(ctx, hunk.FinalCommit)
		if dateErr != nil {
			return headBlame{}, dateErr
		}

		line := Line{Date: date, Revision: hunk.FinalCommit.String(), Author: hunk.Author.Email}
		if hunk.FinalCommit.IsZero() || hunk.Author.Email == "" {
			line = Line{}
		}

		for i := range hunk.Lines {
			idx := hunk.FinalStartLine - 1 + i
			if idx >= 0 && idx < len(lines) {
				lines[idx] = line
			}
		}
	}

	return headBlame{found: true, text: text, lines: lines}, nil
}

func (h *handle) committerDate(ctx context.Context, hash gitlib.Hash) (time.Time, error) {
	if hash.IsZero() {
		return time.Time{}, nil
	}

	if date, ok := h.dates[hash]; ok {
		return date, nil
	}

	commit, err := h.repo.LookupCommit(ctx, hash)
	if err != nil {
		return time.Time{}, fmt.Errorf("committer of %s: %w", hash, err)
	}
	defer commit.Free()

	date := commit.Committer().When
	h.dates[hash] = date

	return date, nil
}

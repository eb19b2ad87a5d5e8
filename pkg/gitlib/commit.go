package gitlib

import (
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrNotBlob is returned when a tree path does not name a file.
var ErrNotBlob = errors.New("path is not a file")

// Commit wraps a libgit2 commit. Its header is fully decoded on lookup.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Author returns the commit author.
func (c *Commit) Author() Signature {
	return signatureOf(c.commit.Author())
}

// Committer returns the commit committer.
func (c *Commit) Committer() Signature {
	return signatureOf(c.commit.Committer())
}

// Time returns the committer time, the ordering key of history walks.
func (c *Commit) Time() time.Time {
	return c.commit.Committer().When
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return int(c.commit.ParentCount()) //nolint:gosec // a commit has a handful of parents.
}

// ParentHash returns the hash of the nth parent.
func (c *Commit) ParentHash(n int) Hash {
	if n < 0 {
		return Hash{}
	}

	return HashFromOid(c.commit.ParentId(uint(n)))
}

// ParentHashes returns the hashes of all parents in order.
func (c *Commit) ParentHashes() []Hash {
	count := c.NumParents()
	parents := make([]Hash, count)

	for i := range count {
		parents[i] = c.ParentHash(i)
	}

	return parents
}

// TreeHash returns the hash of the root tree.
func (c *Commit) TreeHash() Hash {
	return HashFromOid(c.commit.TreeId())
}

// Tree returns the tree associated with this commit.
func (c *Commit) Tree() (*Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree: %w", err)
	}

	return &Tree{tree: tree, repo: c.repo}, nil
}

// FileContents returns the content of the blob stored at path in this commit.
// The boolean is false when the path does not exist in the commit.
func (c *Commit) FileContents(path string) ([]byte, bool, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, false, err
	}
	defer tree.Free()

	entry, err := tree.EntryByPath(path)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}

		return nil, false, err
	}

	if !entry.IsBlob() {
		return nil, false, fmt.Errorf("%w: %s", ErrNotBlob, path)
	}

	blob, err := c.repo.repo.LookupBlob(entry.Hash().ToOid())
	if err != nil {
		return nil, false, fmt.Errorf("lookup blob %s: %w", path, err)
	}
	defer blob.Free()

	contents := blob.Contents()
	out := make([]byte, len(contents))
	copy(out, contents)

	return out, true, nil
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}

// Native returns the underlying libgit2 commit.
func (c *Commit) Native() *git2go.Commit {
	return c.commit
}

func signatureOf(sig *git2go.Signature) Signature {
	if sig == nil {
		return Signature{}
	}

	return Signature{
		Name:  sig.Name,
		Email: sig.Email,
		When:  sig.When,
	}
}

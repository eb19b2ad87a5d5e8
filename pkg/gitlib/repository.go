package gitlib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrNotInWorkTree is returned when no non-bare repository encloses a directory.
var ErrNotInWorkTree = errors.New("not inside a git work tree")

// Repository wraps a libgit2 repository with a checked-out work tree.
type Repository struct {
	repo    *git2go.Repository
	workDir string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, workDir: trimSeparator(repo.Workdir())}, nil
}

// Discover opens the repository whose work tree contains baseDir, walking up
// the directory hierarchy. A file path is resolved from its parent directory.
func Discover(baseDir string) (*Repository, error) {
	gitDir, err := discoverGitDir(baseDir)
	if err != nil {
		return nil, err
	}

	repo, err := OpenRepository(gitDir)
	if err != nil {
		return nil, err
	}

	if repo.repo.IsBare() {
		repo.Free()

		return nil, fmt.Errorf("%w: %s", ErrNotInWorkTree, baseDir)
	}

	return repo, nil
}

// IsInsideWorkTree reports whether baseDir belongs to a git work tree.
func IsInsideWorkTree(baseDir string) bool {
	_, err := discoverGitDir(baseDir)

	return err == nil
}

func discoverGitDir(baseDir string) (string, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotInWorkTree, baseDir)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotInWorkTree, baseDir)
	}

	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	gitDir, err := git2go.Discover(abs, true, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotInWorkTree, baseDir)
	}

	return gitDir, nil
}

func trimSeparator(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	return filepath.FromSlash(path)
}

// WorkDir returns the absolute work-tree root without a trailing separator.
func (r *Repository) WorkDir() string {
	return r.workDir
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// HeadTarget returns the object HEAD points to. The boolean is false when
// HEAD is unborn, as in a freshly initialised repository.
func (r *Repository) HeadTarget() (Hash, bool, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if hasCode(err, git2go.ErrorCodeUnbornBranch) || IsNotFound(err) {
			return Hash{}, false, nil
		}

		return Hash{}, false, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), true, nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(_ context.Context, hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupTree returns the tree with the given hash.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree: %w", err)
	}

	return &Tree{tree: tree, repo: r}, nil
}

// MergeBase computes the best common ancestor of two commits.
func (r *Repository) MergeBase(one, two Hash) (Hash, error) {
	oid, err := r.repo.MergeBase(one.ToOid(), two.ToOid())
	if err != nil {
		return Hash{}, fmt.Errorf("merge base of %s and %s: %w", one, two, err)
	}

	return HashFromOid(oid), nil
}

// IsShallow reports whether the repository is a shallow clone. Calling it
// also loads the shallow graft set, which must happen before handles fan out.
func (r *Repository) IsShallow() (bool, error) {
	shallow, err := r.repo.IsShallow()
	if err != nil {
		return false, fmt.Errorf("check shallow: %w", err)
	}

	return shallow, nil
}

// IsNotFound reports whether err, possibly wrapped, is libgit2's not-found error.
func IsNotFound(err error) bool {
	return hasCode(err, git2go.ErrorCodeNotFound)
}

func hasCode(err error, code git2go.ErrorCode) bool {
	var gitErr *git2go.GitError

	return errors.As(err, &gitErr) && gitErr.Code == code
}

// Native returns the underlying libgit2 repository for advanced operations.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}

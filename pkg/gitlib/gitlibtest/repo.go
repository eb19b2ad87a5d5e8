// Package gitlibtest builds throwaway git repositories for tests.
package gitlibtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
)

// Default identity used by Commit.
const (
	DefaultName  = "Test User"
	DefaultEmail = "test@example.com"
)

// Repo is a non-bare repository in a temporary directory.
type Repo struct {
	t      *testing.T
	Path   string
	Native *git2go.Repository
	clock  time.Time
}

// New initialises an empty repository. It is freed when the test ends.
func New(t *testing.T) *Repo {
	t.Helper()

	return NewAt(t, t.TempDir())
}

// NewAt initialises an empty repository in dir.
func NewAt(t *testing.T, dir string) *Repo {
	t.Helper()

	native, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(native.Free)

	// Symlinked temp dirs (macOS) would otherwise differ from libgit2's workdir.
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	return &Repo{
		t:      t,
		Path:   resolved,
		Native: native,
		clock:  time.Date(2020, time.January, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Abs returns the absolute path of a work-tree relative name.
func (r *Repo) Abs(name string) string {
	return filepath.Join(r.Path, filepath.FromSlash(name))
}

// WriteFile creates or replaces a work-tree file, creating parent directories.
func (r *Repo) WriteFile(name, content string) string {
	r.t.Helper()

	path := r.Abs(name)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

// Remove deletes a work-tree file.
func (r *Repo) Remove(name string) {
	r.t.Helper()

	require.NoError(r.t, os.Remove(r.Abs(name)))
}

// Commit stages every work-tree change and commits it on HEAD. Each call
// advances an internal clock by one minute so commit times are distinct.
func (r *Repo) Commit(message string) gitlib.Hash {
	r.t.Helper()

	r.clock = r.clock.Add(time.Minute)
	sig := &git2go.Signature{Name: DefaultName, Email: DefaultEmail, When: r.clock}

	return r.CommitAs(message, sig, sig)
}

// CommitAs commits every work-tree change with explicit signatures.
func (r *Repo) CommitAs(message string, author, committer *git2go.Signature) gitlib.Hash {
	r.t.Helper()

	index, err := r.Native.Index()
	require.NoError(r.t, err)

	defer index.Free()

	require.NoError(r.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(r.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(r.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(r.t, err)

	tree, err := r.Native.LookupTree(treeID)
	require.NoError(r.t, err)

	defer tree.Free()

	var parents []*git2go.Commit

	head, err := r.Native.Head()
	if err == nil {
		parent, lookupErr := r.Native.LookupCommit(head.Target())
		require.NoError(r.t, lookupErr)

		parents = append(parents, parent)

		head.Free()
	}

	oid, err := r.Native.CreateCommit("HEAD", author, committer, message, tree, parents...)
	require.NoError(r.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

// Branch creates refs/heads/<name> at target.
func (r *Repo) Branch(name string, target gitlib.Hash) {
	r.t.Helper()

	commit, err := r.Native.LookupCommit(target.ToOid())
	require.NoError(r.t, err)

	defer commit.Free()

	branch, err := r.Native.CreateBranch(name, commit, true)
	require.NoError(r.t, err)

	branch.Free()
}

// Checkout points HEAD at refs/heads/<name> and forces the work tree to match.
func (r *Repo) Checkout(name string) {
	r.t.Helper()

	require.NoError(r.t, r.Native.SetHead(gitlib.LocalPrefix+name))
	require.NoError(r.t, r.Native.CheckoutHead(&git2go.CheckoutOptions{Strategy: git2go.CheckoutForce}))
}

// Ref creates or moves a direct ref such as refs/remotes/origin/master.
func (r *Repo) Ref(name string, target gitlib.Hash) {
	r.t.Helper()

	ref, err := r.Native.References.Create(name, target.ToOid(), true, "test")
	require.NoError(r.t, err)

	ref.Free()
}

// SymbolicRef creates or moves a symbolic ref such as refs/remotes/origin/HEAD.
func (r *Repo) SymbolicRef(name, target string) {
	r.t.Helper()

	ref, err := r.Native.References.CreateSymbolic(name, target, true, "test")
	require.NoError(r.t, err)

	ref.Free()
}

// DeleteRef removes a ref.
func (r *Repo) DeleteRef(name string) {
	r.t.Helper()

	ref, err := r.Native.References.Lookup(name)
	require.NoError(r.t, err)

	defer ref.Free()

	require.NoError(r.t, ref.Delete())
}

// SetConfig writes a key to the repository's local config file.
func (r *Repo) SetConfig(key, value string) {
	r.t.Helper()

	cfg, err := r.Native.Config()
	require.NoError(r.t, err)

	defer cfg.Free()

	require.NoError(r.t, cfg.SetString(key, value))
}

// MarkShallow writes a shallow marker naming the current HEAD commit.
func (r *Repo) MarkShallow() {
	r.t.Helper()

	head, err := r.Native.Head()
	require.NoError(r.t, err)

	defer head.Free()

	marker := filepath.Join(r.Native.Path(), "shallow")
	require.NoError(r.t, os.WriteFile(marker, []byte(head.Target().String()+"\n"), 0o644))
}

// Open returns a gitlib handle on this repository, freed when the test ends.
func (r *Repo) Open() *gitlib.Repository {
	r.t.Helper()

	repo, err := gitlib.OpenRepository(r.Path)
	require.NoError(r.t, err)

	r.t.Cleanup(repo.Free)

	return repo
}

// HeadRefName returns the full name of the branch HEAD points to.
func (r *Repo) HeadRefName() string {
	r.t.Helper()

	head, err := r.Native.Head()
	require.NoError(r.t, err)

	defer head.Free()

	return head.Name()
}

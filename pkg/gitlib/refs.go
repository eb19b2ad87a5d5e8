package gitlib

import (
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// Ref namespaces.
const (
	HeadRef        = "HEAD"
	LocalPrefix    = "refs/heads/"
	RemotePrefix   = "refs/remotes/"
	TagPrefix      = "refs/tags/"
	refsRootPrefix = "refs/"
)

// Reference is a snapshot of a ref. Symbolic refs are resolved: Target is the
// object the chain ends at. Commit is the commit reached by peeling Target,
// zero when the ref does not lead to a commit.
type Reference struct {
	Name     string
	Target   Hash
	Commit   Hash
	Symbolic bool
}

// ShortName strips the well-known namespace prefixes from the ref name.
func (ref Reference) ShortName() string {
	return ShortenRefName(ref.Name)
}

// ShortenRefName strips refs/heads/, refs/tags/ or refs/remotes/ from a name.
func ShortenRefName(name string) string {
	for _, prefix := range []string{LocalPrefix, TagPrefix, RemotePrefix} {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}

	return name
}

// ShortenRemoteBranchName returns the branch part of refs/remotes/<remote>/<branch>
// when <remote> is one of the given remotes, or "" otherwise.
func ShortenRemoteBranchName(name string, remotes []string) string {
	if !strings.HasPrefix(name, RemotePrefix) {
		return ""
	}

	rest := name[len(RemotePrefix):]

	for _, remote := range remotes {
		if branch, ok := strings.CutPrefix(rest, remote+"/"); ok && branch != "" {
			return branch
		}
	}

	return ""
}

// ExactRef looks up a ref by its full name. A missing ref yields nil, nil.
func (r *Repository) ExactRef(name string) (*Reference, error) {
	ref, err := r.repo.References.Lookup(name)
	if err != nil {
		if IsNotFound(err) || hasCode(err, git2go.ErrorCodeInvalidSpec) {
			return nil, nil //nolint:nilnil // absence is a normal outcome.
		}

		return nil, fmt.Errorf("lookup ref %s: %w", name, err)
	}
	defer ref.Free()

	snapshot, err := snapshotRef(ref)
	if err != nil {
		if IsNotFound(err) {
			// Dangling symbolic ref.
			return nil, nil //nolint:nilnil // absence is a normal outcome.
		}

		return nil, err
	}

	return &snapshot, nil
}

// References returns a snapshot of every ref under refs/. Dangling symbolic
// refs are skipped.
func (r *Repository) References() ([]Reference, error) {
	iter, err := r.repo.NewReferenceIterator()
	if err != nil {
		return nil, fmt.Errorf("iterate refs: %w", err)
	}
	defer iter.Free()

	var refs []Reference

	for {
		ref, nextErr := iter.Next()
		if nextErr != nil {
			if hasCode(nextErr, git2go.ErrorCodeIterOver) {
				break
			}

			return nil, fmt.Errorf("iterate refs: %w", nextErr)
		}

		if !strings.HasPrefix(ref.Name(), refsRootPrefix) {
			ref.Free()

			continue
		}

		snapshot, snapErr := snapshotRef(ref)
		ref.Free()

		if snapErr != nil {
			if IsNotFound(snapErr) {
				continue
			}

			return nil, snapErr
		}

		refs = append(refs, snapshot)
	}

	return refs, nil
}

// RemoteNames lists the configured remotes.
func (r *Repository) RemoteNames() ([]string, error) {
	names, err := r.repo.Remotes.List()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}

	return names, nil
}

func snapshotRef(ref *git2go.Reference) (Reference, error) {
	snapshot := Reference{Name: ref.Name()}

	direct := ref

	if ref.Type() == git2go.ReferenceSymbolic {
		snapshot.Symbolic = true

		resolved, err := ref.Resolve()
		if err != nil {
			return Reference{}, fmt.Errorf("resolve ref %s: %w", ref.Name(), err)
		}
		defer resolved.Free()

		direct = resolved
	}

	snapshot.Target = HashFromOid(direct.Target())

	obj, err := direct.Peel(git2go.ObjectCommit)
	if err == nil {
		snapshot.Commit = HashFromOid(obj.Id())
		obj.Free()
	}

	return snapshot, nil
}

package forkpoint

import (
	"context"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
)

// RepositorySource reads commits from a libgit2 repository.
type RepositorySource struct {
	Repo *gitlib.Repository
}

// Commit implements CommitSource.
func (s RepositorySource) Commit(ctx context.Context, hash gitlib.Hash) (Node, error) {
	commit, err := s.Repo.LookupCommit(ctx, hash)
	if err != nil {
		return Node{}, err
	}
	defer commit.Free()

	return Node{Hash: hash, Time: commit.Time(), Parents: commit.ParentHashes()}, nil
}

// Find discovers the other branches of repo and returns the fork point of
// HEAD. An unborn HEAD has no fork point.
func Find(ctx context.Context, repo *gitlib.Repository) (*ForkPoint, error) {
	head, ok, err := repo.HeadTarget()
	if err != nil || !ok {
		return nil, err
	}

	refs, err := repo.References()
	if err != nil {
		return nil, err
	}

	remotes, err := repo.RemoteNames()
	if err != nil {
		return nil, err
	}

	return Walk(ctx, RepositorySource{Repo: repo}, head, OtherBranches(refs, head, remotes))
}

// FindWith returns the fork point of HEAD against a single other ref. A ref
// that does not lead to a commit has no fork point.
func FindWith(ctx context.Context, repo *gitlib.Repository, other gitlib.Reference) (*ForkPoint, error) {
	head, ok, err := repo.HeadTarget()
	if err != nil || !ok || other.Commit.IsZero() {
		return nil, err
	}

	return Walk(ctx, RepositorySource{Repo: repo}, head, []gitlib.Hash{other.Commit})
}

// OtherBranches selects the commits of the refs that may carry a fork point.
// Refs pointing at head are excluded, and so are remote-tracking refs named
// like a ref pointing at head, since those are usually stale copies of the
// current branch. HEAD itself counts as a ref pointing at head, so a remote's
// HEAD is excluded too. Refs that do not lead to a commit are skipped.
func OtherBranches(refs []gitlib.Reference, head gitlib.Hash, remotes []string) []gitlib.Hash {
	atHead := map[string]struct{}{gitlib.HeadRef: {}}

	for _, ref := range refs {
		if ref.Target == head {
			atHead[ref.ShortName()] = struct{}{}
		}
	}

	var tips []gitlib.Hash

	for _, ref := range refs {
		if ref.Name == gitlib.HeadRef || ref.Target == head || ref.Commit.IsZero() {
			continue
		}

		if branch := gitlib.ShortenRemoteBranchName(ref.Name, remotes); branch != "" {
			if _, collides := atHead[branch]; collides {
				continue
			}
		}

		tips = append(tips, ref.Commit)
	}

	return tips
}

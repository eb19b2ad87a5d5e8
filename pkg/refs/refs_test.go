package refs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib/gitlibtest"
	"github.com/Sumatoshi-tech/gitscm/pkg/refs"
	"github.com/Sumatoshi-tech/gitscm/pkg/warnings"
)

type collect []string

func (c *collect) AddUnique(msg string) { *c = append(*c, msg) }

func TestCandidates(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"refs/heads/main", "refs/remotes/origin/main", "refs/remotes/upstream/main"},
		refs.Candidates("main", refs.Options{}))
	assert.Equal(t,
		[]string{"refs/remotes/origin/main", "refs/heads/main", "refs/remotes/upstream/main"},
		refs.Candidates("main", refs.Options{PromoteRemote: true}))
}

func TestResolveOrder(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)
	tr.WriteFile("a.txt", "a\n")
	first := tr.Commit("one")
	tr.WriteFile("a.txt", "b\n")
	second := tr.Commit("two")

	tr.Branch("target", first)
	tr.Ref("refs/remotes/origin/target", second)
	tr.Ref("refs/remotes/upstream/only-upstream", first)

	repo := tr.Open()

	ref, err := refs.Resolve(repo, "target", refs.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/target", ref.Name)
	assert.Equal(t, first, ref.Commit)

	ref, err = refs.Resolve(repo, "target", refs.Options{PromoteRemote: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "refs/remotes/origin/target", ref.Name)
	assert.Equal(t, second, ref.Commit)

	ref, err = refs.Resolve(repo, "only-upstream", refs.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "refs/remotes/upstream/only-upstream", ref.Name)
}

func TestResolveNotFoundWarnsOnce(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)
	tr.WriteFile("a.txt", "a\n")
	tr.Commit("one")

	repo := tr.Open()

	var host collect

	sink := warnings.NewActive(host.AddUnique)

	for range 2 {
		ref, err := refs.Resolve(repo, "missing", refs.Options{}, sink)
		require.ErrorIs(t, err, refs.ErrRefNotFound)
		assert.Nil(t, ref)
	}

	require.Len(t, host, 1)
	assert.Equal(t, "Could not find ref 'missing' in refs/heads, refs/remotes/upstream or refs/remotes/origin. "+
		"You may see unexpected issues and changes. Please make sure to fetch this ref before pull request analysis.", host[0])
}

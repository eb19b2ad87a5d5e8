package gitlib_test

import (
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib/gitlibtest"
)

func TestBlameFile(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)
	tr.WriteFile("a.txt", "one\ntwo\n")

	alice := &git2go.Signature{Name: "Alice", Email: "alice@example.com", When: time.Unix(1_600_000_000, 0)}
	first := tr.CommitAs("first", alice, alice)

	tr.WriteFile("a.txt", "one\ntwo\nthree\n")
	second := tr.Commit("second")

	hunks, err := tr.Open().BlameFile("a.txt", gitlib.BlameOptions{IgnoreWhitespace: true})
	require.NoError(t, err)
	require.Len(t, hunks, 2)

	assert.Equal(t, first, hunks[0].FinalCommit)
	assert.Equal(t, 1, hunks[0].FinalStartLine)
	assert.Equal(t, 2, hunks[0].Lines)
	assert.Equal(t, "alice@example.com", hunks[0].Author.Email)

	assert.Equal(t, second, hunks[1].FinalCommit)
	assert.Equal(t, 3, hunks[1].FinalStartLine)
	assert.Equal(t, 1, hunks[1].Lines)
}

func TestBlameFileNotInHead(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)
	tr.WriteFile("a.txt", "a\n")
	tr.Commit("init")

	_, err := tr.Open().BlameFile("missing.txt", gitlib.BlameOptions{})
	require.ErrorIs(t, err, gitlib.ErrPathNotInHead)
}

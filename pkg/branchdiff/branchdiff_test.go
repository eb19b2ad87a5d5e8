package branchdiff_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitscm/pkg/branchdiff"
	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib/gitlibtest"
	"github.com/Sumatoshi-tech/gitscm/pkg/refs"
)

const lao = `The Way that can be told of is not the eternal Way;
The name that can be named is not the eternal name.
The Nameless is the origin of Heaven and Earth;
The Named is the mother of all things.
Therefore let there always be non-being,
  so we may see their subtlety,
And let there always be being,
  so we may see their outcome.
The two are the same,
But after they are produced,
  they have different names.
`

const tzu = `The Nameless is the origin of Heaven and Earth;
The named is the mother of all things.

Therefore let there always be non-being,
  so we may see their subtlety,
And let there always be being,
  so we may see their outcome.
The two are the same,
But after they are produced,
  they have different names.
They both may be called deep and profound.
Deeper and more profound,
The door of all subtleties!
`

// diverged builds a repository whose HEAD is branch b1, forked from the
// default branch, which moved on afterwards. It returns the default branch name.
func diverged(t *testing.T) (*gitlibtest.Repo, string) {
	t.Helper()

	tr := gitlibtest.New(t)
	tr.WriteFile("lao.txt", lao)
	tr.WriteFile("file-m1.xoo", "1\n2\n3\n")
	tr.WriteFile("file-m2.xoo", "m2\n")
	fork := tr.Commit("init")

	target := gitlib.ShortenRefName(tr.HeadRefName())

	tr.WriteFile("file-m2.xoo", "m2\nmore\n")
	tr.Commit("target moves on")

	tr.Branch("b1", fork)
	tr.Checkout("b1")

	tr.WriteFile("lao.txt", tzu)
	tr.WriteFile("file-m1.xoo", "1\n2\n3\n4\n")
	tr.WriteFile("file-b1.xoo", "b1\n")
	tr.Commit("branch work")

	return tr, target
}

func set(values ...int) map[int]struct{} {
	out := make(map[int]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}

	return out
}

func TestChangedFiles(t *testing.T) {
	t.Parallel()

	tr, target := diverged(t)
	tr.WriteFile("untracked.xoo", "not committed\n")

	files, err := branchdiff.New(false, nil, nil).ChangedFiles(context.Background(), target, tr.Path)
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{
		tr.Abs("lao.txt"):     {},
		tr.Abs("file-m1.xoo"): {},
		tr.Abs("file-b1.xoo"): {},
	}, files)
}

func TestChangedLines(t *testing.T) {
	t.Parallel()

	tr, target := diverged(t)
	b2 := tr.WriteFile("file-b2.xoo", "a\nb\nc\n")

	files := []string{tr.Abs("lao.txt"), tr.Abs("file-m1.xoo"), b2, tr.Abs("nonexistent.xoo")}

	lines, err := branchdiff.New(false, nil, nil).ChangedLines(context.Background(), target, tr.Path, files)
	require.NoError(t, err)

	assert.Equal(t, map[string]map[int]struct{}{
		tr.Abs("lao.txt"):     set(2, 3, 11, 12, 13),
		tr.Abs("file-m1.xoo"): set(4),
		b2:                    set(1, 2, 3),
	}, lines)
}

func TestChangedLinesIncludesUncommittedEdits(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)
	path := tr.WriteFile("a.txt", "a\nb\nc\n")
	tr.Commit("init")

	target := gitlib.ShortenRefName(tr.HeadRefName())

	tr.WriteFile("a.txt", "x\nb\nc\nd\n")

	lines, err := branchdiff.New(false, nil, nil).ChangedLines(context.Background(), target, tr.Path, []string{path})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[int]struct{}{path: set(1, 4)}, lines)
}

func TestChangedLinesOmitsFilesOutsideWorkTree(t *testing.T) {
	t.Parallel()

	tr, target := diverged(t)

	lines, err := branchdiff.New(false, nil, nil).ChangedLines(context.Background(), target, tr.Path,
		[]string{"/definitely/elsewhere.txt"})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestChangedLinesLeavesConfigUntouched(t *testing.T) {
	t.Parallel()

	tr, target := diverged(t)

	_, err := branchdiff.New(false, nil, nil).ChangedLines(context.Background(), target, tr.Path, []string{tr.Abs("lao.txt")})
	require.NoError(t, err)

	value, err := tr.Open().ConfigString("core.autocrlf")
	require.NoError(t, err)
	assert.NotEqual(t, "true", value)
}

func TestChangedFilesRemoteOnlyTarget(t *testing.T) {
	t.Parallel()

	for _, promote := range []bool{false, true} {
		tr, target := diverged(t)

		ref, err := tr.Open().ExactRef(gitlib.LocalPrefix + target)
		require.NoError(t, err)
		require.NotNil(t, ref)

		tr.Ref(gitlib.RemotePrefix+"origin/"+target, ref.Target)
		tr.DeleteRef(gitlib.LocalPrefix + target)

		files, err := branchdiff.New(promote, nil, nil).ChangedFiles(context.Background(), target, tr.Path)
		require.NoError(t, err, "promote=%v", promote)
		assert.Len(t, files, 3, "promote=%v", promote)
	}
}

func TestChangedFilesUnknownBranch(t *testing.T) {
	t.Parallel()

	tr, _ := diverged(t)

	_, err := branchdiff.New(false, nil, nil).ChangedFiles(context.Background(), "nope", tr.Path)
	require.ErrorIs(t, err, refs.ErrRefNotFound)
}

func TestUnsupportedDiffAlgorithm(t *testing.T) {
	t.Parallel()

	tr, target := diverged(t)
	tr.SetConfig("diff.algorithm", "bogus")

	var buf bytes.Buffer

	engine := branchdiff.New(false, nil, slog.New(slog.NewTextHandler(&buf, nil)))

	_, err := engine.ChangedFiles(context.Background(), target, tr.Path)
	require.ErrorIs(t, err, branchdiff.ErrUnsupportedDiffAlgorithm)
	assert.Contains(t, buf.String(), "The diff algorithm configured in git is not supported.")

	buf.Reset()

	_, err = engine.ChangedLines(context.Background(), target, tr.Path, []string{tr.Abs("lao.txt")})
	require.ErrorIs(t, err, branchdiff.ErrUnsupportedDiffAlgorithm)
	assert.False(t, strings.Contains(buf.String(), "not supported"))
}

func TestSupportedDiffAlgorithms(t *testing.T) {
	t.Parallel()

	for _, algorithm := range []string{"myers", "default", "minimal", "patience", "histogram"} {
		tr, target := diverged(t)
		tr.SetConfig("diff.algorithm", algorithm)

		files, err := branchdiff.New(false, nil, nil).ChangedFiles(context.Background(), target, tr.Path)
		require.NoError(t, err, algorithm)
		assert.Len(t, files, 3, algorithm)
	}
}

func TestHistogramRunsAsPatience(t *testing.T) {
	t.Parallel()

	tr, target := diverged(t)
	tr.SetConfig("diff.algorithm", "histogram")

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	lines, err := branchdiff.New(false, nil, logger).ChangedLines(context.Background(), target, tr.Path,
		[]string{tr.Abs("lao.txt")})
	require.NoError(t, err)
	assert.Equal(t, set(2, 3, 11, 12, 13), lines[tr.Abs("lao.txt")])
	assert.Contains(t, buf.String(), "Diff algorithm histogram is not available, using patience")
}

func TestChangedLinesNormalizesLineEndings(t *testing.T) {
	t.Parallel()

	tr, target := diverged(t)
	path := tr.WriteFile("file-m1.xoo", "1\r\n2\r\n3\r\n4\r\n")
	unchanged := tr.WriteFile("file-m2.xoo", "m2\r\n")

	lines, err := branchdiff.New(false, nil, nil).ChangedLines(context.Background(), target, tr.Path,
		[]string{path, unchanged, tr.Abs("lao.txt")})
	require.NoError(t, err)
	assert.Equal(t, set(4), lines[path])
	assert.NotContains(t, lines, unchanged)
	assert.Equal(t, set(2, 3, 11, 12, 13), lines[tr.Abs("lao.txt")])
}

func TestNotInWorkTree(t *testing.T) {
	t.Parallel()

	_, err := branchdiff.New(false, nil, nil).ChangedFiles(context.Background(), "main", t.TempDir())
	require.ErrorIs(t, err, gitlib.ErrNotInWorkTree)
}

package commands_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/gitscm/cmd/gitscm/commands"
	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib/gitlibtest"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	root := commands.NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)

	err := root.Execute()

	return out.String(), errOut.String(), err
}

// featureRepo returns a repository on branch "feature" one commit ahead of
// the default branch, and the default branch name.
func featureRepo(t *testing.T) (*gitlibtest.Repo, string, gitlib.Hash, gitlib.Hash) {
	t.Helper()

	tr := gitlibtest.New(t)
	tr.WriteFile("a.txt", "a\nb\n")
	fork := tr.Commit("init")

	target := gitlib.ShortenRefName(tr.HeadRefName())

	tr.Branch("feature", fork)
	tr.Checkout("feature")
	tr.WriteFile("a.txt", "a\nb\nc\nd\n")
	head := tr.Commit("feature work")

	return tr, target, fork, head
}

func TestRootCommand(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()
	assert.Equal(t, "gitscm", root.Use)

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{
		"blame", "changed-files", "changed-lines", "fork-point",
		"revision", "relpath", "ignored", "supports", "version",
	} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "verbose", "format", "host-version"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestUnknownFormat(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "supports", "--format", "xml")
	require.ErrorIs(t, err, commands.ErrUnknownFormat)
}

func TestSupports(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)

	out, _, err := execute(t, "supports", tr.Path, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Provider  string `json:"provider"`
		Supported bool   `json:"supported"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "git", doc.Provider)
	assert.True(t, doc.Supported)

	out, _, err = execute(t, "supports", t.TempDir(), "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.False(t, doc.Supported)
}

func TestRevision(t *testing.T) {
	t.Parallel()

	tr, _, _, head := featureRepo(t)

	out, _, err := execute(t, "revision", tr.Path, "--format", "yaml")
	require.NoError(t, err)

	var doc map[string]string

	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, head.String(), doc["revision"])

	out, _, err = execute(t, "revision", tr.Path)
	require.NoError(t, err)
	assert.Contains(t, out, head.String())
}

func TestRevisionOutsideWorkTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := execute(t, "revision", dir)
	require.Error(t, err)
	assert.Equal(t, "Not inside a Git work tree: "+dir, err.Error())
}

func TestChangedFilesAndLines(t *testing.T) {
	t.Parallel()

	tr, target, _, _ := featureRepo(t)

	out, _, err := execute(t, "changed-files", "--dir", tr.Path, "--branch", target, "--format", "json")
	require.NoError(t, err)

	var files []string

	require.NoError(t, json.Unmarshal([]byte(out), &files))
	assert.Equal(t, []string{tr.Abs("a.txt")}, files)

	out, _, err = execute(t, "changed-lines", "--dir", tr.Path, "-b", target, "--format", "json")
	require.NoError(t, err)

	var lines []struct {
		File  string `json:"file"`
		Lines []int  `json:"lines"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, tr.Abs("a.txt"), lines[0].File)
	assert.Equal(t, []int{3, 4}, lines[0].Lines)

	out, _, err = execute(t, "changed-lines", tr.Abs("a.txt"), "--dir", tr.Path, "-b", target)
	require.NoError(t, err)
	assert.Contains(t, out, "3-4")
}

func TestChangedFilesRequiresBranch(t *testing.T) {
	t.Parallel()

	tr, _, _, _ := featureRepo(t)

	_, _, err := execute(t, "changed-files", "--dir", tr.Path)
	require.ErrorIs(t, err, commands.ErrBranchRequired)
}

func TestChangedFilesUnknownBranchWarns(t *testing.T) {
	t.Parallel()

	tr, _, _, _ := featureRepo(t)

	out, errOut, err := execute(t, "changed-files", "--dir", tr.Path, "-b", "nope", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
	assert.Contains(t, errOut, "WARNING: Could not find ref 'nope'")
}

func TestForkPoint(t *testing.T) {
	t.Parallel()

	tr, _, fork, _ := featureRepo(t)

	out, _, err := execute(t, "fork-point", "--dir", tr.Path, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Found    bool   `json:"found"`
		Commit   string `json:"commit"`
		Distance int    `json:"distance"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.True(t, doc.Found)
	assert.Equal(t, fork.String(), doc.Commit)
	assert.Equal(t, 1, doc.Distance)
}

func TestBlame(t *testing.T) {
	t.Parallel()

	tr, _, fork, head := featureRepo(t)

	out, _, err := execute(t, "blame", tr.Abs("a.txt"), "--dir", tr.Path, "--format", "json")
	require.NoError(t, err)

	var docs []struct {
		File  string `json:"file"`
		Lines []struct {
			Line     int    `json:"line"`
			Revision string `json:"revision"`
			Author   string `json:"author"`
		} `json:"lines"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	require.Len(t, docs[0].Lines, 5)

	assert.Equal(t, fork.String(), docs[0].Lines[0].Revision)
	assert.Equal(t, fork.String(), docs[0].Lines[1].Revision)
	assert.Equal(t, head.String(), docs[0].Lines[2].Revision)
	assert.Equal(t, head.String(), docs[0].Lines[4].Revision)
	assert.Equal(t, gitlibtest.DefaultEmail, docs[0].Lines[0].Author)

	out, _, err = execute(t, "blame", tr.Abs("a.txt"), "--dir", tr.Path)
	require.NoError(t, err)
	assert.Contains(t, out, head.String()[:12])
}

func TestRelPathAndIgnored(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)
	tr.WriteFile(".gitignore", "*.log\n")
	tr.Commit("init")

	logFile := tr.WriteFile("out.log", "x\n")
	nested := tr.WriteFile("src/a.txt", "a\n")

	out, _, err := execute(t, "relpath", nested, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"`+nested+`","relative":"src/a.txt"}`, out)

	out, _, err = execute(t, "ignored", tr.Path, "--format", "json")
	require.NoError(t, err)

	var ignored []string

	require.NoError(t, json.Unmarshal([]byte(out), &ignored))
	assert.Equal(t, []string{logFile}, ignored)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gitscm ")

	out, _, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}

package gitlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib/gitlibtest"
)

func TestConfigString(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)
	tr.SetConfig("diff.algorithm", "patience")

	repo := tr.Open()

	value, err := repo.ConfigString("diff.algorithm")
	require.NoError(t, err)
	assert.Equal(t, "patience", value)

	value, err = repo.ConfigString("gitscm.unset")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestOverrideConfigBool(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.New(t)
	tr.SetConfig("core.autocrlf", "false")

	repo := tr.Open()

	restore, err := repo.OverrideConfigBool("core.autocrlf", true)
	require.NoError(t, err)

	value, err := repo.ConfigString("core.autocrlf")
	require.NoError(t, err)
	assert.Equal(t, "true", value)

	restore()

	// Other handles never see the override.
	value, err = tr.Open().ConfigString("core.autocrlf")
	require.NoError(t, err)
	assert.Equal(t, "false", value)

	_, err = repo.OverrideConfigBool("autocrlf", true)
	require.Error(t, err)
}

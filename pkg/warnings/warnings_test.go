package warnings_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitscm/pkg/warnings"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) add(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, msg)
}

func TestActiveDeduplicates(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sink := warnings.NewActive(rec.add)

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			sink.AddUnique("same")
		}()
	}

	wg.Wait()

	sink.AddUnique("other")

	assert.Equal(t, []string{"same", "other"}, rec.msgs)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		active  bool
	}{
		{version: "7.4", active: true},
		{version: "7.9.1", active: true},
		{version: "10.0", active: true},
		{version: "7.3", active: false},
		{version: "6.7.5", active: false},
		{version: "not-a-version", active: false},
	}

	for _, tc := range tests {
		t.Run(tc.version, func(t *testing.T) {
			t.Parallel()

			sink := warnings.Select(tc.version, func(string) {}, nil)

			_, isActive := sink.(*warnings.Active)
			assert.Equal(t, tc.active, isActive)
		})
	}

	assert.IsType(t, warnings.Noop{}, warnings.Select("10.0", nil, nil))
}

func TestAtLeast(t *testing.T) {
	t.Parallel()

	ok, err := warnings.AtLeast("7.7", "7.6")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = warnings.AtLeast("7.5.2", "7.6")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = warnings.AtLeast("x", "7.6")
	require.Error(t, err)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { warnings.Noop{}.AddUnique("ignored") })
}

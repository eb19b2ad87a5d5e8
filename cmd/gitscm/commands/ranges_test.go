package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRanges(t *testing.T) {
	t.Parallel()

	assert.Empty(t, formatRanges(nil))
	assert.Equal(t, "4", formatRanges([]int{4}))
	assert.Equal(t, "2-3,11-13", formatRanges([]int{2, 3, 11, 12, 13}))
	assert.Equal(t, "1,3,5-6", formatRanges([]int{1, 3, 5, 6}))
}

package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedSkills(t *testing.T) {
	t.Run("returns sorted copy without mutating original", func(t *testing.T) {
		original := []string{"networking", "hardware", "billing"}
		sorted := sortedSkills(original)
		assert.Equal(t, []string{"billing", "hardware", "networking"}, sorted)
		assert.Equal(t, []string{"networking", "hardware", "billing"}, original)
	})

	t.Run("nil becomes empty, not nil", func(t *testing.T) {
		sorted := sortedSkills(nil)
		assert.NotNil(t, sorted)
		assert.Empty(t, sorted)
	})
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []string{"notify", "publish"}, uniqueSorted([]string{"publish", "notify", "publish"}))
	assert.Nil(t, uniqueSorted(nil))
}

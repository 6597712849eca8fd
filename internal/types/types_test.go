package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWordBudget(t *testing.T) {
	budget := NewWordBudget(5, 3)
	assert.Equal(t, 750, budget.TotalWords)
	assert.Equal(t, 250, budget.PerChapter)

	// Single minute, single chapter: the smallest legal episode.
	budget = NewWordBudget(1, 1)
	assert.Equal(t, 150, budget.TotalWords)
	assert.Equal(t, 150, budget.PerChapter)

	// Uneven division rounds rather than truncates.
	budget = NewWordBudget(10, 7)
	assert.Equal(t, 1500, budget.TotalWords)
	assert.Equal(t, 214, budget.PerChapter)
}

func TestClassifyAccuracy(t *testing.T) {
	tests := []struct {
		target, actual int
		want           string
	}{
		{1000, 1000, AccuracyExcellent},
		{1000, 1050, AccuracyExcellent},
		{1000, 1100, AccuracyGood},
		{1000, 900, AccuracyGood},
		{1000, 1200, AccuracyFair},
		{1000, 1500, AccuracyPoor},
		{0, 100, AccuracyPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyAccuracy(tt.target, tt.actual), "%d/%d", tt.actual, tt.target)
	}
}

func TestClassifyAccuracyIdempotent(t *testing.T) {
	// Applying the classification twice to the same pair yields the same bucket.
	for _, actual := range []int{700, 750, 800, 900, 1200} {
		first := ClassifyAccuracy(750, actual)
		second := ClassifyAccuracy(750, actual)
		assert.Equal(t, first, second)
	}
}

func TestToneSets(t *testing.T) {
	for _, tone := range AllowedTones {
		assert.True(t, IsClosedTone(tone))
		assert.True(t, IsKnownTone(tone))
	}
	for _, tone := range LegacyTones {
		assert.False(t, IsClosedTone(tone))
		assert.True(t, IsKnownTone(tone))
	}
	assert.False(t, IsKnownTone("sarcastic"))
}

func TestAllowedEnums(t *testing.T) {
	assert.True(t, IsAllowedMood("neutral"))
	assert.False(t, IsAllowedMood("angry"))
	assert.True(t, IsAllowedStyle("interview"))
	assert.False(t, IsAllowedStyle("debate"))
}

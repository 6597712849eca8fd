package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"simple",
			"First sentence. Second sentence! Third one?",
			[]string{"First sentence.", "Second sentence!", "Third one?"},
		},
		{
			"abbreviations not split",
			"Dr. Smith met Mr. Jones. They talked for hours.",
			[]string{"Dr. Smith met Mr. Jones.", "They talked for hours."},
		},
		{
			"ie and eg survive",
			"Bicycles evolved fast, i.e. within decades. Some designs, e.g. the penny-farthing, vanished.",
			[]string{"Bicycles evolved fast, i.e. within decades.", "Some designs, e.g. the penny-farthing, vanished."},
		},
		{
			"decimal numbers kept intact",
			"The wheel was 1.5 meters tall. Riders fell often.",
			[]string{"The wheel was 1.5 meters tall.", "Riders fell often."},
		},
		{
			"no terminator",
			"a trailing fragment",
			[]string{"a trailing fragment"},
		},
		{
			"closing quote attaches",
			`He said "stop." Then he left.`,
			[]string{`He said "stop."`, "Then he left."},
		},
		{
			"empty",
			"   ",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestSplitSentencesVsAbbreviation(t *testing.T) {
	got := SplitSentences("It was city vs. country. The city won.")
	assert.Equal(t, []string{"It was city vs. country.", "The city won."}, got)
}

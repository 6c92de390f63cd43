package textctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences_RespectsQuotes(t *testing.T) {
	text := `She said "Stop. Now." and left the room. Then she returned.`
	sentences := splitSentences(text)
	for _, s := range sentences {
		assert.Equal(t, s.Text, text[s.Start:s.End])
	}
	assert.GreaterOrEqual(t, len(sentences), 2)
}

func TestAnalyze_LocatesCurrentSentenceAndNeighbours(t *testing.T) {
	text := "Transformers changed NLP forever. Attention replaced recurrence entirely. Results improved across every benchmark."
	cursor := len("Transformers changed NLP forever. Attention rep")

	tc := Analyze(text, Snapshot{CursorOffset: cursor})
	assert.Equal(t, "Attention replaced recurrence entirely.", tc.CurrentSentence)
	assert.NotNil(t, tc.PreviousSentence)
	assert.Equal(t, "Transformers changed NLP forever.", *tc.PreviousSentence)
	assert.NotNil(t, tc.NextSentence)
	assert.Equal(t, "Results improved across every benchmark.", *tc.NextSentence)
}

func TestAnalyze_FiltersShortSentences(t *testing.T) {
	text := "Ok. This is a substantially longer sentence about attention mechanisms."
	cursor := len(text) - 5
	tc := Analyze(text, Snapshot{CursorOffset: cursor})
	assert.Equal(t, "This is a substantially longer sentence about attention mechanisms.", tc.CurrentSentence)
	assert.Nil(t, tc.PreviousSentence)
}

func TestAnalyze_StripsDisallowedPunctuationFromSurfacedText(t *testing.T) {
	text := "Transformers changed NLP forever. Attention #rocks@ replaced recurrence <entirely>. Results improved across every benchmark."
	cursor := len("Transformers changed NLP forever. Attention #rocks@ repl")

	tc := Analyze(text, Snapshot{CursorOffset: cursor})
	assert.Equal(t, "Attention rocks replaced recurrence entirely.", tc.CurrentSentence)
	assert.NotContains(t, tc.CurrentSentence, "#")
	assert.NotContains(t, tc.CurrentSentence, "@")
	assert.NotContains(t, tc.CurrentSentence, "<")
}

func TestShouldUpdate_IdenticalText(t *testing.T) {
	assert.False(t, ShouldUpdate("hello world", "hello world"))
}

func TestShouldUpdate_OnlyTrailingWhitespace(t *testing.T) {
	assert.False(t, ShouldUpdate("hello world", "hello world   "))
}

func TestShouldUpdate_OnlyTrailingPunctuation(t *testing.T) {
	assert.False(t, ShouldUpdate("hello world", "hello world."))
}

func TestShouldUpdate_SubstantialChange(t *testing.T) {
	assert.True(t, ShouldUpdate("the attention mechanism is useful", "a completely different sentence entirely"))
}

func TestShouldUpdate_MinorEdit(t *testing.T) {
	old := "The attention mechanism improves translation quality substantially across benchmarks"
	new := "The attention mechanism improves translation quality substantially across benchmarks!"
	assert.False(t, ShouldUpdate(old, new))
}

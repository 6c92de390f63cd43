package chunk

import (
	"strings"
	"unicode"
)

// Sentence is one sentence span located in the original text by byte offset,
// so downstream chunk boundaries stay valid substring boundaries of the
// input (spec.md §4.2 invariant).
type Sentence struct {
	Text  string
	Start int
	End   int
}

// splitSentences is raggo's SmartSentenceSplitter (quote-aware, splits on
// ./!/? outside quotes) generalized to also report each sentence's byte
// offsets in the original text, which the rebuild-by-concatenation teacher
// version doesn't need but citeassist's page/char invariants do.
func splitSentences(text string) []Sentence {
	var sentences []Sentence
	inQuote := false
	start := -1

	flush := func(end int) {
		if start == -1 {
			return
		}
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			start = -1
			return
		}
		// Recompute the trimmed span's true offsets within [start, end).
		lead := strings.IndexFunc(raw, func(r rune) bool { return !unicode.IsSpace(r) })
		trailLen := len(strings.TrimRightFunc(raw, unicode.IsSpace))
		sentences = append(sentences, Sentence{
			Text:  trimmed,
			Start: start + lead,
			End:   start + trailLen,
		})
		start = -1
	}

	for i, r := range text {
		if start == -1 {
			start = i
		}
		if r == '"' {
			inQuote = !inQuote
		}
		if (r == '.' || r == '!' || r == '?') && !inQuote {
			// end is exclusive; advance past the rune's byte width.
			end := i + len(string(r))
			flush(end)
		}
	}
	flush(len(text))

	return sentences
}

// WordSpan is one whitespace-delimited word located by byte offset.
type WordSpan struct {
	Start int
	End   int
}

// splitWords locates whitespace-delimited words by byte offset in text.
func splitWords(text string) []WordSpan {
	var words []WordSpan
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start != -1 {
				words = append(words, WordSpan{Start: start, End: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, WordSpan{Start: start, End: len(text)})
	}
	return words
}

// WordTokenCounter is raggo's DefaultTokenCounter: word count via whitespace
// splitting, the zero-dependency fallback when no tiktoken encoding is
// configured.
type WordTokenCounter struct{}

func (WordTokenCounter) Count(text string) int {
	return len(strings.Fields(text))
}

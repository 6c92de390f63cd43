// Package textctx is the C7 Text Analyser: turns an editor snapshot (plain
// text plus a cursor offset) into a TextContext centred on the sentence the
// user is currently writing. New component — no teacher equivalent — built
// around raggo's SmartSentenceSplitter (rag/chunk.go) as the locale-aware
// sentence splitter, reused verbatim-adapted rather than reinvented.
package textctx

import (
	"regexp"
	"strings"

	"github.com/citeassist/engine/internal/domain"
)

// Snapshot is the cursor state that accompanies the editor text on every
// "suggest" message: a cursor offset and an optional section hint. Analyze
// takes the text itself as a separate argument.
type Snapshot struct {
	CursorOffset int
	Section      *string
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// disallowedChar matches every character outside letters, digits, whitespace
// and common prose punctuation; normalisation drops those characters.
var disallowedChar = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?;:'"()\-]`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Analyze builds a TextContext from the raw editor text and snapshot.
func Analyze(text string, snap Snapshot) domain.TextContext {
	sentences := splitSentences(text)

	kept := make([]sentence, 0, len(sentences))
	for _, s := range sentences {
		if len(strings.TrimSpace(s.Text)) >= 10 {
			kept = append(kept, s)
		}
	}

	// Cursor location always runs against the untouched original text and
	// the spans splitSentences recorded from it; §4.7's normalise-then-
	// filter step only applies to the text surfaced on the TextContext
	// below, never to the offsets used to find it.
	idx := locateCursorSentence(kept, snap.CursorOffset)

	tc := domain.TextContext{
		Paragraph: normalize(paragraphContaining(text, snap.CursorOffset)),
		Section:   snap.Section,
		Position:  snap.CursorOffset,
	}

	if idx >= 0 {
		tc.CurrentSentence = normalize(kept[idx].Text)
		if idx > 0 {
			prev := normalize(kept[idx-1].Text)
			tc.PreviousSentence = &prev
		}
		if idx < len(kept)-1 {
			next := normalize(kept[idx+1].Text)
			tc.NextSentence = &next
		}
	}

	return tc
}

// normalize applies §4.7's punctuation-filter-then-whitespace-normalise
// step to the sentence/paragraph text a TextContext surfaces.
func normalize(text string) string {
	return normalizeWhitespace(filterPunctuation(text))
}

// locateCursorSentence finds the sentence whose [Start, End) contains
// offset, scanning positions in the original (pre-normalisation) text. When
// the cursor falls in a gap (inside a too-short sentence that was filtered
// out, or in whitespace between sentences) it resolves to the nearest
// preceding sentence, or the first sentence if the cursor precedes all of
// them.
func locateCursorSentence(sentences []sentence, offset int) int {
	if len(sentences) == 0 {
		return -1
	}
	best := 0
	for i, s := range sentences {
		if s.Start <= offset && offset < s.End {
			return i
		}
		if s.Start <= offset {
			best = i
		}
	}
	return best
}

func paragraphContaining(text string, offset int) string {
	bounds := paragraphBreak.Split(text, -1)
	pos := 0
	for _, p := range bounds {
		start := pos
		end := start + len(p)
		if offset >= start && offset <= end {
			return strings.TrimSpace(p)
		}
		pos = end + 2 // approximate: skip the blank-line separator
	}
	if len(bounds) > 0 {
		return strings.TrimSpace(bounds[len(bounds)-1])
	}
	return strings.TrimSpace(text)
}

// normalizeWhitespace collapses runs of whitespace to a single space and
// trims the result, the normalisation ShouldUpdate compares on.
func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// filterPunctuation drops characters outside the permissive punctuation set
// (letters, digits, whitespace, common prose punctuation).
func filterPunctuation(text string) string {
	return disallowedChar.ReplaceAllString(text, "")
}

// ShouldUpdate implements the change-significance predicate: true iff the
// normalised-whitespace forms differ AND the position-matched change ratio
// exceeds 0.20. Returns false when old == new or only trailing
// whitespace/punctuation changed.
func ShouldUpdate(old, new string) bool {
	normOld := normalizeWhitespace(old)
	normNew := normalizeWhitespace(new)
	if normOld == normNew {
		return false
	}

	trimmedOld := strings.TrimRight(normOld, " \t\n.,!?;:")
	trimmedNew := strings.TrimRight(normNew, " \t\n.,!?;:")
	if trimmedOld == trimmedNew {
		return false
	}

	return changeRatio(normOld, normNew) > 0.20
}

// changeRatio is a character-wise, position-matched mismatch ratio: the
// fraction of positions (up to the longer string's length) where the two
// strings disagree, counting the length difference itself as mismatched
// positions.
func changeRatio(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	mismatches := maxLen - minLen
	for i := 0; i < minLen; i++ {
		if a[i] != b[i] {
			mismatches++
		}
	}
	return float64(mismatches) / float64(maxLen)
}

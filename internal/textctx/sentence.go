package textctx

import "strings"

// sentence is one sentence span with its byte offsets in the original text.
type sentence struct {
	Text  string
	Start int
	End   int
}

// splitSentences is SmartSentenceSplitter (rag/chunk.go) adapted to track
// byte offsets instead of discarding them: it still honours quoted
// punctuation (a '.' inside a quoted span never ends a sentence) but records
// each sentence's true [start, end) span in text rather than rebuilding
// trimmed strings with lost positions.
func splitSentences(text string) []sentence {
	var sentences []sentence
	start := 0
	inQuote := false

	runes := []rune(text)
	byteOffsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		byteOffsets[i] = pos
		pos += len(string(r))
	}
	byteOffsets[len(runes)] = pos

	flush := func(endRuneIdx int) {
		rawStart := byteOffsets[start]
		rawEnd := byteOffsets[endRuneIdx]
		raw := text[rawStart:rawEnd]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			start = endRuneIdx
			return
		}
		leading := strings.Index(raw, trimmed)
		sentences = append(sentences, sentence{
			Text:  trimmed,
			Start: rawStart + leading,
			End:   rawStart + leading + len(trimmed),
		})
		start = endRuneIdx
	}

	for i, r := range runes {
		if r == '"' {
			inQuote = !inQuote
		}
		if (r == '.' || r == '!' || r == '?') && !inQuote {
			if len(sentences) > 0 || i > start {
				flush(i + 1)
			}
		}
	}
	if start < len(runes) {
		flush(len(runes))
	}

	return sentences
}

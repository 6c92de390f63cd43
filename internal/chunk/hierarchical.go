package chunk

import "github.com/citeassist/engine/internal/domain"

type sectionSpan struct {
	chunkType domain.ChunkType
	name      string
	start     int
	end       int
}

// detectSections scans text line by line, splitting it into spans whenever a
// line matches the section table. Content before the first recognized header
// belongs to an untyped "body" span.
func detectSections(text string) []sectionSpan {
	lines := splitLines(text)
	var spans []sectionSpan

	current := sectionSpan{chunkType: domain.ChunkBody, name: "", start: 0}
	for _, line := range lines {
		if chunkType, ok := matchSectionHeader(line.text); ok {
			if line.start > current.start {
				current.end = line.start
				spans = append(spans, current)
			}
			current = sectionSpan{chunkType: chunkType, name: sectionName(chunkType), start: line.end + 1}
			continue
		}
	}
	current.end = len(text)
	if current.end > current.start {
		spans = append(spans, current)
	}
	return spans
}

// chunkHierarchical detects sections, then sentence-aware-chunks each one,
// annotating the section and chunk type on every resulting chunk.
func (c *Chunker) chunkHierarchical(text string, policy Policy) []EnhancedChunk {
	spans := detectSections(text)
	if len(spans) == 0 {
		return c.chunkSentenceAware(text, policy)
	}

	var chunks []EnhancedChunk
	for _, span := range spans {
		if span.end <= span.start {
			continue
		}
		sentences := offsetSentences(splitSentences(text[span.start:span.end]), span.start)
		sectionChunks := c.packSentences(sentences, policy, span.chunkType, span.name)
		chunks = append(chunks, sectionChunks...)
	}
	return chunks
}

func offsetSentences(sentences []Sentence, offset int) []Sentence {
	out := make([]Sentence, len(sentences))
	for i, s := range sentences {
		out[i] = Sentence{Text: s.Text, Start: s.Start + offset, End: s.End + offset}
	}
	return out
}

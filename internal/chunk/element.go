package chunk

import (
	"regexp"
	"strings"

	"github.com/citeassist/engine/internal/domain"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

type paragraphSpan struct {
	text  string
	start int
	end   int
}

// splitParagraphs splits text on blank-line boundaries, tracking byte
// offsets so downstream chunks stay valid substring boundaries.
func splitParagraphs(text string) []paragraphSpan {
	var spans []paragraphSpan
	start := 0
	locs := paragraphBreak.FindAllStringIndex(text, -1)
	for _, loc := range locs {
		spans = append(spans, paragraphSpan{text: text[start:loc[0]], start: start, end: loc[0]})
		start = loc[1]
	}
	spans = append(spans, paragraphSpan{text: text[start:], start: start, end: len(text)})
	return spans
}

// chunkElementBased splits on blank-line paragraph boundaries. A paragraph
// whose first line is itself a section header updates the active section
// state rather than becoming its own chunk; paragraphs larger than
// policy.MaxSize words are re-chunked with sentence-aware packing.
func (c *Chunker) chunkElementBased(text string, policy Policy) []EnhancedChunk {
	paragraphs := splitParagraphs(text)

	currentType := domain.ChunkBody
	currentSection := ""

	var chunks []EnhancedChunk
	for _, para := range paragraphs {
		trimmed := strings.TrimSpace(para.text)
		if trimmed == "" {
			continue
		}

		firstLineEnd := strings.IndexByte(para.text, '\n')
		firstLine := para.text
		if firstLineEnd != -1 {
			firstLine = para.text[:firstLineEnd]
		}

		if chunkType, ok := matchSectionHeader(firstLine); ok {
			currentType = chunkType
			currentSection = sectionName(chunkType)
			if firstLineEnd == -1 {
				continue // paragraph was only the header line
			}
			rest := strings.TrimSpace(para.text[firstLineEnd+1:])
			if rest == "" {
				continue
			}
			restStart := para.start + firstLineEnd + 1 + strings.Index(para.text[firstLineEnd+1:], rest)
			chunks = append(chunks, c.elementChunksFor(rest, restStart, policy, currentType, currentSection)...)
			continue
		}

		chunks = append(chunks, c.elementChunksFor(trimmed, para.start+strings.Index(para.text, trimmed), policy, currentType, currentSection)...)
	}
	return chunks
}

func (c *Chunker) elementChunksFor(text string, start int, policy Policy, chunkType domain.ChunkType, section string) []EnhancedChunk {
	wordCount := c.countWords(text)
	if wordCount <= policy.MaxSize {
		return []EnhancedChunk{{
			Text:          text,
			StartChar:     start,
			EndChar:       start + len(text),
			WordCount:     wordCount,
			SentenceCount: len(splitSentences(text)),
			Section:       section,
			ChunkType:     chunkType,
		}}
	}

	sentences := offsetSentences(splitSentences(text), start)
	return c.packSentences(sentences, policy, chunkType, section)
}

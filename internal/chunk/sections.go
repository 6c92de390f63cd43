package chunk

import (
	"regexp"
	"strings"

	"github.com/citeassist/engine/internal/domain"
)

// sectionPattern is one line-level regular expression matched against a
// candidate header line, plus the canonical ChunkType it maps to. No teacher
// file detects sections; this table is built fresh for citeassist in the
// chunker's own idiom.
type sectionPattern struct {
	re        *regexp.Regexp
	chunkType domain.ChunkType
}

var sectionTable = []sectionPattern{
	{regexp.MustCompile(`(?i)^\s*(abstract)\s*$`), domain.ChunkAbstract},
	{regexp.MustCompile(`(?i)^\s*\d*\.?\s*(introduction|background)\s*$`), domain.ChunkIntro},
	{regexp.MustCompile(`(?i)^\s*\d*\.?\s*(methods?|methodology|materials and methods)\s*$`), domain.ChunkMethods},
	{regexp.MustCompile(`(?i)^\s*\d*\.?\s*(results?|findings)\s*$`), domain.ChunkResults},
	{regexp.MustCompile(`(?i)^\s*\d*\.?\s*(discussion)\s*$`), domain.ChunkDiscussion},
	{regexp.MustCompile(`(?i)^\s*\d*\.?\s*(conclusions?|summary)\s*$`), domain.ChunkConclusion},
	{regexp.MustCompile(`(?i)^\s*\d*\.?\s*(references|bibliography|works cited)\s*$`), domain.ChunkReferences},
}

// matchSectionHeader reports the ChunkType a candidate header line maps to,
// and whether it matched at all.
func matchSectionHeader(line string) (domain.ChunkType, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 60 {
		return "", false
	}
	for _, p := range sectionTable {
		if p.re.MatchString(trimmed) {
			return p.chunkType, true
		}
	}
	return "", false
}

// sectionName renders a ChunkType back to the display name used for
// EnhancedChunk.Section.
func sectionName(t domain.ChunkType) string {
	return string(t)
}

type lineSpan struct {
	text  string
	start int
	end   int
}

// splitLines locates '\n'-delimited lines by byte offset, keeping the
// delimiter out of each span.
func splitLines(text string) []lineSpan {
	var lines []lineSpan
	start := 0
	for i, r := range text {
		if r == '\n' {
			lines = append(lines, lineSpan{text: text[start:i], start: start, end: i})
			start = i + 1
		}
	}
	if start <= len(text) {
		lines = append(lines, lineSpan{text: text[start:], start: start, end: len(text)})
	}
	return lines
}

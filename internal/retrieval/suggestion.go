package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/citeassist/engine/internal/domain"
)

const chunkSnippetMaxChars = 280

// classifyAndSort drops candidates below classifyDropBelow (and, when
// strictFilter is set, requires final > classifyDropBelow rather than >=),
// builds their Suggestion, and sorts descending by confidence.
func classifyAndSort(candidates []candidate, strictFilter bool) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		if strictFilter {
			if c.final <= classifyDropBelow {
				continue
			}
		} else if c.final < classifyDropBelow {
			continue
		}
		out = append(out, c.toSuggestion())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func (c candidate) toSuggestion() domain.Suggestion {
	snippet := c.text
	if len(snippet) > chunkSnippetMaxChars {
		snippet = snippet[:chunkSnippetMaxChars]
	}

	return domain.Suggestion{
		PaperID:  c.paperID,
		Title:    c.paper.Title,
		Authors:  c.paper.Authors,
		Year:     c.paper.Year,
		Abstract: c.paper.Abstract,

		Confidence:     clamp01(c.final),
		ConfidenceTier: classify(c.final),
		CitationStyle:  "author-year",
		DisplayText:    displayText(c.paper),

		ChunkText:  snippet,
		ChunkIndex: c.chunkIndex,
		ChunkID:    c.chunkID,

		SectionTitle: c.section,
		ChunkType:    c.chunkType,

		PageStart:      c.pageStart,
		PageEnd:        c.pageEnd,
		PageBoundaries: c.pageBoundaries,

		Scores: domain.Scores{
			Dense:  c.dense,
			Sparse: c.sparse,
			Hybrid: c.original,
			Rerank: c.rerankScore,
			Final:  c.final,
		},

		ContextMatch: c.contextMatch,
	}
}

// displayText builds "(Surname et al., Year)" / "(Surname, Year)" /
// "(Unknown, Year)" per spec.md §4.8 step 7.
func displayText(paper domain.Paper) string {
	year := "n.d."
	if paper.Year != nil {
		year = fmt.Sprintf("%d", *paper.Year)
	}

	if len(paper.Authors) == 0 {
		return fmt.Sprintf("(Unknown, %s)", year)
	}

	surname := lastToken(paper.Authors[0])
	if len(paper.Authors) >= 2 {
		return fmt.Sprintf("(%s et al., %s)", surname, year)
	}
	return fmt.Sprintf("(%s, %s)", surname, year)
}

func lastToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[len(fields)-1]
}

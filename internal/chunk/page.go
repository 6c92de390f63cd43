package chunk

import (
	"math"

	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/extract"
)

// enrichWithPages annotates each chunk with PageStart, PageEnd, and a list of
// {page, percent} overlap boundaries, rounded to 2 decimals and summing to
// ~100% for any chunk that intersects at least one page.
func enrichWithPages(chunks []EnhancedChunk, pageMap []extract.PageRange) {
	for i := range chunks {
		c := &chunks[i]
		overlapLen := 0
		var boundaries []domain.PageBoundary

		for _, pr := range pageMap {
			start := max(c.StartChar, pr.StartChar)
			end := min(c.EndChar, pr.EndChar)
			if end <= start {
				continue
			}
			n := end - start
			overlapLen += n
			boundaries = append(boundaries, domain.PageBoundary{Page: pr.PageNumber})
			if c.PageStart == nil {
				ps := pr.PageNumber
				c.PageStart = &ps
			}
			pe := pr.PageNumber
			c.PageEnd = &pe
			boundaries[len(boundaries)-1].Percent = float64(n)
		}

		if overlapLen == 0 {
			continue
		}
		for j := range boundaries {
			pct := boundaries[j].Percent / float64(overlapLen) * 100
			boundaries[j].Percent = math.Round(pct*100) / 100
		}
		c.PageBoundaries = boundaries
	}
}

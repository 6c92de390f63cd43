package retrieval

import (
	"math"
	"strings"
	"time"

	"github.com/citeassist/engine/internal/domain"
)

const (
	highConfidence   = 0.85
	mediumConfidence = 0.70
	lowConfidence    = 0.50
)

// rankingScore implements spec.md §4.8 step 4, the ranking formula used when
// no reranker runs.
func rankingScore(denseSimilarity float64, chunkText string, paper domain.Paper, tc *domain.TextContext) float64 {
	similarityComponent := 0.40 * denseSimilarity
	contextComponent := 0.25 * clamp01(contextScore(chunkText, paper, tc))
	qualityComponent := 0.15 * clamp01(qualityScore(paper))
	recencyComponent := 0.10 * clamp01(recencyScore(paper))
	preferenceComponent := 0.10 * 0.5 // placeholder: no per-user preference signal in this core

	return clamp01(similarityComponent + contextComponent + qualityComponent + recencyComponent + preferenceComponent)
}

func contextScore(chunkText string, paper domain.Paper, tc *domain.TextContext) float64 {
	score := 0.5
	if tc == nil {
		return score
	}
	if tc.PreviousSentence != nil {
		overlap := tokenOverlap(chunkText, *tc.PreviousSentence)
		score += math.Min(float64(overlap)*0.1, 0.3)
	}
	abstractPrefix := firstNWords(paper.Abstract, 50)
	overlap := tokenOverlap(chunkText, abstractPrefix)
	score += math.Min(float64(overlap)*0.02, 0.2)
	return score
}

func qualityScore(paper domain.Paper) float64 {
	score := 0.5
	if paper.CitationCount != nil {
		switch {
		case *paper.CitationCount >= 100:
			score += 0.3
		case *paper.CitationCount >= 10:
			score += 0.2
		}
	}
	switch paper.VenueRank {
	case "A+", "A":
		score += 0.2
	case "B":
		score += 0.1
	}
	return score
}

// recencyScore has no defined behaviour for a paper with no recorded year;
// treated as moderately recent (0.6) rather than penalised or favoured.
func recencyScore(paper domain.Paper) float64 {
	if paper.Year == nil {
		return 0.6
	}
	age := time.Now().Year() - *paper.Year
	switch {
	case age <= 2:
		return 1.0
	case age <= 5:
		return 0.8
	case age <= 10:
		return 0.6
	default:
		return math.Max(0.3, 1-float64(age)*0.02)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// tokenOverlap counts distinct lowercase whitespace tokens shared by a and b.
func tokenOverlap(a, b string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)
	count := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			count++
		}
	}
	return count
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func firstNWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

// classify maps a final/confidence score to the named tier; scores below
// lowConfidence are not tiered at all (callers drop them first).
func classify(score float64) string {
	switch {
	case score >= highConfidence:
		return "high"
	case score >= mediumConfidence:
		return "medium"
	default:
		return "low"
	}
}

package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// extractMetadata runs spec.md §4.10 step 3's heuristic extraction over raw
// paper text: title (markdown H1 or scored candidate), authors near the
// title line, an abstract section, and the most recent plausible year.
// Ported from original_source/improved_metadata_extractor.py's heuristics
// into the ingestion package's own plain-function idiom.
type extractedMetadata struct {
	Title    string
	Authors  []string
	Abstract string
	Year     *int
}

var (
	markdownHeading  = regexp.MustCompile(`(?i)^#+\s*abstract\s*$`)
	sectionHeading   = regexp.MustCompile(`^\d+\.?\s+[A-Z]`)
	yearPattern      = regexp.MustCompile(`\b(19[5-9]\d|20[0-2]\d)\b`)
	dateLike         = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	emailLike        = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	symbolsAndDigits = regexp.MustCompile(`[0-9*†‡§¶]+`)
	parenthetical    = regexp.MustCompile(`\([^)]*\)`)
	andSeparator     = regexp.MustCompile(`(?i)\s+and\s+`)
)

var headerFooterPatterns = []string{
	"page ", "copyright", "©", "all rights reserved", "preprint", "arxiv:",
	"doi:", "isbn", "issn", "vol.", "no.", "pp.", "journal", "conference", "proceedings",
}

var nonTitleStarts = []string{"figure", "table", "algorithm", "equation", "section", "chapter"}

var titleKeywords = []string{
	"analysis", "study", "approach", "method", "system", "framework",
	"investigation", "examination", "review", "survey", "model",
}

var authorSkipWords = []string{
	"abstract", "introduction", "keywords", "doi:", "copyright",
	"received", "accepted", "published", "corresponding",
}

func extractMetadata(text string) extractedMetadata {
	lines := strings.Split(text, "\n")

	var meta extractedMetadata
	if title, idx, ok := extractTitle(lines); ok {
		meta.Title = title
		meta.Authors = extractAuthorsNearTitle(lines, idx)
	}
	meta.Abstract = extractAbstract(lines)
	meta.Year = extractYear(text)
	return meta
}

// extractTitle tries a markdown H1 within the first 100 lines first, then
// the highest-scoring candidate among the non-empty, non-header/footer lines
// within the first 50 lines.
func extractTitle(lines []string) (string, int, bool) {
	limit := len(lines)
	if limit > 100 {
		limit = 100
	}
	for i, line := range lines[:limit] {
		if strings.HasPrefix(line, "# ") && len(strings.TrimSpace(line)) > 10 {
			clean := strings.TrimSpace(line[2:])
			lower := strings.ToLower(clean)
			if !strings.Contains(lower, "abstract") && !strings.Contains(lower, "introduction") &&
				!strings.Contains(lower, "references") && !strings.Contains(lower, "acknowledgments") {
				return clean, i, true
			}
		}
	}

	limit = len(lines)
	if limit > 50 {
		limit = 50
	}

	type candidate struct {
		text  string
		index int
		score float64
	}
	var candidates []candidate

	for i, line := range lines[:limit] {
		stripped := strings.TrimSpace(line)
		if stripped == "" || isHeaderFooter(stripped) || containsMetadataElements(stripped) {
			continue
		}
		if len(stripped) >= 10 && looksLikeTitle(stripped, lines, i) {
			candidates = append(candidates, candidate{stripped, i, titleScore(stripped, lines, i)})
		}
	}

	if len(candidates) == 0 {
		return "", 0, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}
	return best.text, best.index, true
}

func looksLikeTitle(text string, lines []string, index int) bool {
	if len(text) < 10 || len(text) > 300 {
		return false
	}
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, ",") ||
		strings.HasSuffix(text, ";") || strings.HasSuffix(text, ":") {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range nonTitleStarts {
		if strings.HasPrefix(lower, w) {
			return false
		}
	}

	words := strings.Fields(text)
	significant := 0
	capitalized := 0
	for _, w := range words {
		if len(w) > 3 {
			significant++
			if isUpperFirst(w) {
				capitalized++
			}
		}
	}
	if significant > 0 && float64(capitalized)/float64(significant) > 0.5 {
		return true
	}

	if index+1 < len(lines) && looksLikeAuthors(strings.TrimSpace(lines[index+1])) {
		return true
	}
	return len(words) >= 3
}

func titleScore(text string, lines []string, index int) float64 {
	score := 0.0

	const optimalLength = 100
	lengthDiff := len(text) - optimalLength
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}
	if d := 100 - lengthDiff; d > 0 {
		score += float64(d) / 100
	}

	if index < 50 {
		score += float64(50-index) / 50
	}

	words := strings.Fields(text)
	if len(words) > 0 {
		capitalized := 0
		for _, w := range words {
			if isUpperFirst(w) {
				capitalized++
			}
		}
		score += float64(capitalized) / float64(len(words))
	}

	if index+1 < len(lines) {
		next := strings.TrimSpace(lines[index+1])
		switch {
		case looksLikeAuthors(next):
			score += 2.0
		case next == "":
			score += 0.5
		}
	}

	if strings.Contains(text, "?") {
		score += 0.5
	}

	lower := strings.ToLower(text)
	for _, kw := range titleKeywords {
		if strings.Contains(lower, kw) {
			score += 0.3
			break
		}
	}

	return score
}

func isUpperFirst(w string) bool {
	if w == "" {
		return false
	}
	r := []rune(w)[0]
	return r >= 'A' && r <= 'Z'
}

func isHeaderFooter(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range headerFooterPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func containsMetadataElements(text string) bool {
	if strings.Contains(text, "http://") || strings.Contains(text, "https://") ||
		strings.Contains(text, "www.") || strings.Contains(text, "@") {
		return true
	}
	if dateLike.MatchString(text) || emailLike.MatchString(text) {
		return true
	}
	return false
}

func looksLikeAuthors(text string) bool {
	if len(text) < 5 {
		return false
	}
	lower := strings.ToLower(text)
	if !strings.Contains(text, ",") && !strings.Contains(lower, " and ") {
		return false
	}

	clean := symbolsAndDigits.ReplaceAllString(parenthetical.ReplaceAllString(text, ""), "")
	var parts []string
	if strings.Contains(clean, ",") {
		parts = strings.Split(clean, ",")
	} else {
		parts = andSeparator.Split(clean, -1)
	}

	valid := 0
	for _, p := range parts {
		words := strings.Fields(strings.TrimSpace(p))
		if len(words) >= 1 && len(words) <= 5 {
			valid++
		}
	}
	return valid >= 1 && float64(valid) >= float64(len(parts))*0.5
}

// extractAuthorsNearTitle scans up to 15 lines after the title for the
// first line that parses as an author list.
func extractAuthorsNearTitle(lines []string, titleIdx int) []string {
	end := titleIdx + 15
	if end > len(lines) {
		end = len(lines)
	}
	for i := titleIdx + 1; i < end; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		skip := false
		for _, w := range authorSkipWords {
			if strings.Contains(lower, w) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if authors := parseAuthorLine(line); authors != nil {
			return authors
		}
	}
	return nil
}

func parseAuthorLine(line string) []string {
	clean := strings.TrimSpace(symbolsAndDigits.ReplaceAllString(parenthetical.ReplaceAllString(line, ""), ""))
	if clean == "" {
		return nil
	}

	var authors []string
	lower := strings.ToLower(clean)
	switch {
	case strings.Contains(clean, ","):
		for _, p := range strings.Split(clean, ",") {
			if name := strings.TrimSpace(p); isValidName(name) {
				authors = append(authors, name)
			}
		}
	case strings.Contains(lower, " and "):
		for _, p := range andSeparator.Split(clean, -1) {
			if name := strings.TrimSpace(p); isValidName(name) {
				authors = append(authors, name)
			}
		}
	case isValidName(clean):
		authors = append(authors, clean)
	}
	return authors
}

func isValidName(text string) bool {
	if text == "" {
		return false
	}
	words := strings.Fields(text)
	if len(words) < 1 || len(words) > 5 {
		return false
	}
	hasUpper := false
	for _, w := range words {
		if isUpperFirst(w) {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return false
	}
	for _, c := range []string{"@", "/", "\\", "|", "<", ">", "[", "]", "{", "}"} {
		if strings.Contains(text, c) {
			return false
		}
	}
	return true
}

// extractAbstract collects the lines following an "Abstract" heading up to
// the next numbered or markdown section, falling back to an inline
// "Abstract: ..." match.
func extractAbstract(lines []string) string {
	var abstractLines []string
	inAbstract := false

	for _, line := range lines {
		if markdownHeading.MatchString(strings.TrimSpace(line)) {
			inAbstract = true
			continue
		}
		if inAbstract {
			if strings.HasPrefix(line, "#") || sectionHeading.MatchString(line) {
				break
			}
			if strings.TrimSpace(line) != "" {
				abstractLines = append(abstractLines, strings.TrimSpace(line))
			}
		}
	}
	if len(abstractLines) > 0 {
		return strings.Join(abstractLines, " ")
	}

	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), "abstract") {
			continue
		}
		rest := strings.TrimSpace(line[strings.Index(strings.ToLower(line), "abstract")+len("abstract"):])
		rest = strings.TrimPrefix(rest, ":")
		rest = strings.TrimSpace(rest)
		if len(rest) > 50 {
			return rest
		}

		var next []string
		end := i + 10
		if end > len(lines) {
			end = len(lines)
		}
		for j := i + 1; j < end; j++ {
			if strings.TrimSpace(lines[j]) == "" {
				break
			}
			next = append(next, strings.TrimSpace(lines[j]))
		}
		if joined := strings.Join(next, " "); len(joined) > 50 {
			return joined
		}
	}
	return ""
}

// extractYear returns the most recent plausible publication year found in
// text, bounded to [1950, current year] rather than a hardcoded ceiling.
func extractYear(text string) *int {
	matches := yearPattern.FindAllString(text, -1)
	currentYear := time.Now().Year()

	best := -1
	for _, m := range matches {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if y >= 1950 && y <= currentYear && y > best {
			best = y
		}
	}
	if best == -1 {
		return nil
	}
	return &best
}

// Package sparse is the C5 BM25 index: lexical scoring over chunk texts,
// grounded on rag/sparse_index.go's BM25Index (thread-safe Add/Remove/Search
// over a sync.RWMutex, same IDF formula), with k1/b fixed to the spec's
// 1.2/0.75 (the teacher's DefaultBM25Parameters uses k1=1.5 — a deliberate
// deviation we override), an English stop-word filter plus a length-2 token
// cutoff, and an explicit Fit/refit step since citeassist needs
// fit-then-serve semantics rather than the teacher's always-live index.
package sparse

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// k1 controls term-frequency saturation; b controls length normalisation.
const (
	k1 = 1.2
	b  = 0.75
)

var tokenPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

var stopWords = buildStopWords()

func buildStopWords() map[string]struct{} {
	words := []string{
		"a", "all", "an", "and", "are", "as", "at", "be", "been", "being", "but",
		"by", "can", "did", "do", "does", "don", "down", "during", "each",
		"else", "few", "for", "from", "further", "had", "has", "have", "here",
		"if", "in", "into", "is", "it", "just", "more", "most", "no", "nor",
		"not", "now", "of", "off", "on", "only", "or", "other", "out", "over",
		"own", "same", "she", "should", "so", "some", "such", "than", "that",
		"the", "then", "there", "this", "too", "under", "up", "very", "was",
		"were", "when", "which", "while", "will", "with", "you",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// tokenize lowercases, splits on non-letter/non-digit runs, and drops stop
// words and tokens of length <= 2, matching spec.md §4.5's tokenisation.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := tokenPattern.Split(lower, -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) <= 2 {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// Document is one indexable chunk.
type Document struct {
	ChunkID string
	PaperID string
	Text    string
}

// Result is one scored chunk from Search.
type Result struct {
	ChunkID string
	PaperID string
	Score   float64
}

type docEntry struct {
	paperID   string
	termFreq  map[string]int
	docLength int
}

// Index is the BM25 sparse retrieval index.
type Index struct {
	mu           sync.RWMutex
	fitted       bool
	docs         map[string]docEntry
	docFreq      map[string]int
	avgDocLength float64
	totalDocs    int
}

// NewIndex returns an empty, unfitted BM25 index.
func NewIndex() *Index {
	return &Index{
		docs:    make(map[string]docEntry),
		docFreq: make(map[string]int),
	}
}

// Fitted reports whether Fit or Add has run at least once.
func (idx *Index) Fitted() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.fitted
}

// Fit performs one full pass over docs, replacing the index entirely. Held
// under a single write lock for the whole rebuild so concurrent Search calls
// never observe a half-rebuilt index (the serialized-refit lock spec.md §5
// calls for). Call on first use and whenever the corpus changes
// significantly; incremental single-document changes go through Add/Remove
// instead of a full re-fit.
func (idx *Index) Fit(docs []Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.docs = make(map[string]docEntry, len(docs))
	idx.docFreq = make(map[string]int)
	idx.totalDocs = 0

	var totalLength int
	for _, d := range docs {
		terms := tokenize(d.Text)
		tf := make(map[string]int, len(terms))
		for _, term := range terms {
			tf[term]++
		}
		idx.docs[d.ChunkID] = docEntry{paperID: d.PaperID, termFreq: tf, docLength: len(terms)}
		for term := range tf {
			idx.docFreq[term]++
		}
		totalLength += len(terms)
		idx.totalDocs++
	}
	if idx.totalDocs > 0 {
		idx.avgDocLength = float64(totalLength) / float64(idx.totalDocs)
	} else {
		idx.avgDocLength = 0
	}
	idx.fitted = true
}

// Add incrementally indexes a single document without a full re-fit, updating
// the collection statistics in place. Re-adding an existing ChunkID
// first removes its prior entry so totalDocs/docFreq are never double
// counted.
func (idx *Index) Add(doc Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(doc.ChunkID)

	terms := tokenize(doc.Text)
	tf := make(map[string]int, len(terms))
	for _, term := range terms {
		tf[term]++
	}
	idx.docs[doc.ChunkID] = docEntry{paperID: doc.PaperID, termFreq: tf, docLength: len(terms)}
	for term := range tf {
		idx.docFreq[term]++
	}
	idx.totalDocs++
	idx.recomputeAvgLocked()
	idx.fitted = true
}

// Remove deletes a document and updates collection statistics.
func (idx *Index) Remove(chunkID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(chunkID)
	idx.recomputeAvgLocked()
}

// RemovePaper deletes every document belonging to paperID, for reprocessing:
// the new chunk layout may not match the old one 1:1, so a paper's entire
// prior sparse footprint is purged before its fresh chunks are re-added.
func (idx *Index) RemovePaper(paperID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for chunkID, entry := range idx.docs {
		if entry.paperID == paperID {
			idx.removeLocked(chunkID)
		}
	}
	idx.recomputeAvgLocked()
}

// removeLocked deletes chunkID's entry and offsets docFreq/totalDocs,
// without recomputing avgDocLength; callers do that once after their own
// batch of removals. Must be called with idx.mu held.
func (idx *Index) removeLocked(chunkID string) {
	entry, ok := idx.docs[chunkID]
	if !ok {
		return
	}
	for term := range entry.termFreq {
		idx.docFreq[term]--
		if idx.docFreq[term] <= 0 {
			delete(idx.docFreq, term)
		}
	}
	delete(idx.docs, chunkID)
	idx.totalDocs--
}

func (idx *Index) recomputeAvgLocked() {
	if idx.totalDocs <= 0 {
		idx.avgDocLength = 0
		return
	}
	var total int
	for _, e := range idx.docs {
		total += e.docLength
	}
	idx.avgDocLength = float64(total) / float64(idx.totalDocs)
}

// Search scores every indexed document against query's terms using BM25;
// terms absent from the index contribute 0. Returns the topK highest-scoring
// documents, descending.
func (idx *Index) Search(query string, topK int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queryTerms := tokenize(query)
	scores := make(map[string]float64)

	for _, term := range queryTerms {
		df, ok := idx.docFreq[term]
		if !ok {
			continue
		}
		idf := math.Log((float64(idx.totalDocs)-float64(df)+0.5)/(float64(df)+0.5) + 1)

		for chunkID, entry := range idx.docs {
			tf, ok := entry.termFreq[term]
			if !ok {
				continue
			}
			docLen := float64(entry.docLength)
			numerator := float64(tf) * (k1 + 1)
			denominator := float64(tf) + k1*(1-b+b*docLen/idx.avgDocLength)
			scores[chunkID] += idf * numerator / denominator
		}
	}

	results := make([]Result, 0, len(scores))
	for chunkID, score := range scores {
		results = append(results, Result{ChunkID: chunkID, PaperID: idx.docs[chunkID].paperID, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// fingerprint builds the response-cache key: (user_id, fingerprint(text),
// strategy, use_reranking), per spec.md §4.8 Caching.
func fingerprint(userID, text string, strategy Strategy, useReranking bool) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s:%s:%t", userID, hex.EncodeToString(sum[:]), strategy, useReranking)
}

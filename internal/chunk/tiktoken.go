package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TikTokenCounter counts tokens exactly as a tiktoken encoding would,
// grounded on raggo's TikTokenCounter. Chunking defaults to WordTokenCounter
// and opts into this when a real tokenizer budget is wanted (matching OpenAI
// embedding-model token limits).
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter wraps the named encoding ("cl100k_base" is the usual
// choice for modern embedding models).
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("get tiktoken encoding %q: %w", encoding, err)
	}
	return &TikTokenCounter{tke: tke}, nil
}

func (t *TikTokenCounter) Count(text string) int {
	return len(t.tke.Encode(text, nil, nil))
}

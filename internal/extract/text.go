package extract

import (
	"fmt"
	"os"
)

// TextExtractor reads a whole .txt file, matching raggo's TextParser. The
// page-map is a single entry spanning the whole document.
type TextExtractor struct{}

func (t *TextExtractor) Extract(filePath string) (Result, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("read file: %w", err)
	}
	text := string(content)
	if text == "" {
		return Result{}, errExtractionEmpty
	}
	return Result{
		Text:    text,
		PageMap: []PageRange{{PageNumber: 1, StartChar: 0, EndChar: len(text)}},
	}, nil
}

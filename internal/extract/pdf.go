package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts text page-by-page with ledongthuc/pdf, exactly as
// raggo's PDFParser does, but additionally records the running char offset
// of each page so the page-map comes back populated rather than dropped.
type PDFExtractor struct{}

func (p *PDFExtractor) Extract(filePath string) (Result, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat file: %w", err)
	}

	reader, err := pdf.NewReader(file, fileInfo.Size())
	if err != nil {
		return Result{}, fmt.Errorf("create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	var pageMap []PageRange
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return Result{}, fmt.Errorf("extract text from page %d: %w", i, err)
		}

		start := textBuilder.Len()
		textBuilder.WriteString(content)
		textBuilder.WriteString("\n\n")
		end := textBuilder.Len()

		pageMap = append(pageMap, PageRange{
			PageNumber: i,
			StartChar:  start,
			EndChar:    end,
		})
	}

	text := textBuilder.String()
	if text == "" {
		return Result{}, errExtractionEmpty
	}

	if len(pageMap) == 0 {
		pageMap = []PageRange{{PageNumber: 1, StartChar: 0, EndChar: len(text)}}
	}

	return Result{Text: text, PageMap: pageMap}, nil
}

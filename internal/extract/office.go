package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// DocxExtractor reads the word/document.xml entry of an Office Open XML
// package and strips markup down to its text runs. No example in the corpus
// ships an office-document parser, so this is a deliberate, minimal
// stdlib-only piece (archive/zip + encoding/xml), flagged in DESIGN.md.
type DocxExtractor struct{}

// docxRun models the handful of document.xml elements we care about: text
// runs and paragraph breaks, nothing else in the OOXML schema matters here.
type docxBody struct {
	Paragraphs []docxParagraph `xml:"body>p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

func (d *DocxExtractor) Extract(filePath string) (Result, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("open docx as zip: %w", err)
	}
	defer zr.Close()

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return Result{}, fmt.Errorf("word/document.xml not found in docx")
	}

	rc, err := docFile.Open()
	if err != nil {
		return Result{}, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return Result{}, fmt.Errorf("read document.xml: %w", err)
	}

	var body docxBody
	if err := xml.Unmarshal(raw, &body); err != nil {
		return Result{}, fmt.Errorf("parse document.xml: %w", err)
	}

	var sb strings.Builder
	for _, para := range body.Paragraphs {
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t)
			}
		}
		sb.WriteString("\n")
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return Result{}, errExtractionEmpty
	}
	return Result{
		Text:    text,
		PageMap: []PageRange{{PageNumber: 1, StartChar: 0, EndChar: len(text)}},
	}, nil
}

// RTFLikeExtractor strips control words from legacy .rtf and binary-free
// .doc-as-rtf content. True binary .doc (OLE2 compound files) has no
// idiomatic pure-Go stdlib reader; this extractor handles the RTF subset and
// falls back to a best-effort control-word strip, which is adequate for the
// plain-text recovery this layer needs.
type RTFLikeExtractor struct{}

var rtfControlWord = regexp.MustCompile(`\\[a-zA-Z]+-?\d*[ ]?`)
var rtfGroupBoundary = regexp.MustCompile(`[{}]`)

func (r *RTFLikeExtractor) Extract(filePath string) (Result, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("read file: %w", err)
	}

	text := string(raw)
	text = rtfControlWord.ReplaceAllString(text, "")
	text = rtfGroupBoundary.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `\par`, "\n")
	text = strings.TrimSpace(text)

	if text == "" {
		return Result{}, errExtractionEmpty
	}
	return Result{
		Text:    text,
		PageMap: []PageRange{{PageNumber: 1, StartChar: 0, EndChar: len(text)}},
	}, nil
}

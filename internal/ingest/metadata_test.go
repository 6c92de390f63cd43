package ingest

import "testing"

func TestExtractTitle_PrefersMarkdownHeading(t *testing.T) {
	text := "# Attention Is All You Need\n\nVaswani, Shazeer, Parmar\n\nAbstract\nWe propose a new architecture."
	meta := extractMetadata(text)
	if meta.Title != "Attention Is All You Need" {
		t.Fatalf("title = %q", meta.Title)
	}
}

func TestExtractTitle_ScoresCandidateWhenNoHeading(t *testing.T) {
	text := "Deep Residual Learning for Image Recognition in Large Scale Visual Datasets\n\nKaiming He, Xiangyu Zhang, Shaoqing Ren\n\nWe present a residual learning framework."
	meta := extractMetadata(text)
	if meta.Title != "Deep Residual Learning for Image Recognition in Large Scale Visual Datasets" {
		t.Fatalf("title = %q", meta.Title)
	}
}

func TestExtractAuthorsNearTitle_CommaSeparated(t *testing.T) {
	text := "# A Study Of Something Important\n\nJohn Smith, Jane Doe, Robert Brown\n\nAbstract\nSome text here about the study."
	meta := extractMetadata(text)
	if len(meta.Authors) != 3 {
		t.Fatalf("authors = %v", meta.Authors)
	}
	if meta.Authors[0] != "John Smith" {
		t.Fatalf("authors[0] = %q", meta.Authors[0])
	}
}

func TestExtractAuthorsNearTitle_AndSeparated(t *testing.T) {
	text := "# A Study Of Something Important\n\nJohn Smith and Jane Doe\n\nAbstract\nSome text here about the study."
	meta := extractMetadata(text)
	if len(meta.Authors) != 2 || meta.Authors[1] != "Jane Doe" {
		t.Fatalf("authors = %v", meta.Authors)
	}
}

func TestExtractAuthorsNearTitle_SkipsNonAuthorLines(t *testing.T) {
	text := "# A Study Of Something Important\n\nAbstract\n\nJohn Smith, Jane Doe\n\nWe study something."
	meta := extractMetadata(text)
	if len(meta.Authors) != 2 {
		t.Fatalf("authors = %v", meta.Authors)
	}
}

func TestExtractAbstract_HeadingStopsAtNextSection(t *testing.T) {
	text := "# Title Line Goes Here\n\n# Abstract\nThis is the abstract content spanning one line.\n\n# 1. Introduction\nBody text that should not appear."
	meta := extractMetadata(text)
	if meta.Abstract != "This is the abstract content spanning one line." {
		t.Fatalf("abstract = %q", meta.Abstract)
	}
}

func TestExtractAbstract_InlinePattern(t *testing.T) {
	text := "Some Title\n\nAbstract: " + repeatWord("word", 15) + "\n\nIntroduction follows."
	meta := extractMetadata(text)
	if meta.Abstract == "" {
		t.Fatalf("expected non-empty abstract")
	}
}

func TestExtractYear_ReturnsMostRecentPlausibleYear(t *testing.T) {
	text := "Published in 1998, revised 2015, this paper extends our 2023 workshop draft."
	meta := extractMetadata(text)
	if meta.Year == nil || *meta.Year != 2023 {
		t.Fatalf("year = %v", meta.Year)
	}
}

func TestExtractYear_RejectsOutOfRangeYears(t *testing.T) {
	text := "ISBN 1234567890, catalog number 3099 only, no real year present."
	meta := extractMetadata(text)
	if meta.Year != nil {
		t.Fatalf("expected no year, got %v", *meta.Year)
	}
}

func TestIsValidName(t *testing.T) {
	cases := map[string]bool{
		"John Smith":                   true,
		"john smith":                   false,
		"One Two Three Four Five Six":  false,
		"user@example.com":             false,
	}
	for name, want := range cases {
		if got := isValidName(name); got != want {
			t.Errorf("isValidName(%q) = %v, want %v", name, got, want)
		}
	}
}

func repeatWord(word string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += " "
		}
		out += word
	}
	return out
}

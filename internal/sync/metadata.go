package sync

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/citeassist/engine/internal/domain"
)

var itemYearPattern = regexp.MustCompile(`\d{4}`)

// extractItemMetadata maps one remote item's data onto the Paper fields
// C12 reconciliation fills in, per spec.md §4.12: "title, authors,
// abstract, year parsed from any date field, journal, DOI. Empty strings
// are converted to absent."
func extractItemMetadata(item Item) domain.Paper {
	var authors []string
	for _, c := range item.Data.Creators {
		if c.CreatorType != "author" {
			continue
		}
		name := c.LastName
		if c.FirstName != "" {
			name = strings.TrimSpace(c.FirstName + " " + c.LastName)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}

	journal := item.Data.PublicationTitle
	if journal == "" {
		journal = item.Data.BookTitle
	}

	p := domain.Paper{
		Title:       item.Data.Title,
		Authors:     authors,
		Abstract:    item.Data.AbstractNote,
		Journal:     journal,
		DOI:         item.Data.DOI,
		ExternalKey: item.Key,
		Source:      domain.SourceExternal,
		Year:        extractItemYear(item.Data.Date, item.Data.DateAdded),
	}
	return p
}

func extractItemYear(dateFields ...string) *int {
	for _, d := range dateFields {
		if d == "" {
			continue
		}
		if m := itemYearPattern.FindString(d); m != "" {
			if y, err := strconv.Atoi(m); err == nil {
				return &y
			}
		}
	}
	return nil
}

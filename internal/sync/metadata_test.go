package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeassist/engine/internal/domain"
)

func TestExtractItemMetadata_MapsAuthorsAndJournal(t *testing.T) {
	item := Item{
		Key: "K1",
		Data: ItemData{
			ItemType: "journalArticle",
			Title:    "Attention Is All You Need",
			Creators: []Creator{
				{CreatorType: "author", FirstName: "Ashish", LastName: "Vaswani"},
				{CreatorType: "editor", FirstName: "Someone", LastName: "Else"},
				{CreatorType: "author", LastName: "Shazeer"},
			},
			AbstractNote:     "We propose a new network architecture.",
			PublicationTitle: "NeurIPS",
			DOI:              "10.0000/xyz",
			Date:             "2017-06-12",
		},
	}

	p := extractItemMetadata(item)
	assert.Equal(t, "Attention Is All You Need", p.Title)
	assert.Equal(t, []string{"Ashish Vaswani", "Shazeer"}, p.Authors)
	assert.Equal(t, "NeurIPS", p.Journal)
	assert.Equal(t, "10.0000/xyz", p.DOI)
	assert.Equal(t, "K1", p.ExternalKey)
	assert.Equal(t, domain.SourceExternal, p.Source)
	require.NotNil(t, p.Year)
	assert.Equal(t, 2017, *p.Year)
}

func TestExtractItemMetadata_FallsBackToBookTitle(t *testing.T) {
	item := Item{Data: ItemData{ItemType: "bookSection", BookTitle: "Handbook of Something"}}
	p := extractItemMetadata(item)
	assert.Equal(t, "Handbook of Something", p.Journal)
}

func TestExtractItemYear_PrefersDateOverDateAdded(t *testing.T) {
	y := extractItemYear("2019-03-01", "2021-01-01")
	require.NotNil(t, y)
	assert.Equal(t, 2019, *y)
}

func TestExtractItemYear_FallsBackWhenFirstFieldEmpty(t *testing.T) {
	y := extractItemYear("", "2021-01-01")
	require.NotNil(t, y)
	assert.Equal(t, 2021, *y)
}

func TestExtractItemYear_NilWhenNoDateFieldsMatch(t *testing.T) {
	y := extractItemYear("", "n.d.")
	assert.Nil(t, y)
}

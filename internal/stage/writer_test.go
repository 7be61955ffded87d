package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

func TestBuildComparisonTableCopiesContributionFields(t *testing.T) {
	method := "transformer"
	papers := []model.Paper{
		{
			PaperID: "arxiv:1",
			Title:   "A Short Title",
			StructuredContribution: &model.StructuredContribution{Method: &method},
		},
		{PaperID: "arxiv:2", Title: "No Contribution"},
	}

	table := BuildComparisonTable(papers)

	require.Len(t, table, 2)
	assert.Equal(t, 1, table[0].PaperIndex)
	assert.Equal(t, "A Short Title", table[0].Title)
	require.NotNil(t, table[0].Method)
	assert.Equal(t, method, *table[0].Method)

	assert.Equal(t, 2, table[1].PaperIndex)
	assert.Nil(t, table[1].Method)
}

func TestBuildComparisonTableTruncatesLongTitles(t *testing.T) {
	longTitle := "This is a very long paper title that certainly exceeds sixty characters in length"
	papers := []model.Paper{{PaperID: "arxiv:1", Title: longTitle}}

	table := BuildComparisonTable(papers)

	require.Len(t, table, 1)
	assert.Equal(t, longTitle[:60]+"...", table[0].Title)
}

package scholar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

func TestDeduplicateExactIDRepeats(t *testing.T) {
	papers := []model.Paper{
		{PaperID: "arxiv:1", Title: "Attention"},
		{PaperID: "arxiv:1", Title: "Attention"},
	}
	out := Deduplicate(papers)
	require.Len(t, out, 1)
}

func TestDeduplicatePrefersSemanticScholarOnTitleCollision(t *testing.T) {
	papers := []model.Paper{
		{PaperID: "arxiv:1", Title: "Attention Is All You Need", Source: model.SourceArxiv},
		{PaperID: "s2:1", Title: "Attention is all you need", Source: model.SourceSemanticScholar},
	}
	out := Deduplicate(papers)
	require.Len(t, out, 1)
	assert.Equal(t, model.SourceSemanticScholar, out[0].Source)
	assert.Equal(t, "s2:1", out[0].PaperID)
}

func TestDeduplicateKeepsSemanticScholarWhenSeenFirst(t *testing.T) {
	papers := []model.Paper{
		{PaperID: "s2:1", Title: "Attention is all you need", Source: model.SourceSemanticScholar},
		{PaperID: "arxiv:1", Title: "Attention Is All You Need", Source: model.SourceArxiv},
	}
	out := Deduplicate(papers)
	require.Len(t, out, 1)
	assert.Equal(t, model.SourceSemanticScholar, out[0].Source)
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	papers := []model.Paper{
		{PaperID: "arxiv:1", Title: "Title One", Source: model.SourceArxiv},
		{PaperID: "pubmed:2", Title: "Title Two", Source: model.SourcePubMed},
	}
	once := Deduplicate(papers)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeTitleCollapsesPunctuationAndWhitespace(t *testing.T) {
	assert.Equal(t, "attention is all you need",
		normalizeTitle("  Attention, is all   you need!! "))
}

package claimverify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

func TestSummarizeCountsLabelsAndCollectsFailures(t *testing.T) {
	claims := []model.Claim{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}
	results := []model.VerificationResult{
		{ClaimID: "c1", Label: model.EntailmentEntails},
		{ClaimID: "c2", Label: model.EntailmentInsufficient},
		{ClaimID: "c3", Label: model.EntailmentContradicts},
	}

	summary := Summarize(claims, results)

	assert.Equal(t, 3, summary.TotalClaims)
	assert.Equal(t, 3, summary.TotalVerifications)
	assert.Equal(t, 1, summary.EntailsCount)
	assert.Equal(t, 1, summary.InsufficientCount)
	assert.Equal(t, 1, summary.ContradictsCount)
	assert.Len(t, summary.FailedVerifications, 2)
	assert.InDelta(t, 1.0/3.0, summary.EntailmentRatio(), 0.0001)
}

func TestSummarizeEmptyResultsGivesZeroRatio(t *testing.T) {
	summary := Summarize(nil, nil)
	assert.Equal(t, 0.0, summary.EntailmentRatio())
}

func TestPaperByIndexBoundsChecking(t *testing.T) {
	papers := []model.Paper{{PaperID: "a"}, {PaperID: "b"}}

	_, ok := paperByIndex(papers, 0)
	assert.False(t, ok)

	p, ok := paperByIndex(papers, 1)
	assert.True(t, ok)
	assert.Equal(t, "a", p.PaperID)

	_, ok = paperByIndex(papers, 3)
	assert.False(t, ok)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaperCloneIsolatesPointerFields(t *testing.T) {
	year := 2024
	doi := "10.1/x"
	p := Paper{
		PaperID: "a",
		Authors: []string{"Ada"},
		Year:    &year,
		DOI:     &doi,
		StructuredContribution: &StructuredContribution{Method: strPtr("baseline")},
	}

	clone := p.Clone()
	*clone.Year = 1999
	clone.Authors[0] = "changed"
	*clone.StructuredContribution.Method = "changed"

	assert.Equal(t, 2024, *p.Year)
	assert.Equal(t, "Ada", p.Authors[0])
	assert.Equal(t, "baseline", *p.StructuredContribution.Method)
}

func TestStructuredContributionIsEmpty(t *testing.T) {
	var sc *StructuredContribution
	assert.True(t, sc.IsEmpty())

	sc = &StructuredContribution{}
	assert.True(t, sc.IsEmpty())

	sc.Method = strPtr("x")
	assert.False(t, sc.IsEmpty())
}

func TestPaperSourceValid(t *testing.T) {
	assert.True(t, SourceArxiv.Valid())
	assert.False(t, PaperSource("unknown").Valid())
}

func strPtr(s string) *string { return &s }

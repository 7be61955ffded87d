package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCitedIndicesSortedAndDeduplicated(t *testing.T) {
	section := Section{Content: "Work in {cite:3} builds on {cite:1} and {cite:3} again, see {cite:2}."}
	assert.Equal(t, []int{1, 2, 3}, section.CitedIndices())
}

func TestCitedIndicesEmptyWhenNoMarkers(t *testing.T) {
	section := Section{Content: "No citations here."}
	assert.Empty(t, section.CitedIndices())
}

func TestCiteMarkerPatternIsCaseSensitiveAndNoWhitespace(t *testing.T) {
	assert.False(t, CiteMarkerPattern.MatchString("{Cite:1}"))
	assert.False(t, CiteMarkerPattern.MatchString("{cite: 1}"))
	assert.True(t, CiteMarkerPattern.MatchString("{cite:1}"))
	assert.True(t, CiteMarkerPattern.MatchString("{cite:42}"))
}

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleTarget struct {
	Title string `json:"title"`
}

func TestDecodeStructuredEmptyContent(t *testing.T) {
	var target sampleTarget
	err := decodeStructured("   ", &target)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestDecodeStructuredSchemaAsContent(t *testing.T) {
	var target sampleTarget
	raw := `{"properties": {"title": {"type": "string"}}, "type": "object", "required": ["title"]}`
	err := decodeStructured(raw, &target)
	assert.ErrorIs(t, err, ErrSchemaAsContent)
}

func TestDecodeStructuredSchemaMixedWithContentStripsSchemaKeys(t *testing.T) {
	var target sampleTarget
	raw := `{"title": "Attention Is All You Need", "properties": {}, "type": "object"}`
	err := decodeStructured(raw, &target)
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", target.Title)
}

func TestDecodeStructuredValidContent(t *testing.T) {
	var target sampleTarget
	err := decodeStructured(`{"title": "hello"}`, &target)
	require.NoError(t, err)
	assert.Equal(t, "hello", target.Title)
}

func TestDecodeStructuredLikelyTruncated(t *testing.T) {
	var target sampleTarget
	err := decodeStructured(`{"title": "hello`, &target)
	assert.ErrorIs(t, err, ErrLikelyTruncated)
}

func TestDecodeStructuredInvalidJSONNotTruncated(t *testing.T) {
	var target sampleTarget
	err := decodeStructured(`{"title": "hello"}]`, &target)
	assert.NotErrorIs(t, err, ErrLikelyTruncated)
	assert.Error(t, err)
}

func TestDecodeStructuredSchemaMismatch(t *testing.T) {
	var target sampleTarget
	err := decodeStructured(`{"title": 42}`, &target)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestBuildSchemaPreambleListsRequiredFields(t *testing.T) {
	preamble, err := buildSchemaPreamble(&sampleTarget{})
	require.NoError(t, err)
	assert.Contains(t, preamble, "RESPONSE FORMAT")
	assert.Contains(t, preamble, "title")
}

package claimverify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

func TestExtractFromSectionSkipsWhenNoCitationMarkers(t *testing.T) {
	extractor := &Extractor{}
	claims, err := extractor.ExtractFromSection(context.Background(), 0, model.Section{
		Heading: "Intro",
		Content: "No citations anywhere in this text.",
	})
	require.NoError(t, err)
	assert.Nil(t, claims)
}

func TestExtractAllSkipsEverySectionWithoutMarkers(t *testing.T) {
	extractor := &Extractor{}
	draft := model.Draft{Sections: []model.Section{
		{Heading: "a", Content: "no markers"},
		{Heading: "b", Content: "still none"},
	}}
	claims := extractor.ExtractAll(context.Background(), draft)
	assert.Empty(t, claims)
}

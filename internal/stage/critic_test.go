package stage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

func structuralOnlyCritic() *Critic {
	return NewCritic(nil, nil, 1, false, 0.8, zerolog.Nop())
}

func TestCriticRunNoDraftSkipsWithEmptyErrors(t *testing.T) {
	critic := structuralOnlyCritic()
	patch, err := critic.Run(context.Background(), &model.SessionState{})
	require.NoError(t, err)
	require.NotNil(t, patch.QAErrors)
	assert.Empty(t, *patch.QAErrors)
}

func TestCriticRunFlagsHallucinatedCitation(t *testing.T) {
	critic := structuralOnlyCritic()
	state := &model.SessionState{
		ApprovedPapers: []model.Paper{{PaperID: "a"}},
		Draft: &model.Draft{Sections: []model.Section{
			{Heading: "h", Content: "As shown in {cite:5}."},
		}},
	}

	patch, err := critic.Run(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, patch.QAErrors)
	require.NotEmpty(t, *patch.QAErrors)
	assert.Contains(t, (*patch.QAErrors)[0], "Hallucinated citation")
	require.NotNil(t, patch.RetryCount)
	assert.Equal(t, 1, *patch.RetryCount)
}

func TestCriticRunFlagsSectionWithNoCitations(t *testing.T) {
	critic := structuralOnlyCritic()
	state := &model.SessionState{
		ApprovedPapers: []model.Paper{{PaperID: "a"}},
		Draft: &model.Draft{Sections: []model.Section{
			{Heading: "h", Content: "No citation here at all."},
		}},
	}

	patch, err := critic.Run(context.Background(), state)
	require.NoError(t, err)
	found := false
	for _, e := range *patch.QAErrors {
		if e == "Section 1: No citations found in content" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCriticRunFlagsUncitedApprovedPaper(t *testing.T) {
	critic := structuralOnlyCritic()
	state := &model.SessionState{
		ApprovedPapers: []model.Paper{{PaperID: "a"}, {PaperID: "b"}},
		Draft: &model.Draft{Sections: []model.Section{
			{Heading: "h", Content: "Only {cite:1} is used."},
		}},
	}

	patch, err := critic.Run(context.Background(), state)
	require.NoError(t, err)
	found := false
	for _, e := range *patch.QAErrors {
		if e == "Missing citation: paper [2] was approved but not cited" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCriticRunPassesCleanDraft(t *testing.T) {
	critic := structuralOnlyCritic()
	state := &model.SessionState{
		ApprovedPapers: []model.Paper{{PaperID: "a"}, {PaperID: "b"}},
		Draft: &model.Draft{Sections: []model.Section{
			{Heading: "h1", Content: "Uses {cite:1}."},
			{Heading: "h2", Content: "Uses {cite:2}."},
		}},
	}

	patch, err := critic.Run(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, patch.QAErrors)
	assert.Empty(t, *patch.QAErrors)
}

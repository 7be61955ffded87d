package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

func TestDraftMaxTokensBudgetFormula(t *testing.T) {
	assert.Equal(t, 2000, draftMaxTokens(0))
	assert.Equal(t, 2400, draftMaxTokens(2))
	assert.Equal(t, 8000, draftMaxTokens(100), "budget caps at 8000 regardless of paper count")
}

func TestBuildConversationContextTruncatesToRecentWindow(t *testing.T) {
	messages := []model.ConversationMessage{
		{Role: model.RoleUser, Content: "first"},
		{Role: model.RoleAssistant, Content: "reply1"},
		{Role: model.RoleUser, Content: "second"},
		{Role: model.RoleAssistant, Content: "reply2"},
	}

	out := buildConversationContext(messages, 1)
	assert.Equal(t, "User: second\nAssistant: reply2", out)
}

func TestBuildConversationContextEmptyReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", buildConversationContext(nil, 5))
}

func TestLanguageNameMapping(t *testing.T) {
	assert.Equal(t, "Chinese", languageName("zh"))
	assert.Equal(t, "English", languageName("en"))
	assert.Equal(t, "English", languageName(""))
}

func TestAuthorsPreviewTruncatesAfterThree(t *testing.T) {
	assert.Equal(t, "A, B, C...", authorsPreview([]string{"A", "B", "C", "D"}))
	assert.Equal(t, "A, B", authorsPreview([]string{"A", "B"}))
}

func TestYearOrNA(t *testing.T) {
	assert.Equal(t, "N/A", yearOrNA(nil))
	y := 2021
	assert.Equal(t, "2021", yearOrNA(&y))
}

func TestBuildPaperContextUsesStructuredContributionWhenPresent(t *testing.T) {
	method := "transformer"
	papers := []model.Paper{{
		Title:            "Attention Is All You Need",
		CoreContribution: "introduces self-attention",
		StructuredContribution: &model.StructuredContribution{
			Method: &method,
		},
	}}

	out := buildPaperContext(papers)
	assert.Contains(t, out, "[1] Attention Is All You Need")
	assert.Contains(t, out, "Method: transformer")
	assert.NotContains(t, out, "Abstract:")
}

func TestBuildPaperContextFallsBackToAbstractPreview(t *testing.T) {
	papers := []model.Paper{{
		Title:    "Some Paper",
		Abstract: "a very long abstract that should be truncated past two hundred characters for preview purposes, padded out with filler text to exceed the limit comfortably so the truncation branch definitely triggers in this test case here now.",
	}}

	out := buildPaperContext(papers)
	assert.Contains(t, out, "Abstract:")
	assert.Contains(t, out, "...")
}

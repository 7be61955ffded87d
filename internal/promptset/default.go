package promptset

import "fmt"

// Default returns a minimal Templates implementation good enough to drive
// the engine end to end. Production deployments are expected to supply
// their own Templates (richer instructions, localized copy, few-shot
// examples) without touching any stage handler.
func Default() Templates {
	return defaultTemplates{}
}

type defaultTemplates struct{}

func (defaultTemplates) PlannerSystem(conversationContext string) string {
	s := "Decompose the user's research query into 3-5 short search keyword phrases."
	if conversationContext != "" {
		s += "\n\nRecent conversation:\n" + conversationContext
	}
	return s
}

func (defaultTemplates) ContributionSystem() string {
	return "Summarize the paper's core contribution in exactly one sentence."
}

func (defaultTemplates) ContributionUser(title string, year *int, abstract string) string {
	return fmt.Sprintf("Title: %s\nYear: %s\nAbstract: %s", title, yearOrNA(year), abstract)
}

func (defaultTemplates) StructuredExtractionSystem() string {
	return "Extract the paper's problem, method, novelty, dataset, baseline, results, limitations, and future work. Omit any field the abstract does not support."
}

func (defaultTemplates) StructuredExtractionUser(title string, year *int, abstract string) string {
	return fmt.Sprintf("Title: %s\nYear: %s\nAbstract: %s", title, yearOrNA(year), abstract)
}

func (defaultTemplates) OutlineSystem(languageName string) string {
	return fmt.Sprintf("Produce a literature review outline in %s: a title and 4-6 section titles ordered introduction, thematic sections, methodology comparison, conclusion.", languageName)
}

func (defaultTemplates) DraftUser(userQuery, paperContext string) string {
	return fmt.Sprintf("Research query: %s\n\nCandidate papers:\n%s", userQuery, paperContext)
}

func (defaultTemplates) SectionSystem(sectionTitle string, sectionNum, totalSections int, outlineTitles []string, languageName string, numPapers int) string {
	return fmt.Sprintf(
		"Write section %d/%d (\"%s\") of a %s literature review covering %d papers. "+
			"Cite every claim with {cite:N} where N is the 1-based paper index. Full outline: %v.",
		sectionNum, totalSections, sectionTitle, languageName, numPapers, outlineTitles,
	)
}

func (defaultTemplates) DraftSystem(languageName string, numPapers int) string {
	return fmt.Sprintf(
		"Write a complete titled, sectioned literature review in %s covering %d papers. "+
			"Cite every claim with {cite:N}, N in [1,%d]. Cite every paper at least once.",
		languageName, numPapers, numPapers,
	)
}

func (defaultTemplates) RetryAddendum(errorCount int, errorList string, numPapers int) string {
	return fmt.Sprintf(
		"\n\nThe previous draft failed QA with %d error(s):\n%s\n"+
			"Valid citation range is [1,%d]. Cite every one of the %d papers at least once.",
		errorCount, errorList, numPapers, numPapers,
	)
}

func (defaultTemplates) RevisionAddendum(existingDraftSummary, userQuery, conversationContext string) string {
	return fmt.Sprintf(
		"\n\nRevise the existing draft.%s\n\nLatest user request: %s\n\nConversation so far:\n%s",
		existingDraftSummary, userQuery, conversationContext,
	)
}

func (defaultTemplates) ClaimExtractionSystem() string {
	return "Split the section into atomic claims. Preserve each claim's {cite:N} markers verbatim."
}

func (defaultTemplates) ClaimExtractionUser(sectionTitle, sectionContent string) string {
	return fmt.Sprintf("Section: %s\n\n%s", sectionTitle, sectionContent)
}

func (defaultTemplates) ClaimVerificationSystem() string {
	return "Judge whether the cited paper's text entails, insufficiently supports, or contradicts the claim. Respond with label, confidence, evidence_snippet, rationale."
}

func (defaultTemplates) ClaimVerificationUser(claimText string, citationIndex int, paperTitle, paperAbstract, paperContribution string) string {
	return fmt.Sprintf(
		"Claim: %s\nCited paper [%d]: %s\nAbstract: %s\nCore contribution: %s",
		claimText, citationIndex, paperTitle, paperAbstract, paperContribution,
	)
}

func yearOrNA(y *int) string {
	if y == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *y)
}

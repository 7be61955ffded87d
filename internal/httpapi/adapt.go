package httpapi

import (
	"fmt"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

// AdaptDraft rewrites every {cite:N} marker in draft to [N] and computes
// each section's cited_paper_ids: the approved papers (1-indexed in
// citation order) whose index appears in the section, in ascending order.
// A marker whose index falls outside [1, len(approvedPapers)] is stripped
// rather than rewritten, since the adapter — not the Critic — is the last
// line of defense against a hallucinated citation reaching a caller
// (invariant #5's "OR was stripped by the adapter").
func AdaptDraft(draft *model.Draft, approvedPapers []model.Paper, comparisonTable []model.ComparisonEntry) *DraftResponse {
	if draft == nil {
		return nil
	}

	resp := &DraftResponse{
		Title:           draft.Title,
		Sections:        make([]SectionResponse, len(draft.Sections)),
		ComparisonTable: comparisonTable,
	}

	for i, section := range draft.Sections {
		content, citedIDs := rewriteSection(section, approvedPapers)
		resp.Sections[i] = SectionResponse{
			Heading:       section.Heading,
			Content:       content,
			CitedPaperIDs: citedIDs,
		}
	}

	return resp
}

// rewriteSection replaces every {cite:N} in content with [N] (or strips it
// when N is out of range) and returns the ascending, deduplicated list of
// cited paper ids.
func rewriteSection(section model.Section, approvedPapers []model.Paper) (string, []string) {
	numPapers := len(approvedPapers)
	indices := section.CitedIndices()

	idSet := make(map[string]struct{}, len(indices))
	var citedIDs []string
	for _, idx := range indices {
		if idx < 1 || idx > numPapers {
			continue
		}
		id := approvedPapers[idx-1].PaperID
		if _, seen := idSet[id]; seen {
			continue
		}
		idSet[id] = struct{}{}
		citedIDs = append(citedIDs, id)
	}

	content := model.CiteMarkerPattern.ReplaceAllStringFunc(section.Content, func(marker string) string {
		m := model.CiteMarkerPattern.FindStringSubmatch(marker)
		idx := 0
		for _, r := range m[1] {
			idx = idx*10 + int(r-'0')
		}
		if idx < 1 || idx > numPapers {
			return ""
		}
		return fmt.Sprintf("[%d]", idx)
	})

	if citedIDs == nil {
		citedIDs = []string{}
	}
	return content, citedIDs
}

// Package claimverify implements the Critic stage's Layer 2 semantic QA:
// splitting a draft's cited sections into atomic claims, then checking
// each claim's citation against the paper it cites.
package claimverify

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/llm"
	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/promptset"
)

// claimListResult is the schema-coerced shape the LLM fills in when asked
// to split a section into atomic claims.
type claimListResult struct {
	Claims []string `json:"claims"`
}

// Extractor splits draft sections into citation-bearing atomic claims.
type Extractor struct {
	llmClient *llm.Client
	templates promptset.Templates
	logger    zerolog.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(llmClient *llm.Client, templates promptset.Templates, logger zerolog.Logger) *Extractor {
	return &Extractor{llmClient: llmClient, templates: templates, logger: logger}
}

// claimVerificationTemperature is lower than the default completion
// temperature: claim splitting and entailment judging are both graded
// tasks where creativity is a liability.
const claimVerificationTemperature = 0.1

// ExtractFromSection splits one section into atomic claims, skipping the
// call entirely when the section contains no {cite:N} marker at all.
func (e *Extractor) ExtractFromSection(ctx context.Context, sectionIndex int, section model.Section) ([]model.Claim, error) {
	if len(model.CiteMarkerPattern.FindStringIndex(section.Content)) == 0 {
		return nil, nil
	}

	var result claimListResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: e.templates.ClaimExtractionSystem()},
		{Role: llm.RoleUser, Content: e.templates.ClaimExtractionUser(section.Heading, section.Content)},
	}
	if err := e.llmClient.StructuredCompletion(ctx, messages, &result, claimVerificationTemperature, nil); err != nil {
		return nil, fmt.Errorf("claimverify: extract claims from section %d: %w", sectionIndex, err)
	}

	claims := make([]model.Claim, 0, len(result.Claims))
	for i, text := range result.Claims {
		indices := model.CiteMarkerPattern.FindAllStringSubmatch(text, -1)
		if len(indices) == 0 {
			continue
		}
		cited := make([]int, 0, len(indices))
		seen := make(map[int]struct{}, len(indices))
		for _, m := range indices {
			n := 0
			for _, r := range m[1] {
				n = n*10 + int(r-'0')
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			cited = append(cited, n)
		}
		claims = append(claims, model.Claim{
			ID:           fmt.Sprintf("s%d_c%d", sectionIndex, i),
			Text:         text,
			SectionIndex: sectionIndex,
			CitedIndices: cited,
		})
	}
	return claims, nil
}

// ExtractAll runs ExtractFromSection across every section of draft
// concurrently; a section whose extraction fails logs a warning and
// contributes no claims rather than failing the whole draft.
func (e *Extractor) ExtractAll(ctx context.Context, draft model.Draft) []model.Claim {
	perSection := make([][]model.Claim, len(draft.Sections))
	var wg sync.WaitGroup

	for i, section := range draft.Sections {
		wg.Add(1)
		go func(i int, section model.Section) {
			defer wg.Done()
			claims, err := e.ExtractFromSection(ctx, i, section)
			if err != nil {
				e.logger.Warn().Err(err).Int("section_index", i).Msg("failed to extract claims from section")
				return
			}
			perSection[i] = claims
		}(i, section)
	}
	wg.Wait()

	var all []model.Claim
	for _, claims := range perSection {
		all = append(all, claims...)
	}
	return all
}

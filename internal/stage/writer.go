package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/llm"
	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/promptset"
)

// draftOutputSchema is the schema-coerced shape of a single-shot draft
// generation call (the retry and continuation paths).
type draftOutputSchema struct {
	Title    string          `json:"title"`
	Sections []sectionSchema `json:"sections"`
}

type sectionSchema struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

type sectionContentSchema struct {
	Content string `json:"content"`
}

// Writer drafts the literature review, either outline-then-sections (the
// fresh path) or a single structured call (retry or continuation).
type Writer struct {
	llmClient *llm.Client
	templates promptset.Templates
	maxTurns  int
	logger    zerolog.Logger
}

// NewWriter builds a Writer.
func NewWriter(llmClient *llm.Client, templates promptset.Templates, maxTurns int, logger zerolog.Logger) *Writer {
	return &Writer{llmClient: llmClient, templates: templates, maxTurns: maxTurns, logger: logger}
}

// Run produces state's next draft.
func (w *Writer) Run(ctx context.Context, state *model.SessionState) (model.StagePatch, error) {
	var withContributions []model.Paper
	for _, p := range state.ApprovedPapers {
		if p.CoreContribution != "" {
			withContributions = append(withContributions, p)
		}
	}

	if len(withContributions) == 0 {
		logMsg := "No papers with extracted contributions, cannot draft review"
		w.logger.Warn().Msg("writer: " + logMsg)
		return model.StagePatch{
			Draft: nil,
			Logs:  []string{logMsg},
		}, nil
	}

	paperContext := buildPaperContext(withContributions)
	lang := languageName(state.Language)
	numPapers := len(withContributions)

	isRetry := state.RetryCount > 0 && len(state.QAErrors) > 0
	useSingleCall := isRetry || state.IsContinuation

	var draft model.Draft
	var outline *model.DraftOutline
	start := time.Now()

	if useSingleCall {
		if isRetry {
			w.logger.Info().Int("retry", state.RetryCount).Int("errors", len(state.QAErrors)).Msg("writer: retrying to fix QA errors")
		} else {
			w.logger.Info().Str("user_query", truncate(state.UserQuery, 100)).Msg("writer: continuation update")
		}

		systemPrompt := w.templates.DraftSystem(lang, numPapers)

		if state.IsContinuation && len(state.Messages) > 0 {
			conversationContext := buildConversationContext(state.Messages, w.maxTurns)
			existingDraftSummary := ""
			if state.Draft != nil {
				titles := make([]string, len(state.Draft.Sections))
				for i, s := range state.Draft.Sections {
					titles[i] = s.Heading
				}
				existingDraftSummary = fmt.Sprintf("\nExisting draft title: %s\nSections: %s", state.Draft.Title, strings.Join(titles, ", "))
			}
			systemPrompt += w.templates.RevisionAddendum(existingDraftSummary, state.UserQuery, conversationContext)
		}

		if isRetry {
			topErrors := state.QAErrors
			if len(topErrors) > 3 {
				topErrors = topErrors[:3]
			}
			errorLines := make([]string, len(topErrors))
			for i, e := range topErrors {
				errorLines[i] = "- " + e
			}
			systemPrompt += w.templates.RetryAddendum(len(state.QAErrors), strings.Join(errorLines, "\n"), numPapers)
		}

		var out draftOutputSchema
		messages := []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: w.templates.DraftUser(state.UserQuery, paperContext)},
		}
		maxTokens := draftMaxTokens(numPapers)
		if err := w.llmClient.StructuredCompletion(ctx, messages, &out, llm.DefaultTemperature, &maxTokens); err != nil {
			return model.StagePatch{}, fmt.Errorf("stage: writer: single-shot draft: %w", err)
		}

		sections := make([]model.Section, len(out.Sections))
		for i, s := range out.Sections {
			sections[i] = model.Section{Heading: s.Heading, Content: s.Content}
		}
		draft = model.Draft{Title: out.Title, Sections: sections}
	} else {
		w.logger.Info().Int("num_papers", numPapers).Str("language", state.Language).Msg("writer: generating outline-based review")

		generatedOutline, err := w.generateOutline(ctx, state.UserQuery, paperContext, lang)
		if err != nil {
			return model.StagePatch{}, fmt.Errorf("stage: writer: outline: %w", err)
		}
		outline = &generatedOutline
		w.logger.Info().Str("title", outline.Title).Int("sections", len(outline.SectionTitles)).Msg("writer: outline generated")

		sections := make([]model.Section, 0, len(outline.SectionTitles))
		for i, title := range outline.SectionTitles {
			w.logger.Info().Int("section", i+1).Int("total", len(outline.SectionTitles)).Str("title", title).Msg("writer: generating section")
			section, err := w.generateSection(ctx, title, i+1, len(outline.SectionTitles), outline.SectionTitles, state.UserQuery, paperContext, lang, numPapers)
			if err != nil {
				return model.StagePatch{}, fmt.Errorf("stage: writer: section %d: %w", i+1, err)
			}
			sections = append(sections, section)
		}

		draft = model.Draft{Title: outline.Title, Sections: sections}
	}
	elapsed := time.Since(start)

	allCited := make(map[int]struct{})
	for _, section := range draft.Sections {
		for _, idx := range section.CitedIndices() {
			allCited[idx] = struct{}{}
		}
	}
	var outOfBounds []int
	for idx := range allCited {
		if idx < 1 || idx > numPapers {
			outOfBounds = append(outOfBounds, idx)
		}
	}
	if len(outOfBounds) > 0 {
		w.logger.Warn().Ints("out_of_bounds", outOfBounds).Int("valid_max", numPapers).Msg("writer: found out-of-bounds citations")
	}

	logMsg := fmt.Sprintf("Draft complete: '%s' with %d sections, %d unique citations", draft.Title, len(draft.Sections), len(allCited))
	if isRetry {
		logMsg += fmt.Sprintf(" (retry %d)", state.RetryCount)
	}
	w.logger.Info().Msg("writer: " + logMsg)

	comparisonTable := BuildComparisonTable(withContributions)

	return model.StagePatch{
		Draft:           &draft,
		Outline:         outline,
		ComparisonTable: &comparisonTable,
		Logs:            []string{logMsg},
		Timing:          &model.StageTiming{Stage: "writer", Duration: elapsed},
	}, nil
}

func (w *Writer) generateOutline(ctx context.Context, userQuery, paperContext, lang string) (model.DraftOutline, error) {
	var outline model.DraftOutline
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: w.templates.OutlineSystem(lang)},
		{Role: llm.RoleUser, Content: w.templates.DraftUser(userQuery, paperContext)},
	}
	if err := w.llmClient.StructuredCompletion(ctx, messages, &outline, llm.DefaultTemperature, nil); err != nil {
		return model.DraftOutline{}, err
	}
	return outline, nil
}

func (w *Writer) generateSection(ctx context.Context, sectionTitle string, sectionNum, totalSections int, outlineTitles []string, userQuery, paperContext, lang string, numPapers int) (model.Section, error) {
	var result sectionContentSchema
	maxTokens := 1500
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: w.templates.SectionSystem(sectionTitle, sectionNum, totalSections, outlineTitles, lang, numPapers)},
		{Role: llm.RoleUser, Content: w.templates.DraftUser(userQuery, paperContext)},
	}
	if err := w.llmClient.StructuredCompletion(ctx, messages, &result, llm.DefaultTemperature, &maxTokens); err != nil {
		return model.Section{}, err
	}
	return model.Section{Heading: sectionTitle, Content: result.Content}, nil
}

// BuildComparisonTable assembles the structured method-comparison rows
// alongside the prose draft (spec's supplemental comparison table).
func BuildComparisonTable(papers []model.Paper) []model.ComparisonEntry {
	entries := make([]model.ComparisonEntry, 0, len(papers))
	for i, p := range papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:60] + "..."
		}
		entry := model.ComparisonEntry{PaperIndex: i + 1, Title: title}
		if sc := p.StructuredContribution; sc != nil {
			entry.Method = sc.Method
			entry.Dataset = sc.Dataset
			entry.Baseline = sc.Baseline
			entry.Results = sc.Results
		}
		entries = append(entries, entry)
	}
	return entries
}

package stage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	climit "github.com/tangerg-labs/autoscholar/internal/concurrency"
	"github.com/tangerg-labs/autoscholar/internal/fulltext"
	"github.com/tangerg-labs/autoscholar/internal/llm"
	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/promptset"
)

type contributionExtraction struct {
	CoreContribution string `json:"core_contribution"`
}

type structuredExtractionResult struct {
	Problem     *string `json:"problem,omitempty"`
	Method      *string `json:"method,omitempty"`
	Novelty     *string `json:"novelty,omitempty"`
	Dataset     *string `json:"dataset,omitempty"`
	Baseline    *string `json:"baseline,omitempty"`
	Results     *string `json:"results,omitempty"`
	Limitations *string `json:"limitations,omitempty"`
	FutureWork  *string `json:"future_work,omitempty"`
}

// Extractor derives each approved paper's core contribution and structured
// 8-field summary, then enriches papers still missing a PDF URL via
// full-text resolution.
type Extractor struct {
	llmClient   *llm.Client
	templates   promptset.Templates
	resolver    *fulltext.Resolver
	llmLimiter  *climit.Limiter
	fulltextLimiter *climit.Limiter
	logger      zerolog.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(llmClient *llm.Client, templates promptset.Templates, resolver *fulltext.Resolver, llmConcurrency, fulltextConcurrency int, logger zerolog.Logger) *Extractor {
	return &Extractor{
		llmClient:       llmClient,
		templates:       templates,
		resolver:        resolver,
		llmLimiter:      climit.NewLimiter(llmConcurrency),
		fulltextLimiter: climit.NewLimiter(fulltextConcurrency),
		logger:          logger,
	}
}

// Run extracts contributions for every approved candidate paper, bounded
// by the LLM concurrency limit, then enriches the survivors with full-text
// PDF URLs.
func (e *Extractor) Run(ctx context.Context, state *model.SessionState) (model.StagePatch, error) {
	var approved []model.Paper
	for _, p := range state.CandidatePapers {
		if p.IsApproved {
			approved = append(approved, p)
		}
	}

	if len(approved) == 0 {
		logMsg := "No approved papers to process"
		e.logger.Warn().Msg("extractor: " + logMsg)
		empty := []model.Paper{}
		return model.StagePatch{
			ApprovedPapers: &empty,
			Logs:           []string{logMsg},
		}, nil
	}

	e.logger.Info().Int("count", len(approved)).Msg("extractor: extracting contributions")

	results := make([]*model.Paper, len(approved))
	var wg sync.WaitGroup
	failedCount := 0
	var failedMu sync.Mutex

	for i, paper := range approved {
		wg.Add(1)
		go func(i int, paper model.Paper) {
			defer wg.Done()

			e.llmLimiter.Acquire()
			defer e.llmLimiter.Release()

			extracted, err := e.extractContribution(ctx, paper)
			if err != nil {
				e.logger.Error().Err(err).Str("paper_id", paper.PaperID).Str("title", truncate(paper.Title, 60)).Msg("contribution extraction failed")
				failedMu.Lock()
				failedCount++
				failedMu.Unlock()
				return
			}
			results[i] = &extracted
		}(i, paper)
	}
	wg.Wait()

	extracted := make([]model.Paper, 0, len(approved))
	for _, r := range results {
		if r != nil {
			extracted = append(extracted, *r)
		}
	}

	logMsg := fmt.Sprintf("Extracted contributions from %d papers", len(extracted))
	if failedCount > 0 {
		logMsg += fmt.Sprintf(" (%d failed - check logs for details)", failedCount)
	}
	e.logger.Info().Msg("extractor: " + logMsg)
	logs := []string{logMsg}

	needingPDF := 0
	for _, p := range extracted {
		if p.PDFURL == nil || *p.PDFURL == "" {
			needingPDF++
		}
	}
	if needingPDF > 0 {
		e.logger.Info().Int("count", needingPDF).Msg("extractor: enriching papers with full-text URLs")
		enriched := e.resolver.EnrichAll(ctx, extracted, e.fulltextLimiter)
		pdfCount := 0
		for _, p := range enriched {
			if p.PDFURL != nil && *p.PDFURL != "" {
				pdfCount++
			}
		}
		pdfLog := fmt.Sprintf("Found full-text PDFs for %d/%d papers", pdfCount, len(enriched))
		e.logger.Info().Msg("extractor: " + pdfLog)
		logs = append(logs, pdfLog)
		extracted = enriched
	}

	return model.StagePatch{
		ApprovedPapers: &extracted,
		Logs:           logs,
	}, nil
}

func (e *Extractor) extractContribution(ctx context.Context, paper model.Paper) (model.Paper, error) {
	var (
		core       contributionExtraction
		structured structuredExtractionResult
		coreErr, structuredErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		messages := []llm.Message{
			{Role: llm.RoleSystem, Content: e.templates.ContributionSystem()},
			{Role: llm.RoleUser, Content: e.templates.ContributionUser(paper.Title, paper.Year, paper.Abstract)},
		}
		coreErr = e.llmClient.StructuredCompletion(ctx, messages, &core, llm.DefaultTemperature, nil)
	}()
	go func() {
		defer wg.Done()
		messages := []llm.Message{
			{Role: llm.RoleSystem, Content: e.templates.StructuredExtractionSystem()},
			{Role: llm.RoleUser, Content: e.templates.StructuredExtractionUser(paper.Title, paper.Year, paper.Abstract)},
		}
		structuredErr = e.llmClient.StructuredCompletion(ctx, messages, &structured, llm.DefaultTemperature, nil)
	}()
	wg.Wait()

	if coreErr != nil {
		return model.Paper{}, fmt.Errorf("core contribution: %w", coreErr)
	}
	if structuredErr != nil {
		return model.Paper{}, fmt.Errorf("structured extraction: %w", structuredErr)
	}
	if strings.TrimSpace(core.CoreContribution) == "" {
		return model.Paper{}, fmt.Errorf("llm returned empty core_contribution")
	}

	updated := paper.Clone()
	updated.CoreContribution = core.CoreContribution
	updated.StructuredContribution = &model.StructuredContribution{
		Problem:     structured.Problem,
		Method:      structured.Method,
		Novelty:     structured.Novelty,
		Dataset:     structured.Dataset,
		Baseline:    structured.Baseline,
		Results:     structured.Results,
		Limitations: structured.Limitations,
		FutureWork:  structured.FutureWork,
	}
	return updated, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

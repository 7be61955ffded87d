package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/scholar"
)

// Retriever fans out the Planner's keywords across the configured
// scholarly sources and returns the deduplicated candidate set.
type Retriever struct {
	multiSource    *scholar.MultiSourceClient
	papersPerQuery int
	logger         zerolog.Logger
}

// NewRetriever builds a Retriever.
func NewRetriever(multiSource *scholar.MultiSourceClient, papersPerQuery int, logger zerolog.Logger) *Retriever {
	return &Retriever{multiSource: multiSource, papersPerQuery: papersPerQuery, logger: logger}
}

// Run searches every keyword across state.Sources (defaulting to Semantic
// Scholar alone when unset) and returns the deduplicated candidate papers.
func (r *Retriever) Run(ctx context.Context, state *model.SessionState) (model.StagePatch, error) {
	if len(state.Keywords) == 0 {
		logMsg := "No search keywords available, skipping search"
		r.logger.Warn().Msg("retriever: " + logMsg)
		empty := []model.Paper{}
		return model.StagePatch{
			CandidatePapers: &empty,
			Logs:            []string{logMsg},
		}, nil
	}

	sources := state.Sources
	if len(sources) == 0 {
		sources = []model.PaperSource{model.SourceSemanticScholar}
	}

	r.logger.Info().Int("keywords", len(state.Keywords)).Interface("sources", sources).Msg("retriever: searching")
	start := time.Now()
	papers := r.multiSource.Search(ctx, state.Keywords, sources, r.papersPerQuery)
	elapsed := time.Since(start)

	logMsg := fmt.Sprintf("Found %d unique papers across %d queries from %v", len(papers), len(state.Keywords), sources)
	r.logger.Info().Msg("retriever: " + logMsg)

	return model.StagePatch{
		CandidatePapers: &papers,
		Logs:            []string{logMsg},
		Timing:          &model.StageTiming{Stage: "retriever", Duration: elapsed},
	}, nil
}

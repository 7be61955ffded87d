package scholar

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/sourcetracker"
)

// sourceSearcher is satisfied by every per-source client; MultiSourceClient
// depends on this instead of the concrete types so tests can fake a source.
type sourceSearcher interface {
	Search(ctx context.Context, queries []string, limitPerQuery int) ([]model.Paper, error)
}

// MultiSourceClient is the Retriever stage's single entry point into the
// scholarly-search fan-out: per-source clients, source-failure tracking,
// and cross-source deduplication composed together.
type MultiSourceClient struct {
	semanticScholar sourceSearcher
	arxiv           sourceSearcher
	pubmed          sourceSearcher
	tracker         *sourcetracker.Tracker
	logger          zerolog.Logger
}

// NewMultiSourceClient wires the three concrete per-source clients together
// with a shared failure tracker.
func NewMultiSourceClient(semanticScholar *SemanticScholarClient, arxiv *ArxivClient, pubmed *PubMedClient, tracker *sourcetracker.Tracker, logger zerolog.Logger) *MultiSourceClient {
	return &MultiSourceClient{
		semanticScholar: semanticScholar,
		arxiv:           arxiv,
		pubmed:          pubmed,
		tracker:         tracker,
		logger:          logger,
	}
}

type sourceJob struct {
	key    string
	name   string
	client sourceSearcher
}

// Search runs every requested, not-currently-skipped source concurrently,
// records each source's outcome into the failure tracker, and returns the
// deduplicated union. Sources that fail are logged and excluded from the
// result rather than failing the whole search; an empty sources list
// defaults to Semantic Scholar alone.
func (c *MultiSourceClient) Search(ctx context.Context, queries []string, sources []model.PaperSource, limitPerQuery int) []model.Paper {
	if len(sources) == 0 {
		sources = []model.PaperSource{model.SourceSemanticScholar}
	}
	requested := make(map[model.PaperSource]struct{}, len(sources))
	for _, s := range sources {
		requested[s] = struct{}{}
	}

	candidates := []sourceJob{
		{key: "semantic_scholar", name: "Semantic Scholar", client: c.semanticScholar},
		{key: "arxiv", name: "arXiv", client: c.arxiv},
		{key: "pubmed", name: "PubMed", client: c.pubmed},
	}

	var jobs []sourceJob
	for _, job := range candidates {
		src := model.PaperSource(job.key)
		if _, want := requested[src]; !want {
			continue
		}
		if c.tracker.ShouldSkip(job.key) {
			c.logger.Warn().Str("source", job.name).Msg("skipping source due to recent failures")
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []model.Paper
	)

	for _, job := range jobs {
		wg.Add(1)
		go func(job sourceJob) {
			defer wg.Done()

			papers, err := job.client.Search(ctx, queries, limitPerQuery)
			if err != nil {
				c.logger.Error().Err(err).Str("source", job.name).Msg("search from source failed")
				c.tracker.RecordFailure(job.key)
				return
			}
			c.tracker.RecordSuccess(job.key)

			mu.Lock()
			results = append(results, papers...)
			mu.Unlock()
		}(job)
	}
	wg.Wait()

	return Deduplicate(results)
}

package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

const (
	semanticScholarSearchURL = "https://api.semanticscholar.org/graph/v1/paper/search"
	semanticScholarFields    = "paperId,title,authors,abstract,url,year,externalIds,openAccessPdf"
)

// SemanticScholarClient queries the Semantic Scholar Graph API.
type SemanticScholarClient struct {
	httpClient *http.Client
	apiKey     string
}

// NewSemanticScholarClient builds a client using httpClient for transport;
// apiKey may be empty, in which case requests go out unauthenticated.
func NewSemanticScholarClient(httpClient *http.Client, apiKey string) *SemanticScholarClient {
	return &SemanticScholarClient{httpClient: httpClient, apiKey: apiKey}
}

type semanticScholarResponse struct {
	Data []semanticScholarPaper `json:"data"`
}

type semanticScholarPaper struct {
	PaperID       string                      `json:"paperId"`
	Title         string                      `json:"title"`
	Authors       []semanticScholarAuthor     `json:"authors"`
	Abstract      string                      `json:"abstract"`
	URL           string                      `json:"url"`
	Year          *int                        `json:"year"`
	ExternalIDs   map[string]string           `json:"externalIds"`
	OpenAccessPDF *semanticScholarOpenAccess  `json:"openAccessPdf"`
}

type semanticScholarAuthor struct {
	Name string `json:"name"`
}

type semanticScholarOpenAccess struct {
	URL string `json:"url"`
}

func (p semanticScholarPaper) toPaper() model.Paper {
	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		name := a.Name
		if name == "" {
			name = "Unknown"
		}
		authors = append(authors, name)
	}

	var doi *string
	if d, ok := p.ExternalIDs["DOI"]; ok && d != "" {
		doi = &d
	}

	var pdfURL *string
	if p.OpenAccessPDF != nil && p.OpenAccessPDF.URL != "" {
		pdfURL = &p.OpenAccessPDF.URL
	}

	return model.Paper{
		PaperID:  p.PaperID,
		Title:    p.Title,
		Authors:  authors,
		Abstract: p.Abstract,
		URL:      p.URL,
		Year:     p.Year,
		DOI:      doi,
		PDFURL:   pdfURL,
		Source:   model.SourceSemanticScholar,
	}
}

// Search fans out one request per query and returns the deduplicated union
// of results, silently dropping queries that fail after retries (the
// caller decides whether the whole source should be marked failed).
func (c *SemanticScholarClient) Search(ctx context.Context, queries []string, limitPerQuery int) ([]model.Paper, error) {
	type outcome struct {
		papers []model.Paper
		err    error
	}
	outcomes := make([]outcome, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			papers, err := c.searchOne(ctx, q, limitPerQuery)
			outcomes[i] = outcome{papers: papers, err: err}
		}(i, q)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var result []model.Paper
	var lastErr error
	anyOK := false
	for _, o := range outcomes {
		if o.err != nil {
			lastErr = o.err
			continue
		}
		anyOK = true
		for _, p := range o.papers {
			if p.PaperID == "" {
				continue
			}
			if _, dup := seen[p.PaperID]; dup {
				continue
			}
			seen[p.PaperID] = struct{}{}
			result = append(result, p)
		}
	}
	if !anyOK && lastErr != nil {
		return nil, lastErr
	}
	return result, nil
}

// retryAfterBackOff wraps an exponential backoff policy but lets the
// caller force the next interval once, the way a 429 response's
// Retry-After header overrides whatever the curve would otherwise say.
type retryAfterBackOff struct {
	base     backoff.BackOff
	override time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	if b.override > 0 {
		d := b.override
		b.override = 0
		return d
	}
	return b.base.NextBackOff()
}

func (b *retryAfterBackOff) Reset() { b.base.Reset() }

// defaultRetryAfter is used when a 429 response carries no Retry-After
// header, or one that isn't a plain integer number of seconds.
const defaultRetryAfter = 3 * time.Second

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

func (c *SemanticScholarClient) searchOne(ctx context.Context, query string, limit int) ([]model.Paper, error) {
	var papers []model.Paper

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 10 * time.Second
	rl := &retryAfterBackOff{base: policy}
	bounded := backoff.WithMaxRetries(rl, 2)

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticScholarSearchURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		q := url.Values{}
		q.Set("query", query)
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", "0")
		q.Set("fields", semanticScholarFields)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			rl.override = parseRetryAfter(resp.Header.Get("Retry-After"))
			return ErrRateLimited
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&APIError{Source: "semantic_scholar", StatusCode: resp.StatusCode})
		}

		var parsed semanticScholarResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("scholar: decode semantic scholar response: %w", err))
		}
		papers = make([]model.Paper, 0, len(parsed.Data))
		for _, raw := range parsed.Data {
			papers = append(papers, raw.toPaper())
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bounded, ctx)); err != nil {
		return nil, err
	}
	return papers, nil
}

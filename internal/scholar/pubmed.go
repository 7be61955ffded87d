package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

const (
	pubmedESearchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedESummaryURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
)

// PubMedClient queries the NCBI Entrez ESearch/ESummary endpoints.
type PubMedClient struct {
	httpClient *http.Client
	apiKey     string
}

// NewPubMedClient builds a client using httpClient for transport; apiKey
// may be empty.
func NewPubMedClient(httpClient *http.Client, apiKey string) *PubMedClient {
	return &PubMedClient{httpClient: httpClient, apiKey: apiKey}
}

type pubmedESearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedESummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedDoc struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	PubDate      string `json:"pubdate"`
	ElocationID  string `json:"elocationid"`
	ArticleIDs   []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

// Search resolves PMIDs for every query, then fetches one batched summary
// call for the union of IDs.
func (c *PubMedClient) Search(ctx context.Context, queries []string, limitPerQuery int) ([]model.Paper, error) {
	type outcome struct {
		ids []string
		err error
	}
	outcomes := make([]outcome, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			ids, err := c.searchIDs(ctx, q, limitPerQuery)
			outcomes[i] = outcome{ids: ids, err: err}
		}(i, q)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var pmids []string
	var lastErr error
	anyOK := false
	for _, o := range outcomes {
		if o.err != nil {
			lastErr = o.err
			continue
		}
		anyOK = true
		for _, id := range o.ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			pmids = append(pmids, id)
		}
	}
	if !anyOK && lastErr != nil {
		return nil, lastErr
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	summaries, err := c.fetchSummaries(ctx, pmids)
	if err != nil {
		return nil, err
	}
	return parsePubMedPapers(summaries, pmids), nil
}

func (c *PubMedClient) searchIDs(ctx context.Context, query string, limit int) ([]string, error) {
	var ids []string

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedESearchURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		q := url.Values{}
		q.Set("db", "pubmed")
		q.Set("term", query)
		q.Set("retmax", strconv.Itoa(limit))
		q.Set("retmode", "json")
		q.Set("sort", "relevance")
		if c.apiKey != "" {
			q.Set("api_key", c.apiKey)
		}
		req.URL.RawQuery = q.Encode()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&APIError{Source: "pubmed", StatusCode: resp.StatusCode})
		}

		var parsed pubmedESearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("scholar: decode pubmed esearch response: %w", err))
		}
		ids = parsed.ESearchResult.IDList
		return nil
	}

	if err := retryTransient(ctx, operation); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *PubMedClient) fetchSummaries(ctx context.Context, pmids []string) (pubmedESummaryResponse, error) {
	var out pubmedESummaryResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedESummaryURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		q := url.Values{}
		q.Set("db", "pubmed")
		q.Set("id", strings.Join(pmids, ","))
		q.Set("retmode", "json")
		if c.apiKey != "" {
			q.Set("api_key", c.apiKey)
		}
		req.URL.RawQuery = q.Encode()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&APIError{Source: "pubmed", StatusCode: resp.StatusCode})
		}

		return json.NewDecoder(resp.Body).Decode(&out)
	}

	if err := retryTransient(ctx, operation); err != nil {
		return pubmedESummaryResponse{}, err
	}
	return out, nil
}

func parsePubMedPapers(summaries pubmedESummaryResponse, pmids []string) []model.Paper {
	papers := make([]model.Paper, 0, len(pmids))

	for _, pmid := range pmids {
		raw, ok := summaries.Result[pmid]
		if !ok {
			continue
		}
		var doc pubmedDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if doc.Title == "" {
			continue
		}

		authors := make([]string, 0, len(doc.Authors))
		for _, a := range doc.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		var year *int
		if len(doc.PubDate) >= 4 {
			if y, err := strconv.Atoi(doc.PubDate[:4]); err == nil {
				year = &y
			}
		}

		var doi *string
		if strings.HasPrefix(doc.ElocationID, "doi:") {
			d := strings.TrimSpace(strings.TrimPrefix(doc.ElocationID, "doi:"))
			doi = &d
		}
		for _, aid := range doc.ArticleIDs {
			if aid.IDType == "doi" {
				d := aid.Value
				doi = &d
				break
			}
		}

		papers = append(papers, model.Paper{
			PaperID:  "pubmed:" + pmid,
			Title:    doc.Title,
			Authors:  authors,
			Abstract: "",
			URL:      fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid),
			Year:     year,
			DOI:      doi,
			Source:   model.SourcePubMed,
		})
	}

	return papers
}

// retryTransient is the shared 1s->5s, <=3-attempt backoff policy the
// PubMed two-step lookup uses for both its ESearch and ESummary calls.
func retryTransient(ctx context.Context, operation backoff.Operation) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.MaxInterval = 5 * time.Second
	bounded := backoff.WithMaxRetries(policy, 2)
	return backoff.Retry(operation, backoff.WithContext(bounded, ctx))
}

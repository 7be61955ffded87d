package scholar

import (
	"context"
	"encoding/xml"
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

const arxivSearchURL = "http://export.arxiv.org/api/query"

// ArxivClient queries the arXiv Atom search API.
type ArxivClient struct {
	httpClient *http.Client
}

// NewArxivClient builds a client using httpClient for transport.
func NewArxivClient(httpClient *http.Client) *ArxivClient {
	return &ArxivClient{httpClient: httpClient}
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string      `xml:"id"`
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

func (e arxivEntry) toPaper() (model.Paper, bool) {
	paperID := ""
	if idx := strings.LastIndex(e.ID, "/abs/"); idx != -1 {
		paperID = e.ID[idx+len("/abs/"):]
	}
	title := strings.TrimSpace(strings.ReplaceAll(e.Title, "\n", " "))
	if paperID == "" || title == "" {
		return model.Paper{}, false
	}

	abstract := strings.TrimSpace(strings.ReplaceAll(e.Summary, "\n", " "))

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	var year *int
	if len(e.Published) >= 4 {
		if y, err := strconv.Atoi(e.Published[:4]); err == nil {
			year = &y
		}
	}

	var pdfURL *string
	for _, l := range e.Links {
		if l.Title == "pdf" {
			href := l.Href
			pdfURL = &href
			break
		}
	}

	doi := fmt.Sprintf("10.48550/arXiv.%s", paperID)

	return model.Paper{
		PaperID:  "arxiv:" + paperID,
		Title:    title,
		Authors:  authors,
		Abstract: abstract,
		URL:      e.ID,
		Year:     year,
		DOI:      &doi,
		PDFURL:   pdfURL,
		Source:   model.SourceArxiv,
	}, true
}

// Search fans out one request per query and returns the deduplicated union
// of results.
func (c *ArxivClient) Search(ctx context.Context, queries []string, limitPerQuery int) ([]model.Paper, error) {
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

func (c *ArxivClient) searchOne(ctx context.Context, query string, limit int) ([]model.Paper, error) {
	var papers []model.Paper

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivSearchURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		q := url.Values{}
		q.Set("search_query", "all:"+query)
		q.Set("start", "0")
		q.Set("max_results", strconv.Itoa(limit))
		q.Set("sortBy", "relevance")
		q.Set("sortOrder", "descending")
		req.URL.RawQuery = q.Encode()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&APIError{Source: "arxiv", StatusCode: resp.StatusCode})
		}

		var feed arxivFeed
		if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
			return backoff.Permanent(fmt.Errorf("scholar: decode arxiv feed: %w", err))
		}

		papers = make([]model.Paper, 0, len(feed.Entries))
		for _, entry := range feed.Entries {
			if p, ok := entry.toPaper(); ok {
				papers = append(papers, p)
			}
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.MaxInterval = 5 * time.Second
	bounded := backoff.WithMaxRetries(policy, 2)

	if err := backoff.Retry(operation, backoff.WithContext(bounded, ctx)); err != nil {
		return nil, err
	}
	return papers, nil
}

// Package fulltext resolves an open-access PDF URL (and, when missing, a
// DOI) for a paper that didn't already carry one from its scholarly-source
// search result, using Unpaywall first and OpenAlex as a fallback.
package fulltext

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	climit "github.com/tangerg-labs/autoscholar/internal/concurrency"
	"github.com/tangerg-labs/autoscholar/internal/model"
)

// errRateLimited signals a 429 from Unpaywall/OpenAlex; it is retried the
// same as a transport error.
var errRateLimited = errors.New("fulltext: rate limited")

const (
	unpaywallBase = "https://api.unpaywall.org/v2"
	openAlexBase  = "https://api.openalex.org"
)

var doiPrefixPattern = regexp.MustCompile(`(?i)^https?://(dx\.)?doi\.org/`)

// NormalizeDOI strips an https://doi.org/ or http://dx.doi.org/ scheme
// prefix and lowercases the remainder.
func NormalizeDOI(doi string) string {
	trimmed := strings.TrimSpace(doi)
	stripped := doiPrefixPattern.ReplaceAllString(trimmed, "")
	return strings.ToLower(stripped)
}

// Resolver resolves PDF URLs via Unpaywall and OpenAlex.
type Resolver struct {
	httpClient     *http.Client
	unpaywallEmail string
	logger         zerolog.Logger
}

// NewResolver builds a Resolver using httpClient for transport.
func NewResolver(httpClient *http.Client, unpaywallEmail string, logger zerolog.Logger) *Resolver {
	return &Resolver{httpClient: httpClient, unpaywallEmail: unpaywallEmail, logger: logger}
}

// EnrichAll resolves a PDF URL (and DOI, if still missing) for every paper
// lacking one, bounded by limiter, and returns the enriched papers in the
// same order. A paper that fails enrichment is returned unchanged rather
// than dropped.
func (r *Resolver) EnrichAll(ctx context.Context, papers []model.Paper, limiter *climit.Limiter) []model.Paper {
	out := make([]model.Paper, len(papers))
	var wg sync.WaitGroup

	for i, p := range papers {
		wg.Add(1)
		go func(i int, p model.Paper) {
			defer wg.Done()

			limiter.Acquire()
			defer limiter.Release()

			out[i] = r.enrichOne(ctx, p)
		}(i, p)
	}
	wg.Wait()

	return out
}

func (r *Resolver) enrichOne(ctx context.Context, paper model.Paper) model.Paper {
	if paper.PDFURL != nil && *paper.PDFURL != "" {
		return paper
	}

	doi := ""
	if paper.DOI != nil {
		doi = *paper.DOI
	}

	pdfURL, resolvedDOI, err := r.ResolvePDFURL(ctx, paper.Title, doi, paper.Year)
	if err != nil {
		r.logger.Warn().Err(err).Str("title", truncate(paper.Title, 50)).Msg("failed to enrich paper with full text")
		return paper
	}

	enriched := paper.Clone()
	if pdfURL != "" {
		enriched.PDFURL = &pdfURL
	}
	if resolvedDOI != "" && enriched.DOI == nil {
		enriched.DOI = &resolvedDOI
	}
	return enriched
}

// ResolvePDFURL tries Unpaywall by DOI, then OpenAlex by DOI, then OpenAlex
// by title search, returning as soon as one yields a PDF URL. It also
// returns whatever DOI it resolved along the way, even if no PDF was
// found.
func (r *Resolver) ResolvePDFURL(ctx context.Context, title, doi string, year *int) (string, string, error) {
	resolvedDOI := doi

	if doi != "" {
		if up, err := r.unpaywallLookup(ctx, doi); err == nil && up != nil {
			if pdfURL := extractPDFFromUnpaywall(up); pdfURL != "" {
				return pdfURL, resolvedDOI, nil
			}
		}

		if work, err := r.openAlexLookupByDOI(ctx, doi); err == nil && work != nil {
			if pdfURL := extractPDFFromOpenAlex(work); pdfURL != "" {
				return pdfURL, resolvedDOI, nil
			}
		}
	}

	candidates, err := r.openAlexSearchByTitle(ctx, title, year)
	if err != nil {
		return "", resolvedDOI, nil
	}

	lowerTitle := strings.ToLower(title)
	for _, work := range candidates {
		workTitle := strings.ToLower(stringField(work, "title"))
		if workTitle == "" {
			continue
		}
		if !strings.Contains(lowerTitle, workTitle) && !strings.Contains(workTitle, lowerTitle) {
			continue
		}

		if resolvedDOI == "" {
			resolvedDOI = extractDOIFromOpenAlex(work)
		}
		if pdfURL := extractPDFFromOpenAlex(work); pdfURL != "" {
			return pdfURL, resolvedDOI, nil
		}
	}

	return "", resolvedDOI, nil
}

func (r *Resolver) unpaywallLookup(ctx context.Context, doi string) (map[string]any, error) {
	normalized := NormalizeDOI(doi)
	reqURL := unpaywallBase + "/" + url.PathEscape(normalized)
	return r.fetchJSON(ctx, reqURL, url.Values{"email": {r.unpaywallEmail}})
}

func (r *Resolver) openAlexLookupByDOI(ctx context.Context, doi string) (map[string]any, error) {
	normalized := NormalizeDOI(doi)
	reqURL := openAlexBase + "/works/https://doi.org/" + normalized
	return r.fetchJSON(ctx, reqURL, nil)
}

func (r *Resolver) openAlexSearchByTitle(ctx context.Context, title string, year *int) ([]map[string]any, error) {
	params := url.Values{"search": {title}, "per-page": {"5"}}
	if year != nil {
		params.Set("filter", "publication_year:"+strconv.Itoa(*year))
	}

	data, err := r.fetchJSON(ctx, openAlexBase+"/works", params)
	if err != nil || data == nil {
		return nil, err
	}

	rawResults, _ := data["results"].([]any)
	results := make([]map[string]any, 0, len(rawResults))
	for _, rr := range rawResults {
		if m, ok := rr.(map[string]any); ok {
			results = append(results, m)
		}
	}
	return results, nil
}

// fetchJSON performs one retried GET, treating 404 and any other non-200
// status as "no data" rather than an error -- only transport failures,
// 429s and undecodable 200 bodies are retried.
func (r *Resolver) fetchJSON(ctx context.Context, reqURL string, params url.Values) (map[string]any, error) {
	var result map[string]any

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "autoscholar/1.0")
		if params != nil {
			req.URL.RawQuery = params.Encode()
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil
		case http.StatusTooManyRequests:
			return errRateLimited
		case http.StatusOK:
			return json.NewDecoder(resp.Body).Decode(&result)
		default:
			return nil
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.MaxInterval = 5 * time.Second
	bounded := backoff.WithMaxRetries(policy, 2)

	if err := backoff.Retry(operation, backoff.WithContext(bounded, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

func extractPDFFromUnpaywall(data map[string]any) string {
	if best, ok := data["best_oa_location"].(map[string]any); ok {
		if pdf := stringField(best, "pdf_url"); pdf != "" {
			return pdf
		}
	}
	locs, _ := data["oa_locations"].([]any)
	for _, l := range locs {
		loc, ok := l.(map[string]any)
		if !ok {
			continue
		}
		if pdf := stringField(loc, "pdf_url"); pdf != "" {
			return pdf
		}
	}
	return ""
}

func extractPDFFromOpenAlex(work map[string]any) string {
	if oa, ok := work["open_access"].(map[string]any); ok {
		if oaURL := stringField(oa, "oa_url"); oaURL != "" && strings.HasSuffix(strings.ToLower(oaURL), ".pdf") {
			return oaURL
		}
	}
	if best, ok := work["best_oa_location"].(map[string]any); ok {
		if pdf := stringField(best, "pdf_url"); pdf != "" {
			return pdf
		}
	}
	if primary, ok := work["primary_location"].(map[string]any); ok {
		if pdf := stringField(primary, "pdf_url"); pdf != "" {
			return pdf
		}
	}
	locs, _ := work["locations"].([]any)
	for _, l := range locs {
		loc, ok := l.(map[string]any)
		if !ok {
			continue
		}
		if pdf := stringField(loc, "pdf_url"); pdf != "" {
			return pdf
		}
	}
	return ""
}

func extractDOIFromOpenAlex(work map[string]any) string {
	if doi := stringField(work, "doi"); doi != "" {
		return NormalizeDOI(doi)
	}
	if ids, ok := work["ids"].(map[string]any); ok {
		if doi := stringField(ids, "doi"); doi != "" {
			return NormalizeDOI(doi)
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

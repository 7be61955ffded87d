package claimverify

import (
	"context"
	"fmt"
	"sync"

	"github.com/tangerg-labs/autoscholar/internal/llm"
	"github.com/tangerg-labs/autoscholar/internal/model"
	climit "github.com/tangerg-labs/autoscholar/internal/concurrency"
)

// verificationOutput is the schema-coerced shape the LLM fills in when
// judging one claim against one cited paper.
type verificationOutput struct {
	Label            string  `json:"label"`
	Confidence       float64 `json:"confidence"`
	EvidenceSnippet  string  `json:"evidence_snippet"`
	Rationale        string  `json:"rationale"`
}

// Verifier checks each (claim, cited paper) pair for entailment.
type Verifier struct {
	extractor *Extractor
}

// NewVerifier builds a Verifier sharing the Extractor's LLM client and
// prompt templates.
func NewVerifier(extractor *Extractor) *Verifier {
	return &Verifier{extractor: extractor}
}

func paperByIndex(papers []model.Paper, index int) (model.Paper, bool) {
	if index < 1 || index > len(papers) {
		return model.Paper{}, false
	}
	return papers[index-1], true
}

// VerifySingle judges one claim's citation of one paper for entailment.
func (v *Verifier) VerifySingle(ctx context.Context, claim model.Claim, citationIndex int, paper model.Paper) (model.VerificationResult, error) {
	abstract := paper.Abstract
	if len(abstract) > 1000 {
		abstract = abstract[:1000]
	}
	contribution := paper.CoreContribution
	if contribution == "" {
		contribution = "Not available"
	}

	var out verificationOutput
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: v.extractor.templates.ClaimVerificationSystem()},
		{Role: llm.RoleUser, Content: v.extractor.templates.ClaimVerificationUser(claim.Text, citationIndex, paper.Title, abstract, contribution)},
	}
	if err := v.extractor.llmClient.StructuredCompletion(ctx, messages, &out, claimVerificationTemperature, nil); err != nil {
		return model.VerificationResult{}, fmt.Errorf("claimverify: verify claim %s against paper %d: %w", claim.ID, citationIndex, err)
	}

	confidence := out.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	evidence := out.EvidenceSnippet
	if len(evidence) > 500 {
		evidence = evidence[:500]
	}
	rationale := out.Rationale
	if len(rationale) > 200 {
		rationale = rationale[:200]
	}

	return model.VerificationResult{
		ClaimID:       claim.ID,
		ClaimText:     claim.Text,
		CitationIndex: citationIndex,
		PaperTitle:    paper.Title,
		Label:         model.ParseEntailmentLabel(out.Label),
		Confidence:    confidence,
		Evidence:      evidence,
		Rationale:     rationale,
	}, nil
}

type verificationJob struct {
	claim         model.Claim
	citationIndex int
	paper         model.Paper
}

// VerifyAll runs VerifySingle over every (claim, cited paper) pair bounded
// by limiter, dropping any pair whose citation index has no matching paper
// and logging (without failing the draft) any verification call that
// errors.
func (v *Verifier) VerifyAll(ctx context.Context, claims []model.Claim, papers []model.Paper, limiter *climit.Limiter) []model.VerificationResult {
	var jobs []verificationJob
	for _, claim := range claims {
		for _, idx := range claim.CitedIndices {
			if paper, ok := paperByIndex(papers, idx); ok {
				jobs = append(jobs, verificationJob{claim: claim, citationIndex: idx, paper: paper})
			}
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	results := make([]*model.VerificationResult, len(jobs))
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job verificationJob) {
			defer wg.Done()

			limiter.Acquire()
			defer limiter.Release()

			result, err := v.VerifySingle(ctx, job.claim, job.citationIndex, job.paper)
			if err != nil {
				v.extractor.logger.Warn().Err(err).Str("claim_id", job.claim.ID).Int("citation_index", job.citationIndex).Msg("failed to verify claim")
				return
			}
			results[i] = &result
		}(i, job)
	}
	wg.Wait()

	out := make([]model.VerificationResult, 0, len(jobs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// Summarize aggregates per-claim verification results into a
// ClaimVerificationSummary, the way spec §4.6's QA gate reads it.
func Summarize(claims []model.Claim, results []model.VerificationResult) model.ClaimVerificationSummary {
	var entails, insufficient, contradicts []model.VerificationResult
	for _, r := range results {
		switch r.Label {
		case model.EntailmentEntails:
			entails = append(entails, r)
		case model.EntailmentContradicts:
			contradicts = append(contradicts, r)
		default:
			insufficient = append(insufficient, r)
		}
	}

	failed := make([]model.VerificationResult, 0, len(insufficient)+len(contradicts))
	failed = append(failed, insufficient...)
	failed = append(failed, contradicts...)

	return model.ClaimVerificationSummary{
		TotalClaims:          len(claims),
		TotalVerifications:   len(results),
		EntailsCount:         len(entails),
		InsufficientCount:    len(insufficient),
		ContradictsCount:     len(contradicts),
		FailedVerifications:  failed,
	}
}

// VerifyDraftCitations is the stage-level entry point: extract every
// claim, then verify each one, then summarize.
func VerifyDraftCitations(ctx context.Context, extractor *Extractor, verifier *Verifier, draft model.Draft, papers []model.Paper, limiter *climit.Limiter) ([]model.Claim, model.ClaimVerificationSummary) {
	claims := extractor.ExtractAll(ctx, draft)
	if len(claims) == 0 {
		return nil, model.ClaimVerificationSummary{}
	}

	results := verifier.VerifyAll(ctx, claims, papers, limiter)
	return claims, Summarize(claims, results)
}

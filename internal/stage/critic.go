package stage

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/claimverify"
	climit "github.com/tangerg-labs/autoscholar/internal/concurrency"
	"github.com/tangerg-labs/autoscholar/internal/model"
)

// Critic runs the two-layer QA gate: Layer 1 checks citation bounds and
// coverage structurally; Layer 2, only reached when Layer 1 passes and
// claim verification is enabled, checks each citation's semantic
// entailment against the paper it cites.
type Critic struct {
	extractor                *claimverify.Extractor
	verifier                 *claimverify.Verifier
	claimVerificationLimiter *climit.Limiter
	claimVerificationEnabled bool
	minEntailmentRatio       float64
	logger                   zerolog.Logger
}

// NewCritic builds a Critic.
func NewCritic(extractor *claimverify.Extractor, verifier *claimverify.Verifier, claimVerificationConcurrency int, claimVerificationEnabled bool, minEntailmentRatio float64, logger zerolog.Logger) *Critic {
	return &Critic{
		extractor:                extractor,
		verifier:                 verifier,
		claimVerificationLimiter: climit.NewLimiter(claimVerificationConcurrency),
		claimVerificationEnabled: claimVerificationEnabled,
		minEntailmentRatio:       minEntailmentRatio,
		logger:                   logger,
	}
}

// Run evaluates state.Draft and returns a patch carrying either an empty
// QAErrors (pass) or a non-empty one (fail, with RetryCount incremented).
func (c *Critic) Run(ctx context.Context, state *model.SessionState) (model.StagePatch, error) {
	if state.Draft == nil {
		logMsg := "QA skipped: no draft to evaluate"
		c.logger.Warn().Msg("critic: " + logMsg)
		empty := []string{}
		return model.StagePatch{QAErrors: &empty, Logs: []string{logMsg}}, nil
	}

	numPapers := len(state.ApprovedPapers)
	valid := make(map[int]struct{}, numPapers)
	for i := 1; i <= numPapers; i++ {
		valid[i] = struct{}{}
	}

	var errs []string
	allCited := make(map[int]struct{})

	for sectionIdx, section := range state.Draft.Sections {
		citedInContent := section.CitedIndices()
		for _, idx := range citedInContent {
			allCited[idx] = struct{}{}
			if _, ok := valid[idx]; !ok {
				errs = append(errs, fmt.Sprintf("Section %d: Hallucinated citation index %d (valid range: 1-%d)", sectionIdx+1, idx, numPapers))
			}
		}
		if len(citedInContent) == 0 {
			errs = append(errs, fmt.Sprintf("Section %d: No citations found in content", sectionIdx+1))
		}
	}

	var missing []int
	for idx := range valid {
		if _, ok := allCited[idx]; !ok {
			missing = append(missing, idx)
		}
	}
	sort.Ints(missing)
	for _, idx := range missing {
		errs = append(errs, fmt.Sprintf("Missing citation: paper [%d] was approved but not cited", idx))
	}

	retryCount := state.RetryCount

	if len(errs) > 0 {
		retryCount++
		preview := errs
		if len(preview) > 3 {
			preview = preview[:3]
		}
		logMsg := fmt.Sprintf("QA failed with %d errors (retry %d/%d): %v", len(errs), retryCount, model.MaxRetryCount, preview)
		c.logger.Warn().Msg("critic: " + logMsg)
		return model.StagePatch{
			QAErrors:   &errs,
			RetryCount: &retryCount,
			Logs:       []string{logMsg},
		}, nil
	}

	var claimVerification *model.ClaimVerificationSummary
	if c.claimVerificationEnabled && numPapers > 0 {
		c.logger.Info().Msg("critic: starting claim-level verification")

		claims, summary := claimverify.VerifyDraftCitations(ctx, c.extractor, c.verifier, *state.Draft, state.ApprovedPapers, c.claimVerificationLimiter)
		claimVerification = &summary

		if summary.TotalVerifications > 0 {
			ratio := summary.EntailmentRatio()
			c.logger.Info().Int("entails", summary.EntailsCount).Int("total", summary.TotalVerifications).Float64("ratio", ratio).Msg("critic: claim verification complete")

			if ratio < c.minEntailmentRatio {
				failedPreview := summary.FailedVerifications
				if len(failedPreview) > 3 {
					failedPreview = failedPreview[:3]
				}
				for _, v := range failedPreview {
					errs = append(errs, fmt.Sprintf("Claim '%s...' citing [%d] (%s): %s", truncate(v.ClaimText, 50), v.CitationIndex, v.Label, truncate(v.Rationale, 100)))
				}
				retryCount++
				logMsg := fmt.Sprintf("QA failed: citation support ratio %.1f%% < %.0f%% threshold", ratio*100, c.minEntailmentRatio*100)
				c.logger.Warn().Msg("critic: " + logMsg)
				return model.StagePatch{
					QAErrors:          &errs,
					RetryCount:        &retryCount,
					ClaimVerification: claimVerification,
					Logs:              []string{logMsg},
				}, nil
			}
		}
		_ = claims
	}

	logMsg := "QA passed: all citations verified"
	if claimVerification != nil {
		logMsg += fmt.Sprintf(" (semantic: %d/%d entails)", claimVerification.EntailsCount, claimVerification.TotalVerifications)
	}
	c.logger.Info().Msg("critic: " + logMsg)

	emptyErrs := []string{}
	return model.StagePatch{
		QAErrors:          &emptyErrs,
		RetryCount:        &retryCount,
		ClaimVerification: claimVerification,
		Logs:              []string{logMsg},
	}, nil
}

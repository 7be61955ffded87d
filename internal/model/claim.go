package model

// EntailmentLabel is the three-valued judgment of whether a cited paper's
// surface text supports a claim.
type EntailmentLabel string

const (
	EntailmentEntails       EntailmentLabel = "entails"
	EntailmentInsufficient  EntailmentLabel = "insufficient"
	EntailmentContradicts   EntailmentLabel = "contradicts"
)

// ParseEntailmentLabel maps an arbitrary LLM-produced label string to one
// of the three recognized values, defaulting unknown labels to
// insufficient rather than rejecting the whole verification.
func ParseEntailmentLabel(s string) EntailmentLabel {
	switch s {
	case string(EntailmentEntails):
		return EntailmentEntails
	case string(EntailmentContradicts):
		return EntailmentContradicts
	default:
		return EntailmentInsufficient
	}
}

// Claim is an atomic assertion extracted from one section of a draft. Its
// text preserves the original {cite:N} markers it was split around.
type Claim struct {
	ID            string `json:"claim_id"`
	Text          string `json:"text"`
	SectionIndex  int    `json:"section_index"`
	CitedIndices  []int  `json:"citation_indices"`
}

// VerificationResult is the outcome of checking one (claim, cited-index)
// pair against the cited paper's title/abstract/core-contribution.
type VerificationResult struct {
	ClaimID       string          `json:"claim_id"`
	ClaimText     string          `json:"claim_text"`
	CitationIndex int             `json:"citation_index"`
	PaperTitle    string          `json:"paper_title"`
	Label         EntailmentLabel `json:"label"`
	Confidence    float64         `json:"confidence"`
	Evidence      string          `json:"evidence_snippet"`
	Rationale     string          `json:"rationale"`
}

// ClaimVerificationSummary aggregates the per-claim verification results
// for a single draft.
type ClaimVerificationSummary struct {
	TotalClaims         int                   `json:"total_claims"`
	TotalVerifications  int                   `json:"total_verifications"`
	EntailsCount        int                   `json:"entails_count"`
	InsufficientCount   int                   `json:"insufficient_count"`
	ContradictsCount    int                   `json:"contradicts_count"`
	FailedVerifications []VerificationResult  `json:"failed_verifications,omitempty"`
}

// EntailmentRatio returns entails/total, or 0 when there were no
// verifications to judge.
func (s ClaimVerificationSummary) EntailmentRatio() float64 {
	if s.TotalVerifications == 0 {
		return 0
	}
	return float64(s.EntailsCount) / float64(s.TotalVerifications)
}

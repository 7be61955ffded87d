// Package model defines the data shared across every workflow stage:
// papers, the session state they live in, and the draft/claim types
// produced along the way.
package model

// PaperSource identifies which scholarly index a candidate paper came from.
type PaperSource string

const (
	SourceSemanticScholar PaperSource = "semantic_scholar"
	SourceArxiv           PaperSource = "arxiv"
	SourcePubMed          PaperSource = "pubmed"
)

// Valid reports whether s is one of the recognized scholarly sources.
func (s PaperSource) Valid() bool {
	switch s {
	case SourceSemanticScholar, SourceArxiv, SourcePubMed:
		return true
	default:
		return false
	}
}

// StructuredContribution is the 8-field optional summary extracted from a
// paper's abstract. Every field is optional: a theoretical paper may have
// no dataset or baseline, for instance.
type StructuredContribution struct {
	Problem     *string `json:"problem,omitempty"`
	Method      *string `json:"method,omitempty"`
	Novelty     *string `json:"novelty,omitempty"`
	Dataset     *string `json:"dataset,omitempty"`
	Baseline    *string `json:"baseline,omitempty"`
	Results     *string `json:"results,omitempty"`
	Limitations *string `json:"limitations,omitempty"`
	FutureWork  *string `json:"future_work,omitempty"`
}

// IsEmpty reports whether none of the 8 fields carry a value.
func (s *StructuredContribution) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.Problem == nil && s.Method == nil && s.Novelty == nil &&
		s.Dataset == nil && s.Baseline == nil && s.Results == nil &&
		s.Limitations == nil && s.FutureWork == nil
}

// Paper is a candidate or approved paper flowing through the workflow.
// PaperID is source-prefixed (e.g. "arxiv:2301.00001") and unique within a
// session's candidate set.
type Paper struct {
	PaperID                 string                   `json:"paper_id"`
	Title                   string                   `json:"title"`
	Authors                 []string                 `json:"authors"`
	Abstract                string                   `json:"abstract"`
	URL                     string                   `json:"url"`
	Year                    *int                     `json:"year,omitempty"`
	DOI                     *string                  `json:"doi,omitempty"`
	PDFURL                  *string                  `json:"pdf_url,omitempty"`
	Source                  PaperSource              `json:"source"`
	IsApproved              bool                     `json:"is_approved"`
	CoreContribution        string                   `json:"core_contribution,omitempty"`
	StructuredContribution  *StructuredContribution  `json:"structured_contribution,omitempty"`
}

// Clone returns a deep-enough copy of p so that callers may mutate the
// result without aliasing the original's pointer fields.
func (p Paper) Clone() Paper {
	cp := p
	cp.Authors = append([]string(nil), p.Authors...)
	if p.Year != nil {
		y := *p.Year
		cp.Year = &y
	}
	if p.DOI != nil {
		d := *p.DOI
		cp.DOI = &d
	}
	if p.PDFURL != nil {
		u := *p.PDFURL
		cp.PDFURL = &u
	}
	if p.StructuredContribution != nil {
		sc := *p.StructuredContribution
		cp.StructuredContribution = &sc
	}
	return cp
}

// ComparisonEntry is one row of the method-comparison table the Writer
// stage assembles alongside the draft (a structured supplement to the
// prose "methodology comparison" section).
type ComparisonEntry struct {
	PaperIndex int     `json:"paper_index"`
	Title      string  `json:"title"`
	Method     *string `json:"method,omitempty"`
	Dataset    *string `json:"dataset,omitempty"`
	Baseline   *string `json:"baseline,omitempty"`
	Results    *string `json:"results,omitempty"`
}

package model

import "time"

// MaxRetryCount bounds how many times the Critic may send the draft back
// to the Writer before the run terminates with whatever draft it has.
const MaxRetryCount = 3

// StageTiming records one completed invocation of a stage, including
// retries: timings are append-only across retries, each contributing a
// fresh entry rather than overwriting the last.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// SessionState is the mutable, durably checkpointed record shared across
// every stage of one workflow run, keyed externally by ThreadID.
//
// Merge law (see MergeStagePatch): Logs and Messages are append-only across
// stage boundaries; every other field is last-writer-wins.
type SessionState struct {
	ThreadID        string                 `json:"thread_id"`
	UserQuery       string                 `json:"user_query"`
	Language        string                 `json:"language"`
	Sources         []PaperSource          `json:"sources"`
	Keywords        []string               `json:"keywords"`
	CandidatePapers []Paper                `json:"candidate_papers"`
	ApprovedPapers  []Paper                `json:"approved_papers"`
	Draft           *Draft                 `json:"draft,omitempty"`
	Outline         *DraftOutline          `json:"outline,omitempty"`
	QAErrors        []string               `json:"qa_errors"`
	RetryCount      int                    `json:"retry_count"`
	Logs            []string               `json:"logs"`
	Messages        []ConversationMessage  `json:"messages"`
	IsContinuation  bool                   `json:"is_continuation"`
	ClaimVerification *ClaimVerificationSummary `json:"claim_verification,omitempty"`
	ComparisonTable []ComparisonEntry      `json:"comparison_table,omitempty"`
	Timings         []StageTiming          `json:"timings"`
}

// Clone returns a state whose slice/pointer fields are independent of the
// receiver, so stage handlers can build their output without mutating the
// snapshot they were handed.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Sources = append([]PaperSource(nil), s.Sources...)
	cp.Keywords = append([]string(nil), s.Keywords...)
	cp.CandidatePapers = clonePapers(s.CandidatePapers)
	cp.ApprovedPapers = clonePapers(s.ApprovedPapers)
	cp.QAErrors = append([]string(nil), s.QAErrors...)
	cp.Logs = append([]string(nil), s.Logs...)
	cp.Messages = append([]ConversationMessage(nil), s.Messages...)
	cp.Timings = append([]StageTiming(nil), s.Timings...)
	cp.ComparisonTable = append([]ComparisonEntry(nil), s.ComparisonTable...)
	if s.Draft != nil {
		d := *s.Draft
		d.Sections = append([]Section(nil), s.Draft.Sections...)
		cp.Draft = &d
	}
	if s.Outline != nil {
		o := *s.Outline
		o.SectionTitles = append([]string(nil), s.Outline.SectionTitles...)
		cp.Outline = &o
	}
	if s.ClaimVerification != nil {
		cv := *s.ClaimVerification
		cv.FailedVerifications = append([]VerificationResult(nil), s.ClaimVerification.FailedVerifications...)
		cp.ClaimVerification = &cv
	}
	return &cp
}

func clonePapers(ps []Paper) []Paper {
	out := make([]Paper, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// StagePatch is the output a stage handler returns: the fields it wants to
// contribute to the session, under the merge law documented on
// SessionState. A nil pointer/slice field means "leave unchanged" for
// replace-semantics fields; Logs/Messages are always additive.
type StagePatch struct {
	Keywords          *[]string
	CandidatePapers   *[]Paper
	ApprovedPapers    *[]Paper
	Draft             *Draft
	Outline           *DraftOutline
	QAErrors          *[]string
	RetryCount        *int
	IsContinuation    *bool
	ClaimVerification *ClaimVerificationSummary
	ComparisonTable   *[]ComparisonEntry
	Logs              []string
	Messages          []ConversationMessage
	Timing            *StageTiming
}

// MergeStagePatch applies patch to the receiver following the merge law:
// Logs and Messages concatenate (commutative across a stage's own batch);
// every other populated field replaces the prior value. Returns a new
// SessionState; the receiver is left unmodified.
func (s *SessionState) MergeStagePatch(patch StagePatch) *SessionState {
	next := s.Clone()

	if patch.Keywords != nil {
		next.Keywords = *patch.Keywords
	}
	if patch.CandidatePapers != nil {
		next.CandidatePapers = *patch.CandidatePapers
	}
	if patch.ApprovedPapers != nil {
		next.ApprovedPapers = *patch.ApprovedPapers
	}
	if patch.Draft != nil {
		next.Draft = patch.Draft
	}
	if patch.Outline != nil {
		next.Outline = patch.Outline
	}
	if patch.QAErrors != nil {
		next.QAErrors = *patch.QAErrors
	}
	if patch.RetryCount != nil {
		next.RetryCount = *patch.RetryCount
	}
	if patch.IsContinuation != nil {
		next.IsContinuation = *patch.IsContinuation
	}
	if patch.ClaimVerification != nil {
		next.ClaimVerification = patch.ClaimVerification
	}
	if patch.ComparisonTable != nil {
		next.ComparisonTable = *patch.ComparisonTable
	}
	if patch.Timing != nil {
		next.Timings = append(next.Timings, *patch.Timing)
	}
	next.Logs = append(next.Logs, patch.Logs...)
	next.Messages = append(next.Messages, patch.Messages...)

	return next
}

// ApplyExternalPatch merges an externally supplied update into the state
// outside of stage execution — the approval marks applied at the
// interrupt point, or a new conversation message for continuation. It never
// replaces CandidatePapers: approval sets IsApproved on each candidate whose
// PaperID is in approvedIDs, in place, and clears no flag; newMessage, when
// non-nil, is appended to Messages.
func (s *SessionState) ApplyExternalPatch(approvedIDs map[string]bool, newMessage *ConversationMessage) *SessionState {
	next := s.Clone()
	if approvedIDs != nil {
		for i := range next.CandidatePapers {
			if approvedIDs[next.CandidatePapers[i].PaperID] {
				next.CandidatePapers[i].IsApproved = true
			}
		}
	}
	if newMessage != nil {
		next.Messages = append(next.Messages, *newMessage)
	}
	return next
}

// ApprovedCount returns how many candidate papers currently carry
// IsApproved = true.
func (s *SessionState) ApprovedCount() int {
	n := 0
	for _, p := range s.CandidatePapers {
		if p.IsApproved {
			n++
		}
	}
	return n
}

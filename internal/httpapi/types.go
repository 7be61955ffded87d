// Package httpapi is the thin request/response adapter over the workflow
// engine (spec §1's "external collaborator" boundary): it translates HTTP
// bodies into engine calls, rewrites {cite:N} markers to [N] in the final
// draft, and maps the engine's sentinel errors to status codes.
package httpapi

import "github.com/tangerg-labs/autoscholar/internal/model"

// StartRequest is the body of POST /api/sessions.
type StartRequest struct {
	Query    string              `json:"query" binding:"required"`
	Language string              `json:"language"`
	Sources  []model.PaperSource `json:"sources"`
}

// StartResponse is spec §6's start() output.
type StartResponse struct {
	ThreadID        string        `json:"thread_id"`
	CandidatePapers []model.Paper `json:"candidate_papers"`
	Logs            []string      `json:"logs"`
}

// ApproveRequest is the body of POST /api/sessions/:thread_id/approve.
type ApproveRequest struct {
	PaperIDs []string `json:"paper_ids" binding:"required"`
}

// ApproveResponse is spec §6's approve() output.
type ApproveResponse struct {
	FinalDraft     *DraftResponse `json:"final_draft,omitempty"`
	ApprovedCount  int            `json:"approved_count"`
	NewLogs        []string       `json:"new_logs"`
	QAErrors       []string       `json:"qa_errors,omitempty"`
	RetryCount     int            `json:"retry_count"`
}

// ContinueRequest is the body of POST /api/sessions/:thread_id/continue.
type ContinueRequest struct {
	Message string `json:"message" binding:"required"`
}

// ContinueResponse is spec §6's continue() output.
type ContinueResponse struct {
	FinalDraft       *DraftResponse              `json:"final_draft,omitempty"`
	CandidatePapers  []model.Paper               `json:"candidate_papers"`
	AssistantMessage model.ConversationMessage   `json:"assistant_message"`
	NewLogs          []string                    `json:"new_logs"`
}

// StatusResponse is spec §6's status() output.
type StatusResponse struct {
	NextStages     []string `json:"next_stages"`
	Logs           []string `json:"logs"`
	HasDraft       bool     `json:"has_draft"`
	CandidateCount int      `json:"candidate_count"`
	ApprovedCount  int      `json:"approved_count"`
}

// DraftResponse is the post-processed Draft the adapter returns to
// callers: every {cite:N} marker rewritten to [N], with cited_paper_ids
// computed per section (invariant #6).
type DraftResponse struct {
	Title           string                  `json:"title"`
	Sections        []SectionResponse       `json:"sections"`
	ComparisonTable []model.ComparisonEntry `json:"comparison_table,omitempty"`
}

// SectionResponse is one post-processed section.
type SectionResponse struct {
	Heading       string   `json:"heading"`
	Content       string   `json:"content"`
	CitedPaperIDs []string `json:"cited_paper_ids"`
}

// ErrorResponse is spec §7's structured API error shape.
type ErrorResponse struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/apperr"
	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/workflow"
)

// Handler binds the workflow Engine's five operations to HTTP routes.
type Handler struct {
	engine *workflow.Engine
	logger zerolog.Logger
}

// NewHandler builds a Handler over engine.
func NewHandler(engine *workflow.Engine, logger zerolog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts every route onto router.
func (h *Handler) Register(router gin.IRouter) {
	router.POST("/api/sessions", h.Start)
	router.POST("/api/sessions/:thread_id/approve", h.Approve)
	router.POST("/api/sessions/:thread_id/continue", h.Continue)
	router.GET("/api/sessions/:thread_id/status", h.Status)
	router.GET("/api/sessions/:thread_id/stream", h.Stream)
}

// Start handles POST /api/sessions: spec §6's start(query, language, sources[]).
func (h *Handler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	language := req.Language
	if language == "" {
		language = "en"
	}
	sources := req.Sources
	if len(sources) == 0 {
		sources = []model.PaperSource{model.SourceSemanticScholar}
	}

	initial := &model.SessionState{
		ThreadID:  uuid.NewString(),
		UserQuery: req.Query,
		Language:  language,
		Sources:   sources,
	}

	state, err := h.engine.Start(c.Request.Context(), initial)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, StartResponse{
		ThreadID:        state.ThreadID,
		CandidatePapers: state.CandidatePapers,
		Logs:            state.Logs,
	})
}

// Approve handles POST /api/sessions/:thread_id/approve: spec §6's
// approve(thread_id, paper_ids[]).
func (h *Handler) Approve(c *gin.Context) {
	threadID := c.Param("thread_id")

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	approved := make(map[string]bool, len(req.PaperIDs))
	for _, id := range req.PaperIDs {
		approved[id] = true
	}

	logsBefore := 0
	if before, err := h.engine.Status(c.Request.Context(), threadID); err == nil {
		logsBefore = len(before.Logs)
	}

	state, err := h.engine.Approve(c.Request.Context(), threadID, approved)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	newLogs := state.Logs
	if logsBefore <= len(state.Logs) {
		newLogs = state.Logs[logsBefore:]
	}

	c.JSON(http.StatusOK, ApproveResponse{
		FinalDraft:    AdaptDraft(state.Draft, state.ApprovedPapers, state.ComparisonTable),
		ApprovedCount: len(state.ApprovedPapers),
		NewLogs:       newLogs,
		QAErrors:      state.QAErrors,
		RetryCount:    state.RetryCount,
	})
}

// Continue handles POST /api/sessions/:thread_id/continue: spec §6's
// continue(thread_id, message).
func (h *Handler) Continue(c *gin.Context) {
	threadID := c.Param("thread_id")

	var req ContinueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	logsBefore := 0
	if before, err := h.engine.Status(c.Request.Context(), threadID); err == nil {
		logsBefore = len(before.Logs)
	}

	userMessage := &model.ConversationMessage{
		Role:      model.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"action": "continue_research"},
	}

	state, err := h.engine.Continue(c.Request.Context(), threadID, userMessage)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	newLogs := state.Logs
	if logsBefore <= len(state.Logs) {
		newLogs = state.Logs[logsBefore:]
	}

	var assistantMessage model.ConversationMessage
	if n := len(state.Messages); n > 0 {
		assistantMessage = state.Messages[n-1]
	}

	c.JSON(http.StatusOK, ContinueResponse{
		FinalDraft:       AdaptDraft(state.Draft, state.ApprovedPapers, state.ComparisonTable),
		CandidatePapers:  state.CandidatePapers,
		AssistantMessage: assistantMessage,
		NewLogs:          newLogs,
	})
}

// Status handles GET /api/sessions/:thread_id/status: spec §6's status(thread_id).
func (h *Handler) Status(c *gin.Context) {
	threadID := c.Param("thread_id")

	result, err := h.engine.Status(c.Request.Context(), threadID)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		NextStages:     result.NextStages,
		Logs:           result.Logs,
		HasDraft:       result.HasDraft,
		CandidateCount: result.CandidateCount,
		ApprovedCount:  result.ApprovedCount,
	})
}

// respondEngineError maps the engine's sentinel error taxonomy (spec §7's
// "User-input" class) to HTTP status codes.
func (h *Handler) respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrBadStage), errors.Is(err, apperr.ErrNoMatchingPapers), errors.Is(err, apperr.ErrNoDraft):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("httpapi: stage execution failed")
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}

func respondError(c *gin.Context, status int, detail string) {
	c.JSON(status, ErrorResponse{Status: status, Detail: detail})
}

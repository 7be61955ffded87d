package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangerg-labs/autoscholar/internal/checkpoint"
	"github.com/tangerg-labs/autoscholar/internal/claimverify"
	"github.com/tangerg-labs/autoscholar/internal/costtracker"
	"github.com/tangerg-labs/autoscholar/internal/llm"
	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/promptset"
	"github.com/tangerg-labs/autoscholar/internal/scholar"
	"github.com/tangerg-labs/autoscholar/internal/sourcetracker"
	"github.com/tangerg-labs/autoscholar/internal/stage"
	"github.com/tangerg-labs/autoscholar/internal/workflow"
)

// newTestHandler wires a real Handler/Engine over an in-memory store, with
// the LLM-backed stages constructed the same way cmd/autoscholar does but
// never invoked by these tests (they only exercise paths -- status lookups
// and pre-stage validation -- that return before a stage runs).
func newTestHandler(t *testing.T) (*Handler, *checkpoint.MemoryStore) {
	t.Helper()

	logger := zerolog.Nop()
	templates := promptset.Default()
	tracker := costtracker.New()
	llmClient := llm.New(llm.Options{APIKey: "test-key", Model: "gpt-4o-mini"}, tracker, logger)

	planner := stage.NewPlanner(llmClient, templates, 8, 5, logger)
	retriever := stage.NewRetriever(scholar.NewMultiSourceClient(
		scholar.NewSemanticScholarClient(http.DefaultClient, ""),
		scholar.NewArxivClient(http.DefaultClient),
		scholar.NewPubMedClient(http.DefaultClient, ""),
		sourcetracker.New(0, 0),
		logger,
	), 5, logger)
	extractor := stage.NewExtractor(llmClient, templates, nil, 2, 3, logger)
	writer := stage.NewWriter(llmClient, templates, 5, logger)
	claimExtractor := claimverify.NewExtractor(llmClient, templates, logger)
	critic := stage.NewCritic(claimExtractor, claimverify.NewVerifier(claimExtractor), 2, false, 0.8, logger)

	store := checkpoint.NewMemoryStore()
	engine := workflow.New(planner, retriever, extractor, writer, critic, tracker, store, logger)

	return NewHandler(engine, logger), store
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.Register(router)
	return router
}

func TestStatusReturns404ForUnknownThread(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusReturnsCursorForKnownThread(t *testing.T) {
	h, store := newTestHandler(t)
	router := newTestRouter(h)

	require.NoError(t, store.Save(context.Background(), &model.SessionState{
		ThreadID:        "t1",
		CandidatePapers: []model.Paper{{PaperID: "a"}},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/t1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"extractor"`)
}

func TestApproveReturns400WhenPastRetrievalStage(t *testing.T) {
	h, store := newTestHandler(t)
	router := newTestRouter(h)

	require.NoError(t, store.Save(context.Background(), &model.SessionState{
		ThreadID: "t1",
		Draft:    &model.Draft{Title: "already drafted"},
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/t1/approve", strings.NewReader(`{"paper_ids":["a"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveReturns400WhenNoPaperIDsMatch(t *testing.T) {
	h, store := newTestHandler(t)
	router := newTestRouter(h)

	require.NoError(t, store.Save(context.Background(), &model.SessionState{
		ThreadID:        "t1",
		CandidatePapers: []model.Paper{{PaperID: "a"}},
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/t1/approve", strings.NewReader(`{"paper_ids":["nonexistent"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContinueReturns400WithoutExistingDraft(t *testing.T) {
	h, store := newTestHandler(t)
	router := newTestRouter(h)

	require.NoError(t, store.Save(context.Background(), &model.SessionState{ThreadID: "t1"}))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/t1/continue", strings.NewReader(`{"message":"add more detail"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRejectsMissingQuery(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

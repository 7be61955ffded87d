package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangerg-labs/autoscholar/internal/apperr"
	"github.com/tangerg-labs/autoscholar/internal/costtracker"
	"github.com/tangerg-labs/autoscholar/internal/model"
)

func zeroLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeStore is a minimal in-memory checkpoint.Store double for exercising
// Engine methods without a real stage pipeline.
type fakeStore struct {
	mu    sync.Mutex
	saved map[string]*model.SessionState
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]*model.SessionState)}
}

func (f *fakeStore) Save(_ context.Context, state *model.SessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[state.ThreadID] = state.Clone()
	return nil
}

func (f *fakeStore) Load(_ context.Context, threadID string) (*model.SessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.saved[threadID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s.Clone(), nil
}

func (f *fakeStore) Delete(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, threadID)
	return nil
}

func TestTimedStageRecordsLatencyAndWrapsError(t *testing.T) {
	tracker := costtracker.New()
	boom := errors.New("boom")
	stage := newTimedStage("planner", func(ctx context.Context, state *model.SessionState) (model.StagePatch, error) {
		return model.StagePatch{}, boom
	}, tracker, zeroLogger())

	_, err := stage.Run(context.Background(), &model.SessionState{})
	require.Error(t, err)

	var stageErr *apperr.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "planner", stageErr.Stage)
	assert.ErrorIs(t, err, boom)

	totals := tracker.StageSnapshot()
	require.Contains(t, totals, "planner")
}

func TestTimedStagePassesThroughPatchOnSuccess(t *testing.T) {
	tracker := costtracker.New()
	keywords := []string{"transformers"}
	stage := newTimedStage("planner", func(ctx context.Context, state *model.SessionState) (model.StagePatch, error) {
		return model.StagePatch{Keywords: &keywords}, nil
	}, tracker, zeroLogger())

	patch, err := stage.Run(context.Background(), &model.SessionState{})
	require.NoError(t, err)
	require.NotNil(t, patch.Keywords)
	assert.Equal(t, keywords, *patch.Keywords)
}

func TestEngineStatusUnknownThreadReturnsNotFound(t *testing.T) {
	e := &Engine{store: newFakeStore(), logger: zeroLogger()}
	_, err := e.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEngineStatusReflectsCursorPosition(t *testing.T) {
	store := newFakeStore()
	e := &Engine{store: store, logger: zeroLogger()}

	require.NoError(t, store.Save(context.Background(), &model.SessionState{ThreadID: "t1"}))
	status, err := e.Status(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"planner", "retriever"}, status.NextStages)

	require.NoError(t, store.Save(context.Background(), &model.SessionState{
		ThreadID:        "t1",
		CandidatePapers: []model.Paper{{PaperID: "a"}},
	}))
	status, err = e.Status(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"extractor", "writer", "critic"}, status.NextStages)

	require.NoError(t, store.Save(context.Background(), &model.SessionState{
		ThreadID: "t1",
		Draft:    &model.Draft{Title: "done"},
	}))
	status, err = e.Status(context.Background(), "t1")
	require.NoError(t, err)
	assert.Empty(t, status.NextStages)
	assert.True(t, status.HasDraft)
}

func TestEngineApproveRejectsWhenAlreadyPastRetrieval(t *testing.T) {
	store := newFakeStore()
	e := &Engine{store: store, logger: zeroLogger()}

	require.NoError(t, store.Save(context.Background(), &model.SessionState{
		ThreadID: "t1",
		Draft:    &model.Draft{Title: "already drafted"},
	}))

	_, err := e.Approve(context.Background(), "t1", map[string]bool{"a": true})
	assert.ErrorIs(t, err, apperr.ErrBadStage)
}

func TestEngineApproveRejectsWhenNoCandidateMatches(t *testing.T) {
	store := newFakeStore()
	e := &Engine{store: store, logger: zeroLogger()}

	require.NoError(t, store.Save(context.Background(), &model.SessionState{
		ThreadID:        "t1",
		CandidatePapers: []model.Paper{{PaperID: "a"}, {PaperID: "b"}},
	}))

	_, err := e.Approve(context.Background(), "t1", map[string]bool{"nonexistent": true})
	assert.ErrorIs(t, err, apperr.ErrNoMatchingPapers)
}

func TestEngineContinueRequiresExistingDraft(t *testing.T) {
	store := newFakeStore()
	e := &Engine{store: store, logger: zeroLogger()}

	require.NoError(t, store.Save(context.Background(), &model.SessionState{ThreadID: "t1"}))

	_, err := e.Continue(context.Background(), "t1", &model.ConversationMessage{Content: "more"})
	assert.ErrorIs(t, err, apperr.ErrNoDraft)
}

func TestAssistantReplyForCleanVsResidualErrors(t *testing.T) {
	clean := &model.SessionState{}
	assert.Contains(t, assistantReplyFor(clean), "updated the literature review")

	dirty := &model.SessionState{QAErrors: []string{"uncited claim"}, RetryCount: 3}
	msg := assistantReplyFor(dirty)
	assert.Contains(t, msg, "1 citation issue(s) remain")
	assert.Contains(t, msg, "3 attempts")
}

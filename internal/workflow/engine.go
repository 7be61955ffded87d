package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/apperr"
	"github.com/tangerg-labs/autoscholar/internal/checkpoint"
	"github.com/tangerg-labs/autoscholar/internal/costtracker"
	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/stage"
)

// Engine drives SessionState through the graph's five stages. It holds no
// per-run state of its own: every operation loads whatever it needs from
// the checkpoint Store and saves back before returning, so the same Engine
// safely serves many concurrent threads.
type Engine struct {
	planner   *timedStage
	retriever *timedStage
	extractor *timedStage
	writer    *timedStage
	critic    *timedStage
	store     checkpoint.Store
	logger    zerolog.Logger
}

// New wires the five stage handlers into an Engine. tracker and store are
// the process-wide singletons constructed at startup.
func New(
	planner *stage.Planner,
	retriever *stage.Retriever,
	extractor *stage.Extractor,
	writer *stage.Writer,
	critic *stage.Critic,
	tracker *costtracker.Tracker,
	store checkpoint.Store,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		planner:   newTimedStage("planner", planner.Run, tracker, logger),
		retriever: newTimedStage("retriever", retriever.Run, tracker, logger),
		extractor: newTimedStage("extractor", extractor.Run, tracker, logger),
		writer:    newTimedStage("writer", writer.Run, tracker, logger),
		critic:    newTimedStage("critic", critic.Run, tracker, logger),
		store:     store,
		logger:    logger,
	}
}

// Start runs Planner then Retriever and checkpoints the result. The graph
// always interrupts at the same fixed point — right before Extractor — so
// the returned state never needs to carry an explicit cursor: a
// checkpointed session with a Draft of nil and CandidatePapers already
// populated is, by construction, paused at that interrupt.
func (e *Engine) Start(ctx context.Context, initial *model.SessionState) (*model.SessionState, error) {
	state := initial.Clone()

	patch, err := e.planner.Run(ctx, state)
	if err != nil {
		return nil, err
	}
	state = state.MergeStagePatch(patch)

	patch, err = e.retriever.Run(ctx, state)
	if err != nil {
		return nil, err
	}
	state = state.MergeStagePatch(patch)

	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("workflow: checkpoint save: %w", err)
	}
	return state, nil
}

// Approve resumes a session paused at the retrieval interrupt: it marks the
// candidates named in approvedIDs, then runs Extractor followed by the
// Writer/Critic retry loop to completion.
func (e *Engine) Approve(ctx context.Context, threadID string, approvedIDs map[string]bool) (*model.SessionState, error) {
	state, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if state.Draft != nil {
		return nil, apperr.ErrBadStage
	}

	matched := 0
	for _, p := range state.CandidatePapers {
		if approvedIDs[p.PaperID] {
			matched++
		}
	}
	if matched == 0 {
		return nil, apperr.ErrNoMatchingPapers
	}

	state = state.ApplyExternalPatch(approvedIDs, nil)

	patch, err := e.extractor.Run(ctx, state)
	if err != nil {
		return nil, err
	}
	state = state.MergeStagePatch(patch)
	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("workflow: checkpoint save: %w", err)
	}

	state, err = e.runWriterCriticLoop(ctx, state)
	if err != nil {
		return nil, err
	}
	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("workflow: checkpoint save: %w", err)
	}
	return state, nil
}

// Continue appends newMessage to the conversation, marks the session a
// continuation, and re-enters the Writer/Critic loop in single-shot
// revision mode — the entry router's draft_node branch in the source,
// reached because is_continuation is now true.
func (e *Engine) Continue(ctx context.Context, threadID string, newMessage *model.ConversationMessage) (*model.SessionState, error) {
	state, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if state.Draft == nil {
		return nil, apperr.ErrNoDraft
	}

	state = state.ApplyExternalPatch(nil, newMessage)
	isContinuation := true
	state = state.MergeStagePatch(model.StagePatch{IsContinuation: &isContinuation})

	state, err = e.runWriterCriticLoop(ctx, state)
	if err != nil {
		return nil, err
	}

	assistantMessage := model.ConversationMessage{
		Role:      model.RoleAssistant,
		Content:   assistantReplyFor(state),
		Timestamp: time.Now(),
		Metadata:  map[string]any{"action": "continue_research"},
	}
	state = state.MergeStagePatch(model.StagePatch{Messages: []model.ConversationMessage{assistantMessage}})

	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("workflow: checkpoint save: %w", err)
	}
	return state, nil
}

// assistantReplyFor renders the short acknowledgement attached alongside a
// continuation's updated draft, distinguishing a clean pass from one that
// exhausted its retry budget with residual QA errors.
func assistantReplyFor(state *model.SessionState) string {
	if len(state.QAErrors) == 0 {
		return "I've updated the literature review based on your feedback."
	}
	return fmt.Sprintf("I've updated the draft, but %d citation issue(s) remain after %d attempts.", len(state.QAErrors), state.RetryCount)
}

// runWriterCriticLoop mirrors the source's qa_router: Writer runs, Critic
// evaluates, and the loop repeats while errors remain and the retry budget
// isn't spent. It always terminates with the last draft, whether or not
// QA ultimately passed.
func (e *Engine) runWriterCriticLoop(ctx context.Context, state *model.SessionState) (*model.SessionState, error) {
	for {
		patch, err := e.writer.Run(ctx, state)
		if err != nil {
			return nil, err
		}
		state = state.MergeStagePatch(patch)
		if err := e.store.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("workflow: checkpoint save: %w", err)
		}

		patch, err = e.critic.Run(ctx, state)
		if err != nil {
			return nil, err
		}
		state = state.MergeStagePatch(patch)
		if err := e.store.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("workflow: checkpoint save: %w", err)
		}

		if len(state.QAErrors) == 0 {
			return state, nil
		}
		if state.RetryCount >= model.MaxRetryCount {
			return state, nil
		}
	}
}

// StatusResult is the adapter-facing snapshot of a session's progress.
type StatusResult struct {
	NextStages     []string
	Logs           []string
	HasDraft       bool
	CandidateCount int
	ApprovedCount  int
}

// Status reports where a session currently sits in the graph without
// advancing it.
func (e *Engine) Status(ctx context.Context, threadID string) (StatusResult, error) {
	state, err := e.store.Load(ctx, threadID)
	if err != nil {
		return StatusResult{}, err
	}

	var next []string
	switch {
	case state.Draft != nil:
		next = []string{}
	case len(state.CandidatePapers) > 0:
		next = []string{"extractor", "writer", "critic"}
	default:
		next = []string{"planner", "retriever"}
	}

	return StatusResult{
		NextStages:     next,
		Logs:           state.Logs,
		HasDraft:       state.Draft != nil,
		CandidateCount: len(state.CandidatePapers),
		ApprovedCount:  state.ApprovedCount(),
	}, nil
}

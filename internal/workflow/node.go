// Package workflow drives the five stages (Planner, Retriever, Extractor,
// Writer, Critic) through the graph topology described for Auto-Scholar:
// a state machine whose position is derived from the checkpointed session
// state rather than held by a live coroutine, so a process restart between the retrieval interrupt and the
// caller's approval loses nothing.
package workflow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/apperr"
	"github.com/tangerg-labs/autoscholar/internal/costtracker"
	"github.com/tangerg-labs/autoscholar/internal/flow"
	"github.com/tangerg-labs/autoscholar/internal/model"
)

// Node names one step of the graph and transforms SessionState into the
// StagePatch it contributes, following the same thin-wrapper-over-flow
// pattern the teacher's own agent workflow package uses for its nodes.
type Node interface {
	Name() string
	flow.Node[*model.SessionState, model.StagePatch]
}

type stageFunc func(ctx context.Context, state *model.SessionState) (model.StagePatch, error)

// timedStage adapts one internal/stage.*.Run method into a Node, recording
// its wall-clock duration into the process-wide cost tracker the way the
// source's _timed_node decorator logs every node's elapsed time.
type timedStage struct {
	name    string
	fn      stageFunc
	tracker *costtracker.Tracker
	logger  zerolog.Logger
}

func newTimedStage(name string, fn stageFunc, tracker *costtracker.Tracker, logger zerolog.Logger) *timedStage {
	return &timedStage{name: name, fn: fn, tracker: tracker, logger: logger}
}

func (t *timedStage) Name() string { return t.name }

func (t *timedStage) Run(ctx context.Context, state *model.SessionState) (model.StagePatch, error) {
	start := time.Now()
	patch, err := t.fn(ctx, state)
	elapsed := time.Since(start)
	t.tracker.RecordStageLatency(t.name, elapsed)

	if err != nil {
		t.logger.Error().Err(err).Str("stage", t.name).Dur("elapsed", elapsed).Msg("workflow: stage failed")
		return model.StagePatch{}, apperr.Wrap(t.name, err)
	}
	t.logger.Info().Str("stage", t.name).Dur("elapsed", elapsed).Msg("workflow: stage completed")
	return patch, nil
}

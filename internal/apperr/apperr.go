// Package apperr defines the sentinel errors the HTTP adapter maps to
// status codes, and a small wrap helper that keeps stage names attached to
// errors as they bubble up through the workflow engine.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a thread_id has no checkpointed session.
	ErrNotFound = errors.New("session not found")

	// ErrBadStage is returned when an operation is attempted against a
	// session whose cursor is not at the stage the operation expects (e.g.
	// approving papers on a session that already moved past retrieval).
	ErrBadStage = errors.New("session is not awaiting this operation")

	// ErrNoMatchingPapers is returned by Engine.Approve when none of the
	// approved paper ids matches a candidate paper of the session.
	ErrNoMatchingPapers = errors.New("no matching papers found")

	// ErrNoDraft is returned when continuation or export is requested
	// before a draft exists.
	ErrNoDraft = errors.New("no draft available")
)

// StageError attaches the name of the stage that produced err, so logs and
// the streaming event queue can report where a run died without string
// parsing.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Wrap annotates err with the stage it originated from. Wrap(stage, nil)
// returns nil so callers can write `return apperr.Wrap(stage, err)`
// unconditionally.
func Wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

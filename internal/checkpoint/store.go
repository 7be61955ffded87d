// Package checkpoint persists SessionState between workflow interrupts so
// a run can be resumed minutes or days after the stage that paused it,
// keyed by the thread_id the HTTP adapter hands back to the caller.
package checkpoint

import (
	"context"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

// Store durably saves and retrieves session checkpoints. Implementations
// must be safe for concurrent use: the same thread_id may be read by a
// status poll while a stage is writing its result.
type Store interface {
	Save(ctx context.Context, state *model.SessionState) error
	Load(ctx context.Context, threadID string) (*model.SessionState, error)
	Delete(ctx context.Context, threadID string) error
}

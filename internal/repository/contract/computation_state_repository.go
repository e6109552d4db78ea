// Backend-side state of report computations, keyed by owner (one browser
// connection or terminal client). Each owner has at most one current run.
package contract

import (
	"context"

	"dota-report-be/internal/entity"
)

type ComputationStateRepository interface {
	// BeginRun makes runId the owner's current run and zeroes its progress.
	// A cancel recorded while no run was current is consumed and reported
	// through cancelPending.
	BeginRun(ctx context.Context, owner, runId string) (cancelPending bool, err error)
	// EndRun clears the current run if it is still runId.
	EndRun(ctx context.Context, owner, runId string) error
	// Cancel marks the current run cancelled and returns its id. With no
	// current run it records a pending cancel and returns "".
	Cancel(ctx context.Context, owner string) (runId string, err error)
	ClearPendingCancel(ctx context.Context, owner string) error
	// IsCancelled is true once runId was cancelled or replaced by a newer run.
	IsCancelled(ctx context.Context, owner, runId string) (bool, error)
	// SetProgress is ignored unless runId is current and not cancelled.
	SetProgress(ctx context.Context, owner, runId string, progress entity.Progress) error
	GetProgress(ctx context.Context, owner string) (entity.Progress, error)
}

package querysession

import (
	"context"
	"errors"

	"dota-report-be/internal/entity"
)

var (
	// ErrRemoteCancelled is returned by a Backend when the server abandoned the
	// computation because its cancellation flag was raised.
	ErrRemoteCancelled = errors.New("querysession: computation cancelled by backend")
	ErrClosed          = errors.New("querysession: controller closed")
)

// Backend is the analytics service as seen by one client. Cancel and
// ResetCancel are idempotent. Progress reports Total == 0 until the running
// computation knows its size.
type Backend interface {
	Submit(ctx context.Context, params Parameters) (*entity.Report, error)
	Cancel(ctx context.Context) error
	ResetCancel(ctx context.Context) error
	Progress(ctx context.Context) (entity.Progress, error)
}

// Renderer receives every visible state change. Calls are made from the
// controller loop, one at a time, and must not call back into the
// controller.
type Renderer interface {
	Render(generation uint64, report *entity.Report)
	Notice(generation uint64, notice Notice)
	Progress(generation uint64, state ProgressState)
}

func isAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrRemoteCancelled)
}

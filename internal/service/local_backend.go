// FILE: internal/service/local_backend.go
package service

import (
	"context"
	"errors"

	"dota-report-be/internal/analysis"
	"dota-report-be/internal/entity"
	"dota-report-be/internal/querysession"
)

// localBackend lets an in-process query session (one websocket connection)
// drive the report service directly, scoped to a single owner.
type localBackend struct {
	reports IReportService
	owner   string
}

func NewLocalBackend(reports IReportService, owner string) querysession.Backend {
	return &localBackend{reports: reports, owner: owner}
}

func (b *localBackend) Submit(ctx context.Context, params querysession.Parameters) (*entity.Report, error) {
	report, err := b.reports.Submit(ctx, b.owner, params.Request())
	if errors.Is(err, analysis.ErrCancelled) {
		return nil, querysession.ErrRemoteCancelled
	}
	return report, err
}

func (b *localBackend) Cancel(ctx context.Context) error {
	return b.reports.Cancel(ctx, b.owner)
}

func (b *localBackend) ResetCancel(ctx context.Context) error {
	return b.reports.ResetCancel(ctx, b.owner)
}

func (b *localBackend) Progress(ctx context.Context) (entity.Progress, error) {
	return b.reports.Progress(ctx, b.owner)
}

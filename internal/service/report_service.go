// FILE: internal/service/report_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dota-report-be/internal/analysis"
	"dota-report-be/internal/dto"
	"dota-report-be/internal/entity"
	"dota-report-be/internal/pkg/logger"
	"dota-report-be/internal/repository/contract"
	"dota-report-be/pkg/events"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrInvalidRequest = errors.New("invalid report request")

// ReportAnalyzer runs the two report computations.
type ReportAnalyzer interface {
	EnemyHeroGPM(ctx context.Context, accountId int64, heroId int, window analysis.Window, hooks analysis.Hooks) ([]analysis.EnemyHeroGPM, error)
	PlayWith(ctx context.Context, accountId, otherId int64, window analysis.Window, hooks analysis.Hooks) ([]analysis.SharedMatch, error)
}

// IReportService is the backend half of a query session. Every operation is
// scoped to an owner: one browser connection or one API client.
type IReportService interface {
	Submit(ctx context.Context, owner string, req dto.QueryRequest) (*entity.Report, error)
	Cancel(ctx context.Context, owner string) error
	ResetCancel(ctx context.Context, owner string) error
	Progress(ctx context.Context, owner string) (entity.Progress, error)
}

type reportService struct {
	analyzer ReportAnalyzer
	metadata IMetadataService
	state    contract.ComputationStateRepository
	events   IEventService
	logger   logger.ILogger
	runs     *runRegistry
}

func NewReportService(
	analyzer ReportAnalyzer,
	metadata IMetadataService,
	state contract.ComputationStateRepository,
	eventService IEventService,
	log logger.ILogger,
) IReportService {
	return &reportService{
		analyzer: analyzer,
		metadata: metadata,
		state:    state,
		events:   eventService,
		logger:   log,
		runs:     newRunRegistry(),
	}
}

type parsedRequest struct {
	mode     string
	playerId int64
	otherId  int64
	heroName string
	window   analysis.Window
}

func parseRequest(req dto.QueryRequest) (parsedRequest, error) {
	p := parsedRequest{mode: req.Mode, heroName: req.HeroName}

	var err error
	if p.window, err = analysis.ParseWindow(req.Window); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if p.playerId, err = strconv.ParseInt(req.PlayerId, 10, 64); err != nil {
		return p, fmt.Errorf("%w: player id %q", ErrInvalidRequest, req.PlayerId)
	}

	switch req.Mode {
	case dto.ModeHero:
		if req.HeroName == "" {
			return p, fmt.Errorf("%w: hero name is required", ErrInvalidRequest)
		}
	case dto.ModePlayer:
		if p.otherId, err = strconv.ParseInt(req.OtherPlayerId, 10, 64); err != nil {
			return p, fmt.Errorf("%w: other player id %q", ErrInvalidRequest, req.OtherPlayerId)
		}
	default:
		return p, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
	return p, nil
}

func (s *reportService) Submit(ctx context.Context, owner string, req dto.QueryRequest) (*entity.Report, error) {
	p, err := parseRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("dota-report-be/service").Start(ctx, "ReportService.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("report.owner", owner),
		attribute.String("report.mode", p.mode),
		attribute.String("report.window", string(p.window)),
	)

	reportId := uuid.NewString()
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	tracked := s.beginRun(runCtx, owner, reportId, cancelRun)
	defer s.endRun(owner, reportId)

	var heroId int
	if p.mode == dto.ModeHero {
		if heroId, err = s.metadata.HeroID(runCtx, p.heroName); err != nil {
			if isCancellation(runCtx, err) {
				return nil, analysis.ErrCancelled
			}
			return nil, err
		}
	}

	s.publish(ctx, events.ReportStarted, owner, reportId, p.mode)

	report, err := s.compute(runCtx, owner, p, heroId, s.hooks(runCtx, owner, reportId, tracked))
	if err != nil {
		if isCancellation(runCtx, err) {
			s.logger.Info("REPORT", "Computation cancelled", map[string]interface{}{"owner": owner, "report_id": reportId})
			s.publish(ctx, events.ReportCancelled, owner, reportId, p.mode)
			return nil, analysis.ErrCancelled
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("REPORT", "Computation failed", map[string]interface{}{"owner": owner, "report_id": reportId, "error": err.Error()})
		s.publish(ctx, events.ReportFailed, owner, reportId, p.mode)
		return nil, err
	}

	report.Id = reportId
	report.Mode = p.mode
	report.GeneratedAt = time.Now()
	span.SetAttributes(attribute.Int("report.rows", len(report.Rows)))
	s.publish(ctx, events.ReportCompleted, owner, reportId, p.mode)
	return report, nil
}

// isCancellation treats an interrupted upstream call of a cancelled run the
// same as a checkpoint that saw the cancel.
func isCancellation(runCtx context.Context, err error) bool {
	if errors.Is(err, analysis.ErrCancelled) {
		return true
	}
	return runCtx.Err() != nil && errors.Is(err, context.Canceled)
}

// beginRun registers the run locally and in the state store, superseding the
// owner's previous run. It reports whether the store tracks the run; when it
// does not, checkpoints rely on the run context alone.
func (s *reportService) beginRun(runCtx context.Context, owner, runId string, cancel context.CancelFunc) bool {
	s.runs.start(owner, &activeRun{id: runId, cancel: cancel})

	pending, err := s.state.BeginRun(runCtx, owner, runId)
	if err != nil {
		s.logger.Warn("REPORT", "Failed to register run", map[string]interface{}{"owner": owner, "report_id": runId, "error": err.Error()})
		return false
	}
	if pending {
		s.logger.Debug("REPORT", "Cancel arrived before the run started", map[string]interface{}{"owner": owner, "report_id": runId})
		cancel()
	}
	return true
}

func (s *reportService) endRun(owner, runId string) {
	s.runs.finish(owner, runId)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.state.EndRun(ctx, owner, runId); err != nil {
		s.logger.Warn("REPORT", "Failed to end run", map[string]interface{}{"owner": owner, "report_id": runId, "error": err.Error()})
	}
}

func (s *reportService) hooks(runCtx context.Context, owner, runId string, tracked bool) analysis.Hooks {
	return analysis.Hooks{
		Progress: func(current, total int) {
			if !tracked {
				return
			}
			// Recorded even after the request context ends.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.state.SetProgress(ctx, owner, runId, entity.Progress{Current: current, Total: total}); err != nil {
				s.logger.Warn("REPORT", "Failed to record progress", map[string]interface{}{"owner": owner, "error": err.Error()})
			}
		},
		Checkpoint: func(context.Context) error {
			if runCtx.Err() != nil {
				return analysis.ErrCancelled
			}
			if !tracked {
				return nil
			}
			cancelled, err := s.state.IsCancelled(runCtx, owner, runId)
			if err != nil {
				s.logger.Warn("REPORT", "Failed to read run state", map[string]interface{}{"owner": owner, "error": err.Error()})
				return nil
			}
			if cancelled {
				return analysis.ErrCancelled
			}
			return nil
		},
	}
}

func (s *reportService) compute(ctx context.Context, owner string, p parsedRequest, heroId int, hooks analysis.Hooks) (*entity.Report, error) {
	switch p.mode {
	case dto.ModeHero:
		rows, err := s.analyzer.EnemyHeroGPM(ctx, p.playerId, heroId, p.window, hooks)
		if err != nil {
			return nil, err
		}
		report := &entity.Report{
			Title:   fmt.Sprintf("Enemy hero GPM against %d playing %s (%s)", p.playerId, s.metadata.HeroName(ctx, heroId), p.window.Label()),
			Columns: []string{"Enemy Hero", "Average GPM", "Matches"},
			Rows:    make([][]string, 0, len(rows)),
		}
		for _, r := range rows {
			report.Rows = append(report.Rows, []string{
				s.metadata.HeroName(ctx, r.HeroId),
				strconv.FormatFloat(r.AverageGPM, 'f', 1, 64),
				strconv.Itoa(r.Samples),
			})
		}
		return report, nil

	default:
		rows, err := s.analyzer.PlayWith(ctx, p.playerId, p.otherId, p.window, hooks)
		if err != nil {
			return nil, err
		}
		report := &entity.Report{
			Title:   fmt.Sprintf("Matches of %d with %d (%s)", p.playerId, p.otherId, p.window.Label()),
			Columns: []string{"Match", "Date", "Hero", "Other Hero", "Side", "Result", "GPM", "Other GPM"},
			Rows:    make([][]string, 0, len(rows)),
		}
		for _, r := range rows {
			side := "Opposed"
			if r.Allied {
				side = "Allied"
			}
			result := "Loss"
			if r.Won {
				result = "Win"
			}
			report.Rows = append(report.Rows, []string{
				strconv.FormatInt(r.MatchId, 10),
				time.Unix(r.StartTime, 0).UTC().Format("2006-01-02"),
				s.metadata.HeroName(ctx, r.HeroId),
				s.metadata.HeroName(ctx, r.OtherHeroId),
				side,
				result,
				strconv.Itoa(r.GPM),
				strconv.Itoa(r.OtherGPM),
			})
		}
		return report, nil
	}
}

func (s *reportService) publish(ctx context.Context, eventType, owner, reportId, mode string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.NewReportEvent(eventType, owner, reportId, mode)); err != nil {
		s.logger.Warn("REPORT", "Failed to publish event", map[string]interface{}{"type": eventType, "error": err.Error()})
	}
}

// Cancel stops the owner's current run on this instance and marks it
// cancelled in the state store for any other instance running it. With no
// run in flight the cancel is held for the next run until ResetCancel.
func (s *reportService) Cancel(ctx context.Context, owner string) error {
	local := s.runs.cancel(owner)
	runId, err := s.state.Cancel(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to cancel run: %w", err)
	}
	s.logger.Debug("REPORT", "Run cancelled", map[string]interface{}{
		"owner":     owner,
		"report_id": runId,
		"local":     local,
	})
	return nil
}

// ResetCancel drops a held cancel so that it cannot reach runs started
// afterwards. Runs already cancelled stay cancelled.
func (s *reportService) ResetCancel(ctx context.Context, owner string) error {
	if err := s.state.ClearPendingCancel(ctx, owner); err != nil {
		return fmt.Errorf("failed to clear pending cancel: %w", err)
	}
	return nil
}

func (s *reportService) Progress(ctx context.Context, owner string) (entity.Progress, error) {
	return s.state.GetProgress(ctx, owner)
}

package querysession

import (
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"dota-report-be/internal/dto"
	"dota-report-be/internal/entity"
	"dota-report-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

// noPolling keeps the poller from firing during tests that are not about it.
var noPolling = Options{PollInitialDelay: time.Hour, PollInterval: time.Hour}

func newTestController(t *testing.T, b *fakeBackend, r *fakeRenderer, opts Options) *Controller {
	t.Helper()
	c := NewController(b, r, opts, logger.NewNopLogger())
	t.Cleanup(c.Close)
	return c
}

func waitSubmit(t *testing.T, b *fakeBackend) *pendingSubmit {
	t.Helper()
	select {
	case p := <-b.submits:
		return p
	case <-time.After(waitFor):
		t.Fatal("backend never received a submission")
		return nil
	}
}

func snapshot(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	snap, err := c.Snapshot()
	require.NoError(t, err)
	return snap
}

func heroParams(playerID string) Parameters {
	return Parameters{Mode: dto.ModeHero, PlayerID: playerID, HeroName: "Axe", Window: "year"}
}

func TestRapidStartsRenderOnlyTheLastResult(t *testing.T) {
	b, r := newFakeBackend(), &fakeRenderer{}
	c := newTestController(t, b, r, noPolling)

	const n = 5
	for i := 1; i <= n; i++ {
		require.NoError(t, c.StartQuery(heroParams(strconv.Itoa(i))))
	}

	var last *pendingSubmit
	for last == nil {
		p := waitSubmit(t, b)
		if p.params.PlayerID == strconv.Itoa(n) {
			last = p
			continue
		}
		p.respond(report("stale"), nil)
	}
	last.respond(report("fresh"), nil)

	require.Eventually(t, func() bool { return len(r.filter("render")) == 1 }, waitFor, 5*time.Millisecond)

	renders := r.filter("render")
	assert.Equal(t, uint64(n), renders[0].generation)
	assert.Equal(t, "fresh", renders[0].report.Rows[0][0])

	for _, e := range r.Events() {
		if e.generation < n {
			assert.Equal(t, "notice", e.kind)
			assert.Equal(t, NoticeProcessing, e.notice.Kind, "superseded generation %d changed visible state", e.generation)
		}
	}

	snap := snapshot(t, c)
	assert.Equal(t, uint64(n), snap.Generation)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.False(t, snap.Active)
	assert.False(t, snap.PollerRunning)

	c.Close()
	assert.Equal(t, n-1, b.count("cancel"))
	assert.Equal(t, n, b.count("reset"))
	assert.Len(t, r.filter("render"), 1)
}

func TestAbortWithoutSessionIsNoop(t *testing.T) {
	b, r := newFakeBackend(), &fakeRenderer{}
	c := newTestController(t, b, r, noPolling)

	require.NoError(t, c.AbortCurrent())

	snap := snapshot(t, c)
	assert.Equal(t, uint64(0), snap.Generation)
	assert.False(t, snap.Active)
	assert.False(t, snap.PollerRunning)

	c.Close()
	assert.Empty(t, b.Calls())
	assert.Empty(t, r.Events())
}

func TestAbortCurrentEngagesBothLegs(t *testing.T) {
	b, r := newFakeBackend(), &fakeRenderer{}
	c := newTestController(t, b, r, noPolling)

	require.NoError(t, c.StartQuery(heroParams("1")))
	p := waitSubmit(t, b)

	require.NoError(t, c.AbortCurrent())

	snap := snapshot(t, c)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.False(t, snap.Active)
	assert.False(t, snap.PollerRunning)

	assert.Error(t, p.ctx.Err(), "local leg: the request context is cancelled")
	require.Eventually(t, func() bool { return b.count("cancel") == 1 }, waitFor, 5*time.Millisecond)

	notice, ok := r.lastNotice()
	require.True(t, ok)
	assert.Equal(t, NoticeCancelled, notice.notice.Kind)
	assert.Equal(t, uint64(1), notice.generation)

	// A late answer for the aborted handle changes nothing.
	p.respond(report("late"), nil)
	snap = snapshot(t, c)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Empty(t, r.filter("render"))

	// Aborting again is a no-op.
	require.NoError(t, c.AbortCurrent())
	c.Close()
	assert.Equal(t, 1, b.count("cancel"))
}

func TestSupersedingSessionCancelsThenResetsBeforeSubmitting(t *testing.T) {
	b, r := newFakeBackend(), &fakeRenderer{}
	c := newTestController(t, b, r, noPolling)

	require.NoError(t, c.StartQuery(heroParams("A")))
	a := waitSubmit(t, b)

	require.NoError(t, c.StartQuery(heroParams("B")))
	bSubmit := waitSubmit(t, b)

	assert.Equal(t, []string{"reset", "submit:A", "cancel", "reset", "submit:B"}, b.Calls())
	assert.Error(t, a.ctx.Err())

	snap := snapshot(t, c)
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, StatusActive, snap.Status)

	a.respond(report("A"), nil)
	bSubmit.respond(report("B"), nil)

	require.Eventually(t, func() bool { return len(r.filter("render")) == 1 }, waitFor, 5*time.Millisecond)
	render := r.filter("render")[0]
	assert.Equal(t, uint64(2), render.generation)
	assert.Equal(t, "B", render.report.Rows[0][0])

	for _, e := range r.Events() {
		if e.generation == 1 {
			assert.Equal(t, NoticeProcessing, e.notice.Kind)
		}
	}
}

func TestResponseClassification(t *testing.T) {
	tests := []struct {
		name       string
		report     *entity.Report
		err        error
		wantStatus Status
		wantNotice NoticeKind
		wantRender bool
	}{
		{name: "result", report: report("x"), wantStatus: StatusCompleted, wantRender: true},
		{name: "empty result", report: report(), wantStatus: StatusCompleted, wantNotice: NoticeNoData},
		{name: "no payload", wantStatus: StatusCompleted, wantNotice: NoticeNoData},
		{name: "backend failure", err: errors.New("502 bad gateway"), wantStatus: StatusFailed, wantNotice: NoticeFailed},
		{name: "remote cancel", err: fmt.Errorf("submit: %w", ErrRemoteCancelled), wantStatus: StatusCancelled, wantNotice: NoticeCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, r := newFakeBackend(), &fakeRenderer{}
			c := newTestController(t, b, r, noPolling)

			require.NoError(t, c.StartQuery(heroParams("1")))
			waitSubmit(t, b).respond(tt.report, tt.err)

			require.Eventually(t, func() bool {
				snap, err := c.Snapshot()
				return err == nil && snap.Status == tt.wantStatus
			}, waitFor, 5*time.Millisecond)

			snap := snapshot(t, c)
			assert.False(t, snap.Active)
			assert.False(t, snap.PollerRunning)

			if tt.wantRender {
				assert.Len(t, r.filter("render"), 1)
				return
			}
			assert.Empty(t, r.filter("render"))
			notice, ok := r.lastNotice()
			require.True(t, ok)
			assert.Equal(t, tt.wantNotice, notice.notice.Kind)
		})
	}
}

func TestPollerRunsOnlyWhileSessionIsActive(t *testing.T) {
	b, r := newFakeBackend(), &fakeRenderer{}
	b.progress = []entity.Progress{{Current: 0, Total: 0}, {Current: 5, Total: 20}}
	c := newTestController(t, b, r, Options{PollInitialDelay: 5 * time.Millisecond, PollInterval: 5 * time.Millisecond})

	snap := snapshot(t, c)
	assert.False(t, snap.PollerRunning, "no poller before the first session")

	require.NoError(t, c.StartQuery(heroParams("1")))
	p := waitSubmit(t, b)

	require.Eventually(t, func() bool {
		for _, e := range r.filter("progress") {
			if e.progress.Known {
				return true
			}
		}
		return false
	}, waitFor, 5*time.Millisecond)

	progress := r.filter("progress")
	first := progress[0].progress
	assert.False(t, first.Known, "total == 0 means no progress data yet")
	assert.Equal(t, 0, first.Total)

	snap = snapshot(t, c)
	assert.True(t, snap.Active)
	assert.True(t, snap.PollerRunning)
	assert.Equal(t, ProgressState{Current: 5, Total: 20, Percentage: 25, Known: true}, snap.Progress)

	p.respond(report("done"), nil)
	require.Eventually(t, func() bool {
		snap, err := c.Snapshot()
		return err == nil && !snap.PollerRunning
	}, waitFor, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	settled := b.ProgressCalls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, b.ProgressCalls(), "poller kept running after its session ended")

	for _, e := range r.filter("progress") {
		assert.Equal(t, uint64(1), e.generation)
	}
}

func TestNewProgressState(t *testing.T) {
	tests := []struct {
		in   entity.Progress
		want ProgressState
	}{
		{entity.Progress{}, ProgressState{}},
		{entity.Progress{Current: 5, Total: 20}, ProgressState{Current: 5, Total: 20, Percentage: 25, Known: true}},
		{entity.Progress{Current: 1, Total: 3}, ProgressState{Current: 1, Total: 3, Percentage: 33, Known: true}},
		{entity.Progress{Current: 2, Total: 3}, ProgressState{Current: 2, Total: 3, Percentage: 67, Known: true}},
		{entity.Progress{Current: 20, Total: 20}, ProgressState{Current: 20, Total: 20, Percentage: 100, Known: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, newProgressState(tt.in))
	}
}

func TestModeSwitchCancelsHeroSession(t *testing.T) {
	b, r := newFakeBackend(), &fakeRenderer{}
	c := newTestController(t, b, r, noPolling)
	form := NewForm(c)

	require.NoError(t, form.Set(FieldPlayer, "123"))
	require.NoError(t, form.Set(FieldHero, "Axe"))
	hero := waitSubmit(t, b)
	assert.Equal(t, dto.ModeHero, hero.params.Mode)

	require.NoError(t, form.SetMode(dto.ModePlayer))

	snap := snapshot(t, c)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.False(t, snap.Active)

	hero.respond(report("hero rows"), nil)
	snap = snapshot(t, c)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Empty(t, r.filter("render"))

	notice, ok := r.lastNotice()
	require.True(t, ok)
	assert.Equal(t, NoticeCancelled, notice.notice.Kind)
	assert.Equal(t, dto.ModePlayer, form.Parameters().Mode)
}

func TestCloseTearsDown(t *testing.T) {
	b, r := newFakeBackend(), &fakeRenderer{}
	c := NewController(b, r, Options{PollInitialDelay: time.Millisecond, PollInterval: time.Millisecond}, logger.NewNopLogger())

	require.NoError(t, c.StartQuery(heroParams("1")))
	p := waitSubmit(t, b)

	c.Close()

	assert.Error(t, p.ctx.Err())
	assert.Equal(t, 1, b.count("cancel"), "queued cancel is delivered before Close returns")

	assert.ErrorIs(t, c.StartQuery(heroParams("2")), ErrClosed)
	assert.ErrorIs(t, c.AbortCurrent(), ErrClosed)
	_, err := c.Snapshot()
	assert.ErrorIs(t, err, ErrClosed)

	calls := b.ProgressCalls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, b.ProgressCalls())

	c.Close()
}

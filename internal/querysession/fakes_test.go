package querysession

import (
	"context"
	"sync"

	"dota-report-be/internal/entity"
)

type submitResult struct {
	report *entity.Report
	err    error
}

type pendingSubmit struct {
	params Parameters
	ctx    context.Context
	reply  chan submitResult
}

func (p *pendingSubmit) respond(report *entity.Report, err error) {
	p.reply <- submitResult{report: report, err: err}
}

// fakeBackend records every call in order. Submissions block until the test
// responds or the request context is cancelled.
type fakeBackend struct {
	mu            sync.Mutex
	calls         []string
	progressCalls int
	progress      []entity.Progress

	submits chan *pendingSubmit
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{submits: make(chan *pendingSubmit, 32)}
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) count(call string) int {
	n := 0
	for _, c := range b.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (b *fakeBackend) ProgressCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progressCalls
}

func (b *fakeBackend) Submit(ctx context.Context, params Parameters) (*entity.Report, error) {
	b.record("submit:" + params.PlayerID)
	p := &pendingSubmit{params: params, ctx: ctx, reply: make(chan submitResult, 1)}
	b.submits <- p
	select {
	case r := <-p.reply:
		return r.report, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *fakeBackend) Cancel(context.Context) error {
	b.record("cancel")
	return nil
}

func (b *fakeBackend) ResetCancel(context.Context) error {
	b.record("reset")
	return nil
}

// Progress walks through the scripted readings and then repeats the last.
func (b *fakeBackend) Progress(context.Context) (entity.Progress, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progressCalls++
	if len(b.progress) == 0 {
		return entity.Progress{}, nil
	}
	p := b.progress[0]
	if len(b.progress) > 1 {
		b.progress = b.progress[1:]
	}
	return p, nil
}

type renderEvent struct {
	kind       string // "render", "notice" or "progress"
	generation uint64
	report     *entity.Report
	notice     Notice
	progress   ProgressState
}

type fakeRenderer struct {
	mu     sync.Mutex
	events []renderEvent
}

func (r *fakeRenderer) add(e renderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *fakeRenderer) Render(generation uint64, report *entity.Report) {
	r.add(renderEvent{kind: "render", generation: generation, report: report})
}

func (r *fakeRenderer) Notice(generation uint64, notice Notice) {
	r.add(renderEvent{kind: "notice", generation: generation, notice: notice})
}

func (r *fakeRenderer) Progress(generation uint64, state ProgressState) {
	r.add(renderEvent{kind: "progress", generation: generation, progress: state})
}

func (r *fakeRenderer) Events() []renderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]renderEvent(nil), r.events...)
}

func (r *fakeRenderer) filter(kind string) []renderEvent {
	var out []renderEvent
	for _, e := range r.Events() {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// lastNotice returns the most recent notice or ok=false.
func (r *fakeRenderer) lastNotice() (renderEvent, bool) {
	notices := r.filter("notice")
	if len(notices) == 0 {
		return renderEvent{}, false
	}
	return notices[len(notices)-1], true
}

func report(rows ...string) *entity.Report {
	r := &entity.Report{Columns: []string{"value"}}
	for _, row := range rows {
		r.Rows = append(r.Rows, []string{row})
	}
	return r
}

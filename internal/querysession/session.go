package querysession

import (
	"context"
	"math"
	"sync/atomic"

	"dota-report-be/internal/dto"
	"dota-report-be/internal/entity"
)

// Parameters is the immutable snapshot of the form captured when a session
// is created.
type Parameters struct {
	Mode          string
	PlayerID      string
	HeroName      string
	OtherPlayerID string
	Window        string
}

// Request converts the snapshot to the wire shape of the report endpoint.
// Fields that do not belong to the mode are left out.
func (p Parameters) Request() dto.QueryRequest {
	req := dto.QueryRequest{
		Mode:     p.Mode,
		PlayerId: p.PlayerID,
		Window:   p.Window,
	}
	switch p.Mode {
	case dto.ModeHero:
		req.HeroName = p.HeroName
	case dto.ModePlayer:
		req.OtherPlayerId = p.OtherPlayerID
	}
	return req
}

type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has finished for good.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// NetworkHandle owns the context of one in-flight submission. Abort is the
// only way to stop it early, and the aborted flag stays readable after the
// request has returned.
type NetworkHandle struct {
	ctx     context.Context
	cancel  context.CancelFunc
	aborted atomic.Bool
}

func newNetworkHandle(parent context.Context) *NetworkHandle {
	ctx, cancel := context.WithCancel(parent)
	return &NetworkHandle{ctx: ctx, cancel: cancel}
}

func (h *NetworkHandle) Context() context.Context {
	return h.ctx
}

// Abort cancels the request. Calling it more than once is harmless.
func (h *NetworkHandle) Abort() {
	if h.aborted.CompareAndSwap(false, true) {
		h.cancel()
	}
}

func (h *NetworkHandle) Aborted() bool {
	return h.aborted.Load()
}

// release frees the context after a normal completion without marking the
// handle aborted.
func (h *NetworkHandle) release() {
	h.cancel()
}

// Session is one logical query lifecycle. Only the controller loop mutates
// status; generation, params and handle never change after creation.
type Session struct {
	generation uint64
	params     Parameters
	status     Status
	handle     *NetworkHandle
}

// Aborted reports whether the session's request was told to stop.
func (s *Session) Aborted() bool { return s.handle.Aborted() }

// ProgressState is the last progress reading of the active session. Known is
// false while the backend reports total == 0.
type ProgressState struct {
	Current    int
	Total      int
	Percentage int
	Known      bool
}

func newProgressState(p entity.Progress) ProgressState {
	state := ProgressState{Current: p.Current, Total: p.Total}
	if p.Total > 0 {
		state.Known = true
		state.Percentage = int(math.Round(float64(p.Current) / float64(p.Total) * 100))
	}
	return state
}

type NoticeKind int

const (
	NoticeProcessing NoticeKind = iota
	NoticeCancelled
	NoticeFailed
	NoticeNoData
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeProcessing:
		return "processing"
	case NoticeCancelled:
		return "cancelled"
	case NoticeFailed:
		return "failed"
	case NoticeNoData:
		return "no_data"
	default:
		return "unknown"
	}
}

// Notice is a user-visible status line that replaces the results area.
type Notice struct {
	Kind    NoticeKind
	Message string
}

var (
	processingNotice = Notice{Kind: NoticeProcessing, Message: "Processing..."}
	cancelledNotice  = Notice{Kind: NoticeCancelled, Message: "Request cancelled."}
	failedNotice     = Notice{Kind: NoticeFailed, Message: "An error occurred while fetching data."}
	noDataNotice     = Notice{Kind: NoticeNoData, Message: "No data available for the selected parameters."}
)

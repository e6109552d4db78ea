package websocket

import (
	"encoding/json"
	"time"

	"dota-report-be/internal/entity"
	"dota-report-be/internal/querysession"
)

const (
	frameResult   = "result"
	frameNotice   = "notice"
	frameProgress = "progress"
	frameEvent    = "event"
	frameError    = "error"
)

// frame is the envelope of every server-to-browser message.
type frame struct {
	Type       string      `json:"type"`
	Generation uint64      `json:"generation,omitempty"`
	Data       interface{} `json:"data"`
}

type noticeData struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type progressData struct {
	Current    int  `json:"current"`
	Total      int  `json:"total"`
	Percentage *int `json:"percentage,omitempty"`
}

type eventData struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type errorData struct {
	Message string `json:"message"`
}

// frameRenderer turns query session output into frames on the client's
// send buffer.
type frameRenderer struct {
	client *Client
}

func (r *frameRenderer) push(f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		r.client.logger.Error("Client", "Failed to encode frame", map[string]interface{}{"type": f.Type, "error": err.Error()})
		return
	}
	if !r.client.send(data) {
		r.client.logger.Warn("Client", "Send buffer full, dropping frame", map[string]interface{}{"client_id": r.client.ID, "type": f.Type})
	}
}

func (r *frameRenderer) Render(generation uint64, report *entity.Report) {
	r.push(frame{Type: frameResult, Generation: generation, Data: report})
}

func (r *frameRenderer) Notice(generation uint64, notice querysession.Notice) {
	r.push(frame{Type: frameNotice, Generation: generation, Data: noticeData{
		Kind:    notice.Kind.String(),
		Message: notice.Message,
	}})
}

func (r *frameRenderer) Progress(generation uint64, state querysession.ProgressState) {
	data := progressData{Current: state.Current, Total: state.Total}
	if state.Known {
		pct := state.Percentage
		data.Percentage = &pct
	}
	r.push(frame{Type: frameProgress, Generation: generation, Data: data})
}

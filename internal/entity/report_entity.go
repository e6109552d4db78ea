package entity

import "time"

// Report is the tabular result of one analysis run.
type Report struct {
	Id          string     `json:"id"`
	Mode        string     `json:"mode"`
	Title       string     `json:"title"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Empty reports whether there is nothing to render.
func (r *Report) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Progress is the backend's position inside a running computation. Total == 0
// means no progress data is available yet.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

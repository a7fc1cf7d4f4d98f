package convert

import "time"

// Status is the outcome of one book in a run.
type Status string

const (
	StatusComplete   Status = "complete"
	StatusIncomplete Status = "incomplete" // turn cap hit; artifact written from partial log
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// BookResult describes what happened to one manifest entry.
type BookResult struct {
	ID       string        `json:"id"`
	Filename string        `json:"filename"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Pages    int           `json:"pages,omitempty"`
	Sections int           `json:"sections"`
	Images   int           `json:"images"`
	Turns    int           `json:"turns"`
	Output   string        `json:"output,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      error         `json:"-"`
}

// Report summarizes a run.
type Report struct {
	RunID   string        `json:"run_id"`
	Books   []BookResult  `json:"books"`
	Elapsed time.Duration `json:"elapsed"`
}

// Count returns how many books ended with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, b := range r.Books {
		if b.Status == s {
			n++
		}
	}
	return n
}

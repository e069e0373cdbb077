package confirm

import (
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const defaultHistorySize = 100

// ExecutionRecord captures the outcome of one execution attempt. Records are
// never mutated, only trimmed from the head when the bound is exceeded.
type ExecutionRecord struct {
	ID        string        `json:"id"`
	Tool      string        `json:"tool"`
	Action    string        `json:"action"`
	ArgsHash  string        `json:"args_hash"`
	Success   bool          `json:"success"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// History is a bounded in-memory log of recent execution attempts.
type History struct {
	mu      sync.Mutex
	records []ExecutionRecord
	max     int
}

// NewHistory creates a history retaining at most max records.
func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistorySize
	}
	return &History{max: max}
}

// Append adds a record, assigning an id when missing, and trims from the
// head once the bound is exceeded.
func (h *History) Append(rec ExecutionRecord) {
	if rec.ID == "" {
		id, _ := gonanoid.New()
		rec.ID = id
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if len(h.records) > h.max {
		h.records = h.records[len(h.records)-h.max:]
	}
}

// Recent returns the most recent limit records, most-recent-last.
func (h *History) Recent(limit int) []ExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.records) {
		limit = len(h.records)
	}

	out := make([]ExecutionRecord, limit)
	copy(out, h.records[len(h.records)-limit:])
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

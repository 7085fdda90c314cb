package scheduler

import (
	"context"
	"time"
)

const maxHistory = 100

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	Run(ctx context.Context) error

	// Schedule returns a cron expression with seconds, e.g. "0 5 0 * * *", or a descriptor like "@daily"
	Schedule() string
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the latest results of one job
type JobHistory struct {
	results []JobResult
}

// Add appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) Add(result JobResult) {
	h.results = append(h.results, result)
	if len(h.results) > maxHistory {
		h.results = h.results[len(h.results)-maxHistory:]
	}
}

// Latest returns a copy of the latest n results, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	n = min(n, len(h.results))
	out := make([]JobResult, n)
	copy(out, h.results[len(h.results)-n:])
	return out
}

// Len returns the number of stored results
func (h *JobHistory) Len() int {
	return len(h.results)
}

// Failures returns the number of failed runs
func (h *JobHistory) Failures() int {
	failed := 0
	for _, r := range h.results {
		if !r.Success {
			failed++
		}
	}
	return failed
}

// SuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.results) == 0 {
		return 0.0
	}
	return float64(len(h.results)-h.Failures()) / float64(len(h.results))
}

package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressReporter logs a running count of completed items. It reports at
// most once per interval plus once when the total is reached.
type ProgressReporter struct {
	mu          sync.Mutex
	total       int
	current     int
	description string
	interval    time.Duration
	startTime   time.Time
	lastUpdate  time.Time
	logger      *Logger
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(total int, description string) *ProgressReporter {
	now := time.Now()
	return &ProgressReporter{
		total:       total,
		description: description,
		interval:    5 * time.Second,
		startTime:   now,
		lastUpdate:  now,
		logger:      GetLogger().WithField("component", "progress"),
	}
}

// WithLogger swaps the destination logger.
func (pr *ProgressReporter) WithLogger(l *Logger) *ProgressReporter {
	pr.mu.Lock()
	pr.logger = l.WithField("component", "progress")
	pr.mu.Unlock()
	return pr
}

// Update increments the progress counter and returns the new count.
func (pr *ProgressReporter) Update(increment int) int {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.current += increment
	now := time.Now()
	if now.Sub(pr.lastUpdate) >= pr.interval || pr.current >= pr.total {
		pr.reportProgress()
		pr.lastUpdate = now
	}
	return pr.current
}

// Complete reports the final count.
func (pr *ProgressReporter) Complete() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.reportProgress()
}

// must be called with lock held
func (pr *ProgressReporter) reportProgress() {
	elapsed := time.Since(pr.startTime)

	var percentage float64
	if pr.total > 0 {
		percentage = float64(pr.current) / float64(pr.total) * 100
	}

	var eta string
	if pr.current > 0 && pr.current < pr.total {
		avgTimePerItem := elapsed / time.Duration(pr.current)
		remaining := time.Duration(pr.total-pr.current) * avgTimePerItem
		eta = fmt.Sprintf(" (ETA: %s)", remaining.Round(time.Second))
	}

	pr.logger.WithFields(map[string]interface{}{
		"current":     pr.current,
		"total":       pr.total,
		"elapsed":     elapsed.Round(time.Second).String(),
		"description": pr.description,
	}).Info(fmt.Sprintf("%s: %d/%d (%.1f%%)%s", pr.description, pr.current, pr.total, percentage, eta))
}

// GetProgress returns current progress information
func (pr *ProgressReporter) GetProgress() (current, total int) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.current, pr.total
}

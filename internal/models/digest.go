package models

import "time"

// Digest run statuses
const (
	DigestStatusSent    = "sent"
	DigestStatusDryRun  = "dry_run"
	DigestStatusSkipped = "skipped"
	DigestStatusFailed  = "failed"
)

// DigestRun records one weekly digest attempt for a family
type DigestRun struct {
	ID         string
	FamilyID   int64
	Status     string
	Recipients int
	DryRun     bool
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took
func (r *DigestRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

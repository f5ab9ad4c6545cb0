package models

import (
	"strconv"
	"time"
)

// CompletionEvent is one ledger entry for a kid. Only entries with positive
// points count as chore activity.
type CompletionEvent struct {
	ID         int64
	FamilyID   int64
	KidID      int64
	Points     int
	Reason     string
	OccurredAt time.Time // UTC
}

// ProfileID is the owning kid's identifier as used by analytics
func (e CompletionEvent) ProfileID() string {
	return strconv.FormatInt(e.KidID, 10)
}

// ChoreAssignment is a chore manually scheduled for a kid on a local date
type ChoreAssignment struct {
	ID           int64
	FamilyID     int64
	KidID        int64
	ChoreName    string
	AssignedDate string // YYYY-MM-DD in the family timezone
}

// ProfileID is the assigned kid's identifier as used by analytics
func (a ChoreAssignment) ProfileID() string {
	return strconv.FormatInt(a.KidID, 10)
}

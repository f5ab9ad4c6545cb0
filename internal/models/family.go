package models

import "time"

// DefaultTimezone is the family timezone when none has been configured
const DefaultTimezone = "UTC"

// Family groups parents and kids and carries the settings analytics depend on
type Family struct {
	ID             int64
	Name           string
	Timezone       string // IANA name
	ScheduleConfig string // JSON schedule document, empty for manual households
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TimezoneName returns the family's IANA timezone, or the default when unset
func (f *Family) TimezoneName() string {
	if f.Timezone == "" {
		return DefaultTimezone
	}
	return f.Timezone
}

// Parent is a digest recipient belonging to a family
type Parent struct {
	ID          int64
	FamilyID    int64
	Name        string
	Email       string
	DigestOptIn bool
	CreatedAt   time.Time
}

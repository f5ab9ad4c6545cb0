package models

import (
	"strconv"
	"time"
)

// Kid represents a child profile in the system
type Kid struct {
	ID          int64
	FamilyID    int64
	Name        string
	AvatarColor string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfileID is the kid's identifier as used by analytics and the API
func (k Kid) ProfileID() string {
	return strconv.FormatInt(k.ID, 10)
}

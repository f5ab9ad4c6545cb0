// Package validation checks user-supplied family settings before they are stored.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"chorequest/internal/analytics"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Error reports which field failed validation
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return Error{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return Error{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateName checks if a person or family name is usable
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Error{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return Error{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateTimezone accepts an empty name (the configured default) or a
// loadable IANA zone.
func ValidateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := analytics.LoadTimezone(tz); err != nil {
		return Error{Field: "timezone", Message: fmt.Sprintf("unknown timezone %q", tz)}
	}
	return nil
}

// ValidateSchedule accepts an empty document (manual chores) or one that
// decodes to a rotation.
func ValidateSchedule(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if _, err := analytics.DecodeScheduleConfig([]byte(raw)); err != nil {
		return Error{Field: "schedule", Message: err.Error()}
	}
	return nil
}

// ValidateAvatarColor accepts an empty color or a #rrggbb hex value
func ValidateAvatarColor(color string) error {
	if color == "" || colorRegex.MatchString(color) {
		return nil
	}
	return Error{Field: "avatar_color", Message: "color must look like #4A90E2"}
}

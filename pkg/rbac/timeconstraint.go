package rbac

import (
	"fmt"
	"time"
)

// timeOfDayFormat is the layout for time-of-day window bounds.
const timeOfDayFormat = "15:04"

// TimeConstraint restricts when a grant applies. Every field is
// optional; an absent bound is vacuously satisfied. Weekday numbering
// is 1=Sunday through 7=Saturday.
type TimeConstraint struct {
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	Weekdays   []int      `json:"weekdays,omitempty"`
	DailyStart string     `json:"daily_start,omitempty"` // "HH:mm"
	DailyEnd   string     `json:"daily_end,omitempty"`   // "HH:mm"
}

// Satisfied reports whether instant t falls inside the constraint.
// A daily window with start > end spans midnight: the instant matches
// when its clock time is >= start or <= end.
func (c *TimeConstraint) Satisfied(t time.Time) bool {
	if c == nil {
		return true
	}

	if c.StartsAt != nil && t.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && t.After(*c.EndsAt) {
		return false
	}

	if len(c.Weekdays) > 0 {
		// time.Weekday is 0=Sunday; the stored numbering starts at 1.
		day := int(t.Weekday()) + 1
		matched := false
		for _, allowed := range c.Weekdays {
			if allowed == day {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if c.DailyStart != "" && c.DailyEnd != "" {
		// Zero-padded "HH:mm" strings order the same lexically as
		// chronologically, so plain string comparison is enough.
		clock := t.Format(timeOfDayFormat)
		if c.DailyStart <= c.DailyEnd {
			if clock < c.DailyStart || clock > c.DailyEnd {
				return false
			}
		} else {
			if clock < c.DailyStart && clock > c.DailyEnd {
				return false
			}
		}
	}

	return true
}

// Validate checks field well-formedness. Satisfied never errors, so
// malformed constraints are rejected at insertion instead.
func (c *TimeConstraint) Validate() error {
	if c == nil {
		return nil
	}
	if c.StartsAt != nil && c.EndsAt != nil && c.EndsAt.Before(*c.StartsAt) {
		return fmt.Errorf("ends_at %s precedes starts_at %s", c.EndsAt, c.StartsAt)
	}
	for _, day := range c.Weekdays {
		if day < 1 || day > 7 {
			return fmt.Errorf("weekday %d out of range 1..7", day)
		}
	}
	if (c.DailyStart == "") != (c.DailyEnd == "") {
		return fmt.Errorf("daily window requires both start and end")
	}
	if c.DailyStart != "" {
		if _, err := time.Parse(timeOfDayFormat, c.DailyStart); err != nil {
			return fmt.Errorf("invalid daily_start %q: %w", c.DailyStart, err)
		}
		if _, err := time.Parse(timeOfDayFormat, c.DailyEnd); err != nil {
			return fmt.Errorf("invalid daily_end %q: %w", c.DailyEnd, err)
		}
	}
	return nil
}

package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultBriefTime is used when a user never configured a brief time.
const DefaultBriefTime = "20:00"

// ErrInvalidTimeOfDay marks a malformed "HH:MM" schedule string. The caller
// treats it as "never fires", never as a cycle failure.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// ScheduleConfig is the typed form of a user's insight preferences. Fields
// default on read so a missing row behaves like a freshly onboarded user.
type ScheduleConfig struct {
	Owner         string
	BriefTime     string // "HH:MM", only the hour is compared
	BudgetAlerts  bool
	DuesReminders bool
}

// DefaultScheduleConfig returns the config applied to users without a stored one.
func DefaultScheduleConfig(owner string) ScheduleConfig {
	return ScheduleConfig{
		Owner:         owner,
		BriefTime:     DefaultBriefTime,
		BudgetAlerts:  true,
		DuesReminders: true,
	}
}

// ParseTimeOfDay parses an "HH:MM" string into hour and minute components.
// Hour must be 0-23 and minute 0-59; anything else is ErrInvalidTimeOfDay.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return hour, minute, nil
}

func (c ScheduleConfig) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return ErrEmptyOwner
	}
	_, _, err := ParseTimeOfDay(c.BriefTime)
	return err
}

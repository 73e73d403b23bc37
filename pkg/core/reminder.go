package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var clockLayouts = []string{"15:04", "15:04:05"}

// ParseReminder combines a date and a time of day into a reminder instant.
// Both parts are required together: if either is blank the result is nil and
// no reminder is recorded. A nil loc means time.Local.
func ParseReminder(date, clock string, loc *time.Location) (*time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	day, err := dateparse.ParseIn(date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: reminder date %q: %v", ErrValidation, date, err)
	}

	var tod time.Time
	for _, layout := range clockLayouts {
		if tod, err = time.Parse(layout, clock); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reminder time %q: %v", ErrValidation, clock, err)
	}

	at := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc).UTC()
	return &at, nil
}

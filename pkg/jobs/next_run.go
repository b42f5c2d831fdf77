package jobs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseScheduleTime splits an HH:MM schedule string into hour and minute
func ParseScheduleTime(scheduleTime string) (hour, minute int, err error) {
	parts := strings.Split(scheduleTime, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid schedule time %q: want HH:MM", scheduleTime)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in schedule time %q", scheduleTime)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in schedule time %q", scheduleTime)
	}

	return hour, minute, nil
}

// CalculateNextRunTime returns the next instant a job with the given HH:MM
// schedule fires in its timezone. If today's occurrence is not strictly in the
// future relative to now, tomorrow's occurrence is returned.
func CalculateNextRunTime(scheduleTime, timezone string, now time.Time) (time.Time, error) {
	hour, minute, err := ParseScheduleTime(scheduleTime)
	if err != nil {
		return time.Time{}, err
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)

	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next, nil
}

// Package restartslot finds a restart time slot that doesn't collide with
// existing backup job minutes, grounded on restart_scheduler.py.
package restartslot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseMinuteField expands a cron minute field (single value, comma list,
// range, step, or wildcard) into the set of minutes it matches. Mirrors
// restart_scheduler.py's _parse_cron_minute_field.
func ParseMinuteField(field string) (map[int]struct{}, error) {
	minutes := make(map[int]struct{})
	field = strings.TrimSpace(field)

	if field == "*" {
		for m := 0; m < 60; m++ {
			minutes[m] = struct{}{}
		}
		return minutes, nil
	}

	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if err := parsePart(part, minutes); err != nil {
			return nil, fmt.Errorf("parse minute field %q: %w", field, err)
		}
	}
	return minutes, nil
}

func parsePart(part string, minutes map[int]struct{}) error {
	if base, stepStr, ok := strings.Cut(part, "/"); ok {
		step, err := strconv.Atoi(stepStr)
		if err != nil {
			return err
		}
		switch {
		case base == "*":
			for m := 0; m < 60; m += step {
				minutes[m] = struct{}{}
			}
		case strings.Contains(base, "-"):
			start, end, err := parseRange(base)
			if err != nil {
				return err
			}
			for m := start; m <= end; m += step {
				minutes[m] = struct{}{}
			}
		default:
			start, err := strconv.Atoi(base)
			if err != nil {
				return err
			}
			for m := start; m < 60; m += step {
				minutes[m] = struct{}{}
			}
		}
		return nil
	}

	if strings.Contains(part, "-") {
		start, end, err := parseRange(part)
		if err != nil {
			return err
		}
		for m := start; m <= end; m++ {
			minutes[m] = struct{}{}
		}
		return nil
	}

	m, err := strconv.Atoi(part)
	if err != nil {
		return err
	}
	minutes[m] = struct{}{}
	return nil
}

func parseRange(s string) (int, int, error) {
	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("not a range: %q", s)
	}
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// MinutesUsedByJobs expands every job's cron minute field and unions them.
func MinutesUsedByJobs(cronExpressions []string) (map[int]struct{}, error) {
	used := make(map[int]struct{})
	for _, expr := range cronExpressions {
		fields := strings.Fields(expr)
		if len(fields) == 0 {
			continue
		}
		minutes, err := ParseMinuteField(fields[0])
		if err != nil {
			return nil, err
		}
		for m := range minutes {
			used[m] = struct{}{}
		}
	}
	return used, nil
}

// FindNextAvailable starts at (startHour, startMinute) rounded down to the
// nearest 5-minute boundary and walks forward in 5-minute steps, wrapping at
// 24:00, until it finds a minute not in backupMinutes. Falls back to the
// original start time if a full day's worth of slots are all taken.
func FindNextAvailable(startHour, startMinute int, backupMinutes map[int]struct{}) (hour, minute int) {
	hour = startHour
	minute = (startMinute / 5) * 5

	const maxIterations = 24 * 60 / 5
	for i := 0; i < maxIterations; i++ {
		if _, conflict := backupMinutes[minute]; !conflict {
			return hour, minute
		}
		minute += 5
		if minute >= 60 {
			minute = 0
			hour++
			if hour >= 24 {
				hour = 0
			}
		}
	}
	return startHour, (startMinute / 5) * 5
}

// GenerateRestartCron finds the next available slot and renders it as a
// 5-field cron expression with the given day/month/weekday patterns.
func GenerateRestartCron(startHour, startMinute int, backupMinutes map[int]struct{}, dayPattern, monthPattern, weekdayPattern string) string {
	hour, minute := FindNextAvailable(startHour, startMinute, backupMinutes)
	return fmt.Sprintf("%d %d %s %s %s", minute, hour, dayPattern, monthPattern, weekdayPattern)
}

// ConflictSummary reports the overlap between backup and restart job minutes
// and which 5-minute slots remain free.
type ConflictSummary struct {
	BackupMinutes   []int
	RestartMinutes  []int
	Conflicts       []int
	Available5Min   []int
}

func Summarize(backupMinutes, restartMinutes map[int]struct{}) ConflictSummary {
	conflicts := make(map[int]struct{})
	for m := range backupMinutes {
		if _, ok := restartMinutes[m]; ok {
			conflicts[m] = struct{}{}
		}
	}

	var available []int
	for m := 0; m < 60; m += 5 {
		if _, busy := backupMinutes[m]; !busy {
			available = append(available, m)
		}
	}

	return ConflictSummary{
		BackupMinutes:  sortedKeys(backupMinutes),
		RestartMinutes: sortedKeys(restartMinutes),
		Conflicts:      sortedKeys(conflicts),
		Available5Min:  available,
	}
}

func sortedKeys(set map[int]struct{}) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

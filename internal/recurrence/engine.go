// Package recurrence expands appointment recurrence rules into concrete
// occurrences. Rules travel on the wire as a compact iCalendar-style string
// (e.g. "FREQ=WEEKLY;UNTIL=20260601T000000Z;BYDAY=MO,WE") and are expanded
// server-side when a recurring appointment is created.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates an occurrence for each day within the range.
	FrequencyDaily
	// FrequencyWeekly generates occurrences for the selected weekdays.
	FrequencyWeekly
)

// Rule describes a parsed recurrence configuration.
type Rule struct {
	Frequency Frequency
	Weekdays  []time.Weekday
	Until     *time.Time
}

// Occurrence is a generated instance of a recurring appointment.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

var (
	// ErrInvalidRule indicates the rule string could not be parsed.
	ErrInvalidRule = errors.New("recurrence: invalid rule")
	// ErrInvalidDuration indicates the base appointment duration is invalid.
	ErrInvalidDuration = errors.New("recurrence: appointment duration must be positive")
)

var weekdayTokens = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// ParseRule parses a rule string of semicolon-separated KEY=VALUE pairs.
// Supported keys: FREQ (DAILY|WEEKLY), UNTIL, BYDAY (comma-separated two
// letter weekday tokens). Unknown keys are rejected.
func ParseRule(value string) (Rule, error) {
	rule := Rule{}

	for _, part := range strings.Split(strings.TrimSpace(value), ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, found := strings.Cut(part, "=")
		if !found {
			return Rule{}, fmt.Errorf("%w: missing '=' in %q", ErrInvalidRule, part)
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			switch strings.ToUpper(strings.TrimSpace(val)) {
			case "DAILY":
				rule.Frequency = FrequencyDaily
			case "WEEKLY":
				rule.Frequency = FrequencyWeekly
			default:
				return Rule{}, fmt.Errorf("%w: unsupported frequency %q", ErrInvalidRule, val)
			}
		case "UNTIL":
			until, err := parseUntil(strings.TrimSpace(val))
			if err != nil {
				return Rule{}, err
			}
			rule.Until = &until
		case "BYDAY":
			for _, token := range strings.Split(val, ",") {
				weekday, ok := weekdayTokens[strings.ToUpper(strings.TrimSpace(token))]
				if !ok {
					return Rule{}, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, token)
				}
				rule.Weekdays = append(rule.Weekdays, weekday)
			}
		default:
			return Rule{}, fmt.Errorf("%w: unknown key %q", ErrInvalidRule, key)
		}
	}

	if rule.Frequency == FrequencyUnspecified {
		return Rule{}, fmt.Errorf("%w: FREQ is required", ErrInvalidRule)
	}

	return rule, nil
}

func parseUntil(value string) (time.Time, error) {
	for _, layout := range []string{"20060102T150405Z", time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse UNTIL %q", ErrInvalidRule, value)
}

// Expand generates the occurrences of a rule anchored at the base
// appointment. The base occurrence itself is always first. Generation is
// bounded by the rule's UNTIL and the supplied horizon, whichever comes
// first; the horizon keeps open-ended rules finite.
func Expand(rule Rule, baseStart, baseEnd, horizon time.Time) ([]Occurrence, error) {
	if !baseEnd.After(baseStart) {
		return nil, ErrInvalidDuration
	}
	duration := baseEnd.Sub(baseStart)

	upper := horizon
	if rule.Until != nil && rule.Until.Before(upper) {
		upper = *rule.Until
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}
	if rule.Frequency == FrequencyWeekly && len(weekdaySet) == 0 {
		// A weekly rule without BYDAY repeats on the base weekday.
		weekdaySet[baseStart.Weekday()] = struct{}{}
	}

	occurrences := []Occurrence{{Start: baseStart, End: baseEnd}}
	for current := baseStart.AddDate(0, 0, 1); !current.After(upper); current = current.AddDate(0, 0, 1) {
		if len(weekdaySet) > 0 {
			if _, ok := weekdaySet[current.Weekday()]; !ok {
				continue
			}
		}
		occurrences = append(occurrences, Occurrence{Start: current, End: current.Add(duration)})
	}

	return occurrences, nil
}

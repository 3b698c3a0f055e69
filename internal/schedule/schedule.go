// Package schedule translates the human-readable schedule strings used in
// workforce config into concrete recurring triggers.
//
// Schedule strings are authored by hand in free-form YAML, not a typed DSL,
// so Parse is total: any input resolves to a trigger (or the manual no-op),
// and malformed input degrades to a conservative default instead of failing
// orchestrator startup.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TriggerKind discriminates the recurring-trigger variants.
type TriggerKind string

const (
	// TriggerNone means the agent only runs on explicit request.
	TriggerNone TriggerKind = "none"
	// TriggerInterval fires every Interval.
	TriggerInterval TriggerKind = "interval"
	// TriggerDaily fires once a day at Hour:Minute.
	TriggerDaily TriggerKind = "daily"
)

// DefaultInterval is the fallback applied to schedule strings that match no
// recognized form. Conservative on purpose: a typo in config should degrade
// to occasional runs, not a run storm.
const DefaultInterval = 6 * time.Hour

// ThriceDailyInterval approximates "3x daily" as three evenly spaced runs.
const ThriceDailyInterval = 8 * time.Hour

// Trigger is a concrete recurring-execution rule derived from a schedule
// string. The zero value is not meaningful; construct via Parse.
type Trigger struct {
	Kind     TriggerKind
	Interval time.Duration // set when Kind == TriggerInterval
	Hour     int           // set when Kind == TriggerDaily, 24h clock
	Minute   int           // set when Kind == TriggerDaily

	// Fallback is true when the input matched no recognized form and the
	// default interval was substituted. Callers log it so misconfiguration
	// stays diagnosable without blocking startup.
	Fallback bool
}

// Manual reports whether the trigger never auto-fires.
func (t Trigger) Manual() bool {
	return t.Kind == TriggerNone
}

// CronSpec renders the trigger as a robfig/cron schedule expression.
// Manual triggers render as the empty string.
func (t Trigger) CronSpec() string {
	switch t.Kind {
	case TriggerInterval:
		return "@every " + t.Interval.String()
	case TriggerDaily:
		return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour)
	default:
		return ""
	}
}

// String returns a compact human-readable description for logs.
func (t Trigger) String() string {
	switch t.Kind {
	case TriggerNone:
		return "manual"
	case TriggerInterval:
		return "every " + t.Interval.String()
	case TriggerDaily:
		return fmt.Sprintf("daily at %02d:%02d", t.Hour, t.Minute)
	default:
		return string(t.Kind)
	}
}

// Parse converts a human-readable schedule string into a Trigger. Matching is
// case-insensitive and runs in priority order: "manual", "every N unit",
// "daily at Ham/pm", the "3x daily" shorthand, then the default-interval
// fallback. Parse never returns an error: every input maps to exactly one
// trigger.
func Parse(s string) Trigger {
	s = strings.ToLower(strings.TrimSpace(s))

	if s == "manual" {
		return Trigger{Kind: TriggerNone}
	}

	if rest, ok := strings.CutPrefix(s, "every "); ok {
		if t, ok := parseEvery(rest); ok {
			return t
		}
	}

	if rest, ok := strings.CutPrefix(s, "daily at "); ok {
		if t, ok := parseDailyAt(rest); ok {
			return t
		}
	}

	if strings.Contains(s, "3x daily") {
		return Trigger{Kind: TriggerInterval, Interval: ThriceDailyInterval}
	}

	return Trigger{Kind: TriggerInterval, Interval: DefaultInterval, Fallback: true}
}

// parseEvery handles the "<N> <unit>" remainder of an "every" schedule.
// Anything other than exactly two tokens with a positive count and a known
// unit falls through to the default.
func parseEvery(rest string) (Trigger, bool) {
	parts := strings.Fields(rest)
	if len(parts) != 2 {
		return Trigger{}, false
	}

	n, err := strconv.Atoi(parts[0])
	if err != nil || n <= 0 {
		return Trigger{}, false
	}

	var unit time.Duration
	switch {
	case strings.Contains(parts[1], "minute"):
		unit = time.Minute
	case strings.Contains(parts[1], "hour"):
		unit = time.Hour
	case strings.Contains(parts[1], "day"):
		unit = 24 * time.Hour
	default:
		return Trigger{}, false
	}

	return Trigger{Kind: TriggerInterval, Interval: time.Duration(n) * unit}, true
}

// parseDailyAt handles the "<H>am|pm" remainder of a "daily at" schedule.
// 12am maps to hour 0 and 12pm to hour 12; other pm hours add 12.
func parseDailyAt(rest string) (Trigger, bool) {
	rest = strings.TrimSpace(rest)

	var pm bool
	switch {
	case strings.HasSuffix(rest, "am"):
		rest = strings.TrimSuffix(rest, "am")
	case strings.HasSuffix(rest, "pm"):
		rest = strings.TrimSuffix(rest, "pm")
		pm = true
	default:
		return Trigger{}, false
	}

	hour, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || hour < 1 || hour > 12 {
		return Trigger{}, false
	}

	switch {
	case pm && hour != 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}

	return Trigger{Kind: TriggerDaily, Hour: hour, Minute: 0}, true
}

// Package recurrence expands recurring reservation series into concrete
// reservation instances.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	rrule "github.com/teambition/rrule-go"
)

// The supported recurrence grammar is a small RRULE subset:
// FREQ=DAILY|WEEKLY|MONTHLY, optional INTERVAL=n, optional BYDAY=MO,..,SU,
// optional BYMONTHDAY=n. Anything else is rejected.

var frequencies = map[string]rrule.Frequency{
	"DAILY":   rrule.DAILY,
	"WEEKLY":  rrule.WEEKLY,
	"MONTHLY": rrule.MONTHLY,
}

var weekdays = map[string]rrule.Weekday{
	"MO": rrule.MO,
	"TU": rrule.TU,
	"WE": rrule.WE,
	"TH": rrule.TH,
	"FR": rrule.FR,
	"SA": rrule.SA,
	"SU": rrule.SU,
}

// ParseRule parses the supported RRULE subset anchored at dtstart. The anchor
// fixes the phase of interval rules (biweekly counts from the series start).
func ParseRule(rule string, dtstart time.Time) (*rrule.RRule, error) {
	trimmed := strings.TrimSpace(rule)
	trimmed = strings.TrimPrefix(trimmed, "RRULE:")
	if trimmed == "" {
		return nil, fmt.Errorf("recurrence: empty rule")
	}

	opt := rrule.ROption{Dtstart: dtstart, Interval: 1}
	seenFreq := false

	for _, part := range strings.Split(trimmed, ";") {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("recurrence: malformed component %q", part)
		}
		key := strings.ToUpper(strings.TrimSpace(kv[0]))
		value := strings.ToUpper(strings.TrimSpace(kv[1]))

		switch key {
		case "FREQ":
			freq, ok := frequencies[value]
			if !ok {
				return nil, fmt.Errorf("recurrence: unsupported frequency %q", value)
			}
			opt.Freq = freq
			seenFreq = true
		case "INTERVAL":
			interval, errParse := strconv.Atoi(value)
			if errParse != nil || interval < 1 {
				return nil, fmt.Errorf("recurrence: invalid interval %q", value)
			}
			opt.Interval = interval
		case "BYDAY":
			for _, code := range strings.Split(value, ",") {
				day, ok := weekdays[strings.TrimSpace(code)]
				if !ok {
					return nil, fmt.Errorf("recurrence: invalid weekday %q", code)
				}
				opt.Byweekday = append(opt.Byweekday, day)
			}
		case "BYMONTHDAY":
			dom, errParse := strconv.Atoi(value)
			if errParse != nil || dom < 1 || dom > 31 {
				return nil, fmt.Errorf("recurrence: invalid month day %q", value)
			}
			opt.Bymonthday = []int{dom}
		default:
			return nil, fmt.Errorf("recurrence: unsupported component %q", key)
		}
	}

	if !seenFreq {
		return nil, fmt.Errorf("recurrence: missing FREQ")
	}
	return rrule.NewRRule(opt)
}

// parseTimeOfDay converts an HH:MM string into an offset from midnight.
func parseTimeOfDay(value string) (time.Duration, error) {
	t, errParse := time.Parse("15:04", strings.TrimSpace(value))
	if errParse != nil {
		return 0, fmt.Errorf("recurrence: invalid time of day %q", value)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// dateOnly truncates a timestamp to midnight UTC.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

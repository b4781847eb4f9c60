// Package ical implements a lenient line-level parser for third-party
// booking calendars. OTA feeds routinely violate RFC 5545, so the parser
// never fails on malformed input: it skips what it cannot understand and
// only emits events that carry a DTSTART.
package ical

import (
	"regexp"
	"strings"
	"time"
)

// Property is a raw ICS property value together with its ;-delimited
// parameters (e.g. CN on ATTENDEE lines).
type Property struct {
	Params map[string]string `json:"params,omitempty"`
	Value  string            `json:"value"`
}

// Event is a single VEVENT as found in a feed. Dates are kept as strings
// in the shape produced by normalizeDate; downstream validation rejects
// anything that did not normalize to a usable form.
type Event struct {
	UID         string     `json:"uid"`
	Start       string     `json:"start"`
	End         string     `json:"end,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	DTStamp     string     `json:"dtStamp,omitempty"`
	Attendees   []Property `json:"attendees,omitempty"`
	Organizer   *Property  `json:"organizer,omitempty"`
}

var textUnescaper = strings.NewReplacer(
	`\n`, "\n",
	`\N`, "\n",
	`\t`, "\t",
	`\\`, `\`,
	`\;`, ";",
	`\,`, ",",
)

// Parse tokenizes raw calendar text into events. It is pure and never
// returns an error; an empty or garbage payload simply yields no events.
func Parse(text string) []Event {
	lines := unfold(splitLines(text))

	events := []Event{}
	var current *Event

	for _, line := range lines {
		switch {
		case strings.EqualFold(line, "BEGIN:VEVENT"):
			current = &Event{} //nolint:exhaustruct //fields accumulate below
		case strings.EqualFold(line, "END:VEVENT"):
			// Partial events without a start never reach downstream stages.
			if current != nil && current.Start != "" {
				events = append(events, *current)
			}
			current = nil
		case current != nil:
			applyProperty(current, line)
		}
	}

	return events
}

// splitLines handles any line-ending style (CRLF, LF, bare CR).
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// unfold reassembles folded logical lines before any property is
// interpreted: a physical line starting with a single space or tab
// continues the previous one with that one marker stripped.
func unfold(physical []string) []string {
	logical := []string{}

	for _, line := range physical {
		isContinuation := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if isContinuation && len(logical) > 0 {
			logical[len(logical)-1] += line[1:]
			continue
		}
		logical = append(logical, line)
	}

	return logical
}

func applyProperty(event *Event, line string) {
	name, rawParams, value, ok := splitProperty(line)
	if !ok {
		return
	}

	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "UID":
		event.UID = value
	case "DTSTART":
		event.Start = normalizeDate(value, rawParams)
	case "DTEND":
		event.End = normalizeDate(value, rawParams)
	case "DTSTAMP":
		event.DTStamp = normalizeDate(value, rawParams)
	case "SUMMARY":
		event.Summary = textUnescaper.Replace(value)
	case "DESCRIPTION":
		event.Description = textUnescaper.Replace(value)
	case "STATUS":
		event.Status = value
	case "DURATION":
		event.Duration = value
	case "ATTENDEE":
		event.Attendees = append(event.Attendees, Property{
			Params: parseParams(rawParams),
			Value:  value,
		})
	case "ORGANIZER":
		event.Organizer = &Property{
			Params: parseParams(rawParams),
			Value:  value,
		}
	}
}

// splitProperty cuts a logical line into name, raw parameters and value at
// the first colon. Some feeds drop the colon and glue the value onto the
// last parameter ("DTSTART;VALUE=DATE=20250910"); those lines are split at
// the last equals sign instead of being thrown away.
func splitProperty(line string) (string, string, string, bool) {
	colon := strings.Index(line, ":")
	if colon >= 0 {
		left, value := line[:colon], line[colon+1:]

		name, rawParams := left, ""
		if semi := strings.Index(left, ";"); semi >= 0 {
			name, rawParams = left[:semi], left[semi+1:]
		}

		return name, rawParams, value, true
	}

	semi := strings.Index(line, ";")
	if semi < 0 {
		return "", "", "", false
	}

	rest := line[semi+1:]
	eq := strings.LastIndex(rest, "=")
	if eq < 0 {
		return "", "", "", false
	}

	return line[:semi], rest[:eq], rest[eq+1:], true
}

// parseParams splits ;-delimited KEY=VALUE parameters. Quoted values keep
// their content, quotes stripped.
func parseParams(raw string) map[string]string {
	params := map[string]string{}

	for _, part := range strings.Split(raw, ";") {
		if part == "" {
			continue
		}

		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}

		params[strings.ToUpper(strings.TrimSpace(key))] = strings.Trim(value, `"`)
	}

	return params
}

var (
	dateOnlyRe = regexp.MustCompile(`^\d{8}$`)
	dateTimeRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})(Z?)$`)
	isoDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// Layouts attempted by the generic fallback, in order. Real feeds have
// been seen emitting all of these.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"20060102T1504",
	"01/02/2006",
	"02.01.2006",
}

// normalizeDate converts the zoo of OTA date spellings into either
// YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS[Z]. It never fails: when nothing
// matches, the original string is returned and downstream validation
// rejects it.
func normalizeDate(value, rawParams string) string {
	value = strings.TrimSpace(value)

	allDay := strings.Contains(strings.ToUpper(rawParams), "VALUE=DATE")
	if dateOnlyRe.MatchString(value) {
		return hyphenate(value)
	}

	// A VALUE=DATE parameter wins even when the value drags a time along.
	if allDay && len(value) >= 8 && dateOnlyRe.MatchString(value[:8]) {
		return hyphenate(value[:8])
	}

	if m := dateTimeRe.FindStringSubmatch(value); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3] + "T" + m[4] + ":" + m[5] + ":" + m[6] + m[7]
	}

	if isoDateRe.MatchString(value) {
		return value
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return value
}

func hyphenate(yyyymmdd string) string {
	return yyyymmdd[0:4] + "-" + yyyymmdd[4:6] + "-" + yyyymmdd[6:8]
}

// DatePortion strips any time component off a normalized date value.
func DatePortion(value string) string {
	date, _, _ := strings.Cut(value, "T")
	return date
}

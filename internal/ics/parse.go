package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "lunacal/internal/log"
)

// ParsedEvent is the normalized representation of a VEVENT. Recurrence
// expansion operates on this type.
type ParsedEvent struct {
	Feed Feed

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	Start   time.Time
	End     time.Time
	AllDay  bool
	StartTZ string

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present) in event's own timezone
	IsOverride bool       // true if this VEVENT overrides a recurring instance
}

// ParsedTodo is the normalized representation of a VTODO, surfaced as a
// reminder. Todos are not recurrence-expanded; a due date (or its
// absence) is all the agenda needs.
type ParsedTodo struct {
	Feed Feed

	UID       string
	Summary   string
	Due       *time.Time
	Completed bool
}

// ParseResult groups the components of one parsed feed body.
type ParseResult struct {
	Events []ParsedEvent
	Todos  []ParsedTodo
}

// Parse parses a single ICS payload into normalized events and todos.
//
//   - The underlying library's VTIMEZONE/TZID handling constructs
//     proper time.Time values (with Location set).
//   - All-day events are detected by inspecting the DTSTART value form.
//   - RRULE/EXDATE/RECURRENCE-ID are recorded but not expanded here;
//     expansion happens in expand.go bounded to a requested interval.
func Parse(feed Feed, body []byte) (ParseResult, error) {
	var result ParseResult
	if len(body) == 0 {
		return result, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("feed parse failed", err, "id", feed.ID, "url", redactURL(feed.URL))
		return result, err
	}

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(feed, comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("vevent parse failed", perr, "id", feed.ID, "url", redactURL(feed.URL))
			continue
		}
		result.Events = append(result.Events, ev)
	}

	for _, comp := range cal.Components {
		todo, ok := comp.(*ical.VTodo)
		if !ok {
			continue
		}
		parsed, perr := parseVTodo(feed, todo)
		if perr != nil {
			appLog.Error("vtodo parse failed", perr, "id", feed.ID, "url", redactURL(feed.URL))
			continue
		}
		result.Todos = append(result.Todos, parsed)
	}

	appLog.Debug("feed parse completed", "id", feed.ID, "url", redactURL(feed.URL),
		"event_count", len(result.Events), "todo_count", len(result.Todos))
	return result, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Feed = feed

	// UID
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	// SEQUENCE (optional, used for overrides/versioning)
	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	// Summary / Description / Location
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// DTSTART / DTEND via the library's timezone-aware helpers.
	start, _ := ve.GetStartAt()
	end, _ := ve.GetEndAt()
	out.Start = start
	out.End = end

	// Detect all-day: VALUE=DATE or a value without a time component.
	allDay := false
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		val := dtStartProp.Value
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				allDay = true
			}
			if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
				out.StartTZ = tzs[0]
			}
		}
		if !strings.Contains(val, "T") {
			allDay = true
		}
	}
	out.AllDay = allDay

	// RRULE (raw string only; expansion is in expand.go).
	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE (can appear multiple times, each with a value list).
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	// RECURRENCE-ID (overridden instance). Raw property name avoids
	// constant mismatch across library versions.
	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

func parseVTodo(feed Feed, vt *ical.VTodo) (ParsedTodo, error) {
	var out ParsedTodo
	out.Feed = feed

	uidProp := vt.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := vt.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	// DUE / STATUS via raw property names, same reasoning as above.
	if dueProp := vt.GetProperty("DUE"); dueProp != nil {
		if t, err := parseICSTime(dueProp.Value); err == nil {
			out.Due = &t
		}
	}
	if statusProp := vt.GetProperty("STATUS"); statusProp != nil {
		out.Completed = strings.EqualFold(strings.TrimSpace(statusProp.Value), "COMPLETED")
	}
	if !out.Completed && vt.GetProperty("COMPLETED") != nil {
		out.Completed = true
	}

	return out, nil
}

// parseICSTime parses a basic ICS date/date-time string. A simplified
// helper for EXDATE/RECURRENCE-ID/DUE where full parameter context is
// not available; expansion handles tz normalization later.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		const layout = "20060102T150405Z"
		return time.Parse(layout, v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		const layout = "20060102T150405"
		return time.ParseInLocation(layout, v, time.Local)
	}

	// Date-only (all-day), e.g., 20250101
	const layoutDate = "20060102"
	return time.ParseInLocation(layoutDate, v, time.Local)
}

package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"lunacal/internal/dates"
	appLog "lunacal/internal/log"
	"lunacal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Location is the timezone all occurrences are normalized into.
	// If nil, time.Local is used.
	Location *time.Location

	// Interval is the half-open [Start, End) window occurrences must
	// intersect.
	Interval dates.Interval

	// MaxOccurrencesPerEvent caps expansion to avoid pathological or
	// unbounded rules. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandEvents expands parsed events into concrete agenda items within
// the configured interval. It handles:
//
//   - Single non-recurring events
//   - RRULE-based recurrence (DAILY/WEEKLY/MONTHLY/YEARLY, etc.)
//   - EXDATE for exception removal
//   - RECURRENCE-ID overrides
//   - All-day semantics
//
// Item IDs are "event:<uid>:<startUnix>", stable across re-fetches of
// the same logical occurrence.
func ExpandEvents(events []ParsedEvent, cfg ExpandConfig) ([]model.AgendaItem, error) {
	if cfg.Interval.End.Before(cfg.Interval.Start) {
		return nil, errors.New("expand: interval end is before start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID.
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	items := make([]model.AgendaItem, 0)
	for uid, baseEvents := range baseByUID {
		overrides := overridesByUID[uid]
		truncated := false

		for _, ev := range baseEvents {
			occ, hitCap := expandEvent(ev, overrides, cfg)
			if hitCap {
				truncated = true
			}
			items = append(items, occ...)
		}

		if truncated {
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	return items, nil
}

// ExpandTodos converts parsed todos into reminder items. Only todos due
// inside the interval are kept; undated todos are skipped here (they
// have no day to appear on).
func ExpandTodos(todos []ParsedTodo, cfg ExpandConfig) []model.AgendaItem {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	items := make([]model.AgendaItem, 0, len(todos))
	for _, todo := range todos {
		if todo.Due == nil {
			continue
		}
		due := todo.Due.In(cfg.Location)
		if !cfg.Interval.Contains(due) {
			continue
		}
		items = append(items, model.AgendaItem{
			ID:          fmt.Sprintf("reminder:%s:%d", todo.UID, due.Unix()),
			Kind:        model.AgendaKindReminder,
			SourceID:    todo.Feed.ID,
			SourceTitle: feedTitle(todo.Feed),
			Title:       todo.Summary,
			Start:       &due,
			End:         &due,
			AllDay:      false,
			Completed:   todo.Completed,
		})
	}
	return items
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.AgendaItem, bool) {
	// Single non-recurring event
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.AgendaItem {
	// Quick range check: skip events that do not intersect the window.
	if !rangesOverlap(ev.Start, ev.End, cfg.Interval.Start, cfg.Interval.End) {
		return nil
	}

	baseStart := ev.Start
	baseEnd := ev.End

	// Apply any override whose RECURRENCE-ID matches this start.
	if o, ok := findOverrideForStart(overrides, baseStart); ok {
		baseStart = o.Start
		baseEnd = o.End
		ev = o
	}

	return []model.AgendaItem{makeItem(ev, baseStart, baseEnd, cfg.Location)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.AgendaItem, bool) {
	out := make([]model.AgendaItem, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}

	// Anchor the rule at the event's DTSTART.
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)

	// Apply EXDATEs, aligned with the event's own location.
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Adjust range into the event's original location for Between().
	rangeStart := cfg.Interval.Start.In(ev.Start.Location())
	rangeEnd := cfg.Interval.End.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range occTimes {
		// Between is inclusive on both ends; the window is half-open.
		if !occStart.Before(rangeEnd) {
			continue
		}

		var occEnd time.Time
		if ev.AllDay {
			// All-day: [date 00:00, next day 00:00) in event's timezone.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(24 * time.Hour)
		} else {
			// Preserve original duration.
			occEnd = occStart.Add(ev.End.Sub(ev.Start))
		}

		baseStart := occStart
		baseEnd := occEnd
		baseEv := ev

		if o, ok := findOverrideForStart(overrides, occStart); ok {
			baseStart = o.Start
			baseEnd = o.End
			baseEv = o
		}

		out = append(out, makeItem(baseEv, baseStart, baseEnd, cfg.Location))
	}

	return out, hitCap
}

// findOverrideForStart finds an override event whose RECURRENCE-ID
// matches the given baseStart with exact time equality.
func findOverrideForStart(overrides []ParsedEvent, baseStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(baseStart.Location()).Equal(baseStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeItem converts a (possibly overridden) ParsedEvent plus a concrete
// start/end into an AgendaItem normalized into loc.
func makeItem(ev ParsedEvent, start, end time.Time, loc *time.Location) model.AgendaItem {
	startLocal := start.In(loc)
	endLocal := end.In(loc)

	return model.AgendaItem{
		ID:          fmt.Sprintf("event:%s:%d", ev.UID, startLocal.Unix()),
		Kind:        model.AgendaKindEvent,
		SourceID:    ev.Feed.ID,
		SourceTitle: feedTitle(ev.Feed),
		Title:       ev.Summary,
		Start:       &startLocal,
		End:         &endLocal,
		AllDay:      ev.AllDay,
		Completed:   false,
	}
}

func feedTitle(feed Feed) string {
	if feed.Name != "" {
		return feed.Name
	}
	return feed.ID
}

// rangesOverlap reports whether [aStart, aEnd) intersects [bStart, bEnd).
func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

package ics

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunacal/internal/dates"
	"lunacal/internal/model"
)

var testFeed = Feed{ID: "work", URL: "https://example.com/cal.ics", Name: "Work"}

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func window(start, end time.Time) ExpandConfig {
	return ExpandConfig{
		Location: time.UTC,
		Interval: dates.Interval{Start: start, End: end},
	}
}

func TestExpandSingleEvent(t *testing.T) {
	ev := ParsedEvent{
		Feed:    testFeed,
		UID:     "single-1",
		Summary: "Dentist",
		Start:   utc(2026, time.February, 10, 9, 0),
		End:     utc(2026, time.February, 10, 10, 0),
	}

	items, err := ExpandEvents([]ParsedEvent{ev},
		window(utc(2026, time.February, 1, 0, 0), utc(2026, time.March, 1, 0, 0)))
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "event:single-1:"+unixStr(utc(2026, time.February, 10, 9, 0)), it.ID)
	assert.Equal(t, model.AgendaKindEvent, it.Kind)
	assert.Equal(t, "work", it.SourceID)
	assert.Equal(t, "Work", it.SourceTitle)
	assert.Equal(t, "Dentist", it.Title)
}

func TestExpandSkipsEventOutsideWindow(t *testing.T) {
	ev := ParsedEvent{
		Feed:  testFeed,
		UID:   "far-away",
		Start: utc(2026, time.June, 1, 9, 0),
		End:   utc(2026, time.June, 1, 10, 0),
	}

	items, err := ExpandEvents([]ParsedEvent{ev},
		window(utc(2026, time.February, 1, 0, 0), utc(2026, time.March, 1, 0, 0)))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExpandWindowEndIsExclusive(t *testing.T) {
	ev := ParsedEvent{
		Feed:  testFeed,
		UID:   "at-end",
		Start: utc(2026, time.February, 5, 0, 0),
		End:   utc(2026, time.February, 5, 1, 0),
	}

	items, err := ExpandEvents([]ParsedEvent{ev},
		window(utc(2026, time.February, 1, 0, 0), utc(2026, time.February, 5, 0, 0)))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExpandDailyRecurrenceWithExdate(t *testing.T) {
	ev := ParsedEvent{
		Feed:     testFeed,
		UID:      "daily-1",
		Summary:  "Standup",
		Start:    utc(2026, time.February, 1, 9, 0),
		End:      utc(2026, time.February, 1, 9, 15),
		RawRRule: "FREQ=DAILY",
		ExDates:  []time.Time{utc(2026, time.February, 3, 9, 0)},
	}

	items, err := ExpandEvents([]ParsedEvent{ev},
		window(utc(2026, time.February, 1, 0, 0), utc(2026, time.February, 5, 0, 0)))
	require.NoError(t, err)
	require.Len(t, items, 3)

	days := make([]int, 0, len(items))
	for _, it := range items {
		require.NotNil(t, it.Start)
		days = append(days, it.Start.Day())
		assert.Equal(t, 15*time.Minute, it.End.Sub(*it.Start))
	}
	assert.ElementsMatch(t, []int{1, 2, 4}, days)
}

func TestExpandRecurrenceOverride(t *testing.T) {
	rid := utc(2026, time.February, 2, 9, 0)
	base := ParsedEvent{
		Feed:     testFeed,
		UID:      "daily-1",
		Summary:  "Standup",
		Start:    utc(2026, time.February, 1, 9, 0),
		End:      utc(2026, time.February, 1, 9, 15),
		RawRRule: "FREQ=DAILY",
	}
	override := ParsedEvent{
		Feed:       testFeed,
		UID:        "daily-1",
		Summary:    "Standup (moved)",
		Start:      utc(2026, time.February, 2, 14, 0),
		End:        utc(2026, time.February, 2, 14, 30),
		Recurrence: &rid,
		IsOverride: true,
	}

	items, err := ExpandEvents([]ParsedEvent{base, override},
		window(utc(2026, time.February, 1, 0, 0), utc(2026, time.February, 4, 0, 0)))
	require.NoError(t, err)
	require.Len(t, items, 3)

	var moved *model.AgendaItem
	for i := range items {
		if items[i].Title == "Standup (moved)" {
			moved = &items[i]
		}
	}
	require.NotNil(t, moved)
	assert.Equal(t, 14, moved.Start.Hour())
	assert.Equal(t, 30*time.Minute, moved.End.Sub(*moved.Start))
}

func TestExpandAllDayRecurrence(t *testing.T) {
	ev := ParsedEvent{
		Feed:     testFeed,
		UID:      "allday-1",
		Summary:  "Gym day",
		Start:    utc(2026, time.February, 2, 0, 0),
		End:      utc(2026, time.February, 3, 0, 0),
		AllDay:   true,
		RawRRule: "FREQ=WEEKLY",
	}

	items, err := ExpandEvents([]ParsedEvent{ev},
		window(utc(2026, time.February, 1, 0, 0), utc(2026, time.February, 15, 0, 0)))
	require.NoError(t, err)
	require.Len(t, items, 2)

	for _, it := range items {
		assert.True(t, it.AllDay)
		assert.Equal(t, 24*time.Hour, it.End.Sub(*it.Start))
		assert.Equal(t, 0, it.Start.Hour())
	}
}

func TestExpandInvalidRRuleSkipsEvent(t *testing.T) {
	ev := ParsedEvent{
		Feed:     testFeed,
		UID:      "broken",
		Start:    utc(2026, time.February, 1, 9, 0),
		End:      utc(2026, time.February, 1, 10, 0),
		RawRRule: "FREQ=NONSENSE",
	}

	items, err := ExpandEvents([]ParsedEvent{ev},
		window(utc(2026, time.February, 1, 0, 0), utc(2026, time.March, 1, 0, 0)))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExpandTodos(t *testing.T) {
	dueIn := utc(2026, time.February, 5, 12, 0)
	dueOut := utc(2026, time.June, 1, 12, 0)

	todos := []ParsedTodo{
		{Feed: testFeed, UID: "todo-1", Summary: "Pay rent", Due: &dueIn},
		{Feed: testFeed, UID: "todo-2", Summary: "Later", Due: &dueOut},
		{Feed: testFeed, UID: "todo-3", Summary: "Someday"},
	}

	items := ExpandTodos(todos,
		window(utc(2026, time.February, 1, 0, 0), utc(2026, time.March, 1, 0, 0)))

	require.Len(t, items, 1)
	assert.Equal(t, "reminder:todo-1:"+unixStr(dueIn), items[0].ID)
	assert.Equal(t, model.AgendaKindReminder, items[0].Kind)
	assert.Equal(t, "Pay rent", items[0].Title)
}

func TestExpandRejectsInvertedInterval(t *testing.T) {
	_, err := ExpandEvents(nil,
		window(utc(2026, time.March, 1, 0, 0), utc(2026, time.February, 1, 0, 0)))
	assert.Error(t, err)
}

func unixStr(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icsBody(lines ...string) []byte {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//lunacal//test//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

func TestParseEventsAndTodos(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:single-1",
		"SUMMARY:Dentist",
		"LOCATION:Downtown",
		"DTSTART:20260210T090000Z",
		"DTEND:20260210T100000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:daily-1",
		"SUMMARY:Standup",
		"DTSTART:20260201T090000Z",
		"DTEND:20260201T091500Z",
		"RRULE:FREQ=DAILY",
		"EXDATE:20260203T090000Z",
		"END:VEVENT",
		"BEGIN:VTODO",
		"UID:todo-1",
		"SUMMARY:Pay rent",
		"DUE:20260205T120000Z",
		"STATUS:NEEDS-ACTION",
		"END:VTODO",
	)

	result, err := Parse(testFeed, body)
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	require.Len(t, result.Todos, 1)

	single := result.Events[0]
	assert.Equal(t, "single-1", single.UID)
	assert.Equal(t, "Dentist", single.Summary)
	assert.Equal(t, "Downtown", single.Location)
	assert.False(t, single.AllDay)
	assert.True(t, single.Start.Equal(time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)))

	daily := result.Events[1]
	assert.Equal(t, "FREQ=DAILY", daily.RawRRule)
	require.Len(t, daily.ExDates, 1)
	assert.True(t, daily.ExDates[0].Equal(time.Date(2026, time.February, 3, 9, 0, 0, 0, time.UTC)))

	todo := result.Todos[0]
	assert.Equal(t, "todo-1", todo.UID)
	assert.Equal(t, "Pay rent", todo.Summary)
	require.NotNil(t, todo.Due)
	assert.False(t, todo.Completed)
}

func TestParseAllDayEvent(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:allday-1",
		"SUMMARY:Holiday",
		"DTSTART;VALUE=DATE:20260217",
		"DTEND;VALUE=DATE:20260218",
		"END:VEVENT",
	)

	result, err := Parse(testFeed, body)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.True(t, result.Events[0].AllDay)
}

func TestParseRecurrenceOverride(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:daily-1",
		"SUMMARY:Standup (moved)",
		"RECURRENCE-ID:20260202T090000Z",
		"DTSTART:20260202T140000Z",
		"DTEND:20260202T143000Z",
		"END:VEVENT",
	)

	result, err := Parse(testFeed, body)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	ev := result.Events[0]
	assert.True(t, ev.IsOverride)
	require.NotNil(t, ev.Recurrence)
	assert.True(t, ev.Recurrence.Equal(time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC)))
}

func TestParseCompletedTodo(t *testing.T) {
	body := icsBody(
		"BEGIN:VTODO",
		"UID:todo-done",
		"SUMMARY:Shipped",
		"DUE:20260205T120000Z",
		"STATUS:COMPLETED",
		"END:VTODO",
	)

	result, err := Parse(testFeed, body)
	require.NoError(t, err)
	require.Len(t, result.Todos, 1)
	assert.True(t, result.Todos[0].Completed)
}

func TestParseSkipsEventWithoutUID(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"SUMMARY:Anonymous",
		"DTSTART:20260210T090000Z",
		"DTEND:20260210T100000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:kept",
		"SUMMARY:Kept",
		"DTSTART:20260211T090000Z",
		"DTEND:20260211T100000Z",
		"END:VEVENT",
	)

	result, err := Parse(testFeed, body)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "kept", result.Events[0].UID)
}

func TestParseEmptyBody(t *testing.T) {
	_, err := Parse(testFeed, nil)
	assert.Error(t, err)
}

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"lunacal/internal/dates"
	"lunacal/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "agenda.db"), time.UTC, language.English)
	require.NoError(t, err)
	return store
}

func ts(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

func event(id, title string, start *time.Time) model.AgendaItem {
	return model.AgendaItem{
		ID:          id,
		Kind:        model.AgendaKindEvent,
		SourceID:    "event:cal",
		SourceTitle: "Calendar",
		Title:       title,
		Start:       start,
	}
}

func feb(d int) dates.Interval {
	return dates.Interval{
		Start: time.Date(2026, time.February, d, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.February, d+1, 0, 0, 0, 0, time.UTC),
	}
}

func TestReplaceAndReadBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	items := []model.AgendaItem{
		event("event:a:1", "Standup", ts(2026, time.February, 10, 9)),
		event("event:b:1", "Review", ts(2026, time.February, 10, 14)),
	}
	require.NoError(t, store.Replace(ctx, items, feb(10)))

	got, err := store.DayAgenda(ctx, time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Standup", got[0].Title)
	assert.Equal(t, "Review", got[1].Title)
}

func TestReplaceIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	items := []model.AgendaItem{event("event:a:1", "Standup", ts(2026, time.February, 10, 9))}
	require.NoError(t, store.Replace(ctx, items, feb(10)))
	require.NoError(t, store.Replace(ctx, items, feb(10)))

	got, err := store.DayAgenda(ctx, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReplaceFailureKeepsPriorState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	prior := event("event:a:1", "Standup", ts(2026, time.February, 10, 9))
	require.NoError(t, store.Replace(ctx, []model.AgendaItem{prior}, feb(10)))

	// A cancelled context fails the transaction before it commits; the
	// delete half must not apply on its own.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	replacement := event("event:b:1", "Review", ts(2026, time.February, 10, 14))
	err := store.Replace(cancelled, []model.AgendaItem{replacement}, feb(10))
	require.Error(t, err)

	got, err := store.DayAgenda(ctx, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Standup", got[0].Title)
}

func TestReplaceRemovesVanishedItems(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, []model.AgendaItem{
		event("event:a:1", "Keep", ts(2026, time.February, 10, 9)),
		event("event:b:1", "Cancelled", ts(2026, time.February, 10, 11)),
	}, feb(10)))

	require.NoError(t, store.Replace(ctx, []model.AgendaItem{
		event("event:a:1", "Keep", ts(2026, time.February, 10, 9)),
	}, feb(10)))

	got, err := store.DayAgenda(ctx, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Keep", got[0].Title)
}

func TestReplaceLeavesOtherIntervalsAlone(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, []model.AgendaItem{
		event("event:a:1", "Tenth", ts(2026, time.February, 10, 9)),
	}, feb(10)))
	require.NoError(t, store.Replace(ctx, []model.AgendaItem{
		event("event:b:1", "Eleventh", ts(2026, time.February, 11, 9)),
	}, feb(11)))

	// Clearing the 11th must not disturb the 10th.
	require.NoError(t, store.Replace(ctx, nil, feb(11)))

	tenth, err := store.DayAgenda(ctx, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, tenth, 1)

	eleventh, err := store.DayAgenda(ctx, time.Date(2026, time.February, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, eleventh)
}

func TestDayAgendaEmptyDay(t *testing.T) {
	store := openTestStore(t)

	got, err := store.DayAgenda(context.Background(), time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenda.db")
	ctx := context.Background()

	store, err := Open(path, time.UTC, language.English)
	require.NoError(t, err)
	require.NoError(t, store.Replace(ctx, []model.AgendaItem{
		event("event:a:1", "Durable", ts(2026, time.February, 10, 9)),
	}, feb(10)))

	reopened, err := Open(path, time.UTC, language.English)
	require.NoError(t, err)

	got, err := reopened.DayAgenda(ctx, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Durable", got[0].Title)
	assert.Equal(t, model.AgendaKindEvent, got[0].Kind)
}

func TestReminderRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	due := ts(2026, time.February, 10, 17)
	reminder := model.AgendaItem{
		ID:          "reminder:r1:100",
		Kind:        model.AgendaKindReminder,
		SourceID:    "reminder:list",
		SourceTitle: "Tasks",
		Title:       "Pay bills",
		End:         due,
		Completed:   true,
	}
	require.NoError(t, store.Replace(ctx, []model.AgendaItem{reminder}, feb(10)))

	got, err := store.DayAgenda(ctx, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.AgendaKindReminder, got[0].Kind)
	assert.True(t, got[0].Completed)
	assert.Nil(t, got[0].Start)
	require.NotNil(t, got[0].End)
	assert.True(t, got[0].End.Equal(*due))
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("", time.UTC, language.English)
	assert.Error(t, err)
}

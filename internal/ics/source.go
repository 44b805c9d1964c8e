// Package ics implements the external agenda source over subscribed
// ICS feeds: conditional HTTP fetch with a disk cache, VEVENT/VTODO
// parsing, and recurrence expansion bounded to a requested interval.
package ics

import (
	"context"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"lunacal/internal/agenda"
	"lunacal/internal/dates"
	appLog "lunacal/internal/log"
	"lunacal/internal/model"
)

// Client is the agenda source backing the refresh pipeline. It is safe
// for concurrent reads; the Fetcher's disk cache tolerates concurrent
// fetches of distinct intervals.
type Client struct {
	feeds    []Feed
	fetcher  *Fetcher
	sorter   *agenda.Reconciler
	collator *collate.Collator
	loc      *time.Location
}

// NewClient builds a client over the configured feeds. cacheDir is the
// HTTP disk-cache base directory; tag drives the title collation order.
func NewClient(feeds []Feed, cacheDir string, tag language.Tag, loc *time.Location) *Client {
	return &Client{
		feeds:    feeds,
		fetcher:  NewFetcher(cacheDir),
		sorter:   agenda.NewReconciler(tag),
		collator: collate.New(tag),
		loc:      loc,
	}
}

// ListSources lists the selectable sources: one event source per feed,
// plus a reminder source for feeds that carry reminders. Sorted by
// collated title.
func (c *Client) ListSources(_ context.Context, includeReminders bool) ([]model.CalendarSource, error) {
	sources := make([]model.CalendarSource, 0, len(c.feeds)*2)
	for _, feed := range c.feeds {
		sources = append(sources, model.CalendarSource{
			ID:         "event:" + feed.ID,
			Identifier: feed.ID,
			Title:      feedTitle(feed),
			Kind:       model.AgendaKindEvent,
		})
		if includeReminders && feed.Reminders {
			sources = append(sources, model.CalendarSource{
				ID:         "reminder:" + feed.ID,
				Identifier: feed.ID,
				Title:      feedTitle(feed),
				Kind:       model.AgendaKindReminder,
			})
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return c.collator.CompareString(sources[i].Title, sources[j].Title) < 0
	})
	return sources, nil
}

// FetchAgenda fetches, parses and expands all selected feeds for one
// interval. A nil selection set means "all sources of that kind". A
// failing feed contributes nothing (or its cached body) rather than
// failing the fetch.
func (c *Client) FetchAgenda(
	ctx context.Context,
	interval dates.Interval,
	selectedEventIDs map[string]struct{},
	selectedReminderIDs map[string]struct{},
	includeReminders bool,
) ([]model.AgendaItem, error) {
	cfg := ExpandConfig{Location: c.loc, Interval: interval}

	items := make([]model.AgendaItem, 0)
	for _, feed := range c.feeds {
		wantEvents := selected(selectedEventIDs, feed.ID)
		wantReminders := includeReminders && feed.Reminders && selected(selectedReminderIDs, feed.ID)
		if !wantEvents && !wantReminders {
			continue
		}

		result, err := c.fetcher.FetchOne(ctx, feed)
		if err != nil {
			appLog.Error("agenda feed unavailable", err, "id", feed.ID, "url", redactURL(feed.URL))
			continue
		}

		parsed, err := Parse(feed, result.Body)
		if err != nil {
			continue
		}

		if wantEvents {
			expanded, err := ExpandEvents(parsed.Events, cfg)
			if err != nil {
				appLog.Error("agenda expansion failed", err, "id", feed.ID)
			} else {
				items = append(items, expanded...)
			}
		}
		if wantReminders {
			items = append(items, ExpandTodos(parsed.Todos, cfg)...)
		}
	}

	c.sorter.Sort(items)
	return items, nil
}

func selected(ids map[string]struct{}, feedID string) bool {
	if ids == nil {
		return true
	}
	_, ok := ids[feedID]
	return ok
}

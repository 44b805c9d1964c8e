// Package agenda reconciles agenda items fetched from multiple
// overlapping date ranges into one deduplicated, deterministically
// ordered sequence.
package agenda

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"lunacal/internal/dates"
	"lunacal/internal/model"
)

// Batch is one fetched interval with its raw items, in fetch order.
type Batch struct {
	Interval dates.Interval
	Items    []model.AgendaItem
}

// Reconciler folds interval batches into a single ordered agenda.
// Ordering is (sortDate ascending, title collated ascending); the
// collator is built from the display language so CJK and Vietnamese
// titles sort the way the user reads them.
type Reconciler struct {
	collator *collate.Collator
}

// NewReconciler builds a reconciler collating titles for the given tag.
func NewReconciler(tag language.Tag) *Reconciler {
	return &Reconciler{collator: collate.New(tag)}
}

// Reconcile deduplicates by item ID with last-write-wins across batches
// (a later batch's item replaces an earlier one wholesale — overlapping
// queries can return the same logical occurrence with different
// metadata), then sorts.
func (r *Reconciler) Reconcile(batches []Batch) []model.AgendaItem {
	byID := make(map[string]model.AgendaItem)
	for _, batch := range batches {
		for _, item := range batch.Items {
			byID[item.ID] = item
		}
	}

	items := make([]model.AgendaItem, 0, len(byID))
	for _, item := range byID {
		items = append(items, item)
	}
	r.Sort(items)
	return items
}

// Sort orders items in place by (sortDate, collated title).
func (r *Reconciler) Sort(items []model.AgendaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return r.less(items[i], items[j])
	})
}

func (r *Reconciler) less(a, b model.AgendaItem) bool {
	as, bs := a.SortDate(), b.SortDate()
	if as.Equal(bs) {
		return r.collator.CompareString(a.Title, b.Title) < 0
	}
	return as.Before(bs)
}

// DetailAgenda filters items to sortDate ∈ [window.Start, window.End),
// preserving the established order.
func DetailAgenda(items []model.AgendaItem, window dates.Interval) []model.AgendaItem {
	out := make([]model.AgendaItem, 0, len(items))
	for _, item := range items {
		if window.Contains(item.SortDate()) {
			out = append(out, item)
		}
	}
	return out
}

// DayAnchors collects the distinct day-start keys present in items.
func DayAnchors(items []model.AgendaItem, loc *time.Location) map[time.Time]struct{} {
	anchors := make(map[time.Time]struct{}, len(items))
	for _, item := range items {
		anchors[item.DayAnchor(loc)] = struct{}{}
	}
	return anchors
}

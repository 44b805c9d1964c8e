// Package refresh coordinates the calendar reconciliation pipeline: it
// owns the generation counter and the published snapshot, fans out the
// per-refresh work, and discards superseded results.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"lunacal/internal/agenda"
	"lunacal/internal/config"
	"lunacal/internal/dates"
	"lunacal/internal/grid"
	appLog "lunacal/internal/log"
	"lunacal/internal/model"
)

// detailWindowDays is the length of the agenda list window starting at
// the selected date.
const detailWindowDays = 8

// Converter computes lunisolar day attributes. Total: never fails.
type Converter interface {
	DayInfo(date time.Time, locale language.Tag, loc *time.Location, showSolarTerms, showHolidays bool) model.LunarDayInfo
	MonthInfo(monthAnchor time.Time, locale language.Tag, loc *time.Location, showSolarTerms, showHolidays bool) []model.LunarDayInfo
}

// AgendaSource is the external calendar data provider. It must be safe
// for concurrent reads.
type AgendaSource interface {
	FetchAgenda(ctx context.Context, interval dates.Interval, selectedEventIDs, selectedReminderIDs map[string]struct{}, includeReminders bool) ([]model.AgendaItem, error)
	ListSources(ctx context.Context, includeReminders bool) ([]model.CalendarSource, error)
}

// AgendaCache is the durable day-indexed agenda store.
type AgendaCache interface {
	Replace(ctx context.Context, items []model.AgendaItem, interval dates.Interval) error
	DayAgenda(ctx context.Context, date time.Time) ([]model.AgendaItem, error)
}

// Options wires an Orchestrator. All collaborators are injected; there
// are no package-level singletons.
type Options struct {
	Converter Converter
	Source    AgendaSource
	Cache     AgendaCache
	Settings  config.Settings
	Location  *time.Location
	// Now is the clock; nil means time.Now. Injected for tests.
	Now func() time.Time
}

// Orchestrator serializes all refresh-state mutation behind one mutex:
// the generation counter, the view state (selected date, display month,
// settings) and the published snapshot. The per-refresh work itself
// runs concurrently and is joined before reconciliation.
type Orchestrator struct {
	converter Converter
	source    AgendaSource
	cache     AgendaCache
	loc       *time.Location
	now       func() time.Time

	mu           sync.Mutex
	generation   uint64
	settings     config.Settings
	locale       language.Tag
	reconciler   *agenda.Reconciler
	selectedDate time.Time
	displayMonth time.Time
	snapshot     model.Snapshot

	updates chan struct{}
	wg      sync.WaitGroup
}

// New builds an Orchestrator positioned on today.
func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	o := &Orchestrator{
		converter: opts.Converter,
		source:    opts.Source,
		cache:     opts.Cache,
		loc:       loc,
		now:       now,
		settings:  opts.Settings,
		updates:   make(chan struct{}, 1),
	}
	o.locale = o.settings.LanguageTag()
	o.reconciler = agenda.NewReconciler(o.locale)

	current := now()
	o.selectedDate = dates.DayStart(current, loc)
	o.displayMonth = dates.StartOfMonth(current, loc)
	return o
}

// Start bootstraps the snapshot: cached agenda for the selected day
// (cold-cache reads degrade to empty), then a startup refresh.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	selected := o.selectedDate
	settings := o.settings
	o.mu.Unlock()

	errMsg := ""
	cached, err := o.cache.DayAgenda(ctx, selected)
	if err != nil {
		appLog.Error("agenda cache read failed, starting cold", err)
		cached = nil
		errMsg = "agenda cache unavailable"
	}

	o.mu.Lock()
	o.snapshot = model.Snapshot{
		Reason:         model.ReasonStartup,
		SelectedDate:   selected,
		DisplayMonth:   o.displayMonth,
		WeekdaySymbols: grid.WeekdaySymbols(settings.FirstWeekday()),
		DetailAgenda:   cached,
		RefreshedAt:    o.now(),
		ErrorMessage:   errMsg,
	}
	o.mu.Unlock()
	o.notify()

	o.Trigger(ctx, model.ReasonStartup)
}

// Snapshot returns the currently published snapshot.
func (o *Orchestrator) Snapshot() model.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot
}

// Updates returns the coalescing notification channel: one receive per
// batch of publishes.
func (o *Orchestrator) Updates() <-chan struct{} {
	return o.updates
}

// Wait blocks until all in-flight refreshes have finished. Superseded
// refreshes finish too; they just publish nothing.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Trigger starts a new refresh generation. Any refresh still running
// for an older generation keeps its in-flight work but will fail its
// next staleness check and stop producing effects.
func (o *Orchestrator) Trigger(ctx context.Context, reason model.RefreshReason) {
	o.mu.Lock()
	o.generation++
	in := o.captureLocked(reason)
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(ctx, in)
	}()
}

// RefreshNow runs one refresh synchronously. Used by the -once mode.
func (o *Orchestrator) RefreshNow(ctx context.Context, reason model.RefreshReason) {
	o.mu.Lock()
	o.generation++
	in := o.captureLocked(reason)
	o.mu.Unlock()
	o.run(ctx, in)
}

// SelectDate normalizes and selects a date, moving the display month
// with it.
func (o *Orchestrator) SelectDate(ctx context.Context, date time.Time) {
	o.mu.Lock()
	o.selectedDate = dates.DayStart(date, o.loc)
	o.displayMonth = dates.StartOfMonth(date, o.loc)
	o.mu.Unlock()
	o.Trigger(ctx, model.ReasonSelectedDateChanged)
}

// GoToToday selects the current day.
func (o *Orchestrator) GoToToday(ctx context.Context) {
	o.SelectDate(ctx, o.now())
}

// StepMonth moves the display month by delta months (negative = back).
func (o *Orchestrator) StepMonth(ctx context.Context, delta int) {
	o.mu.Lock()
	o.displayMonth = o.displayMonth.AddDate(0, delta, 0)
	o.mu.Unlock()
	o.Trigger(ctx, model.ReasonMonthChanged)
}

// ShowPreviousMonth moves the display month one month back.
func (o *Orchestrator) ShowPreviousMonth(ctx context.Context) {
	o.StepMonth(ctx, -1)
}

// ShowNextMonth moves the display month one month forward.
func (o *Orchestrator) ShowNextMonth(ctx context.Context) {
	o.StepMonth(ctx, 1)
}

// NotifyExternalChange refreshes in response to an external data change
// (a feed edit observed outside the tick cycle).
func (o *Orchestrator) NotifyExternalChange(ctx context.Context) {
	o.Trigger(ctx, model.ReasonExternalStore)
}

// UpdateSettings swaps the active settings and refreshes. Changes to
// reminder visibility or the per-kind source selections alter which
// sources the refresh may read and are reported as a permission
// change; everything else is a settings change.
func (o *Orchestrator) UpdateSettings(ctx context.Context, settings config.Settings) {
	o.mu.Lock()
	reason := model.ReasonSettingsChanged
	if accessChanged(o.settings, settings) {
		reason = model.ReasonPermissionsChanged
	}
	o.settings = settings
	o.locale = settings.LanguageTag()
	o.reconciler = agenda.NewReconciler(o.locale)
	o.mu.Unlock()
	o.Trigger(ctx, reason)
}

func accessChanged(prev, next config.Settings) bool {
	return prev.ShowReminders != next.ShowReminders ||
		!sameStrings(prev.SelectedEventSources, next.SelectedEventSources) ||
		!sameStrings(prev.SelectedReminderSources, next.SelectedReminderSources)
}

// sameStrings compares two selections as sets; nil and empty both mean
// "all sources".
func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

// inputs is the immutable per-refresh capture of view state.
type inputs struct {
	generation uint64
	reason     model.RefreshReason
	selected   time.Time
	month      time.Time
	settings   config.Settings
	locale     language.Tag
	reconciler *agenda.Reconciler
}

func (o *Orchestrator) captureLocked(reason model.RefreshReason) inputs {
	return inputs{
		generation: o.generation,
		reason:     reason,
		selected:   o.selectedDate,
		month:      o.displayMonth,
		settings:   o.settings,
		locale:     o.locale,
		reconciler: o.reconciler,
	}
}

// current reports whether generation g is still the latest and the
// refresh has not been cancelled. The staleness checks between pipeline
// steps are synchronous barriers, not suspension points.
func (o *Orchestrator) current(ctx context.Context, g uint64) bool {
	if ctx.Err() != nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation == g
}

// run executes one refresh generation end to end. A refresh superseded
// at any checkpoint completes its in-flight work but performs no
// further side effects and never publishes.
func (o *Orchestrator) run(ctx context.Context, in inputs) {
	g := in.generation
	appLog.Debug("refresh start", "generation", g, "reason", string(in.reason))

	if !o.current(ctx, g) {
		return
	}

	// Needed intervals: the display month plus the detail window,
	// coalesced so overlapping ranges are fetched once.
	monthStart := dates.StartOfMonth(in.month, o.loc)
	monthInterval := dates.MonthInterval(in.month, o.loc)
	detailStart := dates.DayStart(in.selected, o.loc)
	detailWindow := dates.Interval{
		Start: detailStart,
		End:   dates.AddDays(detailStart, detailWindowDays, o.loc),
	}
	merged := dates.Merge([]dates.Interval{monthInterval, detailWindow})

	// Fan out the lunar computation and the source listing. The
	// converter is total; only the source listing can fail, and a
	// failure there degrades to an empty list.
	var (
		prevInfos, monthInfos, nextInfos []model.LunarDayInfo
		dayInfo                          model.LunarDayInfo
		sources                          []model.CalendarSource
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		monthInfos = o.converter.MonthInfo(monthStart, in.locale, o.loc, in.settings.ShowSolarTerms, in.settings.ShowHolidays)
		return nil
	})
	eg.Go(func() error {
		prevInfos = o.converter.MonthInfo(monthStart.AddDate(0, -1, 0), in.locale, o.loc, in.settings.ShowSolarTerms, in.settings.ShowHolidays)
		return nil
	})
	eg.Go(func() error {
		nextInfos = o.converter.MonthInfo(monthStart.AddDate(0, 1, 0), in.locale, o.loc, in.settings.ShowSolarTerms, in.settings.ShowHolidays)
		return nil
	})
	eg.Go(func() error {
		dayInfo = o.converter.DayInfo(in.selected, in.locale, o.loc, in.settings.ShowSolarTerms, in.settings.ShowHolidays)
		return nil
	})
	eg.Go(func() error {
		listed, err := o.source.ListSources(egCtx, in.settings.ShowReminders)
		if err != nil {
			appLog.Error("source listing failed", err, "generation", g)
			return nil
		}
		sources = listed
		return nil
	})

	// Agenda fetches run sequentially per merged interval with a
	// staleness check between iterations; a failing interval degrades
	// to an empty batch instead of aborting the refresh.
	batches := make([]agenda.Batch, 0, len(merged))
	for _, interval := range merged {
		if !o.current(ctx, g) {
			_ = eg.Wait()
			return
		}
		items, err := o.source.FetchAgenda(ctx, interval,
			in.settings.SelectedEventIDs(), in.settings.SelectedReminderIDs(), in.settings.ShowReminders)
		if err != nil {
			appLog.Error("agenda fetch failed", err, "generation", g,
				"interval_start", interval.Start, "interval_end", interval.End)
			items = nil
		}
		batches = append(batches, agenda.Batch{Interval: interval, Items: items})
	}

	_ = eg.Wait()

	if !o.current(ctx, g) {
		return
	}

	reconciled := in.reconciler.Reconcile(batches)

	// Persist the raw per-interval batches. Write failures are logged
	// and the previous cached state for that interval is retained; the
	// refresh itself carries on with fresh data.
	for _, batch := range batches {
		if !o.current(ctx, g) {
			return
		}
		if err := o.cache.Replace(ctx, batch.Items, batch.Interval); err != nil {
			appLog.Error("agenda cache write failed", err, "generation", g,
				"interval_start", batch.Interval.Start, "interval_end", batch.Interval.End)
		}
	}

	if !o.current(ctx, g) {
		return
	}

	lunarByDay := make(map[time.Time]model.LunarDayInfo, len(prevInfos)+len(monthInfos)+len(nextInfos))
	for _, infos := range [][]model.LunarDayInfo{prevInfos, monthInfos, nextInfos} {
		for _, info := range infos {
			lunarByDay[info.GregorianDayStart] = info
		}
	}

	cells := grid.MonthCells(
		monthStart, in.selected, o.now(),
		lunarByDay, agenda.DayAnchors(reconciled, o.loc),
		in.settings.FirstWeekday(), o.loc,
	)

	detail := agenda.DetailAgenda(reconciled, detailWindow)

	// Final staleness-checked publish: the snapshot is replaced
	// atomically under the lock or not at all.
	o.mu.Lock()
	if o.generation != g || ctx.Err() != nil {
		o.mu.Unlock()
		appLog.Debug("refresh superseded before publish", "generation", g)
		return
	}
	o.snapshot = model.Snapshot{
		Generation:       g,
		Reason:           in.reason,
		SelectedDate:     in.selected,
		DisplayMonth:     monthStart,
		WeekdaySymbols:   grid.WeekdaySymbols(in.settings.FirstWeekday()),
		GridCells:        cells,
		SelectedDayInfo:  &dayInfo,
		AvailableSources: sources,
		DetailAgenda:     detail,
		RefreshedAt:      o.now(),
	}
	o.mu.Unlock()
	o.notify()

	appLog.Info("refresh published", "generation", g, "reason", string(in.reason),
		"agenda_count", len(reconciled), "detail_count", len(detail),
		"source_count", len(sources), "intervals", formatIntervals(merged))
}

func (o *Orchestrator) notify() {
	select {
	case o.updates <- struct{}{}:
	default:
	}
}

func formatIntervals(intervals []dates.Interval) string {
	out := ""
	for i, iv := range intervals {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("[%s,%s)", iv.Start.Format("2006-01-02"), iv.End.Format("2006-01-02"))
	}
	return out
}

// Package model defines the domain types shared across the pipeline:
// agenda items pulled from calendar sources, lunar day attributes, the
// month grid cells and the published snapshot.
package model

import (
	"time"

	"lunacal/internal/dates"
)

// AgendaKind distinguishes calendar events from reminders.
type AgendaKind string

const (
	AgendaKindEvent    AgendaKind = "event"
	AgendaKindReminder AgendaKind = "reminder"
)

// distantFuture is the sort anchor for items without any date, so they
// order after every dated item.
var distantFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// AgendaItem is a single concrete occurrence of an event or reminder.
// ID is stable across re-fetches of the same logical occurrence; the
// reconciler and the cache both key on it.
type AgendaItem struct {
	ID          string     `json:"id"`
	Kind        AgendaKind `json:"kind"`
	SourceID    string     `json:"source_id"`
	SourceTitle string     `json:"source_title"`
	Title       string     `json:"title"`

	// Start / End are nil for undated reminders.
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`

	AllDay    bool `json:"all_day"`
	Completed bool `json:"completed"`
}

// SortDate is the instant the item orders and groups by:
// start, else end, else the distant future.
func (it AgendaItem) SortDate() time.Time {
	if it.Start != nil {
		return *it.Start
	}
	if it.End != nil {
		return *it.End
	}
	return distantFuture
}

// DayAnchor is the start of SortDate's day in loc, the grouping key for
// grid markers and cache rows.
func (it AgendaItem) DayAnchor(loc *time.Location) time.Time {
	return dates.DayStart(it.SortDate(), loc)
}

// CalendarSource describes one selectable agenda source (a feed, split
// by kind when it carries both events and reminders). ID is the
// kind-prefixed form; Identifier is the bare feed identifier as it
// appears in the selected-source configuration lists.
type CalendarSource struct {
	ID         string     `json:"id"`
	Identifier string     `json:"identifier"`
	Title      string     `json:"title"`
	Kind       AgendaKind `json:"kind"`
}

// HolidayKind separates statutory holidays from observed special days.
type HolidayKind string

const (
	HolidayKindHoliday    HolidayKind = "holiday"
	HolidayKindSpecialDay HolidayKind = "specialDay"
)

// HolidayInfo is a classified public holiday for a day.
type HolidayInfo struct {
	Name string      `json:"name"`
	Kind HolidayKind `json:"kind"`
}

// LunarDayInfo carries the lunisolar attributes of one Gregorian day.
// Produced fresh per request and never mutated.
type LunarDayInfo struct {
	GregorianDayStart time.Time `json:"gregorian_day_start"`

	LunarYearText     string `json:"lunar_year_text"`
	FullLunarDateText string `json:"full_lunar_date_text"`
	LunarMonthText    string `json:"lunar_month_text"`
	LunarDayText      string `json:"lunar_day_text"`

	DisplayLabel        string `json:"display_label"`
	CompactDisplayLabel string `json:"compact_display_label"`

	IsLeapMonth bool `json:"is_leap_month"`

	// SolarTerm / LunarFestival are empty when the day has none.
	SolarTerm     string       `json:"solar_term,omitempty"`
	LunarFestival string       `json:"lunar_festival,omitempty"`
	Holiday       *HolidayInfo `json:"holiday,omitempty"`

	IsImportantFestivalDay bool `json:"is_important_festival_day"`
}

// CalendarDayCell is one of the 42 cells of the rendered month grid.
type CalendarDayCell struct {
	ID                string    `json:"id"`
	Date              time.Time `json:"date"`
	DayText           string    `json:"day_text"`
	LunarText         string    `json:"lunar_text"`
	IsCurrentMonth    bool      `json:"is_current_month"`
	ShowsHolidayMark  bool      `json:"shows_holiday_mark"`
	HasAgenda         bool      `json:"has_agenda"`
	IsToday           bool      `json:"is_today"`
	IsSelected        bool      `json:"is_selected"`
	HighlightFestival bool      `json:"highlight_festival"`
}

// RefreshReason names what triggered a refresh. Logged and carried on
// the snapshot for diagnostics.
type RefreshReason string

const (
	ReasonStartup             RefreshReason = "startup"
	ReasonTimerTick           RefreshReason = "timerTick"
	ReasonExternalStore       RefreshReason = "externalStoreChanged"
	ReasonMonthChanged        RefreshReason = "monthChanged"
	ReasonSelectedDateChanged RefreshReason = "selectedDateChanged"
	ReasonSettingsChanged     RefreshReason = "settingsChanged"
	ReasonPermissionsChanged  RefreshReason = "permissionsChanged"
)

// Snapshot is the externally visible, immutable result of one refresh.
// All fields are replaced together in a single publish.
type Snapshot struct {
	Generation uint64        `json:"generation"`
	Reason     RefreshReason `json:"reason"`

	SelectedDate time.Time `json:"selected_date"`
	DisplayMonth time.Time `json:"display_month"`

	WeekdaySymbols   []string          `json:"weekday_symbols"`
	GridCells        []CalendarDayCell `json:"grid_cells"`
	SelectedDayInfo  *LunarDayInfo     `json:"selected_day_info,omitempty"`
	AvailableSources []CalendarSource  `json:"available_sources"`
	DetailAgenda     []AgendaItem      `json:"detail_agenda"`

	RefreshedAt  time.Time `json:"refreshed_at"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Package grid projects a month of lunar and agenda data onto the
// fixed 6×7 calendar grid.
package grid

import (
	"fmt"
	"time"

	"lunacal/internal/dates"
	"lunacal/internal/model"
)

// CellCount is the fixed grid size: six rows of seven weekdays.
const CellCount = 42

// WeekdaySymbols returns the single-letter weekday header rotated so
// firstWeekday (1 = Sunday … 7 = Saturday) comes first.
func WeekdaySymbols(firstWeekday int) []string {
	raw := []string{"S", "M", "T", "W", "T", "F", "S"}
	shift := firstWeekday - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 6 {
		shift = 6
	}
	return append(append([]string{}, raw[shift:]...), raw[:shift]...)
}

// MonthCells lays out the month containing monthStart into exactly 42
// cells. Days outside the month fill the leading and trailing slots.
// Absent lunarInfo entries yield an empty lunar label, not an error.
func MonthCells(
	monthStart time.Time,
	selectedDate time.Time,
	now time.Time,
	lunarInfo map[time.Time]model.LunarDayInfo,
	agendaDays map[time.Time]struct{},
	firstWeekday int,
	loc *time.Location,
) []model.CalendarDayCell {
	start := dates.StartOfMonth(monthStart, loc)
	daysInMonth := dates.DaysInMonth(monthStart, loc)

	// Weekday of the month's first day, 1 = Sunday like firstWeekday.
	startWeekday := int(start.In(loc).Weekday()) + 1
	leading := (startWeekday - firstWeekday + 7) % 7

	today := dates.DayStart(now, loc)
	selected := dates.DayStart(selectedDate, loc)

	cells := make([]model.CalendarDayCell, 0, CellCount)
	for index := 0; index < CellCount; index++ {
		dayOffset := index - leading
		date := dates.AddDays(start, dayOffset, loc)
		dayStart := dates.DayStart(date, loc)

		info, hasInfo := lunarInfo[dayStart]
		lunarText := ""
		if hasInfo {
			lunarText = info.CompactDisplayLabel
		}
		_, hasAgenda := agendaDays[dayStart]

		cells = append(cells, model.CalendarDayCell{
			ID:                fmt.Sprintf("date-%d", dayStart.Unix()),
			Date:              date,
			DayText:           fmt.Sprintf("%d", date.In(loc).Day()),
			LunarText:         lunarText,
			IsCurrentMonth:    dayOffset >= 0 && dayOffset < daysInMonth,
			ShowsHolidayMark:  hasInfo && info.Holiday != nil,
			HasAgenda:         hasAgenda,
			IsToday:           dayStart.Equal(today),
			IsSelected:        dayStart.Equal(selected),
			HighlightFestival: hasInfo && info.IsImportantFestivalDay,
		})
	}
	return cells
}

// Package lunar implements the Gregorian→lunisolar date conversion and
// the festival/holiday classification used by the calendar pipeline.
//
// The conversion itself is delegated to a lunisolar calendar library
// (see convert.go); this package owns the localized name tables, the
// solar-term table, and the label precedence rules.
package lunar

import (
	"fmt"
	"time"

	"github.com/rivo/uniseg"
	"golang.org/x/text/language"

	"lunacal/internal/dates"
	"lunacal/internal/model"
)

// compactLabelMaxGraphemes is the widest label a grid cell fits before
// the compact fallback kicks in. Counted in grapheme clusters, not
// bytes; festival names are CJK and Vietnamese.
const compactLabelMaxGraphemes = 10

// Converter produces LunarDayInfo values. It is stateless apart from
// the optional solar-term override table and safe for concurrent use.
type Converter struct {
	terms TermTable
}

// NewConverter builds a converter. terms may be nil, in which case all
// solar-term days are derived from the calendrical library.
func NewConverter(terms TermTable) *Converter {
	return &Converter{terms: terms}
}

// DayInfo computes the lunisolar attributes of one Gregorian day.
// It is total: it never fails, and malformed lunisolar components
// degrade to safe defaults.
func (c *Converter) DayInfo(date time.Time, locale language.Tag, loc *time.Location, showSolarTerms, showHolidays bool) model.LunarDayInfo {
	l := langFromTag(locale)
	comp := decompose(date, loc)

	monthNames := lunarMonthNames[l]
	dayNames := lunarDayNames[l]
	monthText := monthNames[clampIndex(comp.month-1, len(monthNames))]
	dayText := dayNames[clampIndex(comp.day-1, len(dayNames))]

	ganZhi := cyclicalYearName(comp.year, l)
	yearText := lunarYearPrefixes[l] + " " + ganZhi

	solarTerm := ""
	if showSolarTerms {
		solarTerm = localizeSolarTerm(c.canonicalTerm(date, loc, comp), l)
	}

	// New Year's Eve: the following day is lunisolar (1,1).
	next := decompose(dates.AddDays(date, 1, loc), loc)
	isNewYearsEve := next.month == 1 && next.day == 1 && !next.leap

	festival := lunarFestivals[l][fmt.Sprintf("%d-%d", comp.month, comp.day)]
	if isNewYearsEve {
		festival = newYearsEveLabels[l]
	}

	var holiday *model.HolidayInfo
	if showHolidays {
		holiday = classifyHoliday(date, loc, regionFromTag(locale), l)
	}

	display := dayText
	if comp.day == 1 {
		display = monthText
	}
	if festival != "" {
		display = festival
	}
	if solarTerm != "" {
		display = solarTerm
	}

	leapMonthText := monthText
	if comp.leap {
		leapMonthText = leapMonthPrefixes[l] + monthText
	}

	return model.LunarDayInfo{
		GregorianDayStart:      dates.DayStart(date, loc),
		LunarYearText:          yearText,
		FullLunarDateText:      fullLunarDateText(l, ganZhi, leapMonthText, dayText),
		LunarMonthText:         leapMonthText,
		LunarDayText:           dayText,
		DisplayLabel:           display,
		CompactDisplayLabel:    compactLabel(display, dayText, l),
		IsLeapMonth:            comp.leap,
		SolarTerm:              solarTerm,
		LunarFestival:          festival,
		Holiday:                holiday,
		IsImportantFestivalDay: isNewYearsEve || (comp.month == 1 && comp.day >= 1 && comp.day <= 3),
	}
}

// MonthInfo computes DayInfo for every day of the Gregorian month
// containing monthAnchor. The result length equals the month's day
// count (28–31).
func (c *Converter) MonthInfo(monthAnchor time.Time, locale language.Tag, loc *time.Location, showSolarTerms, showHolidays bool) []model.LunarDayInfo {
	start := dates.StartOfMonth(monthAnchor, loc)
	count := dates.DaysInMonth(monthAnchor, loc)

	infos := make([]model.LunarDayInfo, 0, count)
	for day := 0; day < count; day++ {
		infos = append(infos, c.DayInfo(dates.AddDays(start, day, loc), locale, loc, showSolarTerms, showHolidays))
	}
	return infos
}

func clampIndex(idx, length int) int {
	if idx < 0 {
		return 0
	}
	if idx >= length {
		return length - 1
	}
	return idx
}

// compactLabel shortens a display label for the grid cell: alias table
// first, then the plain day name when the label is too wide.
func compactLabel(label, fallbackDay string, l lang) string {
	if alias, ok := compactAliases[l][label]; ok {
		return alias
	}
	if uniseg.GraphemeClusterCount(label) > compactLabelMaxGraphemes {
		return fallbackDay
	}
	return label
}

func fullLunarDateText(l lang, ganZhi, monthText, dayText string) string {
	switch l {
	case langZH:
		return ganZhi + "年" + monthText + dayText
	case langVI:
		return dayText + " " + monthText + " năm " + ganZhi
	default:
		return monthText + ", " + dayText + ", Year " + ganZhi
	}
}

// classifyHoliday resolves fixed-date public holidays by region, plus
// the one floating rule (US Thanksgiving, 4th Thursday of November).
func classifyHoliday(date time.Time, loc *time.Location, region string, l lang) *model.HolidayInfo {
	local := date.In(loc)
	month := int(local.Month())
	day := local.Day()

	names := holidayNames[l]
	holiday := func(id holidayID) *model.HolidayInfo {
		return &model.HolidayInfo{Name: names[id], Kind: model.HolidayKindHoliday}
	}

	switch region {
	case "VN":
		switch {
		case month == 1 && day == 1:
			return holiday(holidayNewYear)
		case month == 4 && day == 30:
			return holiday(holidayVNReunification)
		case month == 5 && day == 1:
			return holiday(holidayLaborDay)
		case month == 9 && day == 2:
			return holiday(holidayVNNationalDay)
		}
	case "US":
		switch {
		case month == 1 && day == 1:
			return holiday(holidayNewYear)
		case month == 7 && day == 4:
			return holiday(holidayUSIndependence)
		case month == 12 && day == 25:
			return holiday(holidayChristmas)
		case isThanksgiving(local):
			return holiday(holidayThanksgiving)
		}
	}

	switch region {
	case "CN", "TW", "HK":
		switch {
		case month == 1 && day == 1:
			return holiday(holidayNewYear)
		case month == 5 && day == 1:
			return holiday(holidayLaborDay)
		case month == 10 && day == 1:
			return holiday(holidayCNNationalDay)
		}
	}

	return nil
}

func isThanksgiving(local time.Time) bool {
	if local.Month() != time.November {
		return false
	}
	return local.Weekday() == time.Thursday && (local.Day()-1)/7 == 3
}

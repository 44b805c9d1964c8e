package lunar

import (
	"time"

	"github.com/6tail/lunar-go/calendar"
)

// components is the raw lunisolar decomposition of a Gregorian date.
type components struct {
	year  int
	month int
	day   int
	leap  bool
	// jieQi is the solar term falling on the day (simplified-Chinese
	// name, empty when the day is not a term day).
	jieQi string
}

// decompose converts a Gregorian date to its lunisolar components. This
// is the only place the calendrical library is touched; everything else
// in the package works off the returned components.
//
// The conversion is total: out-of-range or missing components degrade to
// month 1, day 1 instead of failing.
func decompose(date time.Time, loc *time.Location) components {
	local := date.In(loc)
	// Midday keeps the conversion clear of day-boundary rounding.
	solar := calendar.NewSolar(local.Year(), int(local.Month()), local.Day(), 12, 0, 0)
	lunarDate := solar.GetLunar()

	out := components{
		year:  lunarDate.GetYear(),
		month: lunarDate.GetMonth(),
		day:   lunarDate.GetDay(),
		jieQi: lunarDate.GetJieQi(),
	}
	// The library reports leap months as negative month numbers.
	if out.month < 0 {
		out.month = -out.month
		out.leap = true
	}
	if out.month < 1 {
		out.month = 1
	}
	if out.day < 1 {
		out.day = 1
	}
	return out
}

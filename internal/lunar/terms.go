package lunar

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lunacal/internal/dates"
)

// TermTable maps Gregorian day keys (yyyy-MM-dd, locale-independent)
// to canonical English solar-term names. An explicit table overrides
// the term days derived from the calendrical library; missing keys
// fall through to the derived value.
type TermTable map[string]string

// LoadTermTable reads a term table resource from disk. The file is a
// flat string map; YAML parsing also accepts JSON, which is the format
// the table is usually distributed in.
func LoadTermTable(path string) (TermTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var table TermTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// canonicalTermNames translates the library's simplified-Chinese term
// names into the canonical English names the table and the translation
// maps key on.
var canonicalTermNames = map[string]string{
	"立春": "Start of Spring",
	"雨水": "Rain Water",
	"惊蛰": "Awakening of Insects",
	"春分": "Spring Equinox",
	"清明": "Clear and Bright",
	"谷雨": "Grain Rain",
	"立夏": "Start of Summer",
	"小满": "Grain Full",
	"芒种": "Grain in Ear",
	"夏至": "Summer Solstice",
	"小暑": "Minor Heat",
	"大暑": "Major Heat",
	"立秋": "Start of Autumn",
	"处暑": "Limit of Heat",
	"白露": "White Dew",
	"秋分": "Autumn Equinox",
	"寒露": "Cold Dew",
	"霜降": "Frost Descent",
	"立冬": "Start of Winter",
	"小雪": "Minor Snow",
	"大雪": "Major Snow",
	"冬至": "Winter Solstice",
	"小寒": "Minor Cold",
	"大寒": "Major Cold",
}

// canonicalTerm resolves the canonical solar-term name for a date:
// the explicit table entry when present, else the derived term day.
func (c *Converter) canonicalTerm(date time.Time, loc *time.Location, comp components) string {
	key := dates.DayKey(date, loc)
	if c.terms != nil {
		if name, ok := c.terms[key]; ok {
			return name
		}
	}
	if comp.jieQi == "" {
		return ""
	}
	return canonicalTermNames[comp.jieQi]
}

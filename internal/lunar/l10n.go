package lunar

import "golang.org/x/text/language"

// lang is the converter's supported language set. Tags outside it fall
// back to English.
type lang int

const (
	langVI lang = iota
	langEN
	langZH
)

func langFromTag(tag language.Tag) lang {
	base, _ := tag.Base()
	switch base.String() {
	case "zh":
		return langZH
	case "vi":
		return langVI
	default:
		return langEN
	}
}

// regionFromTag returns the uppercase region code of the tag ("VN",
// "US", ...) or "" when the tag carries none.
func regionFromTag(tag language.Tag) string {
	region, conf := tag.Region()
	if conf == language.No {
		return ""
	}
	code := region.String()
	if code == "ZZ" {
		return ""
	}
	return code
}

var lunarMonthNames = map[lang][]string{
	langVI: {
		"Tháng Giêng", "Tháng Hai", "Tháng Ba", "Tháng Tư", "Tháng Năm", "Tháng Sáu",
		"Tháng Bảy", "Tháng Tám", "Tháng Chín", "Tháng Mười", "Tháng Mười Một", "Tháng Chạp",
	},
	langEN: {
		"Month 1", "Month 2", "Month 3", "Month 4", "Month 5", "Month 6",
		"Month 7", "Month 8", "Month 9", "Month 10", "Month 11", "Month 12",
	},
	langZH: {
		"正月", "二月", "三月", "四月", "五月", "六月",
		"七月", "八月", "九月", "十月", "冬月", "腊月",
	},
}

var lunarDayNames = map[lang][]string{
	langVI: {
		"Mùng 1", "Mùng 2", "Mùng 3", "Mùng 4", "Mùng 5", "Mùng 6", "Mùng 7", "Mùng 8", "Mùng 9", "Mùng 10",
		"11", "12", "13", "14", "Rằm", "16", "17", "18", "19", "20",
		"21", "22", "23", "24", "25", "26", "27", "28", "29", "30",
	},
	langEN: {
		"Day 1", "Day 2", "Day 3", "Day 4", "Day 5", "Day 6", "Day 7", "Day 8", "Day 9", "Day 10",
		"Day 11", "Day 12", "Day 13", "Day 14", "Day 15", "Day 16", "Day 17", "Day 18", "Day 19", "Day 20",
		"Day 21", "Day 22", "Day 23", "Day 24", "Day 25", "Day 26", "Day 27", "Day 28", "Day 29", "Day 30",
	},
	langZH: {
		"初一", "初二", "初三", "初四", "初五", "初六", "初七", "初八", "初九", "初十",
		"十一", "十二", "十三", "十四", "十五", "十六", "十七", "十八", "十九", "二十",
		"廿一", "廿二", "廿三", "廿四", "廿五", "廿六", "廿七", "廿八", "廿九", "三十",
	},
}

// Fixed lunisolar festival dates keyed "month-day".
var lunarFestivals = map[lang]map[string]string{
	langVI: {
		"1-1":  "Tết Nguyên Đán",
		"1-15": "Rằm tháng Giêng",
		"3-3":  "Tết Hàn Thực",
		"5-5":  "Tết Đoan Ngọ",
		"7-7":  "Thất Tịch",
		"8-15": "Tết Trung Thu",
		"9-9":  "Tết Trùng Cửu",
		"12-8": "Lễ Lạp Bát",
	},
	langEN: {
		"1-1":  "Lunar New Year",
		"1-15": "Lantern Festival",
		"3-3":  "Cold Food Festival",
		"5-5":  "Dragon Boat Festival",
		"7-7":  "Qixi Festival",
		"8-15": "Mid-Autumn Festival",
		"9-9":  "Double Ninth Festival",
		"12-8": "Laba Festival",
	},
	langZH: {
		"1-1":  "春节",
		"1-15": "元宵节",
		"3-3":  "寒食节",
		"5-5":  "端午节",
		"7-7":  "七夕",
		"8-15": "中秋节",
		"9-9":  "重阳节",
		"12-8": "腊八节",
	},
}

var newYearsEveLabels = map[lang]string{
	langVI: "Giao thừa",
	langEN: "Lunar New Year's Eve",
	langZH: "除夕",
}

// Short aliases for labels too wide for a grid cell.
var compactAliases = map[lang]map[string]string{
	langVI: {
		"Tết Nguyên Đán":  "Tết",
		"Rằm tháng Giêng": "Rằm Giêng",
		"Tết Hàn Thực":    "Hàn Thực",
		"Tết Đoan Ngọ":    "Đoan Ngọ",
		"Thất Tịch":       "Thất Tịch",
		"Tết Trung Thu":   "Trung Thu",
		"Tết Trùng Cửu":   "Trùng Cửu",
		"Lễ Lạp Bát":      "Lạp Bát",
		"Giao thừa":       "Giao thừa",
	},
	langEN: {
		"Lunar New Year":        "LNY",
		"Lantern Festival":      "Lantern",
		"Cold Food Festival":    "Cold Food",
		"Dragon Boat Festival":  "Boat Fest",
		"Qixi Festival":         "Qixi",
		"Mid-Autumn Festival":   "Mid-Autumn",
		"Double Ninth Festival": "Ninth",
		"Laba Festival":         "Laba",
		"Lunar New Year's Eve":  "NY Eve",
	},
	langZH: {
		"春节":  "春节",
		"元宵节": "元宵",
		"寒食节": "寒食",
		"端午节": "端午",
		"七夕":  "七夕",
		"中秋节": "中秋",
		"重阳节": "重阳",
		"腊八节": "腊八",
		"除夕":  "除夕",
	},
}

var leapMonthPrefixes = map[lang]string{
	langVI: "Nhuận ",
	langEN: "Leap ",
	langZH: "闰",
}

var lunarYearPrefixes = map[lang]string{
	langVI: "Năm",
	langEN: "Year",
	langZH: "农历年",
}

// Sexagenary cycle names (10 heavenly stems, 12 earthly branches).
var heavenlyStems = map[lang][]string{
	langVI: {"Giáp", "Ất", "Bính", "Đinh", "Mậu", "Kỷ", "Canh", "Tân", "Nhâm", "Quý"},
	langEN: {"Jia", "Yi", "Bing", "Ding", "Wu", "Ji", "Geng", "Xin", "Ren", "Gui"},
	langZH: {"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"},
}

var earthlyBranches = map[lang][]string{
	langVI: {"Tý", "Sửu", "Dần", "Mão", "Thìn", "Tỵ", "Ngọ", "Mùi", "Thân", "Dậu", "Tuất", "Hợi"},
	langEN: {"Zi", "Chou", "Yin", "Mao", "Chen", "Si", "Wu", "Wei", "Shen", "You", "Xu", "Hai"},
	langZH: {"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"},
}

// cyclicalYearName builds the 60-cycle stem-branch name of a lunisolar
// year number.
func cyclicalYearName(lunarYear int, l lang) string {
	idx := ((lunarYear-4)%60 + 60) % 60
	stem := heavenlyStems[l][idx%10]
	branch := earthlyBranches[l][idx%12]
	switch l {
	case langZH:
		return stem + branch
	case langEN:
		return stem + "-" + branch
	default:
		return stem + " " + branch
	}
}

// Solar term translations keyed by the canonical English names that the
// term table uses.
var solarTermVI = map[string]string{
	"Start of Spring":       "Lập xuân",
	"Rain Water":            "Vũ thủy",
	"Awakening of Insects":  "Kinh trập",
	"Spring Equinox":        "Xuân phân",
	"Clear and Bright":      "Thanh minh",
	"Grain Rain":            "Cốc vũ",
	"Start of Summer":       "Lập hạ",
	"Grain Full":            "Tiểu mãn",
	"Grain in Ear":          "Mang chủng",
	"Summer Solstice":       "Hạ chí",
	"Minor Heat":            "Tiểu thử",
	"Major Heat":            "Đại thử",
	"Start of Autumn":       "Lập thu",
	"Limit of Heat":         "Xử thử",
	"White Dew":             "Bạch lộ",
	"Autumn Equinox":        "Thu phân",
	"Cold Dew":              "Hàn lộ",
	"Frost Descent":         "Sương giáng",
	"Start of Winter":       "Lập đông",
	"Minor Snow":            "Tiểu tuyết",
	"Major Snow":            "Đại tuyết",
	"Winter Solstice":       "Đông chí",
	"Minor Cold":            "Tiểu hàn",
	"Major Cold":            "Đại hàn",
}

var solarTermZH = map[string]string{
	"Start of Spring":       "立春",
	"Rain Water":            "雨水",
	"Awakening of Insects":  "惊蛰",
	"Spring Equinox":        "春分",
	"Clear and Bright":      "清明",
	"Grain Rain":            "谷雨",
	"Start of Summer":       "立夏",
	"Grain Full":            "小满",
	"Grain in Ear":          "芒种",
	"Summer Solstice":       "夏至",
	"Minor Heat":            "小暑",
	"Major Heat":            "大暑",
	"Start of Autumn":       "立秋",
	"Limit of Heat":         "处暑",
	"White Dew":             "白露",
	"Autumn Equinox":        "秋分",
	"Cold Dew":              "寒露",
	"Frost Descent":         "霜降",
	"Start of Winter":       "立冬",
	"Minor Snow":            "小雪",
	"Major Snow":            "大雪",
	"Winter Solstice":       "冬至",
	"Minor Cold":            "小寒",
	"Major Cold":            "大寒",
}

func localizeSolarTerm(canonical string, l lang) string {
	if canonical == "" {
		return ""
	}
	switch l {
	case langVI:
		if v, ok := solarTermVI[canonical]; ok {
			return v
		}
	case langZH:
		if v, ok := solarTermZH[canonical]; ok {
			return v
		}
	}
	return canonical
}

// Public holiday names per language. Keys are internal holiday
// identifiers, not user-facing.
type holidayID int

const (
	holidayNewYear holidayID = iota
	holidayVNReunification
	holidayLaborDay
	holidayVNNationalDay
	holidayUSIndependence
	holidayChristmas
	holidayThanksgiving
	holidayCNNationalDay
)

var holidayNames = map[lang]map[holidayID]string{
	langVI: {
		holidayNewYear:         "Tết Dương lịch",
		holidayVNReunification: "Ngày Giải phóng miền Nam",
		holidayLaborDay:        "Quốc tế Lao động",
		holidayVNNationalDay:   "Quốc khánh",
		holidayUSIndependence:  "Quốc khánh Hoa Kỳ",
		holidayChristmas:       "Lễ Giáng sinh",
		holidayThanksgiving:    "Lễ Tạ ơn",
		holidayCNNationalDay:   "Quốc khánh Trung Quốc",
	},
	langEN: {
		holidayNewYear:         "New Year's Day",
		holidayVNReunification: "Reunification Day",
		holidayLaborDay:        "Labor Day",
		holidayVNNationalDay:   "National Day",
		holidayUSIndependence:  "Independence Day",
		holidayChristmas:       "Christmas Day",
		holidayThanksgiving:    "Thanksgiving",
		holidayCNNationalDay:   "National Day",
	},
	langZH: {
		holidayNewYear:         "元旦",
		holidayVNReunification: "南方解放日",
		holidayLaborDay:        "劳动节",
		holidayVNNationalDay:   "越南国庆日",
		holidayUSIndependence:  "美国独立日",
		holidayChristmas:       "圣诞节",
		holidayThanksgiving:    "感恩节",
		holidayCNNationalDay:   "国庆节",
	},
}

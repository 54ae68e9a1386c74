package availability

import "time"

// WeekdayLabels holds display names indexed by time.Weekday (Sunday first).
// Callers pass the table for the reader's language; nothing here is global.
type WeekdayLabels [7]string

var (
	EnglishWeekdays = WeekdayLabels{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	FinnishWeekdays = WeekdayLabels{"Su", "Ma", "Ti", "Ke", "To", "Pe", "La"}
	SwedishWeekdays = WeekdayLabels{"Sö", "Må", "Ti", "On", "To", "Fr", "Lö"}
)

// WeekdayLabel returns the label of t's weekday. An empty entry falls back to
// the English name.
func WeekdayLabel(t time.Time, labels WeekdayLabels) string {
	if l := labels[t.Weekday()]; l != "" {
		return l
	}
	return EnglishWeekdays[t.Weekday()]
}

// LabelsFor picks a table by language code ("fi", "sv", anything else English).
func LabelsFor(lang string) WeekdayLabels {
	switch lang {
	case "fi":
		return FinnishWeekdays
	case "sv":
		return SwedishWeekdays
	default:
		return EnglishWeekdays
	}
}

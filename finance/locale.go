package finance

import "fmt"

// Display names for periods. The dashboard audience is Russian, so
// months carry Russian names and quarters Roman numerals. Only the
// presentation layer should reach for these; everything else works
// with the numeric period identity.

var monthNames = [12]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var quarterNames = [4]string{
	"I квартал", "II квартал", "III квартал", "IV квартал",
}

// MonthName returns the display name for a month 1-12, or "" when out
// of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// QuarterName returns the display name for a quarter 1-4, or "" when
// out of range.
func QuarterName(quarter int) string {
	if quarter < 1 || quarter > 4 {
		return ""
	}
	return quarterNames[quarter-1]
}

// DisplayName renders a period for end users at its granularity.
func (p Period) DisplayName() string {
	switch p.Granularity() {
	case GranMonth:
		return fmt.Sprintf("%s %d", MonthName(*p.Month), p.Year)
	case GranQuarter:
		return fmt.Sprintf("%s %d", QuarterName(*p.Quarter), p.Year)
	default:
		return fmt.Sprintf("%d год", p.Year)
	}
}

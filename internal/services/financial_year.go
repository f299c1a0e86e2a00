package services

import (
	"fmt"
	"time"
)

// financialYearOf returns the Indian financial year containing the
// given date, formatted as "2024-25". The FY runs April through March,
// so January-March dates belong to the year that started the previous
// April.
func financialYearOf(date time.Time) string {
	year := date.Year()
	if date.Month() < time.April {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// quarterOf returns the financial-year quarter of the given date.
// Q1 is April-June; Q4 is January-March.
func quarterOf(date time.Time) string {
	switch {
	case date.Month() >= time.April && date.Month() <= time.June:
		return "Q1"
	case date.Month() >= time.July && date.Month() <= time.September:
		return "Q2"
	case date.Month() >= time.October && date.Month() <= time.December:
		return "Q3"
	default:
		return "Q4"
	}
}

// parseReturnPeriod validates an MMYYYY return period and returns the
// [start, end) window it covers in UTC.
func parseReturnPeriod(period string) (time.Time, time.Time, error) {
	parsed, err := time.Parse("012006", period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: period must be MMYYYY, got %q", ErrInvalidPeriod, period)
	}
	start := time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// returnPeriodOf formats a date as the MMYYYY period it falls in
func returnPeriodOf(date time.Time) string {
	return date.Format("012006")
}

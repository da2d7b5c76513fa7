package validator

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the display and storage layout for dates.
const DateLayout = "02/01/2006"

// DateTimeLayout is the display and storage layout for timestamps.
const DateTimeLayout = "02/01/2006 15:04:05"

var (
	dateRegex      = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	monthYearRegex = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{4}$`)
)

// ValidateDate accepts an empty date (optional field) or a real calendar
// date written exactly as DD/MM/YYYY. 31/02/2024 is rejected.
func ValidateDate(date string) bool {
	if date == "" {
		return true
	}
	_, err := ParseDate(date)
	return err == nil
}

// ParseDate parses a strict DD/MM/YYYY date.
func ParseDate(date string) (time.Time, error) {
	if !dateRegex.MatchString(date) {
		return time.Time{}, fmt.Errorf("data fora do formato DD/MM/AAAA: %q", date)
	}
	return time.Parse(DateLayout, date)
}

// FormatDate renders a time as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDateTime renders a time as DD/MM/YYYY HH:MM:SS.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// MonthYear extracts the MM/YYYY bucket of a DD/MM/YYYY date, or ""
// when the date is invalid.
func MonthYear(date string) string {
	if date == "" || !ValidateDate(date) {
		return ""
	}
	return date[3:]
}

// ValidateMonthYear checks a MM/YYYY bucket label.
func ValidateMonthYear(monthYear string) bool {
	return monthYearRegex.MatchString(monthYear)
}

// CalculateAge returns the age in whole years at the reference time.
// ok is false when the birth date cannot be parsed.
func CalculateAge(birth string, now time.Time) (age int, ok bool) {
	b, err := ParseDate(birth)
	if err != nil {
		return 0, false
	}
	age = now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	return age, true
}

// FormatDateWithAge renders "DD/MM/YYYY (N anos)", or the raw value when
// it is not a parseable date.
func FormatDateWithAge(birth string, now time.Time) string {
	age, ok := CalculateAge(birth, now)
	if !ok {
		return birth
	}
	return fmt.Sprintf("%s (%d anos)", birth, age)
}

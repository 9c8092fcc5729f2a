package calendar

import (
	"strings"
	"time"
)

var monthNames = [12]string{
	"Farvardin", "Ordibehesht", "Khordad", "Tir", "Mordad", "Shahrivar",
	"Mehr", "Aban", "Azar", "Dey", "Bahman", "Esfand",
}

var weekdayNames = [7]string{
	"Shanbeh", "Yekshanbeh", "Doshanbeh", "Seshanbeh", "Chaharshanbeh", "Panjshanbeh", "Jomeh",
}

// MonthName returns the transliterated secondary month name, or "" for an
// invalid month.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// WeekdayName returns the secondary-calendar name of a canonical weekday.
func WeekdayName(w time.Weekday) string {
	return weekdayNames[(int(w)-int(time.Saturday)+7)%7]
}

var persianDigits = strings.NewReplacer(
	"0", "۰", "1", "۱", "2", "۲", "3", "۳", "4", "۴",
	"5", "۵", "6", "۶", "7", "۷", "8", "۸", "9", "۹",
)

// PersianDigits replaces ASCII digits in s with Extended Arabic-Indic digits.
func PersianDigits(s string) string {
	return persianDigits.Replace(s)
}

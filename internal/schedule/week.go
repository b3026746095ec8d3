package schedule

import (
	"time"

	"roomreserve/internal/models"
)

// WeekDates returns the seven dates of the ISO week containing date, Monday first.
// Each date is midnight in date's location.
func WeekDates(date time.Time) []time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	monday := day.AddDate(0, 0, -offset)

	dates := make([]time.Time, 7)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i)
	}
	return dates
}

// WeekRange returns the first and last dates of date's week as YYYY-MM-DD.
func WeekRange(date time.Time) (string, string) {
	dates := WeekDates(date)
	return dates[0].Format(models.DateLayout), dates[6].Format(models.DateLayout)
}

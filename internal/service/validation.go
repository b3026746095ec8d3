package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"roomreserve/internal/models"
	"roomreserve/internal/schedule"
)

var phonePattern = regexp.MustCompile(`^[0-9-]+$`)

// BookingRequest is the input of CreateBooking.
type BookingRequest struct {
	RoomID             string `json:"roomId"`
	Date               string `json:"date"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	RepresentativeName string `json:"representativeName"`
	PhoneNumber        string `json:"phoneNumber"`
	NumberOfPeople     int    `json:"numberOfPeople"`
	Purpose            string `json:"purpose,omitempty"`
}

func (r *BookingRequest) normalize() {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.Date = strings.TrimSpace(r.Date)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.EndTime = strings.TrimSpace(r.EndTime)
	r.RepresentativeName = strings.TrimSpace(r.RepresentativeName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Purpose = strings.TrimSpace(r.Purpose)
}

// validateRequest collects every field error of a normalized request.
// today is midnight of the current day in the booking location.
func validateRequest(r BookingRequest, settings models.Settings, today time.Time) FieldErrors {
	errs := FieldErrors{}

	if r.RoomID == "" {
		errs.add("roomId", "room is required")
	}

	if r.Date == "" {
		errs.add("date", "date is required")
	} else if d, err := time.ParseInLocation(models.DateLayout, r.Date, today.Location()); err != nil {
		errs.add("date", "date must be YYYY-MM-DD")
	} else if d.Before(today) {
		errs.add("date", "past dates cannot be booked")
	} else if d.After(today.AddDate(0, 0, settings.MaxBookingDays)) {
		errs.add("date", fmt.Sprintf("date must be within %d days", settings.MaxBookingDays))
	}

	start, startErr := schedule.ParseClock(r.StartTime)
	end, endErr := schedule.ParseClock(r.EndTime)
	switch {
	case r.StartTime == "":
		errs.add("startTime", "start time is required")
	case startErr != nil:
		errs.add("startTime", "start time must be HH:MM")
	}
	switch {
	case r.EndTime == "":
		errs.add("endTime", "end time is required")
	case endErr != nil:
		errs.add("endTime", "end time must be HH:MM")
	case startErr == nil && start >= end:
		errs.add("endTime", "end time must be after start time")
	}

	if r.RepresentativeName == "" {
		errs.add("representativeName", "representative name is required")
	}

	if r.PhoneNumber == "" {
		errs.add("phoneNumber", "phone number is required")
	} else if !phonePattern.MatchString(r.PhoneNumber) {
		errs.add("phoneNumber", "phone number may contain only digits and hyphens")
	}

	if r.NumberOfPeople < 1 {
		errs.add("numberOfPeople", "number of people must be at least 1")
	}

	return errs
}

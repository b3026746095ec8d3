package models

import "time"

// Booking is a reservation of one room for a [StartTime, EndTime) range on Date.
type Booking struct {
	ID                 string    `json:"id" db:"id"`
	RoomID             string    `json:"roomId" db:"room_id"`
	RoomName           string    `json:"roomName" db:"room_name"`
	Date               string    `json:"date" db:"date"`            // YYYY-MM-DD
	StartTime          string    `json:"startTime" db:"start_time"` // HH:MM
	EndTime            string    `json:"endTime" db:"end_time"`     // HH:MM
	RepresentativeName string    `json:"representativeName" db:"representative_name"`
	PhoneNumber        string    `json:"phoneNumber" db:"phone_number"`
	NumberOfPeople     int       `json:"numberOfPeople" db:"number_of_people"`
	Purpose            string    `json:"purpose,omitempty" db:"purpose"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
}

// StartsAt returns the moment the booking begins in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout+" "+ClockLayout, b.Date+" "+b.StartTime, loc)
}

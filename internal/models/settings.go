package models

// SettingsID is the key of the single settings row.
const SettingsID = "config"

// Settings holds the business hours and booking horizon shared by all rooms.
type Settings struct {
	BusinessStartTime      string `yaml:"business_start_time" json:"businessStartTime" db:"business_start_time"`
	BusinessEndTime        string `yaml:"business_end_time" json:"businessEndTime" db:"business_end_time"`
	BookingIntervalMinutes int    `yaml:"booking_interval_minutes" json:"bookingIntervalMinutes" db:"booking_interval_minutes"`
	MaxBookingDays         int    `yaml:"max_booking_days" json:"maxBookingDays" db:"max_booking_days"`
}

package schedule

// GenerateTimeSlots returns the bookable start times from start (inclusive) to end
// (exclusive), stepping by intervalMinutes. Returns an empty slice when start >= end.
func GenerateTimeSlots(start, end string, intervalMinutes int) ([]string, error) {
	if intervalMinutes <= 0 {
		return nil, ErrInvalidInterval
	}
	from, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return nil, err
	}

	slots := make([]string, 0, max(0, (to-from+intervalMinutes-1)/intervalMinutes))
	for m := from; m < to; m += intervalMinutes {
		slots = append(slots, FormatClock(m))
	}
	return slots, nil
}

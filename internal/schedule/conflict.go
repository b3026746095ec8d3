package schedule

import "roomreserve/internal/models"

// Overlaps reports whether the half-open ranges [s1,e1) and [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// HasConflict reports whether [start, end) overlaps any of existing.
// existing must already be scoped to one room and date. Entries whose stored
// times cannot be parsed count as conflicts.
func HasConflict(start, end string, existing []models.Booking) bool {
	return FindConflict(start, end, existing) != nil
}

// FindConflict returns the first booking overlapping [start, end), or nil.
func FindConflict(start, end string, existing []models.Booking) *models.Booking {
	s1, errStart := ParseClock(start)
	e1, errEnd := ParseClock(end)
	for i := range existing {
		b := &existing[i]
		if errStart != nil || errEnd != nil {
			return b
		}
		s2, err := ParseClock(b.StartTime)
		if err != nil {
			return b
		}
		e2, err := ParseClock(b.EndTime)
		if err != nil {
			return b
		}
		if Overlaps(s1, e1, s2, e2) {
			return b
		}
	}
	return nil
}

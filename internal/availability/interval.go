package availability

// Interval is a half-open time range [Start, End) within a single day.
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Valid reports whether the interval is non-empty and lies within the day.
func (i Interval) Valid() bool {
	return i.Start >= 0 && i.Start < i.End && i.End <= MinutesPerDay
}

// Minutes returns the interval length.
func (i Interval) Minutes() int { return int(i.End - i.Start) }

// Overlaps reports whether i and o share at least one minute.
// An interval ending exactly where the other starts does not overlap it.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// OfficeHours is the daily window in which appointments may start and end.
type OfficeHours struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// IsZero reports whether the office hours were never set.
func (h OfficeHours) IsZero() bool { return h.Start == 0 && h.End == 0 }

// Open reports whether the window is non-empty.
func (h OfficeHours) Open() bool { return h.Start < h.End }

// Slot is a candidate appointment start time with its availability flag.
type Slot struct {
	Time      TimeOfDay `json:"time"`
	Available bool      `json:"available"`
}

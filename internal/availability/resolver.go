// Package availability computes which appointment start times are free on a
// given day. Everything here is pure: callers fetch the day's Bag from the
// scheduling backend and pass it in.
package availability

// Generate returns the candidate start times in hours, stepping by
// intervalMinutes, such that every slot ends by hours.End. A non-positive
// interval falls back to DefaultIntervalMinutes.
func Generate(hours OfficeHours, intervalMinutes int) []TimeOfDay {
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultIntervalMinutes
	}
	if !hours.Open() || intervalMinutes > int(hours.End-hours.Start) {
		return nil
	}
	out := make([]TimeOfDay, 0, int(hours.End-hours.Start)/intervalMinutes)
	for t := hours.Start; t.Add(intervalMinutes) <= hours.End; t = t.Add(intervalMinutes) {
		out = append(out, t)
	}
	return out
}

// Resolve marks each generated slot as available when the procedure fits.
// A procedure longer than the interval needs ceil(duration/interval)
// contiguous free blocks; starts whose duration would run past closing are
// omitted. The end bound is inclusive: a start is offered when
// start+duration <= OfficeHours.End. A non-positive duration means one
// interval; a duration longer than the office window yields no slots.
func Resolve(bag Bag, durationMinutes int) []Slot {
	interval := bag.IntervalMinutes
	if interval <= 0 {
		interval = DefaultIntervalMinutes
	}
	duration := durationMinutes
	if duration <= 0 {
		duration = interval
	}
	window := int(bag.OfficeHours.End - bag.OfficeHours.Start)
	if !bag.OfficeHours.Open() || interval > window || duration > window {
		return []Slot{}
	}
	needBlocks := (duration + interval - 1) / interval

	starts := Generate(bag.OfficeHours, interval)
	slots := make([]Slot, 0, len(starts))
	for _, start := range starts {
		if start.Add(duration) > bag.OfficeHours.End {
			continue
		}
		slots = append(slots, Slot{
			Time:      start,
			Available: blocksFree(start, interval, needBlocks, bag.Busy),
		})
	}
	return slots
}

func blocksFree(start TimeOfDay, interval, needBlocks int, busy []Interval) bool {
	for k := 0; k < needBlocks; k++ {
		block := Interval{
			Start: start.Add(k * interval),
			End:   start.Add((k + 1) * interval),
		}
		for _, b := range busy {
			if block.Overlaps(b) {
				return false
			}
		}
	}
	return true
}

// Compute decodes a raw availability payload and resolves it in one step.
func Compute(raw []byte, d Defaults, durationMinutes int, opts ...NormalizeOption) []Slot {
	return Resolve(DecodeBag(raw, d, opts...), durationMinutes)
}

// Summary counts the slots returned and how many of them are available.
func Summary(slots []Slot) (total, available int) {
	for _, s := range slots {
		if s.Available {
			available++
		}
	}
	return len(slots), available
}

// FirstAvailable returns the earliest available slot, if any.
func FirstAvailable(slots []Slot) (Slot, bool) {
	for _, s := range slots {
		if s.Available {
			return s, true
		}
	}
	return Slot{}, false
}

// Lookup finds the slot starting at t.
func Lookup(slots []Slot, t TimeOfDay) (Slot, bool) {
	for _, s := range slots {
		if s.Time == t {
			return s, true
		}
	}
	return Slot{}, false
}

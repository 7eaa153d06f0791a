package availability

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultIntervalMinutes is the slot granularity used when none is supplied.
const DefaultIntervalMinutes = 60

// Bag is the per-day availability input: office hours, slot granularity and
// the busy intervals already booked.
type Bag struct {
	OfficeHours     OfficeHours `json:"officeHours"`
	IntervalMinutes int         `json:"intervalMinutes"`
	Busy            []Interval  `json:"busy"`
}

// Defaults fills in whatever the upstream bag leaves out.
type Defaults struct {
	OfficeHours     OfficeHours
	IntervalMinutes int
}

var (
	// PublicDefaults are used by the public booking widget.
	PublicDefaults = Defaults{
		OfficeHours:     OfficeHours{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(18, 0)},
		IntervalMinutes: DefaultIntervalMinutes,
	}
	// ConsoleDefaults are used by the admin console agenda.
	ConsoleDefaults = Defaults{
		OfficeHours:     OfficeHours{Start: NewTimeOfDay(8, 0), End: NewTimeOfDay(19, 0)},
		IntervalMinutes: DefaultIntervalMinutes,
	}
)

func (d Defaults) interval() int {
	if d.IntervalMinutes > 0 {
		return d.IntervalMinutes
	}
	return DefaultIntervalMinutes
}

// WithDefaults returns a copy of b with unset fields taken from d.
func (b Bag) WithDefaults(d Defaults) Bag {
	out := Bag{
		OfficeHours:     b.OfficeHours,
		IntervalMinutes: b.IntervalMinutes,
		Busy:            append([]Interval(nil), b.Busy...),
	}
	if out.OfficeHours.IsZero() {
		out.OfficeHours = d.OfficeHours
	}
	if out.IntervalMinutes <= 0 {
		out.IntervalMinutes = d.interval()
	}
	return out
}

// DecodeBag decodes the availability webhook payload
//
//	{ "officeHours": {"start": "HH:MM", "end": "HH:MM"}, "intervalMinutes": 30, "busy": [...] }
//
// and never fails: missing or unparsable fields fall back to d, and busy
// entries are normalized with NormalizeBusy.
func DecodeBag(raw []byte, d Defaults, opts ...NormalizeOption) Bag {
	bag := Bag{
		OfficeHours:     d.OfficeHours,
		IntervalMinutes: d.interval(),
	}

	fields := bagFields(raw)
	if fields == nil {
		return bag
	}

	if hoursRaw, ok := pick(fields, "officeHours", "office_hours", "hours"); ok {
		bag.OfficeHours = decodeOfficeHours(hoursRaw, d.OfficeHours)
	}
	if intervalRaw, ok := pick(fields, "intervalMinutes", "interval_minutes", "interval"); ok {
		if iv, ok := positiveInt(intervalRaw); ok {
			bag.IntervalMinutes = iv
		}
	}
	if busyRaw, ok := pick(fields, "busy", "events", "appointments"); ok {
		bag.Busy = NormalizeBusy(busyRaw, opts...)
	}
	return bag
}

// bagFields returns the top-level object, unwrapping a single {"data": {...}}
// envelope when the bag keys are not present at the top.
func bagFields(raw []byte) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &fields); err != nil {
		return nil
	}
	if _, ok := pick(fields, "officeHours", "office_hours", "intervalMinutes", "busy"); ok {
		return fields
	}
	if inner, ok := fields["data"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(inner, &nested); err == nil {
			return nested
		}
	}
	return fields
}

func pick(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || isNull(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeOfficeHours applies per-field fallbacks: a missing or unparsable start
// or end keeps the default for that field only.
func decodeOfficeHours(raw json.RawMessage, fallback OfficeHours) OfficeHours {
	var wire struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Open  string `json:"open"`
		Close string `json:"close"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return fallback
	}
	hours := fallback
	if t, ok := clockOrInstant(firstNonEmpty(wire.Start, wire.Open)); ok {
		hours.Start = t
	}
	if t, ok := clockOrInstant(firstNonEmpty(wire.End, wire.Close)); ok {
		hours.End = t
	}
	return hours
}

func clockOrInstant(s string) (TimeOfDay, bool) {
	if s == "" {
		return 0, false
	}
	if t, err := ParseTimeOfDay(s); err == nil {
		return t, true
	}
	if instant, ok := parseInstant(s, nil); ok {
		return FromTime(instant), true
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// positiveInt accepts a JSON number or numeric string holding a positive integer.
func positiveInt(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	}
	if f <= 0 || f != math.Trunc(f) || f > MinutesPerDay {
		return 0, false
	}
	return int(f), true
}

package availability

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// listEnvelopeKeys are the wrapper keys upstream payloads use around lists.
var listEnvelopeKeys = []string{"data", "items", "busy", "results"}

// endpointNames lists the start/end field name pairs seen on busy objects.
var endpointNames = [][2]string{
	{"start", "end"},
	{"startTime", "endTime"},
	{"start_time", "end_time"},
	{"from", "to"},
	{"begin", "finish"},
	{"inicio", "fim"},
}

// nestedInstantKeys are checked when an endpoint is an object, as in
// calendar events shaped {"start": {"dateTime": "..."}}.
var nestedInstantKeys = []string{"dateTime", "date_time", "time", "value"}

type normalizer struct {
	loc    *time.Location
	day    time.Time
	hasDay bool
}

// NormalizeOption tunes how ISO timestamps are mapped onto the day.
type NormalizeOption func(*normalizer)

// WithLocation converts ISO timestamps into loc before taking their wall clock.
// Timestamps without an offset are read in loc as well.
func WithLocation(loc *time.Location) NormalizeOption {
	return func(n *normalizer) {
		n.loc = loc
	}
}

// WithDay anchors ISO timestamps to a calendar day: entries that do not touch
// the day are dropped and entries crossing midnight are clamped to it.
func WithDay(day time.Time) NormalizeOption {
	return func(n *normalizer) {
		n.day = day
		n.hasDay = true
	}
}

// NormalizeBusy converts the heterogeneous busy payloads returned by the
// scheduling backend into ordered, valid intervals. Entries that cannot be
// parsed, and entries with start >= end, are dropped.
func NormalizeBusy(raw json.RawMessage, opts ...NormalizeOption) []Interval {
	n := &normalizer{}
	for _, opt := range opts {
		opt(n)
	}

	entries := unwrapList(raw, 2)
	out := make([]Interval, 0, len(entries))
	for _, entry := range entries {
		if iv, ok := n.entry(entry); ok {
			out = append(out, iv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// unwrapList returns the elements of a JSON array, unwrapping up to depth
// levels of {"data": [...]}-style envelopes. Anything else yields nil.
func unwrapList(raw json.RawMessage, depth int) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	case '{':
		if depth <= 0 {
			return nil
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		for _, key := range listEnvelopeKeys {
			if inner, ok := obj[key]; ok {
				return unwrapList(inner, depth-1)
			}
		}
	}
	return nil
}

func (n *normalizer) entry(raw json.RawMessage) (Interval, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Interval{}, false
	}
	switch raw[0] {
	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) < 2 {
			return Interval{}, false
		}
		start, ok1 := endpointString(pair[0])
		end, ok2 := endpointString(pair[1])
		if !ok1 || !ok2 {
			return Interval{}, false
		}
		return n.interval(start, end)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Interval{}, false
		}
		for _, names := range endpointNames {
			startRaw, ok1 := obj[names[0]]
			endRaw, ok2 := obj[names[1]]
			if !ok1 || !ok2 {
				continue
			}
			start, ok1 := endpointString(startRaw)
			end, ok2 := endpointString(endRaw)
			if !ok1 || !ok2 {
				return Interval{}, false
			}
			return n.interval(start, end)
		}
	}
	return Interval{}, false
}

// endpointString extracts a timestamp string from a JSON string or from a
// calendar-style object holding one.
func endpointString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	for _, key := range nestedInstantKeys {
		if inner, ok := obj[key]; ok {
			if err := json.Unmarshal(inner, &s); err == nil && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func (n *normalizer) interval(start, end string) (Interval, bool) {
	startClock, errStart := ParseTimeOfDay(start)
	endClock, errEnd := ParseTimeOfDay(end)
	if errStart == nil && errEnd == nil {
		iv := Interval{Start: startClock, End: endClock}
		return iv, iv.Valid()
	}

	st, ok1 := parseInstant(start, n.loc)
	et, ok2 := parseInstant(end, n.loc)
	if !ok1 || !ok2 {
		return Interval{}, false
	}
	return n.instantInterval(st, et)
}

func (n *normalizer) instantInterval(st, et time.Time) (Interval, bool) {
	if n.loc != nil {
		st = st.In(n.loc)
		et = et.In(n.loc)
	}
	if !st.Before(et) {
		return Interval{}, false
	}

	anchor := st
	if n.hasDay {
		anchor = n.day
	}
	y, m, d := anchor.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, st.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	if !et.After(dayStart) || !st.Before(dayEnd) {
		return Interval{}, false
	}

	iv := Interval{Start: 0, End: MinutesPerDay}
	if st.After(dayStart) {
		iv.Start = FromTime(st)
	}
	if et.Before(dayEnd) {
		iv.End = FromTime(et)
	}
	return iv, iv.Valid()
}

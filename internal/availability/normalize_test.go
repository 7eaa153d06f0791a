package availability

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ivs(t *testing.T, pairs ...string) []Interval {
	t.Helper()
	require.Equal(t, 0, len(pairs)%2)
	out := make([]Interval, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Interval{Start: tod(t, pairs[i]), End: tod(t, pairs[i+1])})
	}
	return out
}

func TestNormalizeBusy_ClockPairs(t *testing.T) {
	raw := json.RawMessage(`[["14:00","15:30"],["09:00","10:00"]]`)
	assert.Equal(t, ivs(t, "09:00", "10:00", "14:00", "15:30"), NormalizeBusy(raw))
}

func TestNormalizeBusy_ObjectFieldNames(t *testing.T) {
	raw := json.RawMessage(`[
		{"start":"08:00","end":"08:30"},
		{"startTime":"09:00","endTime":"09:30"},
		{"start_time":"10:00","end_time":"10:30"},
		{"from":"11:00","to":"11:30"},
		{"inicio":"12:00","fim":"12:30"}
	]`)
	assert.Equal(t, ivs(t,
		"08:00", "08:30",
		"09:00", "09:30",
		"10:00", "10:30",
		"11:00", "11:30",
		"12:00", "12:30",
	), NormalizeBusy(raw))
}

func TestNormalizeBusy_ISOTimestampsKeepTheirOwnWallClock(t *testing.T) {
	raw := json.RawMessage(`[{"start":"2025-08-21T15:00:00-03:00","end":"2025-08-21T16:00:00-03:00"}]`)
	assert.Equal(t, ivs(t, "15:00", "16:00"), NormalizeBusy(raw))
}

func TestNormalizeBusy_ISOTimestampsConvertedToLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	raw := json.RawMessage(`[{"start":"2025-08-21T18:00:00Z","end":"2025-08-21T19:30:00Z"}]`)
	assert.Equal(t, ivs(t, "15:00", "16:30"), NormalizeBusy(raw, WithLocation(loc)))
}

func TestNormalizeBusy_CalendarEventShape(t *testing.T) {
	raw := json.RawMessage(`{"items":[{"summary":"Limpeza","start":{"dateTime":"2025-08-21T10:00:00-03:00"},"end":{"dateTime":"2025-08-21T11:00:00-03:00"}}]}`)
	assert.Equal(t, ivs(t, "10:00", "11:00"), NormalizeBusy(raw))
}

func TestNormalizeBusy_Envelopes(t *testing.T) {
	for _, raw := range []string{
		`{"data":[["10:00","11:00"]]}`,
		`{"items":[["10:00","11:00"]]}`,
		`{"busy":[["10:00","11:00"]]}`,
		`{"data":{"items":[["10:00","11:00"]]}}`,
	} {
		assert.Equal(t, ivs(t, "10:00", "11:00"), NormalizeBusy(json.RawMessage(raw)), raw)
	}
}

func TestNormalizeBusy_DropsMalformedAndDegenerate(t *testing.T) {
	raw := json.RawMessage(`[
		["10:00","11:00"],
		["11:00","11:00"],
		["12:00","11:00"],
		["25:00","26:00"],
		["abc","11:00"],
		["10:00"],
		{"start":"2025-13-45T10:00:00Z","end":"2025-08-21T11:00:00Z"},
		{"begin":"09:00"},
		{"start":900,"end":960},
		null,
		42
	]`)
	assert.Equal(t, ivs(t, "10:00", "11:00"), NormalizeBusy(raw))
}

func TestNormalizeBusy_EmptyAndInvalidInput(t *testing.T) {
	assert.Empty(t, NormalizeBusy(nil))
	assert.Empty(t, NormalizeBusy(json.RawMessage(`null`)))
	assert.Empty(t, NormalizeBusy(json.RawMessage(`"busy"`)))
	assert.Empty(t, NormalizeBusy(json.RawMessage(`{"unknown":[["10:00","11:00"]]}`)))
	assert.Empty(t, NormalizeBusy(json.RawMessage(`[broken`)))
}

func TestNormalizeBusy_CrossingMidnightClampsToDay(t *testing.T) {
	raw := json.RawMessage(`[{"start":"2025-08-21T22:00:00-03:00","end":"2025-08-22T02:00:00-03:00"}]`)
	got := NormalizeBusy(raw)
	require.Len(t, got, 1)
	assert.Equal(t, tod(t, "22:00"), got[0].Start)
	assert.Equal(t, TimeOfDay(MinutesPerDay), got[0].End)
}

func TestNormalizeBusy_WithDayFiltersAndClamps(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	day := time.Date(2025, 8, 22, 0, 0, 0, 0, loc)
	raw := json.RawMessage(`[
		{"start":"2025-08-21T22:00:00-03:00","end":"2025-08-22T02:00:00-03:00"},
		{"start":"2025-08-21T09:00:00-03:00","end":"2025-08-21T10:00:00-03:00"},
		{"start":"2025-08-22T09:00:00-03:00","end":"2025-08-22T10:00:00-03:00"},
		["13:00","14:00"]
	]`)
	got := NormalizeBusy(raw, WithLocation(loc), WithDay(day))
	assert.Equal(t, ivs(t, "00:00", "02:00", "09:00", "10:00", "13:00", "14:00"), got)
}

func TestNormalizeBusy_NaiveTimestampUsesLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	raw := json.RawMessage(`[["2025-08-21T10:00","2025-08-21T10:45"]]`)
	assert.Equal(t, ivs(t, "10:00", "10:45"), NormalizeBusy(raw, WithLocation(loc)))
}

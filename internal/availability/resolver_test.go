package availability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tod(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func hours(t *testing.T, start, end string) OfficeHours {
	t.Helper()
	return OfficeHours{Start: tod(t, start), End: tod(t, end)}
}

func times(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Time.String()
	}
	return out
}

func TestGenerate_CountAndOrder(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		end      string
		interval int
		want     int
	}{
		{"hourly full day", "09:00", "18:00", 60, 9},
		{"half hour", "08:00", "10:00", 30, 4},
		{"remainder dropped", "09:00", "10:50", 30, 3},
		{"interval longer than window", "09:00", "09:30", 60, 0},
		{"odd step", "08:15", "12:00", 45, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := hours(t, tc.start, tc.end)
			got := Generate(h, tc.interval)
			require.Len(t, got, tc.want)
			assert.Equal(t, int(h.End-h.Start)/tc.interval, len(got))
			for i, s := range got {
				assert.GreaterOrEqual(t, s, h.Start)
				assert.LessOrEqual(t, s.Add(tc.interval), h.End)
				if i > 0 {
					assert.Greater(t, s, got[i-1], "slots must be strictly ascending")
				}
			}
		})
	}
}

func TestGenerate_ClosedOrInverted(t *testing.T) {
	assert.Empty(t, Generate(hours(t, "18:00", "09:00"), 60))
	assert.Empty(t, Generate(hours(t, "09:00", "09:00"), 60))
}

func TestGenerate_InvalidIntervalUsesDefault(t *testing.T) {
	for _, iv := range []int{0, -15} {
		got := Generate(hours(t, "09:00", "12:00"), iv)
		require.Len(t, got, 3)
		assert.Equal(t, "10:00", got[1].String())
	}
}

func TestResolve_HourlyWithOneBooking(t *testing.T) {
	bag := Bag{
		OfficeHours:     hours(t, "09:00", "12:00"),
		IntervalMinutes: 60,
		Busy:            []Interval{{Start: tod(t, "10:00"), End: tod(t, "11:00")}},
	}

	got := Resolve(bag, 60)

	assert.Equal(t, []Slot{
		{Time: tod(t, "09:00"), Available: true},
		{Time: tod(t, "10:00"), Available: false},
		{Time: tod(t, "11:00"), Available: true},
	}, got)
}

func TestResolve_LongProcedureNeedsContiguousBlocks(t *testing.T) {
	bag := Bag{OfficeHours: hours(t, "08:00", "10:00"), IntervalMinutes: 30}

	got := Resolve(bag, 90)

	// Only starts with start+90 <= 10:00 are offered.
	assert.Equal(t, []string{"08:00", "08:30"}, times(got))
	for _, s := range got {
		assert.True(t, s.Available)
		assert.LessOrEqual(t, s.Time.Add(90), bag.OfficeHours.End)
	}
}

func TestResolve_LongProcedureBlockedByLaterBooking(t *testing.T) {
	bag := Bag{
		OfficeHours:     hours(t, "08:00", "12:00"),
		IntervalMinutes: 30,
		Busy:            []Interval{{Start: tod(t, "09:30"), End: tod(t, "10:00")}},
	}

	got := Resolve(bag, 90)

	want := map[string]bool{
		"08:00": true,  // 08:00-09:30
		"08:30": false, // needs 09:30-10:00
		"09:00": false,
		"09:30": false,
		"10:00": true,
		"10:30": true,
	}
	require.Len(t, got, len(want))
	for _, s := range got {
		assert.Equal(t, want[s.Time.String()], s.Available, s.Time.String())
	}
}

func TestResolve_HalfOpenBoundaries(t *testing.T) {
	base := Bag{OfficeHours: hours(t, "09:00", "12:00"), IntervalMinutes: 60}

	t.Run("exact match blocks the slot", func(t *testing.T) {
		bag := base
		bag.Busy = []Interval{{Start: tod(t, "10:00"), End: tod(t, "11:00")}}
		s, ok := Lookup(Resolve(bag, 60), tod(t, "10:00"))
		require.True(t, ok)
		assert.False(t, s.Available)
	})

	t.Run("busy ending at slot start does not block", func(t *testing.T) {
		bag := base
		bag.Busy = []Interval{{Start: tod(t, "09:00"), End: tod(t, "10:00")}}
		s, ok := Lookup(Resolve(bag, 60), tod(t, "10:00"))
		require.True(t, ok)
		assert.True(t, s.Available)
	})

	t.Run("busy starting at slot end does not block", func(t *testing.T) {
		bag := base
		bag.Busy = []Interval{{Start: tod(t, "11:00"), End: tod(t, "12:00")}}
		s, ok := Lookup(Resolve(bag, 60), tod(t, "10:00"))
		require.True(t, ok)
		assert.True(t, s.Available)
	})

	t.Run("partial overlap blocks", func(t *testing.T) {
		bag := base
		bag.Busy = []Interval{{Start: tod(t, "10:45"), End: tod(t, "11:15")}}
		got := Resolve(bag, 60)
		assert.Equal(t, []bool{true, false, false}, []bool{got[0].Available, got[1].Available, got[2].Available})
	})
}

func TestResolve_OverlapProperty(t *testing.T) {
	busy := []Interval{
		{Start: tod(t, "09:10"), End: tod(t, "09:20")},
		{Start: tod(t, "13:00"), End: tod(t, "14:30")},
	}
	bag := Bag{OfficeHours: hours(t, "08:00", "18:00"), IntervalMinutes: 20, Busy: busy}

	for _, s := range Resolve(bag, 20) {
		block := Interval{Start: s.Time, End: s.Time.Add(20)}
		overlaps := false
		for _, b := range busy {
			if block.Overlaps(b) {
				overlaps = true
			}
		}
		assert.Equal(t, !overlaps, s.Available, s.Time.String())
	}
}

func TestResolve_Idempotent(t *testing.T) {
	bag := Bag{
		OfficeHours:     hours(t, "09:00", "18:00"),
		IntervalMinutes: 30,
		Busy:            []Interval{{Start: tod(t, "11:00"), End: tod(t, "12:30")}},
	}
	first := Resolve(bag, 60)
	second := Resolve(bag, 60)
	assert.Equal(t, first, second)
	assert.Len(t, bag.Busy, 1, "input must not be mutated")
}

func TestResolve_DefaultsForMissingInterval(t *testing.T) {
	bag := Bag{OfficeHours: hours(t, "09:00", "12:00")}
	got := Resolve(bag, 0)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, times(got))
}

func TestResolve_ShortProcedureOnWideGrid(t *testing.T) {
	bag := Bag{
		OfficeHours:     hours(t, "09:00", "11:00"),
		IntervalMinutes: 60,
		Busy:            []Interval{{Start: tod(t, "09:45"), End: tod(t, "10:00")}},
	}
	got := Resolve(bag, 30)
	require.Len(t, got, 2)
	assert.False(t, got[0].Available, "the whole 60 minute block is checked")
	assert.True(t, got[1].Available)
}

func TestResolve_ClosedDay(t *testing.T) {
	bag := Bag{OfficeHours: hours(t, "12:00", "12:00"), IntervalMinutes: 30}
	assert.Empty(t, Resolve(bag, 30))
}

func TestSummaryAndFirstAvailable(t *testing.T) {
	slots := []Slot{
		{Time: tod(t, "09:00"), Available: false},
		{Time: tod(t, "10:00"), Available: true},
		{Time: tod(t, "11:00"), Available: true},
	}
	total, free := Summary(slots)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, free)

	first, ok := FirstAvailable(slots)
	require.True(t, ok)
	assert.Equal(t, "10:00", first.Time.String())

	_, ok = FirstAvailable(slots[:1])
	assert.False(t, ok)
}

func TestCompute_ScenarioFromPayload(t *testing.T) {
	raw := []byte(`{"officeHours":{"start":"09:00","end":"12:00"},"intervalMinutes":60,"busy":[["10:00","11:00"]]}`)
	got := Compute(raw, PublicDefaults, 60)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, times(got))
	assert.Equal(t, []bool{true, false, true}, []bool{got[0].Available, got[1].Available, got[2].Available})
}

func TestCompute_NeverPanicsOnGarbage(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("not json"),
		[]byte(`[]`),
		[]byte(`{"officeHours":"nope","intervalMinutes":"x","busy":{"weird":true}}`),
		[]byte(`{"busy":[null,1,"a",["x"],{"start":5}]}`),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			got := Compute(in, PublicDefaults, 60)
			assert.Len(t, got, 9, string(in))
		})
	}
}

func TestResolve_DurationLongerThanWindow(t *testing.T) {
	bag := Bag{
		OfficeHours:     hours(t, "09:00", "12:00"),
		IntervalMinutes: 60,
		Busy:            []Interval{{Start: tod(t, "10:00"), End: tod(t, "11:00")}},
	}

	for _, dur := range []int{181, 10000, MinutesPerDay + 1, math.MaxInt - 100, math.MaxInt} {
		got := Resolve(bag, dur)
		assert.Empty(t, got, "duration %d", dur)
	}

	// Exactly the window still fits once.
	got := Resolve(Bag{OfficeHours: hours(t, "09:00", "12:00"), IntervalMinutes: 60}, 180)
	assert.Equal(t, []string{"09:00"}, times(got))
}

func TestGenerate_HugeInterval(t *testing.T) {
	h := hours(t, "09:00", "12:00")
	for _, iv := range []int{181, math.MaxInt - 1, math.MaxInt} {
		assert.Empty(t, Generate(h, iv), "interval %d", iv)
		assert.Empty(t, Resolve(Bag{OfficeHours: h, IntervalMinutes: iv}, 60), "interval %d", iv)
	}
}

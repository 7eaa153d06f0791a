package booking

import (
	"strings"
	"time"

	"github.com/wolfman30/odonto-crm/internal/crmapi"
)

// Date ranges understood by FilterBookings.
const (
	RangeAll    = "all"
	RangeToday  = "today"
	RangeFuture = "future"
)

const futureWindow = 30 * 24 * time.Hour

// Filter selects bookings for the admin agenda.
type Filter struct {
	Query string
	Range string
	// Now anchors "today"; its location decides the calendar day.
	Now time.Time
}

// FilterBookings returns the bookings matching f, preserving order. The query
// matches case-insensitively against title, client and description.
// Unknown ranges behave like RangeAll.
func FilterBookings(list []crmapi.Booking, f Filter) []crmapi.Booking {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	out := make([]crmapi.Booking, 0, len(list))
	for _, b := range list {
		if q != "" && !strings.Contains(strings.ToLower(b.Title+b.Client+b.Desc), q) {
			continue
		}
		if !inRange(b.Date, f.Range, today) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func inRange(date, rng string, today time.Time) bool {
	switch rng {
	case RangeToday, RangeFuture:
	default:
		return true
	}
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), today.Location())
	if err != nil {
		return false
	}
	if rng == RangeToday {
		return d.Equal(today)
	}
	return !d.Before(today) && !d.After(today.Add(futureWindow))
}

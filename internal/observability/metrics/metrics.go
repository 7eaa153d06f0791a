package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for availability and upstream calls.
type BookingMetrics struct {
	slotComputations *prometheus.CounterVec
	slotsOffered     *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	bookingsTotal    *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		slotComputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odonto",
			Subsystem: "availability",
			Name:      "computations_total",
			Help:      "Total slot computations by surface and whether any slot was free",
		}, []string{"surface", "has_availability"}),
		slotsOffered: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "odonto",
			Subsystem: "availability",
			Name:      "free_slots",
			Help:      "Free slots per computed day",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 24, 48},
		}, []string{"surface"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odonto",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total calls to the CRM webhooks and postal lookup",
		}, []string{"operation", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "odonto",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of upstream calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odonto",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Redis cache lookups by cache and result",
		}, []string{"cache", "result"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odonto",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotComputations, m.slotsOffered, m.upstreamTotal, m.upstreamLatency, m.cacheLookups, m.bookingsTotal)
	return m
}

func (m *BookingMetrics) ObserveComputation(surface string, free int) {
	if m == nil {
		return
	}
	label := "false"
	if free > 0 {
		label = "true"
	}
	m.slotComputations.WithLabelValues(surface, label).Inc()
	m.slotsOffered.WithLabelValues(surface).Observe(float64(free))
}

func (m *BookingMetrics) ObserveUpstream(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(operation, status).Inc()
	m.upstreamLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

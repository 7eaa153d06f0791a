// Package booking serves day and month availability to the widget and the
// console, and submits public booking requests after re-checking the slot.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/odonto-crm/internal/availability"
	"github.com/wolfman30/odonto-crm/internal/crmapi"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

var bookingTracer = otel.Tracer("odonto.internal.booking")

const (
	dateLayout              = "2006-01-02"
	monthLayout             = "2006-01"
	defaultMonthConcurrency = 8
)

var (
	// ErrInvalidRequest wraps every input validation failure.
	ErrInvalidRequest = errors.New("booking: invalid request")
	// ErrSlotUnavailable is returned when the requested start is not free.
	ErrSlotUnavailable = errors.New("booking: slot unavailable")
)

// Surface selects which defaults apply to a day query.
type Surface string

const (
	SurfacePublic  Surface = "public"
	SurfaceConsole Surface = "console"
)

// AvailabilitySource fetches the raw availability bag for a day.
type AvailabilitySource interface {
	FetchAvailability(ctx context.Context, date, tz string) ([]byte, error)
}

// Submitter forwards a booking to the scheduling workflow.
type Submitter interface {
	SubmitBooking(ctx context.Context, sub crmapi.BookingSubmission, idempotencyKey string) (*crmapi.BookingReceipt, error)
}

// Recorder receives service telemetry. *metrics.BookingMetrics satisfies it.
type Recorder interface {
	ObserveComputation(surface string, free int)
	ObserveCache(cache string, hit bool)
	ObserveBooking(outcome string)
}

// ProcedureCatalog resolves a procedure's duration when a booking names the
// procedure but not its length.
type ProcedureCatalog interface {
	ListProcedures(ctx context.Context) ([]crmapi.Procedure, error)
}

// Config tunes the service.
type Config struct {
	Location         *time.Location
	PublicDefaults   availability.Defaults
	ConsoleDefaults  availability.Defaults
	MonthConcurrency int
	// Catalog is optional; without it a booking with no duration is
	// checked against one interval.
	Catalog ProcedureCatalog
}

// Service computes availability and submits bookings.
type Service struct {
	source    AvailabilitySource
	submitter Submitter
	cache     *BagCache
	cfg       Config
	metrics   Recorder
	logger    *logging.Logger
	newKey    func() string
}

// NewService constructs a booking service. cache and metrics may be nil.
func NewService(source AvailabilitySource, submitter Submitter, cache *BagCache, cfg Config, metrics Recorder, logger *logging.Logger) *Service {
	if source == nil {
		panic("booking: availability source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PublicDefaults.OfficeHours.IsZero() {
		cfg.PublicDefaults = availability.PublicDefaults
	}
	if cfg.ConsoleDefaults.OfficeHours.IsZero() {
		cfg.ConsoleDefaults = availability.ConsoleDefaults
	}
	if cfg.MonthConcurrency <= 0 {
		cfg.MonthConcurrency = defaultMonthConcurrency
	}
	return &Service{
		source:    source,
		submitter: submitter,
		cache:     cache,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		newKey:    uuid.NewString,
	}
}

// Location returns the clinic time zone.
func (s *Service) Location() *time.Location { return s.cfg.Location }

// DayAvailability is the resolved agenda for one day.
type DayAvailability struct {
	Date            string                   `json:"date"`
	OfficeHours     availability.OfficeHours `json:"officeHours"`
	IntervalMinutes int                      `json:"intervalMinutes"`
	DurationMinutes int                      `json:"durationMinutes"`
	Slots           []availability.Slot      `json:"slots"`
	HasAvailability bool                     `json:"hasAvailability"`
}

// DayStatus is one cell of the month overview.
type DayStatus struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
	Free      int    `json:"free"`
}

// MonthAvailability is the month overview.
type MonthAvailability struct {
	Month string      `json:"month"`
	Days  []DayStatus `json:"days"`
}

// Day resolves the slots of a YYYY-MM-DD date.
func (s *Service) Day(ctx context.Context, date string, durationMinutes int, surface Surface) (*DayAvailability, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.day")
	defer span.End()
	span.SetAttributes(
		attribute.String("odonto.date", date),
		attribute.String("odonto.surface", string(surface)),
		attribute.Int("odonto.duration_minutes", durationMinutes),
	)

	if err := checkDuration(durationMinutes); err != nil {
		return nil, err
	}
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}
	raw, err := s.bag(ctx, date, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.resolve(day, raw, durationMinutes, surface), nil
}

// Month resolves every day of a YYYY-MM month. Days whose bag cannot be
// fetched are reported as unavailable.
func (s *Service) Month(ctx context.Context, month string, durationMinutes int) (*MonthAvailability, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.month")
	defer span.End()
	span.SetAttributes(attribute.String("odonto.month", month))

	if err := checkDuration(durationMinutes); err != nil {
		return nil, err
	}
	first, err := time.ParseInLocation(monthLayout, strings.TrimSpace(month), s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidRequest)
	}
	daysIn := first.AddDate(0, 1, -1).Day()
	days := make([]DayStatus, daysIn)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MonthConcurrency)
	for i := 0; i < daysIn; i++ {
		i := i
		day := first.AddDate(0, 0, i)
		date := day.Format(dateLayout)
		days[i] = DayStatus{Date: date}
		g.Go(func() error {
			raw, err := s.bag(gctx, date, true)
			if err != nil {
				s.logger.Warn("month overview: day fetch failed", "date", date, "error", err)
				return nil
			}
			res := s.resolve(day, raw, durationMinutes, SurfacePublic)
			_, free := availability.Summary(res.Slots)
			days[i].Available = res.HasAvailability
			days[i].Free = free
			return nil
		})
	}
	// Day failures are absorbed above; only cancellation fails the month.
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &MonthAvailability{Month: first.Format(monthLayout), Days: days}, nil
}

// Request is a public booking request.
type Request struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Procedure       string `json:"procedure,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	IdempotencyKey  string `json:"-"`
}

// Confirmation is returned after a booking was accepted by the workflow.
type Confirmation struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	IdempotencyKey string `json:"idempotencyKey"`
	ID             string `json:"id,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Validate checks the fields a booking needs.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Phone) == "" && strings.TrimSpace(r.Email) == "":
		return fmt.Errorf("%w: phone or email is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Date) == "":
		return fmt.Errorf("%w: date is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Time) == "":
		return fmt.Errorf("%w: time is required", ErrInvalidRequest)
	}
	return checkDuration(r.DurationMinutes)
}

// checkDuration rejects durations no day can hold.
func checkDuration(minutes int) error {
	if minutes < 0 || minutes > availability.MinutesPerDay {
		return fmt.Errorf("%w: duration must be between 0 and %d minutes", ErrInvalidRequest, availability.MinutesPerDay)
	}
	return nil
}

// Book re-checks the slot against a fresh bag and submits the booking.
func (s *Service) Book(ctx context.Context, req Request) (*Confirmation, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("odonto.date", req.Date),
		attribute.String("odonto.time", req.Time),
	)

	if err := req.Validate(); err != nil {
		s.observeBooking("invalid")
		return nil, err
	}
	if s.submitter == nil {
		return nil, fmt.Errorf("booking: submitter not configured")
	}
	day, err := s.parseDate(req.Date)
	if err != nil {
		s.observeBooking("invalid")
		return nil, err
	}
	start, err := availability.ParseTimeOfDay(req.Time)
	if err != nil {
		s.observeBooking("invalid")
		return nil, fmt.Errorf("%w: time must be HH:MM", ErrInvalidRequest)
	}

	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.procedureDuration(ctx, req.Procedure)
	}

	raw, err := s.bag(ctx, req.Date, false)
	if err != nil {
		span.RecordError(err)
		s.observeBooking("error")
		return nil, err
	}
	res := s.resolve(day, raw, req.DurationMinutes, SurfacePublic)
	if slot, ok := availability.Lookup(res.Slots, start); !ok || !slot.Available {
		s.observeBooking("unavailable")
		return nil, ErrSlotUnavailable
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = s.newKey()
	}
	receipt, err := s.submitter.SubmitBooking(ctx, crmapi.BookingSubmission{
		Name:            strings.TrimSpace(req.Name),
		Phone:           strings.TrimSpace(req.Phone),
		Email:           strings.TrimSpace(req.Email),
		Date:            req.Date,
		Time:            start.String(),
		TZ:              s.cfg.Location.String(),
		Procedure:       req.Procedure,
		DurationMinutes: req.DurationMinutes,
	}, key)
	if err != nil {
		span.RecordError(err)
		s.observeBooking("error")
		return nil, fmt.Errorf("booking: submit: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, req.Date, s.cfg.Location.String()); err != nil {
			s.logger.Warn("availability cache invalidation failed", "date", req.Date, "error", err)
		}
	}
	s.observeBooking("submitted")
	s.logger.Info("booking submitted", "date", req.Date, "time", start.String(), "idempotency_key", key)

	conf := &Confirmation{Date: req.Date, Time: start.String(), IdempotencyKey: key}
	if receipt != nil {
		conf.ID = string(receipt.ID)
		conf.Message = receipt.Message
	}
	return conf, nil
}

func (s *Service) parseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), s.cfg.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	return day, nil
}

// procedureDuration looks the procedure up in the catalog. It returns 0, one
// interval, when there is no catalog or no match.
func (s *Service) procedureDuration(ctx context.Context, procedure string) int {
	if s.cfg.Catalog == nil || strings.TrimSpace(procedure) == "" {
		return 0
	}
	procs, err := s.cfg.Catalog.ListProcedures(ctx)
	if err != nil {
		s.logger.Warn("procedure lookup failed, checking one interval", "procedure", procedure, "error", err)
		return 0
	}
	p, ok := crmapi.FindProcedure(procs, procedure)
	if !ok {
		return 0
	}
	if d := p.DurationMinutes(); d > 0 && d <= availability.MinutesPerDay {
		return d
	}
	return 0
}

func (s *Service) defaults(surface Surface) availability.Defaults {
	if surface == SurfaceConsole {
		return s.cfg.ConsoleDefaults
	}
	return s.cfg.PublicDefaults
}

func (s *Service) resolve(day time.Time, raw []byte, durationMinutes int, surface Surface) *DayAvailability {
	bag := availability.DecodeBag(raw, s.defaults(surface),
		availability.WithLocation(s.cfg.Location),
		availability.WithDay(day),
	)
	slots := availability.Resolve(bag, durationMinutes)
	_, free := availability.Summary(slots)
	if s.metrics != nil {
		s.metrics.ObserveComputation(string(surface), free)
	}
	duration := durationMinutes
	if duration <= 0 {
		duration = bag.IntervalMinutes
	}
	return &DayAvailability{
		Date:            day.Format(dateLayout),
		OfficeHours:     bag.OfficeHours,
		IntervalMinutes: bag.IntervalMinutes,
		DurationMinutes: duration,
		Slots:           slots,
		HasAvailability: free > 0,
	}
}

// bag fetches the raw bag, going through the cache when useCache is set.
func (s *Service) bag(ctx context.Context, date string, useCache bool) ([]byte, error) {
	tz := s.cfg.Location.String()
	if useCache && s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, date, tz)
		if err != nil {
			s.logger.Warn("availability cache read failed", "date", date, "error", err)
		}
		s.observeCache(ok)
		if ok {
			return raw, nil
		}
	}

	raw, err := s.source.FetchAvailability(ctx, date, tz)
	if err != nil {
		return nil, fmt.Errorf("booking: fetch availability: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, date, tz, raw); err != nil {
			s.logger.Warn("availability cache write failed", "date", date, "error", err)
		}
	}
	return raw, nil
}

func (s *Service) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveCache("availability", hit)
	}
}

func (s *Service) observeBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveBooking(outcome)
	}
}

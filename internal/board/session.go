package board

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"mealboard/internal/calendar"
	"mealboard/internal/domain"
	"mealboard/internal/events"
	"mealboard/internal/models"
	"mealboard/internal/worker"

	"github.com/rs/zerolog"
)

// Source delivers the full record list in one request.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Record, error)
}

// State of a session as seen by a presentation layer.
type State string

const (
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateUnavailable State = "unavailable"
)

// View is the result of filtering the cached records for one selection.
type View struct {
	State    State
	Date     string
	Records  []models.Record
	Count    int
	LoadedAt time.Time
	Message  string
}

type snapshot struct {
	records  []models.Record
	loadedAt time.Time
}

// Session owns the in-memory record cache of one presentation layer.
// The cache is replaced wholesale on each successful load; readers never
// wait for a load in progress.
type Session struct {
	source    Source
	loc       *time.Location
	order     Order
	retry     worker.RetryPolicy
	publisher domain.EventPublisher
	logger    *zerolog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	snap    atomic.Pointer[snapshot]
	failure atomic.Pointer[DataUnavailableError]
	loading atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

func WithLocation(loc *time.Location) Option {
	return func(s *Session) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithOrder(order Order) Option {
	return func(s *Session) { s.order = order }
}

func WithRetryPolicy(p worker.RetryPolicy) Option {
	return func(s *Session) { s.retry = p }
}

func WithPublisher(p domain.EventPublisher) Option {
	return func(s *Session) { s.publisher = p }
}

func WithLogger(l *zerolog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source and the pause between attempts.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func NewSession(src Source, opts ...Option) *Session {
	nop := zerolog.Nop()
	s := &Session{
		source: src,
		loc:    time.UTC,
		order:  OrderAscending,
		retry:  worker.SingleRetry(0),
		logger: &nop,
		now:    time.Now,
		sleep:  sleepContext,
	}
	if loc, err := calendar.LoadLocation(calendar.DefaultTimezone); err == nil {
		s.loc = loc
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the target timezone records are keyed in.
func (s *Session) Location() *time.Location { return s.loc }

// Loaded reports whether at least one load has succeeded.
func (s *Session) Loaded() bool { return s.snap.Load() != nil }

// Loading reports whether a load is in flight.
func (s *Session) Loading() bool { return s.loading.Load() }

// LastFailure returns the last terminal load error, or nil after a success.
func (s *Session) LastFailure() error {
	if f := s.failure.Load(); f != nil {
		return f
	}
	return nil
}

// Records returns a copy of the cached records.
func (s *Session) Records() []models.Record {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	return append([]models.Record(nil), snap.records...)
}

// Load fetches all records, retrying per the session policy. A call made
// while another load is running returns ErrLoadInProgress without fetching.
func (s *Session) Load(ctx context.Context) error {
	if !s.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	defer s.loading.Store(false)

	l := s.logger.With().Str("source", s.source.Name()).Logger()
	attempts := s.retry.Attempts()

	var lastErr error
	attempt := 0
	for attempt < attempts {
		attempt++
		if attempt > 1 {
			delay := s.retry.NextDelay(attempt - 1)
			l.Warn().Err(lastErr).Dur("delay", delay).Int("attempt", attempt).Msg("retrying load")
			s.publish(events.EventLoadRetrying, events.LoadEventPayload{
				Source:  s.source.Name(),
				Attempt: attempt,
				Error:   lastErr.Error(),
			})
			if err := s.sleep(ctx, delay); err != nil {
				lastErr = err
				attempt--
				break
			}
		}

		records, err := s.source.Fetch(ctx)
		if err == nil {
			s.store(records, attempt, &l)
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsRetryable(err) {
			break
		}
	}

	failure := &DataUnavailableError{Attempts: attempt, Err: lastErr}
	s.failure.Store(failure)
	l.Error().Err(lastErr).Int("attempts", attempt).Msg("records unavailable")
	s.publish(events.EventLoadFailed, events.LoadEventPayload{
		Source:  s.source.Name(),
		Attempt: attempt,
		Error:   lastErr.Error(),
	})
	return failure
}

func (s *Session) store(records []models.Record, attempt int, l *zerolog.Logger) {
	fresh := make([]models.Record, len(records))
	copy(fresh, records)

	unkeyable := 0
	for _, rec := range fresh {
		if !rec.BookingDate.Present() {
			continue
		}
		if _, err := calendar.DayKey(rec.BookingDate, s.loc); err != nil {
			unkeyable++
			l.Debug().Err(err).Str("name", rec.Name).Msg("booking date cannot be keyed")
		}
	}

	loadedAt := s.now()
	s.snap.Store(&snapshot{records: fresh, loadedAt: loadedAt})
	s.failure.Store(nil)

	ev := l.Info().Int("records", len(fresh)).Int("attempt", attempt)
	if unkeyable > 0 {
		ev = ev.Int("unkeyable", unkeyable)
	}
	ev.Msg("records loaded")

	s.publish(events.EventRecordsLoaded, events.LoadEventPayload{
		Source:   s.source.Name(),
		Count:    len(fresh),
		Skipped:  unkeyable,
		Attempt:  attempt,
		LoadedAt: loadedAt,
	})
}

// View filters the cached records by a YYYY-MM-DD selection. An invalid
// selection is an error in every state; before the first successful load
// the view is loading or unavailable, never an empty ready result.
func (s *Session) View(text string) (View, error) {
	sel, err := calendar.ParseSelection(text)
	if err != nil {
		return View{}, err
	}
	return s.ViewSelection(sel), nil
}

// ViewSelection is View for an already parsed selection.
func (s *Session) ViewSelection(sel calendar.Selection) View {
	v := View{Date: sel.Key()}

	snap := s.snap.Load()
	if snap == nil {
		if f := s.failure.Load(); f != nil && !s.loading.Load() {
			v.State = StateUnavailable
			v.Message = f.Error()
			return v
		}
		v.State = StateLoading
		return v
	}

	v.State = StateReady
	v.Records = Filter(snap.records, sel, s.loc, s.order)
	v.Count = len(v.Records)
	v.LoadedAt = snap.loadedAt
	return v
}

// Today is the current date in the target timezone.
func (s *Session) Today() calendar.Selection {
	return calendar.Today(s.now(), s.loc)
}

func (s *Session) publish(eventType string, payload events.LoadEventPayload) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish event")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryable reports whether err is a per-request failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrMalformedPayload)
}

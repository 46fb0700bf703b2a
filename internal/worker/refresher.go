package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Loader is anything that can reload its data on demand.
type Loader interface {
	Load(ctx context.Context) error
}

// Refresher reloads a Loader on a cron schedule. A tick that fires while the
// previous load still runs is skipped.
type Refresher struct {
	loader  Loader
	cron    *cron.Cron
	timeout time.Duration
	logger  *zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entryID cron.EntryID
}

// NewRefresher parses schedule as a standard five-field cron expression or a
// descriptor such as "@every 10m", evaluated in loc.
func NewRefresher(loader Loader, schedule string, loc *time.Location, timeout time.Duration, logger *zerolog.Logger) (*Refresher, error) {
	if loader == nil {
		return nil, errors.New("loader is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	r := &Refresher{
		loader:  loader,
		cron:    c,
		timeout: timeout,
		logger:  logger,
		ctx:     context.Background(),
	}

	id, err := c.AddFunc(schedule, r.run)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	r.entryID = id
	return r, nil
}

// Start runs the schedule until ctx is done or Stop is called.
func (r *Refresher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.ctx, r.cancel = runCtx, cancel
	r.mu.Unlock()

	r.cron.Start()
	r.logger.Info().Time("next", r.Next()).Msg("refresh scheduled")

	go func() {
		<-runCtx.Done()
		r.Stop()
	}()
}

// Stop halts the schedule and waits for a running load to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	<-r.cron.Stop().Done()
}

// Next is the time of the next scheduled load.
func (r *Refresher) Next() time.Time {
	return r.cron.Entry(r.entryID).Next
}

func (r *Refresher) run() {
	r.mu.Lock()
	parent := r.ctx
	r.mu.Unlock()

	ctx := parent
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.timeout)
		defer cancel()
	}

	if err := r.loader.Load(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("scheduled refresh failed")
		return
	}
	r.logger.Debug().Msg("scheduled refresh done")
}

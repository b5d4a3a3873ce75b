package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomfinder/internal/availability"
	"roomfinder/internal/metrics"
	"roomfinder/internal/model"
)

// ErrStaleResponse marks a completion that belongs to a superseded generation. It is
// never rendered.
var ErrStaleResponse = errors.New("stale response")

// Querier is the part of Client the orchestrator needs.
type Querier interface {
	RoomsInBuilding(ctx context.Context, q availability.BuildingQuery) ([]model.FreeInterval, error)
}

// Row is one rendered interval: the raw record plus its display strings.
type Row struct {
	Interval    model.FreeInterval
	Start       string
	End         string
	LastUpdated string
}

// View is what the user sees for one generation.
type View struct {
	Generation uint64
	Query      *availability.BuildingQuery // nil while any selection is unset
	Loading    bool
	Rows       []Row
	Err        string
}

// OrchestratorOptions tune an Orchestrator. Zero values are usable.
type OrchestratorOptions struct {
	// Location turns dates into weekdays and timestamps into display text.
	Location *time.Location
	// Timeout bounds each query; zero means no bound beyond the client's own.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// Orchestrator turns building, date and time selections into at most one current
// query. Every change starts a new generation and cancels the previous request;
// completions from older generations are dropped.
//
// render is called with the orchestrator's lock held, so calls never interleave and
// arrive in generation order. render must not call back into the Orchestrator.
type Orchestrator struct {
	querier Querier
	render  func(View)
	loc     *time.Location
	timeout time.Duration
	logger  *zerolog.Logger

	mu       sync.Mutex
	building string
	date     *time.Time
	at       *model.TimeOfDay
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
	view     View

	wg sync.WaitGroup
}

func NewOrchestrator(q Querier, render func(View), opts OrchestratorOptions) *Orchestrator {
	o := &Orchestrator{
		querier: q,
		render:  render,
		loc:     opts.Location,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	if o.logger == nil {
		nop := zerolog.Nop()
		o.logger = &nop
	}
	return o
}

// SetBuilding selects a building; an empty or blank name unsets it.
func (o *Orchestrator) SetBuilding(building string) {
	o.update(func() { o.building = building })
}

// SetDate selects a calendar date. Only its weekday in the configured location matters.
func (o *Orchestrator) SetDate(date time.Time) {
	o.update(func() { o.date = &date })
}

func (o *Orchestrator) ClearDate() {
	o.update(func() { o.date = nil })
}

func (o *Orchestrator) SetTime(at model.TimeOfDay) {
	o.update(func() { o.at = &at })
}

func (o *Orchestrator) ClearTime() {
	o.update(func() { o.at = nil })
}

// View returns the most recently rendered view.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// Wait blocks until every issued query has completed.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels the in-flight query, waits for it and stops all further rendering.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) update(apply func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	apply()

	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}

	q, ok := o.queryLocked()
	if !ok {
		o.emitLocked(View{Generation: o.gen})
		return
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if o.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), o.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	o.cancel = cancel
	o.emitLocked(View{Generation: o.gen, Query: &q, Loading: true})

	gen := o.gen
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		rows, err := o.querier.RoomsInBuilding(ctx, q)
		o.complete(gen, q, rows, err)
	}()
}

func (o *Orchestrator) queryLocked() (availability.BuildingQuery, bool) {
	if strings.TrimSpace(o.building) == "" || o.date == nil || o.at == nil {
		return availability.BuildingQuery{}, false
	}
	at := *o.at
	return availability.BuildingQuery{
		Building: o.building,
		Weekday:  model.WeekdayOf(*o.date, o.loc),
		At:       &at,
	}, true
}

func (o *Orchestrator) complete(gen uint64, q availability.BuildingQuery, rows []model.FreeInterval, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if stale := o.acceptLocked(gen, err); stale != nil {
		metrics.IncStale()
		o.logger.Debug().Uint64("generation", gen).Uint64("current", o.gen).Err(stale).Msg("dropping response")
		return
	}

	v := View{Generation: gen, Query: &q, Rows: make([]Row, 0, len(rows))}
	if err != nil {
		v.Err = displayError(err)
		o.logger.Warn().Err(err).Stringer("query", q).Msg("availability query failed")
	} else {
		for _, iv := range rows {
			v.Rows = append(v.Rows, Row{
				Interval:    iv,
				Start:       FormatClock(iv.FreeStart),
				End:         FormatClock(iv.FreeEnd),
				LastUpdated: FormatLastUpdated(iv.LastUpdated, o.loc),
			})
		}
	}
	o.emitLocked(v)
}

// acceptLocked returns ErrStaleResponse when the completion of gen must not be
// rendered. A cancelled request is always stale: only supersession or Close cancel.
func (o *Orchestrator) acceptLocked(gen uint64, queryErr error) error {
	if o.closed || gen != o.gen || errors.Is(queryErr, context.Canceled) {
		return ErrStaleResponse
	}
	return nil
}

func (o *Orchestrator) emitLocked(v View) {
	o.view = v
	if o.render != nil {
		o.render(v)
	}
}

func displayError(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

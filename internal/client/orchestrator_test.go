package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomfinder/internal/availability"
	"roomfinder/internal/model"
)

// gatedQuerier blocks each call until its checkTime is released and ignores ctx, like
// a server that finishes work nobody waits for anymore.
type gatedQuerier struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	results map[string][]model.FreeInterval
	queries []availability.BuildingQuery
	started chan string
}

func newGatedQuerier(keys ...string) *gatedQuerier {
	g := &gatedQuerier{
		gates:   make(map[string]chan struct{}),
		results: make(map[string][]model.FreeInterval),
		started: make(chan string, 16),
	}
	for _, k := range keys {
		g.gates[k] = make(chan struct{})
	}
	return g
}

func (g *gatedQuerier) RoomsInBuilding(_ context.Context, q availability.BuildingQuery) ([]model.FreeInterval, error) {
	key := q.At.String()
	g.mu.Lock()
	g.queries = append(g.queries, q)
	gate := g.gates[key]
	res := g.results[key]
	g.mu.Unlock()

	g.started <- key
	<-gate
	return res, nil
}

type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) render(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) all() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

var monday = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func freeRow(id int64, room, start, end string) model.FreeInterval {
	return model.FreeInterval{
		ID:        id,
		Room:      room,
		Weekday:   model.Monday,
		FreeStart: model.MustTimeOfDay(start),
		FreeEnd:   model.MustTimeOfDay(end),
	}
}

func TestOrchestrator_StaleResponseDiscarded(t *testing.T) {
	q := newGatedQuerier("09:15:00", "13:10:00")
	q.results["09:15:00"] = []model.FreeInterval{freeRow(1, "Davis Library-Rm 100", "09:00", "09:45")}
	q.results["13:10:00"] = []model.FreeInterval{freeRow(7, "Davis Hall-Rm 2", "13:05", "17:00")}

	rec := &recorder{}
	o := NewOrchestrator(q, rec.render, OrchestratorOptions{Location: time.UTC})
	defer o.Close()

	o.SetBuilding("Davis")
	o.SetDate(monday)
	o.SetTime(model.MustTimeOfDay("09:15"))
	require.Equal(t, "09:15:00", <-q.started)

	o.SetTime(model.MustTimeOfDay("13:10"))
	require.Equal(t, "13:10:00", <-q.started)

	// G2 completes first.
	close(q.gates["13:10:00"])
	require.Eventually(t, func() bool {
		v := o.View()
		return !v.Loading && len(v.Rows) == 1
	}, time.Second, 5*time.Millisecond)

	// G1 completes late and must not overwrite G2.
	close(q.gates["09:15:00"])
	o.Wait()

	v := o.View()
	require.Len(t, v.Rows, 1)
	assert.Equal(t, int64(7), v.Rows[0].Interval.ID)
	assert.Equal(t, "1:05 PM", v.Rows[0].Start)
	assert.Equal(t, "5:00 PM", v.Rows[0].End)
	assert.Empty(t, v.Err)

	for _, rv := range rec.all() {
		for _, row := range rv.Rows {
			assert.NotEqual(t, int64(1), row.Interval.ID, "stale generation rendered")
		}
	}
	last := rec.all()[len(rec.all())-1]
	assert.Equal(t, v.Generation, last.Generation)
}

func TestOrchestrator_IncompleteClearsView(t *testing.T) {
	q := newGatedQuerier("09:15:00")
	q.results["09:15:00"] = []model.FreeInterval{freeRow(1, "Davis Library-Rm 100", "09:00", "09:45")}
	close(q.gates["09:15:00"])

	rec := &recorder{}
	o := NewOrchestrator(q, rec.render, OrchestratorOptions{Location: time.UTC})
	defer o.Close()

	o.SetBuilding("Davis")
	o.SetTime(model.MustTimeOfDay("09:15"))
	assert.Nil(t, o.View().Query)
	assert.Empty(t, q.started)

	o.SetDate(monday)
	<-q.started
	o.Wait()
	require.Len(t, o.View().Rows, 1)
	require.NotNil(t, o.View().Query)
	assert.Equal(t, model.Monday, o.View().Query.Weekday)

	o.ClearDate()
	v := o.View()
	assert.Nil(t, v.Query)
	assert.Empty(t, v.Rows)
	assert.Empty(t, v.Err)
	assert.False(t, v.Loading)

	q.mu.Lock()
	assert.Len(t, q.queries, 1)
	q.mu.Unlock()
}

func TestOrchestrator_BlankBuildingIsUnset(t *testing.T) {
	q := newGatedQuerier("09:15:00")
	close(q.gates["09:15:00"])

	o := NewOrchestrator(q, nil, OrchestratorOptions{Location: time.UTC})
	defer o.Close()

	o.SetBuilding("  \t")
	o.SetDate(monday)
	o.SetTime(model.MustTimeOfDay("09:15"))
	o.Wait()

	v := o.View()
	assert.Nil(t, v.Query)
	assert.False(t, v.Loading)
	assert.Empty(t, v.Err)
	assert.Empty(t, q.started)
}

func TestOrchestrator_WeekdayUsesLocation(t *testing.T) {
	q := newGatedQuerier("09:15:00")
	close(q.gates["09:15:00"])

	est := time.FixedZone("EST", -5*60*60)
	o := NewOrchestrator(q, nil, OrchestratorOptions{Location: est})
	defer o.Close()

	o.SetBuilding("Davis")
	o.SetTime(model.MustTimeOfDay("09:15"))
	// 03:00 UTC Monday is still Sunday evening in EST.
	o.SetDate(time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC))
	o.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	require.Len(t, q.queries, 1)
	assert.Equal(t, model.Sunday, q.queries[0].Weekday)
}

type errQuerier struct {
	err error
}

func (e errQuerier) RoomsInBuilding(ctx context.Context, _ availability.BuildingQuery) ([]model.FreeInterval, error) {
	if e.err == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, e.err
}

func TestOrchestrator_ErrorRendered(t *testing.T) {
	o := NewOrchestrator(errQuerier{err: &APIError{StatusCode: 500, Message: "failed to query room availability"}}, nil, OrchestratorOptions{})
	defer o.Close()

	o.SetBuilding("Davis")
	o.SetDate(monday)
	o.SetTime(model.MustTimeOfDay("09:15"))
	o.Wait()

	v := o.View()
	assert.Equal(t, "failed to query room availability", v.Err)
	assert.Empty(t, v.Rows)
}

func TestOrchestrator_Timeout(t *testing.T) {
	o := NewOrchestrator(errQuerier{}, nil, OrchestratorOptions{Timeout: 20 * time.Millisecond})
	defer o.Close()

	o.SetBuilding("Davis")
	o.SetDate(monday)
	o.SetTime(model.MustTimeOfDay("09:15"))
	o.Wait()

	assert.Equal(t, "request timed out", o.View().Err)
}

func TestOrchestrator_CloseSuppressesRendering(t *testing.T) {
	rec := &recorder{}
	o := NewOrchestrator(errQuerier{}, rec.render, OrchestratorOptions{})

	o.SetBuilding("Davis")
	o.SetDate(monday)
	o.SetTime(model.MustTimeOfDay("09:15"))
	before := len(rec.all())

	done := make(chan struct{})
	go func() {
		o.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the in-flight query")
	}

	o.SetBuilding("Phillips")
	assert.Len(t, rec.all(), before)
	assert.True(t, o.View().Loading)
}

func TestOrchestrator_SupersededRequestCancelled(t *testing.T) {
	canceled := make(chan error, 1)
	q := querierFunc(func(ctx context.Context, bq availability.BuildingQuery) ([]model.FreeInterval, error) {
		if bq.Building == "Davis" {
			<-ctx.Done()
			canceled <- ctx.Err()
			return nil, ctx.Err()
		}
		return nil, nil
	})

	o := NewOrchestrator(q, nil, OrchestratorOptions{})
	defer o.Close()

	o.SetDate(monday)
	o.SetTime(model.MustTimeOfDay("09:15"))
	o.SetBuilding("Davis")
	o.SetBuilding("Phillips")
	o.Wait()

	assert.True(t, errors.Is(<-canceled, context.Canceled))
	v := o.View()
	assert.Equal(t, "Phillips", v.Query.Building)
	assert.Empty(t, v.Err)
}

type querierFunc func(ctx context.Context, q availability.BuildingQuery) ([]model.FreeInterval, error)

func (f querierFunc) RoomsInBuilding(ctx context.Context, q availability.BuildingQuery) ([]model.FreeInterval, error) {
	return f(ctx, q)
}

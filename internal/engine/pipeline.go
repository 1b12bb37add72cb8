package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/yangwenmai/storeops/internal/catalog"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/store"
)

const instrumentationName = "github.com/yangwenmai/storeops/internal/engine"

// ErrUnknownPersona is returned by SetState for a persona outside the known set.
var ErrUnknownPersona = errors.New("unknown persona")

// State is the operator's current view of the store.
type State struct {
	Category model.Category `json:"category"`
	Persona  model.Persona  `json:"persona"`
}

// Pipeline turns feed records into tasks. It owns task construction (ids,
// timestamps, category tagging) and delegates atomic mutation to the store.
type Pipeline struct {
	store   store.Repository
	catalog *catalog.Catalog
	now     func() time.Time
	ids     *IDSource
	log     zerolog.Logger
	tracer  trace.Tracer
	metrics *metrics

	mu    sync.RWMutex
	state State
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock used for task timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDSource overrides the task id source.
func WithIDSource(ids *IDSource) Option {
	return func(p *Pipeline) { p.ids = ids }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Pipeline) { p.metrics = &metrics{provider: mp} }
}

// WithInitialState sets the category and persona before seeding.
func WithInitialState(category model.Category, persona model.Persona) Option {
	return func(p *Pipeline) { p.state = State{Category: category, Persona: persona} }
}

// NewPipeline creates a pipeline over the given repository. The catalog
// supplies seed data and the per-category operations feeds.
func NewPipeline(s store.Repository, cat *catalog.Catalog, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		store:   s,
		catalog: cat,
		now:     time.Now,
		log:     zerolog.Nop(),
		state:   State{Category: model.CategoryAll, Persona: model.PersonaStoreManager},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ids == nil {
		p.ids = NewIDSource()
	}
	if p.metrics == nil {
		p.metrics = &metrics{provider: otel.GetMeterProvider()}
	}
	if err := p.metrics.init(); err != nil {
		return nil, fmt.Errorf("engine metrics: %w", err)
	}
	p.tracer = otel.Tracer(instrumentationName)
	p.log = p.log.With().Str("component", "engine").Logger()
	return p, nil
}

// Seed loads the catalog's recommendations, tasks and the operations feed
// for the current category into the store, replacing whatever is there.
func (p *Pipeline) Seed(ctx context.Context) error {
	st := p.State()
	if err := p.store.SeedRecommendations(ctx, p.catalog.Recommendations); err != nil {
		return &OpError{Op: "seed", Err: err}
	}
	if err := p.store.SeedTasks(ctx, p.catalog.Tasks); err != nil {
		return &OpError{Op: "seed", Err: err}
	}
	if err := p.resetOpsFeed(ctx, st.Category); err != nil {
		return &OpError{Op: "seed", Err: err}
	}
	p.log.Info().
		Int("recommendations", len(p.catalog.Recommendations)).
		Int("tasks", len(p.catalog.Tasks)).
		Str("category", string(st.Category)).
		Msg("store seeded")
	return nil
}

// State returns the active category and persona.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState changes the active category and persona. When the new persona
// works the operations feed and anything changed, the insight and alert
// feeds are reset from the catalog for the new category.
func (p *Pipeline) SetState(ctx context.Context, next State) (State, error) {
	if _, err := p.catalog.Feed(next.Category); err != nil {
		return State{}, err
	}
	if _, ok := model.ParsePersona(string(next.Persona)); !ok {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownPersona, next.Persona)
	}

	p.mu.Lock()
	prev := p.state
	p.state = next
	p.mu.Unlock()

	if next.Persona.ResetsOpsFeed() && next != prev {
		if err := p.resetOpsFeed(ctx, next.Category); err != nil {
			return next, &OpError{Op: "set_state", Err: err}
		}
		p.log.Info().Str("category", string(next.Category)).Msg("operations feed reset")
	}
	return next, nil
}

func (p *Pipeline) resetOpsFeed(ctx context.Context, category model.Category) error {
	feed, err := p.catalog.Feed(category)
	if err != nil {
		return err
	}
	return p.store.ReplaceOpsFeed(ctx, feed.Insights, feed.Alerts)
}

// stamp returns a fresh task id and the current display time.
func (p *Pipeline) stamp() (id, ts string) {
	now := p.now()
	return p.ids.TaskID(now), now.Format(model.TimestampLayout)
}

// OpError wraps an error with the pipeline operation that failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

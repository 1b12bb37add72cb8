// Package scan simulates shelf-image analysis: after a processing delay it
// returns one of the catalog's scan scenarios with a fresh session id and
// its compliance score.
package scan

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yangwenmai/storeops/internal/logging"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/scoring"
)

// DefaultAnalysisDelay is how long a simulated analysis takes.
const DefaultAnalysisDelay = 4500 * time.Millisecond

const instrumentationName = "github.com/yangwenmai/storeops/internal/scan"

// ErrNoScenarios is returned by NewAnalyzer when there is nothing to pick.
var ErrNoScenarios = errors.New("no scan scenarios")

// Analyzer produces simulated scan results.
type Analyzer struct {
	scenarios []model.ShelfScanScenario
	delay     time.Duration
	pick      func(n int) int
	log       zerolog.Logger
	provider  metric.MeterProvider
	score     metric.Int64Histogram

	mu      sync.Mutex
	results map[string]model.ShelfScanScenario
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDelay overrides the analysis delay.
func WithDelay(d time.Duration) Option {
	return func(a *Analyzer) { a.delay = d }
}

// WithPicker overrides the scenario chooser; pick(n) must return [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(a *Analyzer) { a.pick = pick }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(a *Analyzer) { a.provider = mp }
}

// NewAnalyzer creates an analyzer over the given scenarios.
func NewAnalyzer(scenarios []model.ShelfScanScenario, opts ...Option) (*Analyzer, error) {
	if len(scenarios) == 0 {
		return nil, ErrNoScenarios
	}
	a := &Analyzer{
		scenarios: scenarios,
		delay:     DefaultAnalysisDelay,
		pick:      rand.IntN,
		log:       zerolog.Nop(),
		provider:  otel.GetMeterProvider(),
		results:   make(map[string]model.ShelfScanScenario),
	}
	for _, opt := range opts {
		opt(a)
	}
	h, err := newScoreHistogram(a.provider)
	if err != nil {
		return nil, fmt.Errorf("scan metrics: %w", err)
	}
	a.score = h
	a.log = a.log.With().Str("component", "scan").Logger()
	return a, nil
}

func newScoreHistogram(mp metric.MeterProvider) (metric.Int64Histogram, error) {
	return mp.Meter(instrumentationName).Int64Histogram("storeops.scan.compliance_score",
		metric.WithDescription("Compliance score of completed shelf scans"),
		metric.WithUnit("{score}"),
		metric.WithExplicitBucketBoundaries(50, 70, 80, 90, 100),
	)
}

// Analyze waits for the analysis delay and returns a scored scenario with a
// new session id. It returns ctx.Err() if ctx ends first, in which case no
// result is produced.
func (a *Analyzer) Analyze(ctx context.Context) (model.ShelfScanScenario, error) {
	sessionID := uuid.NewString()
	ctx = logging.WithField(ctx, logging.ScanSessionKey, sessionID)
	a.log.Debug().Ctx(ctx).Dur("delay", a.delay).Msg("analysis started")

	t := time.NewTimer(a.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		a.log.Debug().Ctx(ctx).Err(ctx.Err()).Msg("analysis cancelled")
		return model.ShelfScanScenario{}, ctx.Err()
	case <-t.C:
	}

	result := a.scenarios[a.pick(len(a.scenarios))]
	result.DetectedItems = append([]model.DetectedItem(nil), result.DetectedItems...)
	result.SessionID = sessionID
	result.ComplianceScore = scoring.ComplianceScore(result.Summary)

	a.mu.Lock()
	a.results[sessionID] = result
	a.mu.Unlock()

	a.score.Record(ctx, int64(result.ComplianceScore), metric.WithAttributes(
		attribute.String("scenario", result.Name),
	))
	a.log.Info().Ctx(ctx).
		Str("scenario", result.Name).
		Int("compliance_score", result.ComplianceScore).
		Str("band", string(scoring.BandFor(result.ComplianceScore))).
		Msg("analysis complete")
	return result, nil
}

// Result returns a completed scan by session id.
func (a *Analyzer) Result(sessionID string) (model.ShelfScanScenario, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.results[sessionID]
	return r, ok
}

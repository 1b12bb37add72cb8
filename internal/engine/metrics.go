package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Dismissal kinds recorded on storeops.items.dismissed.
const (
	KindRecommendation = "recommendation"
	KindInsight        = "insight"
	KindAlert          = "alert"
)

type metrics struct {
	provider  metric.MeterProvider
	created   metric.Int64Counter
	dismissed metric.Int64Counter
}

func (m *metrics) init() error {
	meter := m.provider.Meter(instrumentationName)

	var err error
	m.created, err = meter.Int64Counter("storeops.tasks.created",
		metric.WithDescription("Tasks created from recommendations, insights and scan detections"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return err
	}
	m.dismissed, err = meter.Int64Counter("storeops.items.dismissed",
		metric.WithDescription("Feed records removed without creating a task"),
		metric.WithUnit("{item}"),
	)
	return err
}

func (m *metrics) taskCreated(ctx context.Context, t taskAttrs, n int) {
	if n == 0 {
		return
	}
	m.created.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("source", t.source),
		attribute.String("type", t.typ),
	))
}

func (m *metrics) itemDismissed(ctx context.Context, kind string) {
	m.dismissed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

type taskAttrs struct {
	source string
	typ    string
}

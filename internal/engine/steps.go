package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yangwenmai/storeops/internal/model"
)

// ---------------------------------------------------------------------------
// Recommendations
// ---------------------------------------------------------------------------

// ConvertRecommendation turns the recommendation into a Store Manager
// restocking task at the head of the task list and removes it from the feed.
// An unknown id is a no-op and returns a nil task.
func (p *Pipeline) ConvertRecommendation(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := p.tracer.Start(ctx, "engine.ConvertRecommendation", trace.WithAttributes(attribute.String("recommendation_id", id)))
	defer span.End()

	taskID, ts := p.stamp()
	task, err := p.store.ConvertRecommendation(ctx, id, func(r model.Recommendation) model.Task {
		return r.Task(taskID, ts)
	})
	if err != nil {
		return nil, p.fail(span, "convert_recommendation", err)
	}
	if task == nil {
		p.log.Debug().Str("recommendation_id", id).Msg("recommendation not found, nothing converted")
		return nil, nil
	}

	p.metrics.taskCreated(ctx, taskAttrs{source: task.Source, typ: task.Type}, 1)
	p.log.Info().Str("recommendation_id", id).Str("task_id", task.ID).Msg("recommendation converted")
	return task, nil
}

// DismissRecommendation removes a recommendation without creating a task.
func (p *Pipeline) DismissRecommendation(ctx context.Context, id string) (bool, error) {
	ok, err := p.store.DismissRecommendation(ctx, id)
	if err != nil {
		return false, &OpError{Op: "dismiss_recommendation", Err: err}
	}
	p.dismissed(ctx, KindRecommendation, id, ok)
	return ok, nil
}

// ---------------------------------------------------------------------------
// Insights & alerts
// ---------------------------------------------------------------------------

// ConvertInsight turns the insight into an autonomous investigation task
// tagged with category, the caller's active category, and removes it from
// the feed. An unknown id is a no-op and returns a nil task.
func (p *Pipeline) ConvertInsight(ctx context.Context, id int, category model.Category) (*model.Task, error) {
	ctx, span := p.tracer.Start(ctx, "engine.ConvertInsight", trace.WithAttributes(attribute.Int("insight_id", id)))
	defer span.End()

	taskID, ts := p.stamp()
	task, err := p.store.ConvertInsight(ctx, id, func(in model.OpsInsight) model.Task {
		return in.Task(taskID, ts, category)
	})
	if err != nil {
		return nil, p.fail(span, "convert_insight", err)
	}
	if task == nil {
		p.log.Debug().Int("insight_id", id).Msg("insight not found, nothing converted")
		return nil, nil
	}

	p.metrics.taskCreated(ctx, taskAttrs{source: task.Source, typ: task.Type}, 1)
	p.log.Info().Int("insight_id", id).Str("task_id", task.ID).Str("category", string(category)).Msg("insight converted")
	return task, nil
}

// DismissInsight removes an insight without creating a task.
func (p *Pipeline) DismissInsight(ctx context.Context, id int) (bool, error) {
	ok, err := p.store.DismissInsight(ctx, id)
	if err != nil {
		return false, &OpError{Op: "dismiss_insight", Err: err}
	}
	p.dismissed(ctx, KindInsight, strconv.Itoa(id), ok)
	return ok, nil
}

// DismissAlert removes an alert.
func (p *Pipeline) DismissAlert(ctx context.Context, id int) (bool, error) {
	ok, err := p.store.DismissAlert(ctx, id)
	if err != nil {
		return false, &OpError{Op: "dismiss_alert", Err: err}
	}
	p.dismissed(ctx, KindAlert, strconv.Itoa(id), ok)
	return ok, nil
}

func (p *Pipeline) dismissed(ctx context.Context, kind, id string, ok bool) {
	if !ok {
		p.log.Debug().Str("kind", kind).Str("id", id).Msg("nothing to dismiss")
		return
	}
	p.metrics.itemDismissed(ctx, kind)
	p.log.Info().Str("kind", kind).Str("id", id).Msg("item dismissed")
}

// ---------------------------------------------------------------------------
// Scan detections
// ---------------------------------------------------------------------------

// ConvertDetectedItems creates one high-priority restocking task per item,
// in input order, ahead of every existing task. Items are not filtered by
// type; callers pass low and empty detections only. Tasks are tagged with
// category. Items already converted for this session are skipped.
func (p *Pipeline) ConvertDetectedItems(ctx context.Context, sessionID string, items []model.DetectedItem, category model.Category) ([]model.Task, error) {
	ctx, span := p.tracer.Start(ctx, "engine.ConvertDetectedItems", trace.WithAttributes(
		attribute.String("scan_session", sessionID),
		attribute.Int("items", len(items)),
	))
	defer span.End()

	ts := p.now().Format(model.TimestampLayout)

	tasks := make([]model.Task, 0, len(items))
	for _, item := range items {
		id := ScanTaskID(sessionID, item.ID)
		_, err := p.store.GetTask(ctx, id)
		if err == nil {
			p.log.Debug().Str("task_id", id).Msg("detection already converted")
			continue
		}
		if !errors.Is(err, model.ErrTaskNotFound) {
			return nil, p.fail(span, "convert_detected_items", err)
		}
		tasks = append(tasks, item.Task(id, ts, category))
	}

	if err := p.store.PrependTasks(ctx, tasks); err != nil {
		return nil, p.fail(span, "convert_detected_items", err)
	}

	p.metrics.taskCreated(ctx, taskAttrs{source: model.SourceAutonomous, typ: model.TaskTypeRestocking}, len(tasks))
	p.log.Info().
		Str("scan_session", sessionID).
		Int("tasks", len(tasks)).
		Str("category", string(category)).
		Msg("scan detections converted")
	return tasks, nil
}

// RestockFromScan converts the scan's low and empty detections.
func (p *Pipeline) RestockFromScan(ctx context.Context, scan model.ShelfScanScenario, category model.Category) ([]model.Task, error) {
	return p.ConvertDetectedItems(ctx, scan.SessionID, scan.ConvertibleItems(), category)
}

// ---------------------------------------------------------------------------
// Task actions
// ---------------------------------------------------------------------------

// AdvanceTask moves a task forward to status. An empty status moves it one
// column along the board.
func (p *Pipeline) AdvanceTask(ctx context.Context, id, status string) (*model.Task, error) {
	if status == "" {
		cur, err := p.store.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		status = model.NextStatus(cur.Status)
		if status == "" {
			return nil, fmt.Errorf("%w: task %s is done", model.ErrInvalidTransition, id)
		}
	}
	t, err := p.store.UpdateTaskStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("task_id", id).Str("status", status).Msg("task status changed")
	return t, nil
}

// CompleteTask marks a task done.
func (p *Pipeline) CompleteTask(ctx context.Context, id string) (*model.Task, error) {
	return p.AdvanceTask(ctx, id, model.StatusDone)
}

// PauseTask pauses an open task.
func (p *Pipeline) PauseTask(ctx context.Context, id, reason string) (*model.Task, error) {
	t, err := p.store.PauseTask(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("task_id", id).Str("reason", reason).Msg("task paused")
	return t, nil
}

// ResumeTask clears a task's paused flag.
func (p *Pipeline) ResumeTask(ctx context.Context, id string) (*model.Task, error) {
	t, err := p.store.ResumeTask(ctx, id)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("task_id", id).Msg("task resumed")
	return t, nil
}

// EscalateTask flags an open task for escalation.
func (p *Pipeline) EscalateTask(ctx context.Context, id, reason string) (*model.Task, error) {
	t, err := p.store.EscalateTask(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	p.log.Warn().Str("task_id", id).Str("reason", reason).Msg("task escalated")
	return t, nil
}

func (p *Pipeline) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.log.Error().Err(err).Str("op", op).Msg("conversion failed")
	return &OpError{Op: op, Err: err}
}

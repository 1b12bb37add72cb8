package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/yangwenmai/storeops/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ FeedReader = (*Store)(nil)
	_ FeedWriter = (*Store)(nil)
	_ Converter  = (*Store)(nil)
	_ TaskReader = (*Store)(nil)
	_ TaskWriter = (*Store)(nil)
)

// Store keeps the four action-item collections in SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: feeds and tasks
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

// migrateV1 creates the initial schema (v0 → v1). Feed rows keep their
// catalog position in pos; tasks are ordered head-first by seq DESC.
func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS recommendations (
		id                    TEXT PRIMARY KEY,
		pos                   INTEGER NOT NULL,
		category              TEXT NOT NULL,
		sku                   TEXT NOT NULL,
		product_name          TEXT NOT NULL,
		suggested_reorder_qty INTEGER NOT NULL,
		current_stock         INTEGER NOT NULL DEFAULT 0,
		forecasted_demand     INTEGER NOT NULL DEFAULT 0,
		reason                TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS insights (
		id          INTEGER PRIMARY KEY,
		pos         INTEGER NOT NULL,
		title       TEXT NOT NULL,
		action      TEXT NOT NULL,
		category    TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		risk        TEXT NOT NULL DEFAULT '',
		rationale   TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id             INTEGER PRIMARY KEY,
		pos            INTEGER NOT NULL,
		category       TEXT NOT NULL,
		title          TEXT NOT NULL,
		urgency        TEXT NOT NULL,
		message        TEXT NOT NULL,
		recommendation TEXT NOT NULL DEFAULT '',
		timestamp      TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id                TEXT PRIMARY KEY,
		seq               INTEGER NOT NULL UNIQUE,
		description       TEXT NOT NULL,
		details           TEXT NOT NULL,
		status            TEXT NOT NULL,
		type              TEXT NOT NULL,
		priority          TEXT NOT NULL,
		source            TEXT NOT NULL,
		category          TEXT NOT NULL,
		timestamp         TEXT NOT NULL,
		paused            INTEGER NOT NULL DEFAULT 0,
		pause_reason      TEXT NOT NULL DEFAULT '',
		escalated         INTEGER NOT NULL DEFAULT 0,
		escalation_reason TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, seq DESC);
	`)
	return err
}

// Counts returns the size of each collection.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM recommendations),
			(SELECT COUNT(*) FROM insights),
			(SELECT COUNT(*) FROM alerts),
			(SELECT COUNT(*) FROM tasks)`)
	if err := row.Scan(&c.Recommendations, &c.Insights, &c.Alerts, &c.Tasks); err != nil {
		return c, err
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Recommendations
// ---------------------------------------------------------------------------

const recommendationColumns = `id, category, sku, product_name, suggested_reorder_qty, current_stock, forecasted_demand, reason`

// SeedRecommendations replaces all recommendations, keeping slice order.
func (s *Store) SeedRecommendations(ctx context.Context, recs []model.Recommendation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations`); err != nil {
		return fmt.Errorf("clear recommendations: %w", err)
	}
	for i, r := range recs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recommendations (pos, `+recommendationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.ID, r.Category, r.SKU, r.ProductName, r.SuggestedReorderQty, r.CurrentStock, r.ForecastedDemand, r.Reason,
		); err != nil {
			return fmt.Errorf("insert recommendation %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// ListRecommendations returns recommendations in catalog order.
func (s *Store) ListRecommendations(ctx context.Context) ([]model.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recommendationColumns+` FROM recommendations ORDER BY pos ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

// ConvertRecommendation builds a task from the recommendation, inserts it at
// the head of the task list and removes the recommendation.
func (s *Store) ConvertRecommendation(ctx context.Context, id string, build func(model.Recommendation) model.Task) (*model.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rec, err := scanRecommendation(tx.QueryRowContext(ctx, `SELECT `+recommendationColumns+` FROM recommendations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}

	task := build(*rec)
	if err := prependTasks(ctx, tx, []model.Task{task}); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete recommendation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &task, nil
}

// DismissRecommendation removes a recommendation without creating a task.
func (s *Store) DismissRecommendation(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, `DELETE FROM recommendations WHERE id = ?`, id)
}

// ---------------------------------------------------------------------------
// Insights & alerts
// ---------------------------------------------------------------------------

const (
	insightColumns = `id, title, action, category, description, risk, rationale`
	alertColumns   = `id, category, title, urgency, message, recommendation, timestamp`
)

// ReplaceOpsFeed swaps the insight and alert feeds for a new category.
func (s *Store) ReplaceOpsFeed(ctx context.Context, insights []model.OpsInsight, alerts []model.OpsAlert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM insights`); err != nil {
		return fmt.Errorf("clear insights: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM alerts`); err != nil {
		return fmt.Errorf("clear alerts: %w", err)
	}
	for i, in := range insights {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO insights (pos, `+insightColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, in.ID, in.Title, in.Action, in.Category, in.Description, in.Risk, in.Rationale,
		); err != nil {
			return fmt.Errorf("insert insight %d: %w", in.ID, err)
		}
	}
	for i, a := range alerts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (pos, `+alertColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, a.ID, a.Category, a.Title, a.Urgency, a.Message, a.Recommendation, a.Timestamp,
		); err != nil {
			return fmt.Errorf("insert alert %d: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// ListInsights returns insights in feed order.
func (s *Store) ListInsights(ctx context.Context) ([]model.OpsInsight, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+insightColumns+` FROM insights ORDER BY pos ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OpsInsight
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

// ListAlerts returns alerts in feed order.
func (s *Store) ListAlerts(ctx context.Context) ([]model.OpsAlert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alerts ORDER BY pos ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OpsAlert
	for rows.Next() {
		var a model.OpsAlert
		if err := rows.Scan(&a.ID, &a.Category, &a.Title, &a.Urgency, &a.Message, &a.Recommendation, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ConvertInsight builds a task from the insight, inserts it at the head of
// the task list and removes the insight.
func (s *Store) ConvertInsight(ctx context.Context, id int, build func(model.OpsInsight) model.Task) (*model.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	in, err := scanInsight(tx.QueryRowContext(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}

	task := build(*in)
	if err := prependTasks(ctx, tx, []model.Task{task}); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM insights WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete insight: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &task, nil
}

// DismissInsight removes an insight without creating a task.
func (s *Store) DismissInsight(ctx context.Context, id int) (bool, error) {
	return s.deleteByID(ctx, `DELETE FROM insights WHERE id = ?`, id)
}

// DismissAlert removes an alert.
func (s *Store) DismissAlert(ctx context.Context, id int) (bool, error) {
	return s.deleteByID(ctx, `DELETE FROM alerts WHERE id = ?`, id)
}

func (s *Store) deleteByID(ctx context.Context, query string, id any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

const taskColumns = `id, description, details, status, type, priority, source, category, timestamp, paused, pause_reason, escalated, escalation_reason`

// SeedTasks replaces all tasks. tasks[0] becomes the head of the list.
func (s *Store) SeedTasks(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	if err := prependTasks(ctx, tx, tasks); err != nil {
		return err
	}
	return tx.Commit()
}

// PrependTasks inserts tasks ahead of every existing task, keeping their
// relative order.
func (s *Store) PrependTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := prependTasks(ctx, tx, tasks); err != nil {
		return err
	}
	return tx.Commit()
}

// prependTasks assigns descending seq values above the current maximum so
// that tasks[0] sorts first.
func prependTasks(ctx context.Context, tx *sql.Tx, tasks []model.Task) error {
	var top int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM tasks`).Scan(&top); err != nil {
		return fmt.Errorf("read task head: %w", err)
	}
	n := int64(len(tasks))
	for i, t := range tasks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (seq, `+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			top+n-int64(i),
			t.ID, t.Description, t.Details, t.Status, t.Type, t.Priority, t.Source, t.Category, t.Timestamp,
			t.Paused, t.PauseReason, t.Escalated, t.EscalationReason,
		); err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}
	return nil
}

// GetTask returns the task with the given id, or model.ErrTaskNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTaskNotFound
	}
	return t, err
}

// ListTasks returns tasks matching the filter, head first.
func (s *Store) ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var conditions []string
	var args []any

	if len(f.Status) > 0 {
		placeholders := make([]string, len(f.Status))
		for i, st := range f.Status {
			placeholders[i] = "?"
			args = append(args, st)
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if f.Category != "" && f.Category != model.CategoryAll {
		conditions = append(conditions, "category = ?")
		args = append(args, f.Category)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus advances a task. Moving backwards returns
// model.ErrInvalidTransition. Completing a task clears its operator flags.
func (s *Store) UpdateTaskStatus(ctx context.Context, id, status string) (*model.Task, error) {
	return s.updateTask(ctx, id, func(t *model.Task) error {
		if err := model.ValidateTransition(t.Status, status); err != nil {
			return err
		}
		t.Status = status
		if status == model.StatusDone {
			t.Paused, t.PauseReason = false, ""
			t.Escalated = false
		}
		return nil
	})
}

// PauseTask marks an open task as paused.
func (s *Store) PauseTask(ctx context.Context, id, reason string) (*model.Task, error) {
	return s.updateTask(ctx, id, func(t *model.Task) error {
		if t.Status == model.StatusDone {
			return fmt.Errorf("%w: task %s is done", model.ErrInvalidTransition, id)
		}
		t.Paused, t.PauseReason = true, reason
		return nil
	})
}

// ResumeTask clears the paused flag.
func (s *Store) ResumeTask(ctx context.Context, id string) (*model.Task, error) {
	return s.updateTask(ctx, id, func(t *model.Task) error {
		t.Paused, t.PauseReason = false, ""
		return nil
	})
}

// EscalateTask marks an open task as escalated.
func (s *Store) EscalateTask(ctx context.Context, id, reason string) (*model.Task, error) {
	return s.updateTask(ctx, id, func(t *model.Task) error {
		if t.Status == model.StatusDone {
			return fmt.Errorf("%w: task %s is done", model.ErrInvalidTransition, id)
		}
		t.Escalated, t.EscalationReason = true, reason
		return nil
	})
}

// updateTask reads, mutates and writes back a task in one transaction.
func (s *Store) updateTask(ctx context.Context, id string, mutate func(*model.Task) error) (*model.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := mutate(t); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status = ?, paused = ?, pause_reason = ?, escalated = ?, escalation_reason = ?
		WHERE id = ?`,
		t.Status, t.Paused, t.PauseReason, t.Escalated, t.EscalationReason, id,
	); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row scanner) (*model.Recommendation, error) {
	var r model.Recommendation
	if err := row.Scan(&r.ID, &r.Category, &r.SKU, &r.ProductName, &r.SuggestedReorderQty, &r.CurrentStock, &r.ForecastedDemand, &r.Reason); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanInsight(row scanner) (*model.OpsInsight, error) {
	var in model.OpsInsight
	if err := row.Scan(&in.ID, &in.Title, &in.Action, &in.Category, &in.Description, &in.Risk, &in.Rationale); err != nil {
		return nil, err
	}
	return &in, nil
}

func scanTask(row scanner) (*model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.Description, &t.Details, &t.Status, &t.Type, &t.Priority, &t.Source, &t.Category, &t.Timestamp,
		&t.Paused, &t.PauseReason, &t.Escalated, &t.EscalationReason)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

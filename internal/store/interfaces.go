package store

import (
	"context"

	"github.com/yangwenmai/storeops/internal/model"
)

// Counts holds the size of each collection.
type Counts struct {
	Recommendations int `json:"recommendations"`
	Insights        int `json:"insights"`
	Alerts          int `json:"alerts"`
	Tasks           int `json:"tasks"`
}

// FeedReader provides read access to the inbound feeds.
type FeedReader interface {
	ListRecommendations(ctx context.Context) ([]model.Recommendation, error)
	ListInsights(ctx context.Context) ([]model.OpsInsight, error)
	ListAlerts(ctx context.Context) ([]model.OpsAlert, error)
	Counts(ctx context.Context) (Counts, error)
}

// FeedWriter replaces feeds and removes records without creating tasks.
// Dismissing an unknown id reports false and is not an error.
type FeedWriter interface {
	SeedRecommendations(ctx context.Context, recs []model.Recommendation) error
	ReplaceOpsFeed(ctx context.Context, insights []model.OpsInsight, alerts []model.OpsAlert) error
	DismissRecommendation(ctx context.Context, id string) (bool, error)
	DismissInsight(ctx context.Context, id int) (bool, error)
	DismissAlert(ctx context.Context, id int) (bool, error)
}

// Converter turns feed records into tasks. Each call is atomic: the task is
// inserted at the head of the task list and the source record removed, or
// nothing changes. An unknown id returns a nil task and no error.
type Converter interface {
	ConvertRecommendation(ctx context.Context, id string, build func(model.Recommendation) model.Task) (*model.Task, error)
	ConvertInsight(ctx context.Context, id int, build func(model.OpsInsight) model.Task) (*model.Task, error)
	PrependTasks(ctx context.Context, tasks []model.Task) error
}

// TaskReader provides read access to tasks.
type TaskReader interface {
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error)
}

// TaskWriter applies operator actions to tasks.
type TaskWriter interface {
	SeedTasks(ctx context.Context, tasks []model.Task) error
	UpdateTaskStatus(ctx context.Context, id, status string) (*model.Task, error)
	PauseTask(ctx context.Context, id, reason string) (*model.Task, error)
	ResumeTask(ctx context.Context, id string) (*model.Task, error)
	EscalateTask(ctx context.Context, id, reason string) (*model.Task, error)
}

// Repository combines all operations for the pipeline and API layers.
type Repository interface {
	FeedReader
	FeedWriter
	Converter
	TaskReader
	TaskWriter
}

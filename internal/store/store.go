package store

import (
	"context"
	"errors"

	"github.com/seantiz/docforge/internal/model"
)

// ErrNotFound is returned when a job record does not exist.
var ErrNotFound = errors.New("job not found")

// JobStats holds aggregate conversion statistics.
type JobStats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	CountByExt    map[string]int `json:"count_by_ext"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for conversion job records.
// Records are history only: the live workspace and output file are owned by
// the coordinator, never by the store.
type Store interface {
	CreateJob(ctx context.Context, j *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, int, error)
	FinishJob(ctx context.Context, j *model.Job) error
	GetJobStats(ctx context.Context) (*JobStats, error)
	Close() error
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seantiz/docforge/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestJob(id string) *model.Job {
	return &model.Job{
		ID:        id,
		Filename:  "report.docx",
		Extension: ".docx",
		Status:    model.StatusCreated,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateAndGetJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	j := newTestJob("job1")
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := s.GetJob(ctx, "job1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Filename != "report.docx" {
		t.Errorf("Filename = %q, want report.docx", got.Filename)
	}
	if got.Extension != ".docx" {
		t.Errorf("Extension = %q, want .docx", got.Extension)
	}
	if got.Status != model.StatusCreated {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusCreated)
	}
}

func TestGetJobNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFinishJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	j := newTestJob("job1")
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	now := time.Now().UTC()
	size := int64(2048)
	dur := 1500
	j.Status = model.StatusSucceeded
	j.OutputName = "report.pdf"
	j.OutputSize = &size
	j.DurationMS = &dur
	j.StartedAt = &now
	j.FinishedAt = &now

	if err := s.FinishJob(ctx, j); err != nil {
		t.Fatalf("FinishJob: %v", err)
	}

	got, err := s.GetJob(ctx, "job1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != model.StatusSucceeded {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusSucceeded)
	}
	if got.OutputName != "report.pdf" {
		t.Errorf("OutputName = %q, want report.pdf", got.OutputName)
	}
	if got.OutputSize == nil || *got.OutputSize != 2048 {
		t.Errorf("OutputSize = %v, want 2048", got.OutputSize)
	}
	if got.DurationMS == nil || *got.DurationMS != 1500 {
		t.Errorf("DurationMS = %v, want 1500", got.DurationMS)
	}
}

func TestFinishJobRejectsNonTerminalStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	j := newTestJob("job1")
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	j.Status = model.StatusConverting
	if err := s.FinishJob(ctx, j); err == nil {
		t.Error("FinishJob accepted non-terminal status")
	}
}

func TestFinishJobNotFound(t *testing.T) {
	s := newTestStore(t)

	j := newTestJob("missing")
	j.Status = model.StatusFailed
	if err := s.FinishJob(context.Background(), j); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListJobsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		j := newTestJob(model.NewID())
		j.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob %d: %v", i, err)
		}
	}

	jobs, total, err := s.ListJobs(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(jobs) != 2 {
		t.Errorf("len(jobs) = %d, want 2", len(jobs))
	}

	// Newest first.
	if len(jobs) == 2 && jobs[0].CreatedAt.Before(jobs[1].CreatedAt) {
		t.Error("jobs not ordered newest first")
	}

	rest, _, err := s.ListJobs(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ListJobs offset: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("len(rest) = %d, want 3", len(rest))
	}
}

func TestGetJobStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	durations := []int{100, 300}
	for i, status := range []string{model.StatusSucceeded, model.StatusSucceeded} {
		j := newTestJob(model.NewID())
		j.Status = status
		j.DurationMS = &durations[i]
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}
	failed := newTestJob(model.NewID())
	failed.Status = model.StatusFailed
	failed.Extension = ".pptx"
	if err := s.CreateJob(ctx, failed); err != nil {
		t.Fatalf("CreateJob failed job: %v", err)
	}

	stats, err := s.GetJobStats(ctx)
	if err != nil {
		t.Fatalf("GetJobStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.CountByStatus[model.StatusSucceeded] != 2 {
		t.Errorf("succeeded count = %d, want 2", stats.CountByStatus[model.StatusSucceeded])
	}
	if stats.CountByStatus[model.StatusFailed] != 1 {
		t.Errorf("failed count = %d, want 1", stats.CountByStatus[model.StatusFailed])
	}
	if stats.CountByExt[".docx"] != 2 || stats.CountByExt[".pptx"] != 1 {
		t.Errorf("CountByExt = %v, want .docx:2 .pptx:1", stats.CountByExt)
	}
	if stats.AvgDurationMS != 200 {
		t.Errorf("AvgDurationMS = %v, want 200", stats.AvgDurationMS)
	}
}

func TestGetJobStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.GetJobStats(context.Background())
	if err != nil {
		t.Fatalf("GetJobStats: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.AvgDurationMS != 0 {
		t.Errorf("AvgDurationMS = %v, want 0", stats.AvgDurationMS)
	}
}

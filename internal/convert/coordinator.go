// Package convert orchestrates the lifecycle of one document-to-PDF job:
// workspace allocation, engine invocation under a deadline, output
// validation, and guaranteed cleanup on every exit path.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/seantiz/docforge/internal/model"
	"github.com/seantiz/docforge/internal/renderer"
	"github.com/seantiz/docforge/internal/store"
	"github.com/seantiz/docforge/internal/workspace"
)

// finishTimeout bounds the history write after a job reaches a terminal
// state. The request context may already be dead by then.
const finishTimeout = 5 * time.Second

// Coordinator ties workspace allocation, the external renderer, and result
// validation together per job, bounding how many engine invocations run at
// once. Construct once at process start and share across requests.
type Coordinator struct {
	alloc    *workspace.Allocator
	renderer renderer.Renderer
	store    store.Store
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   *slog.Logger
	inflight sync.WaitGroup
}

// NewCoordinator creates a Coordinator. maxConcurrent bounds simultaneous
// engine invocations; timeout is the per-job deadline covering both the wait
// for a free slot and the conversion itself.
func NewCoordinator(alloc *workspace.Allocator, r renderer.Renderer, st store.Store, maxConcurrent int, timeout time.Duration, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		alloc:    alloc,
		renderer: r,
		store:    st,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		timeout:  timeout,
		logger:   logger,
	}
}

// Submit runs one conversion job to completion. On success the returned
// handle references the produced PDF; the job's workspace survives until the
// handle is closed. On any failure the workspace is destroyed before the
// classified error is returned, so failed jobs never accumulate disk usage.
func (c *Coordinator) Submit(ctx context.Context, src io.Reader, filename string) (handle *PDFHandle, err error) {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))

	// Unsupported input costs nothing: no workspace, no job record.
	if base == "" || base == "." || !model.SupportedExtension(ext) {
		rejectedTotal.Inc()
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(model.SupportedExtensions(), ", "))
	}

	c.inflight.Add(1)
	defer c.inflight.Done()

	job := &model.Job{
		ID:        model.NewID(),
		Filename:  base,
		Extension: ext,
		Status:    model.StatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	c.recordCreated(ctx, job)

	log := c.logger.With("job_id", job.ID, "filename", base)
	log.Info("conversion job accepted")

	ws, err := c.alloc.Allocate(job.ID)
	if err != nil {
		c.finish(job, model.StatusFailed, err)
		return nil, err
	}

	// Workspace exists from here on: destroy it on every path that does
	// not hand it off, including panics inside orchestration.
	defer func() {
		if r := recover(); r != nil {
			c.alloc.Release(ws)
			panicErr := fmt.Errorf("conversion job panicked: %v", r)
			c.finish(job, model.StatusFailed, panicErr)
			log.Error("panic during conversion", "panic", r)
			handle, err = nil, panicErr
		}
	}()

	c.transition(job, model.StatusWorkspaceReady)

	inputPath := filepath.Join(ws.InputDir, base)
	if err := persistUpload(src, inputPath); err != nil {
		c.alloc.Release(ws)
		c.finish(job, model.StatusFailed, err)
		return nil, fmt.Errorf("persist upload: %w", err)
	}

	// The deadline is absolute from this point: a job stuck behind a full
	// pool times out just like one stuck inside the engine.
	jobCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	waitStart := time.Now()
	if err := c.sem.Acquire(jobCtx, 1); err != nil {
		c.alloc.Release(ws)
		if jobCtx.Err() == context.DeadlineExceeded {
			timeoutErr := fmt.Errorf("%w waiting for a conversion slot", renderer.ErrTimeout)
			c.finish(job, model.StatusTimedOut, timeoutErr)
			return nil, timeoutErr
		}
		c.finish(job, model.StatusFailed, err)
		return nil, fmt.Errorf("acquire conversion slot: %w", err)
	}
	queueWaitDuration.Observe(time.Since(waitStart).Seconds())

	c.transition(job, model.StatusConverting)
	started := time.Now().UTC()
	job.StartedAt = &started

	// Only the engine call holds a pool slot. Deferred release keeps the
	// slot from leaking if the renderer panics.
	res, convErr := func() (renderer.Result, error) {
		defer c.sem.Release(1)
		activeConversions.Inc()
		defer activeConversions.Dec()
		return c.renderer.Convert(jobCtx, inputPath, ws.OutputDir, ws.ProfileDir)
	}()

	elapsed := time.Since(started)
	conversionDuration.Observe(elapsed.Seconds())
	durationMS := int(elapsed.Milliseconds())
	job.DurationMS = &durationMS

	if convErr != nil {
		c.alloc.Release(ws)
		status := model.StatusFailed
		if errors.Is(convErr, renderer.ErrTimeout) {
			status = model.StatusTimedOut
		}
		c.finish(job, status, convErr)
		log.Warn("conversion failed", "status", status, "error", convErr)
		return nil, convErr
	}

	outputPath := filepath.Join(ws.OutputDir, model.OutputName(base))
	size, err := validateResult(res, outputPath)
	if err != nil {
		c.alloc.Release(ws)
		c.finish(job, model.StatusFailed, err)
		log.Warn("conversion rejected by validator", "error", err)
		return nil, err
	}

	job.OutputName = model.OutputName(base)
	job.OutputSize = &size
	c.finish(job, model.StatusSucceeded, nil)
	log.Info("conversion succeeded", "output", job.OutputName, "size", size, "duration_ms", durationMS)

	return &PDFHandle{
		Path:     outputPath,
		Filename: job.OutputName,
		Size:     size,
		release:  func() { c.alloc.Release(ws) },
	}, nil
}

// Wait blocks until every in-flight job has returned from Submit or ctx
// expires. Called during shutdown so engine processes finish (or hit their
// deadline and are killed) and their workspaces are released before the
// process exits.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("conversions still in flight: %w", ctx.Err())
	}
}

// transition advances a job's status, logging on an invalid step. The state
// machine is fixed; a bad transition is a programming error, not a runtime
// condition worth failing the job over.
func (c *Coordinator) transition(job *model.Job, to string) {
	if !model.ValidTransition(job.Status, to) {
		c.logger.Error("invalid job transition", "job_id", job.ID, "from", job.Status, "to", to)
	}
	job.Status = to
}

// finish records the job's terminal outcome: status, error text, counters,
// and the history row. History writes are best-effort.
func (c *Coordinator) finish(job *model.Job, status string, cause error) {
	c.transition(job, status)
	if cause != nil {
		job.Error = cause.Error()
	}
	now := time.Now().UTC()
	job.FinishedAt = &now

	conversionsTotal.WithLabelValues(status, job.Extension).Inc()

	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	if err := c.store.FinishJob(ctx, job); err != nil {
		c.logger.Error("failed to record job outcome", "job_id", job.ID, "error", err)
	}
}

// recordCreated inserts the job's history row. Best-effort: a history
// failure must not block the conversion itself.
func (c *Coordinator) recordCreated(ctx context.Context, job *model.Job) {
	if c.store == nil {
		return
	}
	if err := c.store.CreateJob(ctx, job); err != nil {
		c.logger.Error("failed to record job", "job_id", job.ID, "error", err)
	}
}

// persistUpload writes the uploaded content into the job's input directory.
func persistUpload(src io.Reader, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

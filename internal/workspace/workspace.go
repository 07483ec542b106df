// Package workspace manages per-job filesystem isolation. Each conversion
// job gets a private directory tree (input, output, engine profile) keyed by
// its job ID, created together and destroyed together.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrAllocation is returned when a workspace cannot be created, typically
// because the temp root is not writable or the filesystem is full.
var ErrAllocation = errors.New("workspace allocation failed")

// dirMode restricts workspace access to the service's own process.
const dirMode = 0o700

// Workspace is the set of per-job directories. It is never shared between
// jobs: the base directory is namespaced by the job's unique ID.
type Workspace struct {
	Base       string
	InputDir   string
	OutputDir  string
	ProfileDir string
}

// Allocator creates and destroys workspaces under a fixed temp root.
type Allocator struct {
	root   string
	logger *slog.Logger
}

// NewAllocator returns an Allocator rooted at root, creating the root
// directory if it does not exist.
func NewAllocator(root string, logger *slog.Logger) (*Allocator, error) {
	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, fmt.Errorf("%w: create root %s: %v", ErrAllocation, root, err)
	}
	return &Allocator{root: root, logger: logger}, nil
}

// Root returns the temp root all workspaces are created under.
func (a *Allocator) Root() string {
	return a.root
}

// Allocate creates the input, output, and profile directories for jobID.
// On any partial failure the already-created directories are removed before
// the error is returned, so a failed allocation leaves nothing behind.
func (a *Allocator) Allocate(jobID string) (*Workspace, error) {
	base := filepath.Join(a.root, jobID)
	ws := &Workspace{
		Base:       base,
		InputDir:   filepath.Join(base, "input"),
		OutputDir:  filepath.Join(base, "output"),
		ProfileDir: filepath.Join(base, "profile"),
	}

	for _, dir := range []string{ws.InputDir, ws.OutputDir, ws.ProfileDir} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			os.RemoveAll(base)
			return nil, fmt.Errorf("%w: mkdir %s: %v", ErrAllocation, dir, err)
		}
	}

	return ws, nil
}

// Release removes the workspace's entire directory tree. It is idempotent
// and best-effort: removal failures are logged, never propagated, so cleanup
// problems cannot mask a job's real outcome.
func (a *Allocator) Release(ws *Workspace) {
	if ws == nil || ws.Base == "" {
		return
	}
	if err := os.RemoveAll(ws.Base); err != nil {
		a.logger.Warn("workspace release failed", "base", ws.Base, "error", err)
	}
}

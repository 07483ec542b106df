// Package renderer invokes the external office engine that performs the
// actual document-to-PDF rendering. The engine is opaque: this package only
// knows its command-line contract and is responsible for profile isolation
// and deterministic termination on timeout.
package renderer

import (
	"context"
	"errors"
)

// Sentinel errors for engine invocation.
var (
	// ErrSpawn indicates the engine binary is missing or not executable.
	ErrSpawn = errors.New("engine could not be started")

	// ErrTimeout indicates the deadline expired and the engine process
	// tree was killed.
	ErrTimeout = errors.New("conversion timed out")
)

// Result carries the raw outcome of one engine invocation. Deciding whether
// the conversion actually succeeded is the caller's job.
type Result struct {
	ExitCode int
	Stderr   []byte
}

// Renderer runs the external conversion engine against an input file,
// writing the PDF into outputDir and keeping all engine state (locks,
// caches, configuration) inside profileDir. The context carries the job's
// deadline; implementations must guarantee the engine and any children it
// spawned are dead before returning a timeout error.
type Renderer interface {
	Convert(ctx context.Context, inputPath, outputDir, profileDir string) (Result, error)
}

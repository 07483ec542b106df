package convert

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for job outcomes. Timeout and spawn errors from the
// renderer pass through wrapped; allocation errors carry
// workspace.ErrAllocation. Anything not in this taxonomy is an unexpected
// internal fault.
var (
	// ErrUnsupportedFormat is a client error: the filename's extension is
	// not convertible. Rejected before any resource allocation.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrMissingOutput means the engine exited zero but produced no PDF at
	// the expected path. Some engine versions exit 0 while silently
	// refusing to render unsupported content.
	ErrMissingOutput = errors.New("engine produced no output file")
)

// EngineError carries the engine's diagnostics after a non-zero exit.
type EngineError struct {
	ExitCode int
	Stderr   []byte
}

func (e *EngineError) Error() string {
	msg := strings.TrimSpace(string(e.Stderr))
	if msg == "" {
		return fmt.Sprintf("engine exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("engine exited with code %d: %s", e.ExitCode, msg)
}

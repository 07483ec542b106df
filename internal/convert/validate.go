package convert

import (
	"fmt"
	"os"

	"github.com/seantiz/docforge/internal/renderer"
)

// validateResult classifies a finished engine invocation. A non-zero exit is
// an engine failure carrying stderr; a zero exit with a missing or empty
// artifact is an engine-contract violation. On success it returns the output
// file's size. PDF content itself is never inspected.
func validateResult(res renderer.Result, expectedOutput string) (int64, error) {
	if res.ExitCode != 0 {
		return 0, &EngineError{ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	info, err := os.Stat(expectedOutput)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrMissingOutput
		}
		return 0, fmt.Errorf("stat output: %w", err)
	}
	if info.Size() == 0 {
		return 0, ErrMissingOutput
	}

	return info.Size(), nil
}

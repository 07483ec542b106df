package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// pdfFilter is the LibreOffice PDF export directive: lossless image
// compression at maximum quality, for visual fidelity.
const pdfFilter = `pdf:writer_pdf_Export:{"UseLosslessCompression":{"type":"boolean","value":"true"},"Quality":{"type":"long","value":"100"}}`

// killWaitDelay bounds how long Wait blocks on I/O pipes after the process
// group has been killed.
const killWaitDelay = 5 * time.Second

// Compile-time interface satisfaction check.
var _ Renderer = (*Soffice)(nil)

// Soffice runs LibreOffice in headless mode. Each invocation gets its own
// user-installation profile so concurrent runs never contend on the engine's
// lock files.
type Soffice struct {
	bin    string
	logger *slog.Logger
}

// NewSoffice returns a Soffice renderer invoking the given binary.
func NewSoffice(bin string, logger *slog.Logger) *Soffice {
	return &Soffice{bin: bin, logger: logger}
}

// args builds the engine command line for one invocation.
func (s *Soffice) args(inputPath, outputDir, profileDir string) []string {
	return []string{
		"--headless",
		"--convert-to", pdfFilter,
		"--outdir", outputDir,
		// Per-invocation profile: without this, concurrent engine
		// instances race on a shared lock file.
		"-env:UserInstallation=file://" + profileDir,
		inputPath,
	}
}

// env returns the process environment with HOME pointed at the profile
// directory. LibreOffice resolves some configuration paths relative to HOME
// independent of the UserInstallation flag; both must agree.
func (s *Soffice) env(profileDir string) []string {
	return append(os.Environ(), "HOME="+profileDir)
}

// Convert invokes the engine and waits for it to exit, capturing stderr.
// On context expiry the entire process group is SIGKILLed: a detached engine
// process would hold its profile lock and burn CPU for the life of the host.
func (s *Soffice) Convert(ctx context.Context, inputPath, outputDir, profileDir string) (Result, error) {
	cmd := exec.CommandContext(ctx, s.bin, s.args(inputPath, outputDir, profileDir)...)
	cmd.Env = s.env(profileDir)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Run the engine in its own process group so cancellation kills any
	// children it forked, not just the leader.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = killWaitDelay

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			s.logger.Warn("engine killed on deadline",
				"input", inputPath,
				"elapsed_ms", elapsed.Milliseconds(),
			)
			return Result{ExitCode: -1, Stderr: stderr.Bytes()}, fmt.Errorf("%w after %s", ErrTimeout, elapsed.Round(time.Millisecond))
		}

		if ctx.Err() != nil {
			// Parent cancellation rather than the job deadline: the
			// caller went away, so the kill is not an engine fault.
			return Result{ExitCode: -1, Stderr: stderr.Bytes()}, fmt.Errorf("engine canceled: %w", context.Cause(ctx))
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Engine ran and exited non-zero. Not an invocation error:
			// the caller classifies the exit code.
			return Result{ExitCode: exitErr.ExitCode(), Stderr: stderr.Bytes()}, nil
		}

		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return Result{}, fmt.Errorf("%w: %s: %v", ErrSpawn, s.bin, err)
		}
		return Result{}, fmt.Errorf("run engine: %w", err)
	}

	s.logger.Debug("engine finished",
		"input", inputPath,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return Result{ExitCode: 0, Stderr: stderr.Bytes()}, nil
}

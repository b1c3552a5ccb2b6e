package pgtool

import (
	"fmt"
	"strings"
	"time"
)

// Result holds the outcome of a completed tool invocation. It is populated
// even when the tool exited non-zero, so callers that treat certain exit
// codes as signal (pg_isready) can inspect it directly.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExecError reports a tool that ran to completion but exited non-zero. The
// tool's stderr is carried verbatim so callers can surface the server-side
// diagnostic without re-running anything.
type ExecError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, stderr)
}

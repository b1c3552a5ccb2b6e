package pgtool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/giantswarm/pgenv/internal/sentinel"
)

// ErrToolNotFound is returned when a tool binary cannot be located, either
// in the configured program directory or on PATH.
const ErrToolNotFound = sentinel.Error("tool binary not found")

// Kind identifies a PostgreSQL executable by its binary name.
type Kind string

// The tools the invoker knows how to locate. The server-side binaries
// (initdb, pg_ctl, postgres) live in the same bin directory as the client
// tools, so they share the lookup path.
const (
	PgDump       Kind = "pg_dump"
	PgDumpAll    Kind = "pg_dumpall"
	PgRestore    Kind = "pg_restore"
	PgBaseBackup Kind = "pg_basebackup"
	PgRewind     Kind = "pg_rewind"
	Psql         Kind = "psql"
	PgIsReady    Kind = "pg_isready"
	InitDB       Kind = "initdb"
	PgCtl        Kind = "pg_ctl"
	Postgres     Kind = "postgres"
)

func (k Kind) String() string {
	return string(k)
}

// Invoker locates and runs PostgreSQL tool binaries.
//
// When programDir is non-empty, binaries are resolved as
// programDir/<tool>; otherwise they are looked up on PATH. Invoker is
// stateless apart from its configuration and safe for concurrent use.
type Invoker struct {
	programDir string
	log        *slog.Logger
}

// NewInvoker creates an Invoker resolving binaries in programDir, or on
// PATH when programDir is empty. If logger is nil, slog.Default() is used.
func NewInvoker(programDir string, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{programDir: programDir, log: logger}
}

// ProgramDir returns the configured binary directory, which may be empty.
func (inv *Invoker) ProgramDir() string {
	return inv.programDir
}

// Path resolves the binary for the given tool. Returns an error wrapping
// ErrToolNotFound when the binary does not exist or is not executable.
func (inv *Invoker) Path(kind Kind) (string, error) {
	if inv.programDir == "" {
		path, err := exec.LookPath(kind.String())
		if err != nil {
			return "", fmt.Errorf("%s: %w: %w", kind, ErrToolNotFound, err)
		}
		return path, nil
	}
	path := filepath.Join(inv.programDir, kind.String())
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%s: %w at %s", kind, ErrToolNotFound, path)
	}
	return path, nil
}

// Run executes the tool with the given arguments and captures stdout and
// stderr. The password, when non-empty, is exported as PGPASSWORD for the
// child only; it never appears in the argument vector. A non-zero exit is
// not an error here. The returned error covers lookup failures, spawn
// failures, and context cancellation.
func (inv *Invoker) Run(ctx context.Context, kind Kind, args []string, password string) (Result, error) {
	path, err := inv.Path(kind)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = os.Environ()
	if password != "" {
		cmd.Env = append(cmd.Env, "PGPASSWORD="+password)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return res, fmt.Errorf("run %s: %w", kind, runErr)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			// The process was killed by context cancellation; report the
			// cause rather than the signal-induced exit status.
			return res, fmt.Errorf("run %s: %w", kind, ctxErr)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	inv.log.Debug("tool finished",
		"tool", kind.String(),
		"exit_code", res.ExitCode,
		"duration", res.Duration,
	)
	return res, nil
}

// RunChecked is Run with non-zero exits promoted to *ExecError.
func (inv *Invoker) RunChecked(ctx context.Context, kind Kind, args []string, password string) (Result, error) {
	res, err := inv.Run(ctx, kind, args, password)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &ExecError{Tool: kind.String(), ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

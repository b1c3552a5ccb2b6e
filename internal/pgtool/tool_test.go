package pgtool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeStub creates a fake tool binary in dir. The script prints its
// environment PGPASSWORD and arguments, writes a line to stderr, and exits
// with the given code.
func writeStub(t *testing.T, dir string, kind Kind, exitCode string) {
	t.Helper()
	script := `#!/bin/sh
echo "pw=$PGPASSWORD args=$@"
echo "diagnostic line" >&2
exit ` + exitCode + "\n"
	path := filepath.Join(dir, kind.String())
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", kind, err)
	}
}

func TestInvoker_Path(t *testing.T) {
	t.Parallel()

	t.Run("resolves in program dir", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeStub(t, dir, Psql, "0")

		inv := NewInvoker(dir, nil)
		path, err := inv.Path(Psql)
		if err != nil {
			t.Fatalf("Path() error: %v", err)
		}
		if path != filepath.Join(dir, "psql") {
			t.Errorf("Path() = %q", path)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		t.Parallel()

		inv := NewInvoker(t.TempDir(), nil)
		if _, err := inv.Path(PgDump); !errors.Is(err, ErrToolNotFound) {
			t.Errorf("Path() error = %v, want ErrToolNotFound", err)
		}
	})

	t.Run("missing on PATH", func(t *testing.T) {
		t.Parallel()

		inv := NewInvoker("", nil)
		if _, err := inv.Path(Kind("definitely-not-a-real-tool")); !errors.Is(err, ErrToolNotFound) {
			t.Errorf("Path() error = %v, want ErrToolNotFound", err)
		}
	})
}

func TestInvoker_Run(t *testing.T) {
	t.Parallel()

	t.Run("captures output and passes password via env", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeStub(t, dir, Psql, "0")
		inv := NewInvoker(dir, nil)

		res, err := inv.Run(context.Background(), Psql, []string{"-c", "SELECT 1"}, "secret")
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if res.ExitCode != 0 {
			t.Errorf("ExitCode = %d, want 0", res.ExitCode)
		}
		if !strings.Contains(res.Stdout, "pw=secret") {
			t.Errorf("PGPASSWORD not delivered, stdout: %q", res.Stdout)
		}
		if !strings.Contains(res.Stdout, "args=-c SELECT 1") {
			t.Errorf("arguments not delivered, stdout: %q", res.Stdout)
		}
		if !strings.Contains(res.Stderr, "diagnostic line") {
			t.Errorf("stderr not captured: %q", res.Stderr)
		}
		if res.Duration <= 0 {
			t.Error("Duration not recorded")
		}
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeStub(t, dir, PgIsReady, "2")
		inv := NewInvoker(dir, nil)

		res, err := inv.Run(context.Background(), PgIsReady, nil, "")
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if res.ExitCode != 2 {
			t.Errorf("ExitCode = %d, want 2", res.ExitCode)
		}
	})

	t.Run("context timeout", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		script := "#!/bin/sh\nsleep 30\n"
		if err := os.WriteFile(filepath.Join(dir, "pg_dump"), []byte(script), 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
		inv := NewInvoker(dir, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err := inv.Run(ctx, PgDump, nil, "")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestInvoker_RunChecked(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeStub(t, dir, PgRestore, "1")
	inv := NewInvoker(dir, nil)

	_, err := inv.RunChecked(context.Background(), PgRestore, nil, "")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("RunChecked() error = %v, want *ExecError", err)
	}
	if execErr.Tool != "pg_restore" || execErr.ExitCode != 1 {
		t.Errorf("ExecError = %+v", execErr)
	}
	if !strings.Contains(execErr.Stderr, "diagnostic line") {
		t.Errorf("ExecError missing stderr: %q", execErr.Stderr)
	}
	if !strings.Contains(execErr.Error(), "pg_restore exited with code 1") {
		t.Errorf("Error() = %q", execErr.Error())
	}
}

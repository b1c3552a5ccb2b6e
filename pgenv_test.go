package pgenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// stubInstallation builds a fake PostgreSQL installation whose binaries
// cover the lifecycle paths: initdb writes the data directory marker,
// postgres stays alive until signaled, pg_isready reports accepting.
func stubInstallation(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}

	tools := map[string]string{
		"initdb": `#!/bin/sh
dir=""
while [ $# -gt 0 ]; do
  case "$1" in
    --pgdata) dir="$2"; shift 2 ;;
    *) shift ;;
  esac
done
[ -n "$dir" ] || exit 1
mkdir -p "$dir"
echo "17" > "$dir/PG_VERSION"
`,
		"postgres":   "#!/bin/sh\nsleep 60\n",
		"pg_isready": "#!/bin/sh\nexit 0\n",
		"pg_ctl":     "#!/bin/sh\nexit 0\n",
	}
	for name, script := range tools {
		if err := os.WriteFile(filepath.Join(bin, name), []byte(script), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	return root
}

func stubSettings(t *testing.T) Settings {
	t.Helper()
	s := DefaultSettings()
	s.InstallationDir = stubInstallation(t)
	s.Timeout = 5 * time.Second
	s.SetupTimeout = 10 * time.Second
	return s
}

func TestInstance_Lifecycle(t *testing.T) {
	t.Parallel()

	inst, err := New(stubSettings(t))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(inst.Cleanup)

	if inst.ID() == "" {
		t.Error("ID() is empty")
	}
	if got := inst.State(); got != StateStopped {
		t.Errorf("State() before start = %v, want %v", got, StateStopped)
	}

	ctx := context.Background()
	if err := inst.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := inst.State(); got != StateRunning {
		t.Errorf("State() after start = %v, want %v", got, StateRunning)
	}
	if _, ok := inst.StartupTime(); !ok {
		t.Error("StartupTime() unknown after successful start")
	}

	info, err := inst.ConnectionInfo()
	if err != nil {
		t.Fatalf("ConnectionInfo() error: %v", err)
	}
	if info.Port == 0 {
		t.Error("ConnectionInfo() reports port 0 after start")
	}
	if !inst.IsConnectionCacheValid() {
		t.Error("connection cache invalid right after derivation")
	}
	inst.ClearConnectionCache()
	if inst.IsConnectionCacheValid() {
		t.Error("connection cache still valid after clear")
	}
	if inst.ConfigHash() == "" {
		t.Error("ConfigHash() is empty")
	}
	if !inst.CheckReady(ctx) {
		t.Error("CheckReady() = false while stub reports ready")
	}

	if err := inst.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := inst.State(); got != StateStopped {
		t.Errorf("State() after stop = %v, want %v", got, StateStopped)
	}
	if err := inst.Stop(ctx); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("second Stop() = %v, want ErrAlreadyStopped", err)
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	s.Port = -1
	if _, err := New(s); err == nil {
		t.Fatal("New() with negative port succeeded")
	}
}

func TestInstance_NotRunningOperations(t *testing.T) {
	t.Parallel()

	inst, err := New(stubSettings(t))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(inst.Cleanup)

	ctx := context.Background()
	if _, err := inst.ConnectionInfo(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("ConnectionInfo() = %v, want ErrNotRunning", err)
	}
	if err := inst.CreateDatabase(ctx, "app"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("CreateDatabase() = %v, want ErrNotRunning", err)
	}
	if _, err := inst.ExecuteSQLJSON(ctx, "SELECT 1"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("ExecuteSQLJSON() = %v, want ErrNotRunning", err)
	}
	if _, err := inst.CreateDump(ctx, DumpConfig{}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("CreateDump() = %v, want ErrNotRunning", err)
	}
	if inst.CheckReady(ctx) {
		t.Error("CheckReady() = true while stopped")
	}
	if inst.IsHealthy(ctx) {
		t.Error("IsHealthy() = true while stopped")
	}
	if _, err := inst.DataDir(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DataDir() = %v, want ErrNotInitialized", err)
	}
}

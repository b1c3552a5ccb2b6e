package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// writeTool installs a stub executable in bin.
func writeTool(t *testing.T, bin, name, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(bin, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

// stubInstallation builds a fake PostgreSQL installation whose binaries
// behave well: initdb initializes the data directory marker, postgres
// stays alive until signaled, pg_isready immediately reports accepting.
func stubInstallation(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}

	writeTool(t, bin, "initdb", `#!/bin/sh
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
echo "# stub" > "$dir/postgresql.conf"
`)
	writeTool(t, bin, "postgres", "#!/bin/sh\nsleep 60\n")
	writeTool(t, bin, "pg_isready", "#!/bin/sh\nexit 0\n")
	writeTool(t, bin, "pg_ctl", "#!/bin/sh\nexit 0\n")
	return root
}

func stubConfig(root string) Config {
	return Config{
		InstallationDir: root,
		Timeout:         5 * time.Second,
		SetupTimeout:    10 * time.Second,
	}
}

func startedInstance(t *testing.T, id string) *Instance {
	t.Helper()
	inst, err := NewInstance(stubConfig(stubInstallation(t)), id)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(inst.Cleanup)
	return inst
}

func TestInstance_StartStop(t *testing.T) {
	t.Parallel()

	inst := startedInstance(t, "lifecycle-1")

	if got := inst.State(); got != StateRunning {
		t.Errorf("State() = %v, want running", got)
	}
	if d, ok := inst.StartupTime(); !ok || d <= 0 {
		t.Errorf("StartupTime() = (%v, %v), want positive and known", d, ok)
	}

	dataDir, err := inst.DataDir()
	if err != nil {
		t.Fatalf("DataDir() error: %v", err)
	}
	if !fileExists(filepath.Join(dataDir, "PG_VERSION")) {
		t.Error("data directory not initialized")
	}

	info, err := inst.ConnectionInfo()
	if err != nil {
		t.Fatalf("ConnectionInfo() error: %v", err)
	}
	if info.Port <= 0 {
		t.Errorf("bound port = %d, want automatically assigned", info.Port)
	}

	if err := inst.Stop(0); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := inst.State(); got != StateStopped {
		t.Errorf("State() after stop = %v, want stopped", got)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestInstance_StartTwice(t *testing.T) {
	t.Parallel()

	inst := startedInstance(t, "double-start")
	if err := inst.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestInstance_StopTwice(t *testing.T) {
	t.Parallel()

	inst := startedInstance(t, "double-stop")
	if err := inst.Stop(0); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if err := inst.Stop(0); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("second Stop() error = %v, want ErrAlreadyStopped", err)
	}
}

func TestInstance_StopWithoutStart(t *testing.T) {
	t.Parallel()

	inst, err := NewInstance(stubConfig(stubInstallation(t)), "never-started")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if err := inst.Stop(0); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("Stop() error = %v, want ErrAlreadyStopped", err)
	}
}

func TestInstance_FailedStartRollsBack(t *testing.T) {
	t.Parallel()

	root := stubInstallation(t)
	bin := filepath.Join(root, "bin")
	// Server dies immediately and the probe never succeeds.
	writeTool(t, bin, "postgres", "#!/bin/sh\nexit 1\n")
	writeTool(t, bin, "pg_isready", "#!/bin/sh\nexit 2\n")

	inst, err := NewInstance(stubConfig(root), "failing-start")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(inst.Cleanup)

	if err := inst.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when the server exits immediately")
	}
	if got := inst.State(); got != StateStopped {
		t.Errorf("State() after failed start = %v, want stopped", got)
	}

	// A subsequent start against a fixed installation succeeds.
	writeTool(t, bin, "postgres", "#!/bin/sh\nsleep 60\n")
	writeTool(t, bin, "pg_isready", "#!/bin/sh\nexit 0\n")
	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start() after fix error: %v", err)
	}
}

func TestInstance_MissingServerBinary(t *testing.T) {
	t.Parallel()

	root := stubInstallation(t)
	if err := os.Remove(filepath.Join(root, "bin", "postgres")); err != nil {
		t.Fatalf("remove stub: %v", err)
	}

	inst, err := NewInstance(stubConfig(root), "no-binary")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(inst.Cleanup)

	if err := inst.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail without a postgres binary")
	}
	if got := inst.State(); got != StateStopped {
		t.Errorf("State() = %v, want stopped", got)
	}
}

func TestInstance_ConcurrentStart(t *testing.T) {
	t.Parallel()

	inst, err := NewInstance(stubConfig(stubInstallation(t)), "racing-start")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(inst.Cleanup)

	const n = 4
	results := make([]error, n)
	var wg sync.WaitGroup
	for idx := 0; idx < n; idx++ {
		idx := idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[idx] = inst.Start(context.Background())
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyStarting), errors.Is(err, ErrAlreadyRunning):
		default:
			t.Errorf("unexpected concurrent Start() error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d Start() calls succeeded, want exactly 1", ok)
	}
	if got := inst.State(); got != StateRunning {
		t.Errorf("State() = %v, want running", got)
	}
}

func TestInstance_Cleanup(t *testing.T) {
	t.Parallel()

	t.Run("removes temp data dir and stops server", func(t *testing.T) {
		t.Parallel()

		inst := startedInstance(t, "cleanup-1")
		dataDir, err := inst.DataDir()
		if err != nil {
			t.Fatalf("DataDir() error: %v", err)
		}

		inst.Cleanup()

		if got := inst.State(); got != StateStopped {
			t.Errorf("State() after cleanup = %v, want stopped", got)
		}
		if fileExists(dataDir) {
			t.Error("data directory not removed by cleanup")
		}

		// Idempotent.
		inst.Cleanup()

		if err := inst.Start(context.Background()); !errors.Is(err, ErrCleanedUp) {
			t.Errorf("Start() after cleanup error = %v, want ErrCleanedUp", err)
		}
	})

	t.Run("persistent keeps data dir", func(t *testing.T) {
		t.Parallel()

		cfg := stubConfig(stubInstallation(t))
		cfg.DataDir = filepath.Join(t.TempDir(), "cluster")
		cfg.Persistent = true
		inst, err := NewInstance(cfg, "cleanup-persistent")
		if err != nil {
			t.Fatalf("NewInstance: %v", err)
		}
		if err := inst.Start(context.Background()); err != nil {
			t.Fatalf("Start() error: %v", err)
		}

		inst.Cleanup()

		if !fileExists(filepath.Join(cfg.DataDir, "PG_VERSION")) {
			t.Error("persistent data directory removed by cleanup")
		}
	})
}

func TestInstance_ReinitSkippedForInitializedDir(t *testing.T) {
	t.Parallel()

	root := stubInstallation(t)
	cfg := stubConfig(root)
	cfg.DataDir = filepath.Join(t.TempDir(), "cluster")
	cfg.Persistent = true

	inst, err := NewInstance(cfg, "reuse-1")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	if err := inst.Stop(0); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	inst.Cleanup()

	// Replace initdb with one that fails: the second instance must not
	// invoke it for an already-initialized directory.
	writeTool(t, filepath.Join(root, "bin"), "initdb", "#!/bin/sh\nexit 1\n")

	inst2, err := NewInstance(cfg, "reuse-2")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(inst2.Cleanup)
	if err := inst2.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
}

func TestInstance_FixedPortReservation(t *testing.T) {
	t.Parallel()

	root := stubInstallation(t)
	port := reserveTestPort(t)

	cfg := stubConfig(root)
	cfg.Port = port
	inst, err := NewInstance(cfg, "fixed-port-1")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(inst.Cleanup)
	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// A second instance asking for the same port must be refused up front.
	cfg2 := stubConfig(root)
	cfg2.Port = port
	inst2, err := NewInstance(cfg2, "fixed-port-2")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(inst2.Cleanup)
	if err := inst2.Start(context.Background()); err == nil {
		t.Error("Start() should fail for an already reserved port")
	}
}

// reserveTestPort picks a port number unlikely to collide with other tests
// sharing the process-wide registry.
func reserveTestPort(t *testing.T) int {
	t.Helper()
	port, err := sharedPorts.AllocatePort()
	if err != nil {
		t.Fatalf("allocate test port: %v", err)
	}
	sharedPorts.Release(port)
	return port
}

func TestInstance_CheckReady(t *testing.T) {
	t.Parallel()

	inst := startedInstance(t, "check-ready")
	if !inst.CheckReady(context.Background()) {
		t.Error("CheckReady() = false for a running stub server")
	}

	if err := inst.Stop(0); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if inst.CheckReady(context.Background()) {
		t.Error("CheckReady() = true for a stopped server")
	}
}

func TestInstance_Promote(t *testing.T) {
	t.Parallel()

	inst := startedInstance(t, "promote-1")
	if err := inst.Promote(context.Background()); err != nil {
		t.Errorf("Promote() error: %v", err)
	}

	if err := inst.Stop(0); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if err := inst.Promote(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Promote() on stopped error = %v, want ErrNotRunning", err)
	}
}

func TestInstance_DataDirBeforeStart(t *testing.T) {
	t.Parallel()

	inst, err := NewInstance(stubConfig(stubInstallation(t)), "accessors")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if _, err := inst.DataDir(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DataDir() error = %v, want ErrNotInitialized", err)
	}
	if _, err := inst.ProgramDir(); err != nil {
		t.Errorf("ProgramDir() error: %v", err)
	}
}

func TestInstance_AccessorsDuringStart(t *testing.T) {
	t.Parallel()

	inst, err := NewInstance(stubConfig(stubInstallation(t)), "during-start-test")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(inst.Cleanup)

	// Hammer the read-only accessors while Start is resolving the data
	// directory, reserving the port, and spawning the server.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, _ = inst.DataDir()
			_ = inst.State()
			_ = inst.ConfigHash()
			_ = inst.IsConnectionCacheValid()
		}
	}()

	err = inst.Start(context.Background())
	close(stop)
	wg.Wait()
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := inst.State(); got != StateRunning {
		t.Errorf("State() = %v, want %v", got, StateRunning)
	}
}

func TestInstance_ExecuteSQLJSONOutputs(t *testing.T) {
	t.Parallel()

	root := stubInstallation(t)
	writeTool(t, filepath.Join(root, "bin"), "psql", `#!/bin/sh
case "$*" in
  *json_agg*) echo '[{"a":1},{"a":2}]' ;;
  *) echo 'DROP TABLE' ;;
esac
echo 'NOTICE:  relation handled' >&2
`)
	inst, err := NewInstance(stubConfig(root), "json-output-test")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if err := inst.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(inst.Cleanup)

	rows, err := inst.ExecuteSQLJSON(context.Background(), "SELECT a FROM t", "")
	if err != nil {
		t.Fatalf("ExecuteSQLJSON(select) error: %v", err)
	}
	if got, want := string(rows.Data), `[{"a":1},{"a":2}]`; got != want {
		t.Errorf("Data = %s, want %s", got, want)
	}
	if rows.RowCount == nil || *rows.RowCount != 2 {
		t.Errorf("RowCount = %v, want 2", rows.RowCount)
	}
	if !strings.Contains(rows.Stdout, `[{"a":1}`) {
		t.Errorf("Stdout %q does not carry the raw psql output", rows.Stdout)
	}
	if !strings.Contains(rows.Stderr, "NOTICE") {
		t.Errorf("Stderr %q does not carry the psql notice", rows.Stderr)
	}

	dropped, err := inst.ExecuteSQLJSON(context.Background(), "DROP TABLE t", "")
	if err != nil {
		t.Fatalf("ExecuteSQLJSON(drop) error: %v", err)
	}
	if got, want := string(dropped.Data), "null"; got != want {
		t.Errorf("Data = %s, want %s", got, want)
	}
	if dropped.RowCount != nil {
		t.Errorf("RowCount = %d, want nil for a tag without a count", *dropped.RowCount)
	}
	if !strings.Contains(dropped.Stdout, "DROP TABLE") {
		t.Errorf("Stdout %q does not carry the command tag", dropped.Stdout)
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/giantswarm/pgenv/internal/fileutil"
	"github.com/giantswarm/pgenv/internal/netutil"
	"github.com/giantswarm/pgenv/internal/pgtool"
	"github.com/giantswarm/pgenv/internal/process"
)

// readyPollInterval is how often the readiness probe runs during start.
const readyPollInterval = 100 * time.Millisecond

// initLockRetryInterval is the poll interval for the cross-process initdb
// file lock.
const initLockRetryInterval = 50 * time.Millisecond

// sharedPorts is the process-wide port registry. All instances share it so
// automatic port selection never hands the same port to two instances in
// this process.
var sharedPorts = netutil.NewPortRegistry(nil)

// serverProcess is the spawned postgres server. The embedded BaseProcess
// provides start, log capture, and the graceful stop sequence.
type serverProcess struct {
	process.BaseProcess
}

// Compile-time check that serverProcess satisfies the Stoppable contract
// used during teardown.
var _ process.Stoppable = (*serverProcess)(nil)

// Instance is one embedded PostgreSQL server. Create it with NewInstance;
// the zero value is not usable.
//
// State transitions are atomic under the instance mutex: Start moves
// Stopped → Starting, performs the work outside the lock, then publishes
// Running or rolls back to Stopped. An instance is never left in Starting
// or Stopping after the owning call returns.
type Instance struct {
	cfg     Config
	id      string
	log     *slog.Logger
	invoker *pgtool.Invoker
	ports   *netutil.PortRegistry

	mu            sync.Mutex
	state         State
	proc          *serverProcess
	dataDir       string // resolved on first start
	boundPort     int
	portReserved  bool
	startupTime   time.Duration
	startupKnown  bool
	cleanedUp     bool
	connInfo      *ConnectionInfo
	connExpiry    time.Time
	configHash    string // lazily computed, then immutable

	// now is replaceable in tests driving the connection cache TTL.
	now func() time.Time
}

// NewInstance validates the configuration and creates a stopped instance.
// Nothing touches the filesystem until Start.
func NewInstance(cfg Config, id string) (*Instance, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instance config: %w", err)
	}
	log := Logger().With("instance", id)
	return &Instance{
		cfg:     cfg,
		id:      id,
		log:     log,
		invoker: pgtool.NewInvoker(cfg.ProgramDir(), log),
		ports:   sharedPorts,
		state:   StateStopped,
		now:     time.Now,
	}, nil
}

// ID returns the instance identifier.
func (i *Instance) ID() string {
	return i.id
}

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// DataDir returns the server data directory. Before the first start of an
// instance without a configured directory, it returns ErrNotInitialized.
func (i *Instance) DataDir() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dataDir != "" {
		return i.dataDir, nil
	}
	if i.cfg.DataDir != "" {
		return i.cfg.DataDir, nil
	}
	return "", ErrNotInitialized
}

// ProgramDir returns the directory holding the PostgreSQL executables, or
// ErrNotInitialized when tools resolve on PATH and no directory is known.
func (i *Instance) ProgramDir() (string, error) {
	if dir := i.cfg.ProgramDir(); dir != "" {
		return dir, nil
	}
	return "", ErrNotInitialized
}

// StartupTime returns the duration of the most recent successful start. The
// second return is false when the instance has never reached Running.
func (i *Instance) StartupTime() (time.Duration, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.startupTime, i.startupKnown
}

// Invoker exposes the tool invoker bound to this instance's installation.
func (i *Instance) Invoker() *pgtool.Invoker {
	return i.invoker
}

// connConfig returns the tool connection settings for the running server,
// pointed at database (or the configured default when empty). Caller must
// hold i.mu.
func (i *Instance) connConfigLocked(database string) pgtool.ConnectionConfig {
	info := i.connectionInfoLocked()
	if database != "" {
		info = info.forDatabase(database)
	}
	return pgtool.ConnectionConfig{
		Host:     info.Host,
		Port:     info.Port,
		Username: info.Username,
		Password: info.Password,
		Database: info.DatabaseName,
	}
}

// runningConnConfig is connConfigLocked behind the state check used by all
// tool-backed operations.
func (i *Instance) runningConnConfig(database string) (pgtool.ConnectionConfig, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateRunning {
		return pgtool.ConnectionConfig{}, ErrNotRunning
	}
	return i.connConfigLocked(database), nil
}

// Start initializes the data directory if needed, spawns the server, and
// waits until it accepts connections. The context bounds the whole path;
// Settings.SetupTimeout is the usual source of its deadline. On any
// failure the instance is rolled back to Stopped and the spawned process,
// if any, is terminated.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.cleanedUp {
		i.mu.Unlock()
		return ErrCleanedUp
	}
	switch i.state {
	case StateRunning:
		i.mu.Unlock()
		return ErrAlreadyRunning
	case StateStarting:
		i.mu.Unlock()
		return ErrAlreadyStarting
	case StateStopping:
		i.mu.Unlock()
		return ErrNotRunning
	}
	i.state = StateStarting
	i.mu.Unlock()

	began := time.Now()
	err := i.start(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()
	if err != nil {
		i.state = StateStopped
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("start postgres: %w", err)
	}
	i.state = StateRunning
	i.startupTime = time.Since(began)
	i.startupKnown = true
	i.connInfo = nil // derive against the bound port on next use
	i.log.Info("server started",
		"port", i.boundPort,
		"data_dir", i.dataDir,
		"startup_time", i.startupTime,
	)
	defaultRegistry.register(i)
	return nil
}

// start performs the heavy lifting of Start. It runs while the instance
// owns the Starting state, which keeps Stop and a second Start out, but
// read-only accessors (DataDir, State, Cleanup's bookkeeping) run
// concurrently under i.mu — every field write below takes the mutex.
func (i *Instance) start(ctx context.Context) error {
	if err := i.resolveDataDir(); err != nil {
		return err
	}
	if err := i.resolvePort(); err != nil {
		return err
	}
	if err := i.initDataDirIfNeeded(ctx); err != nil {
		i.rollbackPort()
		return err
	}
	if err := i.spawnServer(); err != nil {
		i.rollbackPort()
		return err
	}
	if err := i.waitUntilReady(ctx); err != nil {
		// Best-effort teardown; the readiness failure is the error that
		// matters to the caller.
		i.mu.Lock()
		proc := i.proc
		i.proc = nil
		i.mu.Unlock()
		if stopErr := process.StopCloseAndNil(&proc, i.cfg.Timeout); stopErr != nil {
			i.log.Warn("stop after failed start", "error", stopErr)
		}
		i.rollbackPort()
		return err
	}
	return nil
}

func (i *Instance) resolveDataDir() error {
	i.mu.Lock()
	resolved := i.dataDir
	i.mu.Unlock()
	if resolved != "" {
		return nil
	}

	dir := i.cfg.DataDir
	if dir != "" {
		if err := fileutil.EnsureDir(dir); err != nil {
			return err
		}
	} else {
		tmp, err := os.MkdirTemp("", "pgenv-"+shortID(i.id)+"-")
		if err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		// initdb insists on 0700.
		if err := os.Chmod(tmp, 0o700); err != nil {
			return fmt.Errorf("chmod data directory: %w", err)
		}
		dir = tmp
	}

	i.mu.Lock()
	i.dataDir = dir
	i.mu.Unlock()
	return nil
}

// resolvePort reserves the configured port, or asks the kernel for a free
// one when the configured port is 0. The reservation is process-local; the
// bound port is what the server is told to listen on.
func (i *Instance) resolvePort() error {
	i.mu.Lock()
	reserved := i.portReserved
	i.mu.Unlock()
	if reserved {
		return nil
	}

	port := i.cfg.Port
	if port == 0 {
		allocated, err := i.ports.AllocatePort()
		if err != nil {
			return fmt.Errorf("allocate port: %w", err)
		}
		port = allocated
	} else if !i.ports.Reserve(port) {
		return fmt.Errorf("port %d is already reserved by another instance", port)
	}

	i.mu.Lock()
	i.boundPort = port
	i.portReserved = true
	i.mu.Unlock()
	return nil
}

// releasePort returns the reservation to the registry. Caller must hold
// i.mu; rollbackPort is the unlocked variant for start's failure paths.
func (i *Instance) releasePort() {
	if i.portReserved {
		i.ports.Release(i.boundPort)
		i.portReserved = false
		i.boundPort = 0
	}
}

func (i *Instance) rollbackPort() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.releasePort()
}

// initDataDirIfNeeded runs initdb exactly once per data directory. The
// PG_VERSION marker identifies an initialized cluster; a sibling file lock
// serializes initialization across processes sharing a persistent
// directory. The lock lives next to the data directory, not inside it,
// because initdb refuses a non-empty target.
func (i *Instance) initDataDirIfNeeded(ctx context.Context) error {
	i.mu.Lock()
	dataDir := i.dataDir
	i.mu.Unlock()

	marker := filepath.Join(dataDir, "PG_VERSION")
	if fileutil.FileExists(marker) {
		return nil
	}

	lock := flock.New(filepath.Clean(dataDir) + ".init.lock")
	locked, err := lock.TryLockContext(ctx, initLockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquire init lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire init lock %s: not acquired", lock.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			i.log.Warn("release init lock", "error", err)
		}
	}()

	// Another process may have initialized while we waited for the lock.
	if fileutil.FileExists(marker) {
		return nil
	}

	args := []string{
		"--pgdata", dataDir,
		"--username", i.cfg.Username,
		"--encoding", "UTF8",
		"--no-sync",
	}
	pwfile, err := writePasswordFile(i.cfg.Password)
	if err != nil {
		return err
	}
	if pwfile != "" {
		defer os.Remove(pwfile)
		args = append(args, "--pwfile", pwfile, "--auth", "password")
	} else {
		args = append(args, "--auth", "trust")
	}

	i.log.Info("initializing data directory", "data_dir", dataDir)
	if _, err := i.invoker.RunChecked(ctx, pgtool.InitDB, args, ""); err != nil {
		return fmt.Errorf("initdb: %w", err)
	}
	return nil
}

// writePasswordFile writes the superuser password to a private temp file
// for initdb's --pwfile, avoiding the password on the command line. Returns
// "" when the password is empty.
func writePasswordFile(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	f, err := os.CreateTemp("", "pgenv-pw-")
	if err != nil {
		return "", fmt.Errorf("create password file: %w", err)
	}
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("chmod password file: %w", err)
	}
	if _, err := f.WriteString(password + "\n"); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write password file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close password file: %w", err)
	}
	return f.Name(), nil
}

func (i *Instance) spawnServer() error {
	path, err := i.invoker.Path(pgtool.Postgres)
	if err != nil {
		return err
	}
	i.mu.Lock()
	dataDir := i.dataDir
	port := i.boundPort
	i.mu.Unlock()
	args := []string{
		"-D", dataDir,
		"-p", strconv.Itoa(port),
		"-c", "listen_addresses=" + i.cfg.Host,
		// Keep the socket inside the data directory so the server never
		// needs write access to the system default socket path.
		"-c", "unix_socket_directories=" + dataDir,
	}
	proc := &serverProcess{process.NewBaseProcess("postgres", i.log, i.cfg.Timeout)}
	if err := proc.SetupAndStart(exec.Command(path, args...), dataDir); err != nil {
		return err
	}
	i.mu.Lock()
	i.proc = proc
	i.mu.Unlock()
	return nil
}

// waitUntilReady polls pg_isready until the server accepts connections,
// aborting early if the server process dies.
func (i *Instance) waitUntilReady(ctx context.Context) error {
	i.mu.Lock()
	port := i.boundPort
	exited := i.proc.Exited()
	i.mu.Unlock()

	conn := pgtool.ConnectionConfig{
		Host:     i.cfg.Host,
		Port:     port,
		Username: i.cfg.Username,
		Database: i.cfg.Database,
	}
	args := pgtool.IsReadyConfig{Quiet: true}.Args(conn)

	cfg := process.WaitReadyConfig{
		Interval:      readyPollInterval,
		Timeout:       i.cfg.SetupTimeout,
		Name:          "postgres",
		Port:          port,
		Logger:        i.log,
		ProcessExited: exited,
	}
	return process.WaitReady(ctx, cfg, func(pollCtx context.Context, _ int) (bool, error) {
		res, err := i.invoker.Run(pollCtx, pgtool.PgIsReady, args, "")
		if err != nil {
			if errors.Is(err, pgtool.ErrToolNotFound) {
				return false, err
			}
			// Transient failure; keep polling until the deadline.
			return false, nil
		}
		return res.ExitCode == 0, nil
	})
}

// Stop shuts the server down gracefully within the given timeout,
// escalating to a kill when it does not comply. Stopping an already
// stopped instance returns ErrAlreadyStopped.
func (i *Instance) Stop(timeout time.Duration) error {
	i.mu.Lock()
	switch i.state {
	case StateStopped:
		i.mu.Unlock()
		return ErrAlreadyStopped
	case StateStarting, StateStopping:
		i.mu.Unlock()
		return ErrNotRunning
	}
	i.state = StateStopping
	i.mu.Unlock()

	if timeout <= 0 {
		timeout = i.cfg.Timeout
	}
	i.mu.Lock()
	proc := i.proc
	i.proc = nil
	i.mu.Unlock()
	err := process.StopCloseAndNil(&proc, timeout)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.releasePort()
	i.connInfo = nil
	i.connExpiry = time.Time{}
	i.state = StateStopped
	if err != nil {
		return fmt.Errorf("stop postgres: %w", err)
	}
	i.log.Info("server stopped")
	return nil
}

// Cleanup releases everything the instance holds: it stops a running
// server, removes the data directory (unless the instance is persistent),
// and unregisters from the shutdown registry. Cleanup is idempotent and
// never fails; problems are logged and swallowed so teardown paths can
// call it unconditionally. It must not race a Start or Stop in flight.
func (i *Instance) Cleanup() {
	i.mu.Lock()
	if i.cleanedUp {
		i.mu.Unlock()
		return
	}
	running := i.state == StateRunning
	i.mu.Unlock()

	if running {
		if err := i.Stop(i.cfg.Timeout); err != nil {
			i.log.Warn("stop during cleanup", "error", err)
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.cfg.Persistent && i.dataDir != "" {
		if err := fileutil.RemoveDirIfExists(i.dataDir); err != nil {
			i.log.Warn("remove data directory during cleanup", "error", err)
		}
	}
	i.releasePort()
	i.connInfo = nil
	i.cleanedUp = true
	defaultRegistry.unregister(i)
	i.log.Debug("instance cleaned up")
}

// Promote promotes a standby server to primary via pg_ctl.
func (i *Instance) Promote(ctx context.Context) error {
	i.mu.Lock()
	if i.state != StateRunning {
		i.mu.Unlock()
		return ErrNotRunning
	}
	dataDir := i.dataDir
	i.mu.Unlock()

	args := []string{"-D", dataDir, "promote"}
	if _, err := i.invoker.RunChecked(ctx, pgtool.PgCtl, args, ""); err != nil {
		return fmt.Errorf("promote: %w", err)
	}
	return nil
}

// CheckReady reports whether the server currently accepts connections,
// using the same probe the readiness wait uses.
func (i *Instance) CheckReady(ctx context.Context) bool {
	conn, err := i.runningConnConfig("")
	if err != nil {
		return false
	}
	args := pgtool.IsReadyConfig{Quiet: true}.Args(conn)
	res, err := i.invoker.Run(ctx, pgtool.PgIsReady, args, "")
	return err == nil && res.ExitCode == 0
}

// shortID trims a UUID to its first group for use in file names.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

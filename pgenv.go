package pgenv

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/pgenv/internal/core"
	"github.com/giantswarm/pgenv/internal/pgtool"
)

// State is the lifecycle state of an Instance.
type State = core.State

const (
	StateStopped  = core.StateStopped
	StateStarting = core.StateStarting
	StateRunning  = core.StateRunning
	StateStopping = core.StateStopping
)

// ConnectionInfo describes how to reach a running server.
type ConnectionInfo = core.ConnectionInfo

// QueryResult is the normalized outcome of ExecuteSQLJSON and
// ExecuteSQLStructured.
type QueryResult = core.QueryResult

// Tool configuration and result types, re-exported so callers never import
// internal packages.
type (
	Result           = pgtool.Result
	ConnectionConfig = pgtool.ConnectionConfig
	Variable         = pgtool.Variable
	DumpConfig       = pgtool.DumpConfig
	DumpAllConfig    = pgtool.DumpAllConfig
	RestoreConfig    = pgtool.RestoreConfig
	BaseBackupConfig = pgtool.BaseBackupConfig
	RewindConfig     = pgtool.RewindConfig
	PsqlConfig       = pgtool.PsqlConfig
	IsReadyConfig    = pgtool.IsReadyConfig
)

// Instance is an embedded PostgreSQL server. Create one with New, bring it
// up with Start, and release its resources with Cleanup (or rely on the
// process-wide signal handler, which cleans up every live instance on
// SIGINT/SIGTERM).
type Instance struct {
	settings Settings
	inner    *core.Instance
}

// New builds an instance from the given settings. Zero-value fields take
// their defaults (see DefaultSettings); the settings are validated here so
// Start can assume a consistent configuration.
func New(settings Settings) (*Instance, error) {
	inner, err := core.NewInstance(settings.coreConfig(), uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &Instance{settings: settings, inner: inner}, nil
}

// ID returns the unique identifier of this instance.
func (i *Instance) ID() string {
	return i.inner.ID()
}

// State returns the current lifecycle state.
func (i *Instance) State() State {
	return i.inner.State()
}

// DataDir returns the server data directory, or ErrNotInitialized before
// the first start of an instance without a configured directory.
func (i *Instance) DataDir() (string, error) {
	return i.inner.DataDir()
}

// ProgramDir returns the directory holding the PostgreSQL executables, or
// ErrNotInitialized when tools resolve on PATH.
func (i *Instance) ProgramDir() (string, error) {
	return i.inner.ProgramDir()
}

// StartupTime returns the duration of the most recent successful start;
// ok is false when the instance has never reached Running.
func (i *Instance) StartupTime() (time.Duration, bool) {
	return i.inner.StartupTime()
}

// setupTimeout resolves the start budget, falling back to the default when
// the settings leave it unset.
func (i *Instance) setupTimeout() time.Duration {
	if i.settings.SetupTimeout > 0 {
		return i.settings.SetupTimeout
	}
	return core.DefaultSetupTimeout
}

func (i *Instance) opTimeout() time.Duration {
	if i.settings.Timeout > 0 {
		return i.settings.Timeout
	}
	return core.DefaultTimeout
}

// Start initializes the data directory if needed, spawns the server, and
// waits until it accepts connections, all within Settings.SetupTimeout.
func (i *Instance) Start(ctx context.Context) error {
	return i.StartWithTimeout(ctx, i.setupTimeout())
}

// StartWithTimeout is Start with an explicit budget overriding
// Settings.SetupTimeout.
func (i *Instance) StartWithTimeout(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return i.inner.Start(ctx)
}

// Stop shuts the server down gracefully within Settings.Timeout,
// escalating to a kill when it does not comply. Stopping a stopped
// instance returns ErrAlreadyStopped.
func (i *Instance) Stop(ctx context.Context) error {
	return i.StopWithTimeout(ctx, i.opTimeout())
}

// StopWithTimeout is Stop with an explicit budget. A context deadline
// closer than the budget shortens it.
func (i *Instance) StopWithTimeout(ctx context.Context, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return i.inner.Stop(timeout)
}

// Cleanup releases everything the instance holds: it stops a running
// server, removes the data directory (unless Settings.Persistent), and
// unregisters from the shutdown registry. Cleanup is idempotent and never
// fails, so teardown paths can call it unconditionally.
func (i *Instance) Cleanup() {
	i.inner.Cleanup()
}

// ConnectionInfo returns the connection descriptor of the running server.
// The descriptor is cached and re-derived after its TTL expires.
func (i *Instance) ConnectionInfo() (*ConnectionInfo, error) {
	info, err := i.inner.ConnectionInfo()
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ClearConnectionCache discards the cached connection descriptor.
func (i *Instance) ClearConnectionCache() {
	i.inner.ClearConnectionCache()
}

// IsConnectionCacheValid reports whether a cached descriptor exists and
// has not expired.
func (i *Instance) IsConnectionCacheValid() bool {
	return i.inner.IsConnectionCacheValid()
}

// ConfigHash returns a short stable fingerprint of the connection-relevant
// settings. It never changes over the instance's lifetime, even when an
// automatic port is later bound.
func (i *Instance) ConfigHash() string {
	return i.inner.ConfigHash()
}

// CreateDatabase creates a database on the running server. Creating a name
// that already exists is an error.
func (i *Instance) CreateDatabase(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.CreateDatabase(ctx, name)
}

// DropDatabase drops a database if it exists; an absent name succeeds
// silently.
func (i *Instance) DropDatabase(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.DropDatabase(ctx, name)
}

// DatabaseExists reports whether the named database exists.
func (i *Instance) DatabaseExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.DatabaseExists(ctx, name)
}

// IsHealthy reports whether the server answers a ping. It never returns an
// error; any failure reads as unhealthy.
func (i *Instance) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.IsHealthy(ctx)
}

// CheckReady reports whether the server currently accepts connections,
// probed with pg_isready.
func (i *Instance) CheckReady(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.CheckReady(ctx)
}

// Promote promotes a standby server to primary via pg_ctl.
func (i *Instance) Promote(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.Promote(ctx)
}

// ExecuteSQL runs a statement (or the script configured in cfg) through
// psql against the given database, defaulting to the configured one. A
// non-zero psql exit is returned as data in the Result, not as an error.
func (i *Instance) ExecuteSQL(ctx context.Context, sql string, cfg PsqlConfig, database ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.ExecuteSQL(ctx, sql, cfg, firstOrEmpty(database))
}

// ExecuteSQLFile executes a SQL script file through psql.
func (i *Instance) ExecuteSQLFile(ctx context.Context, path string, cfg PsqlConfig, database ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.ExecuteSQLFile(ctx, path, cfg, firstOrEmpty(database))
}

// ExecuteSQLJSON executes a statement and returns its rows as a JSON
// array. Unlike ExecuteSQL, a failed statement is an error carrying the
// server's message.
func (i *Instance) ExecuteSQLJSON(ctx context.Context, sql string, database ...string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.ExecuteSQLJSON(ctx, sql, firstOrEmpty(database))
}

// ExecuteSQLStructured executes a statement through psql's CSV output and
// converts it to the same JSON shape ExecuteSQLJSON produces.
func (i *Instance) ExecuteSQLStructured(ctx context.Context, sql string, database ...string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.ExecuteSQLStructured(ctx, sql, firstOrEmpty(database))
}

// CreateDump runs pg_dump against the given database (default: the
// configured one).
func (i *Instance) CreateDump(ctx context.Context, cfg DumpConfig, database ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.CreateDump(ctx, cfg, firstOrEmpty(database))
}

// CreateDumpAll runs pg_dumpall against the running server.
func (i *Instance) CreateDumpAll(ctx context.Context, cfg DumpAllConfig) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.CreateDumpAll(ctx, cfg)
}

// CreateRestore runs pg_restore into the given database.
func (i *Instance) CreateRestore(ctx context.Context, cfg RestoreConfig, database ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.CreateRestore(ctx, cfg, firstOrEmpty(database))
}

// CreateBaseBackup runs pg_basebackup against the running server.
func (i *Instance) CreateBaseBackup(ctx context.Context, cfg BaseBackupConfig) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.CreateBaseBackup(ctx, cfg)
}

// CreateRewind runs pg_rewind. When no source is configured, this
// instance's own connection serves as the source server; the instance must
// then be running.
func (i *Instance) CreateRewind(ctx context.Context, cfg RewindConfig) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout())
	defer cancel()
	return i.inner.CreateRewind(ctx, cfg)
}

// CleanupAll cleans up every live instance in this process, in the same
// way the signal handler does on SIGINT/SIGTERM.
func CleanupAll() {
	core.CleanupAll()
}

func firstOrEmpty(database []string) string {
	if len(database) > 0 {
		return database[0]
	}
	return ""
}

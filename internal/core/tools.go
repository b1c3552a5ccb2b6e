package core

import (
	"context"
	"fmt"

	"github.com/giantswarm/pgenv/internal/pgtool"
)

// The Create* methods run the backup and recovery utilities against this
// instance. They return the tool's captured output; a non-zero exit code is
// reported in the Result, not as an error, matching the invoker contract.

// CreateDump runs pg_dump against the given database (or the configured
// default when empty).
func (i *Instance) CreateDump(ctx context.Context, cfg pgtool.DumpConfig, database string) (pgtool.Result, error) {
	conn, err := i.runningConnConfig(database)
	if err != nil {
		return pgtool.Result{}, err
	}
	return i.invoker.Run(ctx, pgtool.PgDump, cfg.Args(conn), conn.Password)
}

// CreateDumpAll runs pg_dumpall against the whole cluster.
func (i *Instance) CreateDumpAll(ctx context.Context, cfg pgtool.DumpAllConfig) (pgtool.Result, error) {
	conn, err := i.runningConnConfig("")
	if err != nil {
		return pgtool.Result{}, err
	}
	return i.invoker.Run(ctx, pgtool.PgDumpAll, cfg.Args(conn), conn.Password)
}

// CreateRestore runs pg_restore, restoring the configured archive into the
// given database (or the configured default when empty).
func (i *Instance) CreateRestore(ctx context.Context, cfg pgtool.RestoreConfig, database string) (pgtool.Result, error) {
	if err := cfg.Validate(); err != nil {
		return pgtool.Result{}, err
	}
	conn, err := i.runningConnConfig(database)
	if err != nil {
		return pgtool.Result{}, err
	}
	return i.invoker.Run(ctx, pgtool.PgRestore, cfg.Args(conn), conn.Password)
}

// CreateBaseBackup runs pg_basebackup, copying the running cluster into
// the configured target directory.
func (i *Instance) CreateBaseBackup(ctx context.Context, cfg pgtool.BaseBackupConfig) (pgtool.Result, error) {
	if err := cfg.Validate(); err != nil {
		return pgtool.Result{}, err
	}
	conn, err := i.runningConnConfig("")
	if err != nil {
		return pgtool.Result{}, err
	}
	return i.invoker.Run(ctx, pgtool.PgBaseBackup, cfg.Args(conn), conn.Password)
}

// CreateRewind runs pg_rewind. When no explicit source is configured, this
// instance serves as the source server, which requires it to be running;
// with an explicit source the instance's state does not matter. The WAL
// auto-configuration preflight, when enabled, runs before the tool.
func (i *Instance) CreateRewind(ctx context.Context, cfg pgtool.RewindConfig) (pgtool.Result, error) {
	var fallback pgtool.ConnectionConfig
	if conn, err := i.runningConnConfig(""); err == nil {
		fallback = conn
	}
	if err := cfg.Validate(fallback); err != nil {
		return pgtool.Result{}, err
	}
	if cfg.AutoConfigureWal {
		if err := cfg.ConfigureWalArchiving(); err != nil {
			return pgtool.Result{}, fmt.Errorf("configure wal archiving: %w", err)
		}
	}
	return i.invoker.Run(ctx, pgtool.PgRewind, cfg.Args(fallback), fallback.Password)
}

package pgtool

import (
	"github.com/giantswarm/pgenv/internal/sentinel"
)

// ErrBackupTargetRequired is returned when BaseBackupConfig.PgData is empty.
const ErrBackupTargetRequired = sentinel.Error("base backup requires a target directory")

// BaseBackupConfig holds the options for a pg_basebackup invocation, which
// takes a binary copy of the running cluster suitable for point-in-time
// recovery or standby setup.
type BaseBackupConfig struct {
	PgData     string // target directory for the backup; required
	Format     string // p (plain) or t (tar)
	Verbose    bool
	Checkpoint string // fast or spread
	CreateSlot bool
	MaxRate    string // e.g. "100M"
	WalMethod  string // none, fetch, or stream
}

// Validate checks that the required target directory is set.
func (c BaseBackupConfig) Validate() error {
	if c.PgData == "" {
		return ErrBackupTargetRequired
	}
	return nil
}

// Args builds the pg_basebackup argument vector. pg_basebackup uses a
// replication connection, so the connection's Database field is ignored.
func (c BaseBackupConfig) Args(conn ConnectionConfig) []string {
	args := conn.Flags()
	args = append(args, "--pgdata", c.PgData)
	if c.Format != "" {
		args = append(args, "--format", c.Format)
	}
	if c.Verbose {
		args = append(args, "--verbose")
	}
	if c.Checkpoint != "" {
		args = append(args, "--checkpoint", c.Checkpoint)
	}
	if c.CreateSlot {
		args = append(args, "--create-slot")
	}
	if c.MaxRate != "" {
		args = append(args, "--max-rate", c.MaxRate)
	}
	if c.WalMethod != "" {
		args = append(args, "--wal-method", c.WalMethod)
	}
	return args
}

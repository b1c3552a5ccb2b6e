package pgtool

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/giantswarm/pgenv/internal/fileutil"
	"github.com/giantswarm/pgenv/internal/sentinel"
)

// ErrRewindTargetRequired is returned when RewindConfig.TargetPgData is empty.
const ErrRewindTargetRequired = sentinel.Error("rewind requires a target data directory")

// ErrRewindSourceRequired is returned when no rewind source is configured:
// neither a source data directory, a source server string, a source
// connection, nor a fallback connection.
const ErrRewindSourceRequired = sentinel.Error("rewind requires a source")

// RewindConfig holds the options for a pg_rewind invocation, which
// resynchronizes a diverged cluster's data directory with a source cluster.
//
// The source is resolved in precedence order: SourcePgData (a local data
// directory), then SourceServer (a literal libpq string), then
// SourceInstance (composed into a libpq string), then the fallback
// connection passed to Args.
type RewindConfig struct {
	TargetPgData     string // data directory to rewind; required
	SourcePgData     string
	SourceServer     string
	SourceInstance   *ConnectionConfig
	DryRun           bool
	Progress         bool
	Debug            bool
	RestoreTargetWal bool

	// AutoConfigureWal enables the preflight that appends the WAL settings
	// pg_rewind depends on (wal_log_hints, archiving) to the target's
	// postgresql.conf. The target server must be restarted with those
	// settings before the rewind can succeed.
	AutoConfigureWal bool
	WalArchiveDir    string // defaults to a "wal_archive" sibling of TargetPgData
}

// Validate checks the required target directory and that some source is
// available, directly or through the fallback connection.
func (c RewindConfig) Validate(fallback ConnectionConfig) error {
	if c.TargetPgData == "" {
		return ErrRewindTargetRequired
	}
	if c.SourcePgData == "" && c.sourceServer(fallback) == "" {
		return ErrRewindSourceRequired
	}
	return nil
}

// sourceServer resolves the --source-server value per the precedence order
// documented on RewindConfig. Returns "" when no server source applies.
func (c RewindConfig) sourceServer(fallback ConnectionConfig) string {
	if c.SourceServer != "" {
		return c.SourceServer
	}
	if c.SourceInstance != nil {
		return c.SourceInstance.KeywordValue()
	}
	return fallback.KeywordValue()
}

// Args builds the pg_rewind argument vector. Unlike the other tools,
// pg_rewind takes no -h/-p/-U flags; the source connection travels inside
// the --source-server string.
func (c RewindConfig) Args(fallback ConnectionConfig) []string {
	args := []string{"--target-pgdata", c.TargetPgData}
	if c.SourcePgData != "" {
		args = append(args, "--source-pgdata", c.SourcePgData)
	} else if server := c.sourceServer(fallback); server != "" {
		args = append(args, "--source-server", server)
	}
	if c.DryRun {
		args = append(args, "--dry-run")
	}
	if c.Progress {
		args = append(args, "--progress")
	}
	if c.Debug {
		args = append(args, "--debug")
	}
	if c.RestoreTargetWal {
		args = append(args, "--restore-target-wal")
	}
	return args
}

// archiveDir returns the WAL archive directory, defaulting to a
// "wal_archive" directory next to the target data directory.
func (c RewindConfig) archiveDir() string {
	if c.WalArchiveDir != "" {
		return c.WalArchiveDir
	}
	parent := filepath.Dir(c.TargetPgData)
	return filepath.Join(parent, "wal_archive")
}

// ConfigureWalArchiving appends the settings pg_rewind needs to the
// target's postgresql.conf and creates the WAL archive directory. It is a
// no-op when the config file does not exist (the target was never
// initialized). The settings take effect on the target's next start.
func (c RewindConfig) ConfigureWalArchiving() error {
	archiveDir := c.archiveDir()
	if err := fileutil.EnsureDir(archiveDir); err != nil {
		return fmt.Errorf("create wal archive directory: %w", err)
	}

	confPath := filepath.Join(c.TargetPgData, "postgresql.conf")
	if !fileutil.FileExists(confPath) {
		return nil
	}

	settings := fmt.Sprintf("\n# WAL archiving for rewind support\n"+
		"wal_log_hints = on\n"+
		"archive_mode = on\n"+
		"archive_command = 'cp \"%%p\" \"%s//%%f\"'\n"+
		"restore_command = 'cp \"%s//%%f\" \"%%p\"'\n"+
		"wal_level = replica\n"+
		"max_wal_senders = 3\n",
		archiveDir, archiveDir)

	f, err := os.OpenFile(confPath, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open postgresql.conf: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(settings); err != nil {
		return fmt.Errorf("append wal settings to postgresql.conf: %w", err)
	}
	return nil
}

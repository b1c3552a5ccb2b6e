package core

import (
	"errors"
	"path/filepath"
	"time"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 5432
	DefaultUsername = "postgres"
	DefaultPassword = "postgres"
	DefaultDatabase = "postgres"

	// DefaultTimeout bounds individual operations (stop, tools, queries).
	DefaultTimeout = 30 * time.Second

	// DefaultSetupTimeout bounds the full start path, including the
	// one-time initdb run on first start.
	DefaultSetupTimeout = 30 * time.Second
)

// Config holds the resolved settings of an Instance. The public package
// translates its Settings struct into a Config; core treats it as immutable
// after NewInstance.
type Config struct {
	// Version is the PostgreSQL version the caller expects to run. It is
	// informational: binaries are taken from InstallationDir (or PATH)
	// as-is, never downloaded.
	Version string

	Host     string
	Port     int // 0 selects a free port at start
	Username string
	Password string
	Database string

	// DataDir is the server data directory. Empty means a fresh temporary
	// directory is created on first start.
	DataDir string

	// InstallationDir is the root of a PostgreSQL installation whose bin/
	// subdirectory holds the executables. Empty resolves tools on PATH.
	InstallationDir string

	Timeout      time.Duration
	SetupTimeout time.Duration

	// Persistent keeps the data directory on Cleanup, so the cluster
	// survives across instance lifetimes.
	Persistent bool
}

// ApplyDefaults fills unset fields with the package defaults. A Port of 0
// is preserved: it requests automatic port selection.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	if c.Password == "" {
		c.Password = DefaultPassword
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SetupTimeout == 0 {
		c.SetupTimeout = DefaultSetupTimeout
	}
}

// Validate checks the configuration, collecting all violations into a
// single joined error.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, errors.New("port must be between 0 and 65535"))
	}
	if c.Host == "" {
		errs = append(errs, errors.New("host cannot be empty"))
	}
	if c.Username == "" {
		errs = append(errs, errors.New("username cannot be empty"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database name cannot be empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.SetupTimeout <= 0 {
		errs = append(errs, errors.New("setup timeout must be positive"))
	}
	return errors.Join(errs...)
}

// ProgramDir returns the directory holding the PostgreSQL executables, or
// "" when tools resolve on PATH.
func (c *Config) ProgramDir() string {
	if c.InstallationDir == "" {
		return ""
	}
	return filepath.Join(c.InstallationDir, "bin")
}

package pgenv

import (
	"time"

	"github.com/giantswarm/pgenv/internal/core"
)

// Settings configures an embedded PostgreSQL instance. The zero value of
// every field means "use the default"; see DefaultSettings.
type Settings struct {
	// Version is the expected PostgreSQL version, informational only:
	// binaries come from InstallationDir or PATH as-is.
	Version string

	// Host the server listens on. Default "localhost".
	Host string

	// Port the server listens on. 0 (the default used by tests) selects a
	// free port automatically; the default for explicit setups is 5432.
	Port int

	// Username and Password of the superuser created by the one-time
	// initialization. Both default to "postgres".
	Username string
	Password string

	// DatabaseName is the default database for connections and tools.
	// Default "postgres".
	DatabaseName string

	// DataDir is the server data directory. Empty creates a temporary
	// directory that Cleanup removes.
	DataDir string

	// InstallationDir is the root of a PostgreSQL installation (its bin/
	// holds the executables). Empty resolves tools on PATH.
	InstallationDir string

	// Timeout bounds individual operations: stop, tool runs, queries.
	// Default 30s.
	Timeout time.Duration

	// SetupTimeout bounds the whole start path including the one-time
	// initdb run. Default 30s.
	SetupTimeout time.Duration

	// Persistent keeps the data directory across Cleanup, so the cluster
	// can be reopened by a later instance.
	Persistent bool
}

// DefaultSettings returns settings for a throwaway localhost instance on an
// automatically selected port.
func DefaultSettings() Settings {
	return Settings{
		Host:         core.DefaultHost,
		Port:         0,
		Username:     core.DefaultUsername,
		Password:     core.DefaultPassword,
		DatabaseName: core.DefaultDatabase,
		Timeout:      core.DefaultTimeout,
		SetupTimeout: core.DefaultSetupTimeout,
	}
}

// Validate checks the settings, reporting every violation in one error.
func (s Settings) Validate() error {
	cfg := s.coreConfig()
	cfg.ApplyDefaults()
	return cfg.Validate()
}

func (s Settings) coreConfig() core.Config {
	return core.Config{
		Version:         s.Version,
		Host:            s.Host,
		Port:            s.Port,
		Username:        s.Username,
		Password:        s.Password,
		Database:        s.DatabaseName,
		DataDir:         s.DataDir,
		InstallationDir: s.InstallationDir,
		Timeout:         s.Timeout,
		SetupTimeout:    s.SetupTimeout,
		Persistent:      s.Persistent,
	}
}

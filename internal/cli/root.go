// Package cli implements the pgenvctl command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/pgenv"
)

var rootCmd = &cobra.Command{
	Use:   "pgenvctl",
	Short: "Manage embedded PostgreSQL instances",
	Long: `pgenvctl runs throwaway or persistent PostgreSQL servers from an
existing installation, without touching system services.

The server is a child of pgenvctl: "run" keeps it alive until interrupted,
while "exec", "dump" and "restore" bring one up, do their work against it,
and tear it down again. Point --data-dir at a fixed directory (with
--persistent) to keep the cluster between invocations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfig          string
	flagPort            int
	flagDataDir         string
	flagInstallationDir string
	flagPersistent      bool
	flagTimeout         time.Duration
	flagVerbose         bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "settings file (TOML)")
	pf.IntVarP(&flagPort, "port", "p", 0, "server port (0 selects a free port)")
	pf.StringVarP(&flagDataDir, "data-dir", "D", "", "data directory (default: temporary)")
	pf.StringVar(&flagInstallationDir, "installation-dir", "", "PostgreSQL installation root (default: tools on PATH)")
	pf.BoolVar(&flagPersistent, "persistent", false, "keep the data directory on teardown")
	pf.DurationVar(&flagTimeout, "timeout", 0, "per-operation timeout (default 30s)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// loadSettings builds the effective settings: defaults, then the settings
// file if given, then the flag overrides.
func loadSettings() (pgenv.Settings, error) {
	settings := pgenv.DefaultSettings()
	if flagConfig != "" {
		loaded, err := pgenv.LoadSettings(flagConfig)
		if err != nil {
			return pgenv.Settings{}, err
		}
		settings = loaded
	}
	if flagPort != 0 {
		settings.Port = flagPort
	}
	if flagDataDir != "" {
		settings.DataDir = flagDataDir
	}
	if flagInstallationDir != "" {
		settings.InstallationDir = flagInstallationDir
	}
	if flagPersistent {
		settings.Persistent = true
	}
	if flagTimeout > 0 {
		settings.Timeout = flagTimeout
	}
	return settings, settings.Validate()
}

// newInstance configures logging and creates an instance from the
// effective settings.
func newInstance() (*pgenv.Instance, error) {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	pgenv.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return pgenv.New(settings)
}

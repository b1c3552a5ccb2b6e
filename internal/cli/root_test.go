package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagConfig = ""
		flagPort = 0
		flagDataDir = ""
		flagInstallationDir = ""
		flagPersistent = false
		flagTimeout = 0
	})
}

func TestLoadSettings_Defaults(t *testing.T) {
	resetFlags(t)

	settings, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings() error: %v", err)
	}
	if settings.Host != "localhost" || settings.Port != 0 {
		t.Errorf("defaults = %s:%d, want localhost:0", settings.Host, settings.Port)
	}
}

func TestLoadSettings_FlagsOverrideFile(t *testing.T) {
	resetFlags(t)

	path := filepath.Join(t.TempDir(), "pgenv.toml")
	if err := os.WriteFile(path, []byte("port = 5433\nhost = \"127.0.0.1\"\n"), 0o600); err != nil {
		t.Fatalf("write settings file: %v", err)
	}
	flagConfig = path
	flagPort = 5499
	flagPersistent = true
	flagTimeout = 7 * time.Second

	settings, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings() error: %v", err)
	}
	if settings.Port != 5499 {
		t.Errorf("Port = %d, want flag override 5499", settings.Port)
	}
	if settings.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want file value 127.0.0.1", settings.Host)
	}
	if !settings.Persistent {
		t.Error("Persistent flag not applied")
	}
	if settings.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", settings.Timeout)
	}
}

func TestLoadSettings_InvalidPortFlag(t *testing.T) {
	resetFlags(t)

	flagPort = 99999
	if _, err := loadSettings(); err == nil {
		t.Fatal("loadSettings() with out-of-range port succeeded")
	}
}

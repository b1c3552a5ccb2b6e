package pgtool

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRewindConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg      RewindConfig
		fallback ConnectionConfig
		wantErr  error
	}{
		"missing target": {
			cfg:     RewindConfig{SourcePgData: "/tmp/source"},
			wantErr: ErrRewindTargetRequired,
		},
		"missing source": {
			cfg:     RewindConfig{TargetPgData: "/tmp/target"},
			wantErr: ErrRewindSourceRequired,
		},
		"source data dir": {
			cfg: RewindConfig{TargetPgData: "/tmp/target", SourcePgData: "/tmp/source"},
		},
		"fallback connection as source": {
			cfg:      RewindConfig{TargetPgData: "/tmp/target"},
			fallback: testConn,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.cfg.Validate(tc.fallback)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRewindConfig_Args_SourcePrecedence(t *testing.T) {
	t.Parallel()

	t.Run("source pgdata wins", func(t *testing.T) {
		t.Parallel()

		cfg := RewindConfig{
			TargetPgData: "/tmp/target",
			SourcePgData: "/tmp/source",
			SourceServer: "host=ignored",
		}
		want := []string{"--target-pgdata", "/tmp/target", "--source-pgdata", "/tmp/source"}
		if got := cfg.Args(testConn); !reflect.DeepEqual(got, want) {
			t.Errorf("Args() = %v, want %v", got, want)
		}
	})

	t.Run("explicit source server over source instance", func(t *testing.T) {
		t.Parallel()

		cfg := RewindConfig{
			TargetPgData:   "/tmp/target",
			SourceServer:   "host=primary port=5432",
			SourceInstance: &ConnectionConfig{Host: "ignored"},
		}
		want := []string{"--target-pgdata", "/tmp/target", "--source-server", "host=primary port=5432"}
		if got := cfg.Args(testConn); !reflect.DeepEqual(got, want) {
			t.Errorf("Args() = %v, want %v", got, want)
		}
	})

	t.Run("source instance over fallback", func(t *testing.T) {
		t.Parallel()

		cfg := RewindConfig{
			TargetPgData:   "/tmp/target",
			SourceInstance: &ConnectionConfig{Host: "primary", Port: 5433, Username: "repl"},
		}
		want := []string{"--target-pgdata", "/tmp/target", "--source-server", "host=primary port=5433 user=repl"}
		if got := cfg.Args(testConn); !reflect.DeepEqual(got, want) {
			t.Errorf("Args() = %v, want %v", got, want)
		}
	})

	t.Run("fallback connection last", func(t *testing.T) {
		t.Parallel()

		cfg := RewindConfig{TargetPgData: "/tmp/target", DryRun: true, Progress: true}
		want := []string{
			"--target-pgdata", "/tmp/target",
			"--source-server", testConn.KeywordValue(),
			"--dry-run", "--progress",
		}
		if got := cfg.Args(testConn); !reflect.DeepEqual(got, want) {
			t.Errorf("Args() = %v, want %v", got, want)
		}
	})
}

func TestRewindConfig_ConfigureWalArchiving(t *testing.T) {
	t.Parallel()

	t.Run("appends settings and creates archive dir", func(t *testing.T) {
		t.Parallel()

		base := t.TempDir()
		target := filepath.Join(base, "data")
		if err := os.MkdirAll(target, 0o700); err != nil {
			t.Fatalf("setup: %v", err)
		}
		confPath := filepath.Join(target, "postgresql.conf")
		if err := os.WriteFile(confPath, []byte("port = 5432\n"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg := RewindConfig{TargetPgData: target}
		if err := cfg.ConfigureWalArchiving(); err != nil {
			t.Fatalf("ConfigureWalArchiving() error: %v", err)
		}

		archiveDir := filepath.Join(base, "wal_archive")
		if info, err := os.Stat(archiveDir); err != nil || !info.IsDir() {
			t.Errorf("default archive dir not created: %v", err)
		}

		content, err := os.ReadFile(confPath)
		if err != nil {
			t.Fatalf("read conf: %v", err)
		}
		conf := string(content)
		if !strings.HasPrefix(conf, "port = 5432\n") {
			t.Error("original settings not preserved")
		}
		for _, want := range []string{
			"wal_log_hints = on",
			"archive_mode = on",
			"wal_level = replica",
			"max_wal_senders = 3",
			`archive_command = 'cp "%p" "` + archiveDir + `//%f"'`,
			`restore_command = 'cp "` + archiveDir + `//%f" "%p"'`,
		} {
			if !strings.Contains(conf, want) {
				t.Errorf("postgresql.conf missing %q", want)
			}
		}
	})

	t.Run("missing conf file is a no-op", func(t *testing.T) {
		t.Parallel()

		base := t.TempDir()
		cfg := RewindConfig{TargetPgData: filepath.Join(base, "data")}
		if err := cfg.ConfigureWalArchiving(); err != nil {
			t.Fatalf("ConfigureWalArchiving() error: %v", err)
		}
	})

	t.Run("explicit archive dir", func(t *testing.T) {
		t.Parallel()

		base := t.TempDir()
		archive := filepath.Join(base, "custom_archive")
		cfg := RewindConfig{
			TargetPgData:  filepath.Join(base, "data"),
			WalArchiveDir: archive,
		}
		if err := cfg.ConfigureWalArchiving(); err != nil {
			t.Fatalf("ConfigureWalArchiving() error: %v", err)
		}
		if info, err := os.Stat(archive); err != nil || !info.IsDir() {
			t.Errorf("explicit archive dir not created: %v", err)
		}
	})
}

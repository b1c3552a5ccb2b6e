package pgenv

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// settingsFile is the TOML schema for LoadSettings. Timeouts are given in
// seconds, matching how operators usually write them.
type settingsFile struct {
	Version             string `toml:"version"`
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	Username            string `toml:"username"`
	Password            string `toml:"password"`
	DatabaseName        string `toml:"database_name"`
	DataDir             string `toml:"data_dir"`
	InstallationDir     string `toml:"installation_dir"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	SetupTimeoutSeconds int    `toml:"setup_timeout_seconds"`
	Persistent          bool   `toml:"persistent"`
}

// LoadSettings reads settings from a TOML file. Keys not present in the
// file keep their Settings zero value, so New applies the usual defaults;
// unknown keys are an error to catch typos.
func LoadSettings(path string) (Settings, error) {
	var file settingsFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return Settings{}, fmt.Errorf("decode settings file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("settings file %s: unknown key %q", path, undecoded[0].String())
	}
	return Settings{
		Version:         file.Version,
		Host:            file.Host,
		Port:            file.Port,
		Username:        file.Username,
		Password:        file.Password,
		DatabaseName:    file.DatabaseName,
		DataDir:         file.DataDir,
		InstallationDir: file.InstallationDir,
		Timeout:         time.Duration(file.TimeoutSeconds) * time.Second,
		SetupTimeout:    time.Duration(file.SetupTimeoutSeconds) * time.Second,
		Persistent:      file.Persistent,
	}, nil
}

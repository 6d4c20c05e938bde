// Package paths resolves where gridctl keeps its configuration and its
// JSONL data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under platform config locations.
const AppName = "smartgrid"

// ConfigFileName is the file read from the configuration directory.
const ConfigFileName = "config.yaml"

// DefaultDataDirName is the working-directory-relative data directory used
// when nothing else is configured.
const DefaultDataDirName = ".smartgrid-db"

// Environment overrides.
const (
	EnvConfigDir = "SMARTGRID_CONFIG_DIR"
	EnvDataDir   = "SMARTGRID_DATA_DIR"
)

// platform lookups, swapped out in tests.
var (
	goos          = runtime.GOOS
	homeDir       = os.UserHomeDir
	userConfigDir = os.UserConfigDir
)

// DefaultConfigDir returns the platform configuration directory:
// $XDG_CONFIG_HOME/smartgrid or ~/.config/smartgrid on Linux, and
// os.UserConfigDir()/smartgrid elsewhere.
func DefaultConfigDir() (string, error) {
	if goos != "linux" {
		dir, err := userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// ResolveConfigDir applies flag > SMARTGRID_CONFIG_DIR > DefaultConfigDir.
// Overrides are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config.yaml data_dir > SMARTGRID_DATA_DIR >
// ./.smartgrid-db. The result is always absolute.
func ResolveDataDir(flag, configured string) (string, error) {
	for _, dir := range []string{flag, configured, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	return filepath.Abs(DefaultDataDirName)
}

// ConfigFile returns the path of config.yaml inside dir.
func ConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

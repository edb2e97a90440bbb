// Package paths locates rimctl's configuration and data directories.
//
// Each directory is chosen from the first non-empty source: command-line
// flag, config.yaml value (data only), environment variable, then a default.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "rim"

// Names of files inside the resolved directories.
const (
	ConfigFileName   = "config.yaml"
	SnapshotFileName = "snapshot.db"
)

// DefaultDataDirName is the working-directory-relative data directory used
// when nothing else is configured.
const DefaultDataDirName = ".rim-db"

// Environment variable overrides.
const (
	EnvConfigDir = "RIM_CONFIG_DIR"
	EnvDataDir   = "RIM_DATA_DIR"
)

// host is swapped out in tests.
var host = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// userDir returns the per-user directory for rim. On Linux it honors the XDG
// variable xdgEnv and otherwise falls back to ~/<linuxRel>. Other platforms
// use os.UserConfigDir for both configuration and data.
func userDir(xdgEnv string, linuxRel ...string) (string, error) {
	if host.goos != "linux" {
		dir, err := host.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := host.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, linuxRel...), appName)...), nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/rim (or ~/.config/rim) on Linux
// and <UserConfigDir>/rim elsewhere.
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns $XDG_DATA_HOME/rim (or ~/.local/share/rim) on Linux
// and <UserConfigDir>/rim elsewhere.
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the first non-empty candidate as an absolute path.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			abs, err := filepath.Abs(c)
			return abs, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir picks flag, then $RIM_CONFIG_DIR, then DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok {
		return dir, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks flag, then the config.yaml value, then $RIM_DATA_DIR,
// then ./.rim-db.
func ResolveDataDir(flag, configured string) (string, error) {
	if dir, ok, err := firstAbs(flag, configured, os.Getenv(EnvDataDir)); ok {
		return dir, err
	}
	return filepath.Abs(DefaultDataDirName)
}

// ConfigFile returns the path of config.yaml inside dir.
func ConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// SnapshotFile returns the path of the snapshot database inside dir.
func SnapshotFile(dir string) string {
	return filepath.Join(dir, SnapshotFileName)
}

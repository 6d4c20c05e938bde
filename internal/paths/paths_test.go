package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform pins the platform lookups for one test.
func fakePlatform(t *testing.T, platform, home, config string) {
	t.Helper()
	oldGOOS, oldHome, oldConfig := goos, homeDir, userConfigDir
	goos = platform
	homeDir = func() (string, error) { return home, nil }
	userConfigDir = func() (string, error) { return config, nil }
	t.Cleanup(func() { goos, homeDir, userConfigDir = oldGOOS, oldHome, oldConfig })
}

func TestDefaultConfigDir(t *testing.T) {
	t.Run("linux uses XDG_CONFIG_HOME", func(t *testing.T) {
		fakePlatform(t, "linux", "/home/op", "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/smartgrid", got)
	})

	t.Run("linux falls back to ~/.config", func(t *testing.T) {
		fakePlatform(t, "linux", "/home/op", "")
		t.Setenv("XDG_CONFIG_HOME", "")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/home/op", ".config", "smartgrid"), got)
	})

	t.Run("darwin uses the user config dir", func(t *testing.T) {
		fakePlatform(t, "darwin", "/Users/op", "/Users/op/Library/Application Support")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/Users/op/Library/Application Support/smartgrid", got)
	})

	t.Run("lookup failure surfaces", func(t *testing.T) {
		fakePlatform(t, "windows", "", "")
		userConfigDir = func() (string, error) { return "", errors.New("no APPDATA") }
		_, err := DefaultConfigDir()
		assert.Error(t, err)
	})
}

func TestResolveConfigDir(t *testing.T) {
	fakePlatform(t, "linux", "/home/op", "")
	t.Setenv("XDG_CONFIG_HOME", "")

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env wins when flag empty", "", "/env/config", "/env/config"},
		{"platform default", "", "", "/home/op/.config/smartgrid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.env)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Setenv(EnvConfigDir, "relative/env")
	got, err := ResolveConfigDir("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name       string
		flag       string
		configured string
		env        string
		want       string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config.yaml wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env when nothing else", "", "", "/env/data", "/env/data"},
		{"working directory default", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
		{"relative flag made absolute", "rel/data", "", "", filepath.Join(cwd, "rel", "data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.configured)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, filepath.Join("/etc/sg", "config.yaml"), ConfigFile("/etc/sg"))
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/smartgrid/internal/paths"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Config keys.
const (
	keyBackend           = "backend"
	keyDataDir           = "data_dir"
	keyLayoutID          = "layout_id"
	keyInUseAfter        = "in_use_after"
	keyExpiryWarningDays = "expiry_warning_days"
	keyNotifyDriver      = "notify.driver"
	keyNotifyRedisAddr   = "notify.redis_addr"
	keyNotifyChannel     = "notify.channel"
	keyNotifyDebounce    = "notify.debounce"
)

// fileConfig is the shape of config.yaml. Durations are written as Go
// duration strings.
type fileConfig struct {
	Backend           string       `yaml:"backend"`
	DataDir           string       `yaml:"data_dir,omitempty"`
	LayoutID          string       `yaml:"layout_id"`
	InUseAfter        string       `yaml:"in_use_after"`
	ExpiryWarningDays int          `yaml:"expiry_warning_days"`
	Notify            notifyConfig `yaml:"notify"`
}

type notifyConfig struct {
	Driver    string `yaml:"driver"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	Channel   string `yaml:"channel"`
	Debounce  string `yaml:"debounce"`
}

func defaultFileConfig(dataDir string) fileConfig {
	return fileConfig{
		Backend:           types.BackendSQLite,
		DataDir:           dataDir,
		LayoutID:          types.DefaultLayoutID,
		InUseAfter:        types.DefaultInUseAfter.String(),
		ExpiryWarningDays: types.DefaultExpiryWarningDays,
		Notify: notifyConfig{
			Driver:   types.NotifyNone,
			Channel:  types.DefaultNotifyChannel,
			Debounce: types.DefaultDebounce.String(),
		},
	}
}

// writeConfigIfMissing creates config.yaml with default values. An
// existing file is left alone. It reports whether a file was written.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	data, err := yaml.Marshal(defaultFileConfig(dataDir))
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := "# gridctl configuration\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// loadConfig reads config.yaml from configDir with viper, writing a
// default file on first run. The data directory is resolved against
// dataDirFlag.
func loadConfig(configDir, dataDirFlag string) (types.Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return types.Config{}, sysErr(fmt.Errorf("create config directory: %w", err))
	}
	if _, err := writeConfigIfMissing(paths.ConfigFile(configDir), ""); err != nil {
		return types.Config{}, sysErr(fmt.Errorf("write default config: %w", err))
	}

	v := viper.New()
	def := defaultFileConfig("")
	v.SetDefault(keyBackend, def.Backend)
	v.SetDefault(keyLayoutID, def.LayoutID)
	v.SetDefault(keyInUseAfter, def.InUseAfter)
	v.SetDefault(keyExpiryWarningDays, def.ExpiryWarningDays)
	v.SetDefault(keyNotifyDriver, def.Notify.Driver)
	v.SetDefault(keyNotifyChannel, def.Notify.Channel)
	v.SetDefault(keyNotifyDebounce, def.Notify.Debounce)
	v.SetConfigName(strings.TrimSuffix(paths.ConfigFileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	inUseAfter, err := duration(v, keyInUseAfter)
	if err != nil {
		return types.Config{}, err
	}
	debounce, err := duration(v, keyNotifyDebounce)
	if err != nil {
		return types.Config{}, err
	}
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(keyDataDir))
	if err != nil {
		return types.Config{}, sysErr(fmt.Errorf("resolve data dir: %w", err))
	}

	cfg := types.Config{
		Backend:           v.GetString(keyBackend),
		DataDir:           dataDir,
		LayoutID:          v.GetString(keyLayoutID),
		InUseAfter:        inUseAfter,
		ExpiryWarningDays: v.GetInt(keyExpiryWarningDays),
		Notify: types.NotifyConfig{
			Driver:    v.GetString(keyNotifyDriver),
			RedisAddr: v.GetString(keyNotifyRedisAddr),
			Channel:   v.GetString(keyNotifyChannel),
			Debounce:  debounce,
		},
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err)
	}
	return cfg.WithDefaults(), nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", key, err)
	}
	return d, nil
}

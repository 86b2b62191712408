package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvPrefix     = "DG"
	ConfigFileEnv = "DG_CONFIG"
	configDir     = ".draftguard"
	configFile    = "config.toml"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Watchdog WatchdogConfig `mapstructure:"watchdog"`
	State    StateConfig    `mapstructure:"state"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
	Log      LogConfig      `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=1s"`
	InstanceURL string        `mapstructure:"instance_url" validate:"omitempty,url"`
}

type MonitorConfig struct {
	RecordID         string        `mapstructure:"record_id"`
	PageContext      string        `mapstructure:"page_context" validate:"required"`
	AutoSaveInterval time.Duration `mapstructure:"autosave_interval" validate:"min=1s"`
	OverlapPolicy    string        `mapstructure:"overlap_policy" validate:"oneof=skip queue"`
	Retention        string        `mapstructure:"retention" validate:"oneof=retain clear"`
}

type WatchdogConfig struct {
	Interval  time.Duration `mapstructure:"interval" validate:"min=1s"`
	WarnAfter time.Duration `mapstructure:"warn_after" validate:"min=1s"`
	Window    time.Duration `mapstructure:"window" validate:"min=1s"`
}

type StateConfig struct {
	Path string `mapstructure:"path"`
}

type SecretsConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

var validate = validator.New()

// SetDefaults registers every known key so environment overrides are seen
// by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.instance_url", "")
	v.SetDefault("monitor.record_id", "")
	v.SetDefault("monitor.page_context", domain.DefaultPageContext)
	v.SetDefault("monitor.autosave_interval", 30*time.Second)
	v.SetDefault("monitor.overlap_policy", "skip")
	v.SetDefault("monitor.retention", "retain")
	v.SetDefault("watchdog.interval", time.Minute)
	v.SetDefault("watchdog.warn_after", 55*time.Minute)
	v.SetDefault("watchdog.window", time.Minute)
	v.SetDefault("state.path", "")
	v.SetDefault("secrets.dir", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

// Load layers defaults, the config file and DG_* environment variables into
// v, then decodes and validates the result. A missing config file is not an
// error.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := FilePath()
	if err != nil {
		return Config{}, err
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FilePath is DG_CONFIG when set, ~/.draftguard/config.toml otherwise.
func FilePath() (string, error) {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path, nil
	}
	return HomePath(configFile)
}

// HomePath joins elems under ~/.draftguard.
func HomePath(elems ...string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir, configDir}, elems...)...), nil
}

// SecretsDir is secrets.dir, or ~/.draftguard/secrets when unset.
func (c Config) SecretsDir() (string, error) {
	if c.Secrets.Dir != "" {
		return c.Secrets.Dir, nil
	}
	return HomePath("secrets")
}

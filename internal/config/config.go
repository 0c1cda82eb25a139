package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration of a merak invocation.
// Values are populated from .merak.toml, MERAK_* env vars, and CLI flags.
type Config struct {
	Sep      string        `mapstructure:"sep"`
	Prefix   string        `mapstructure:"prefix"`
	PyCmd    string        `mapstructure:"py_cmd"`
	Suffixes []string      `mapstructure:"suffixes"`
	Exclude  []string      `mapstructure:"exclude"`
	Force    bool          `mapstructure:"force"`
	Debounce time.Duration `mapstructure:"debounce"`
	Verbose  int           `mapstructure:"verbose"`
	Color    bool          `mapstructure:"color"`
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MERAK"

// Init prepares v: defaults, environment bindings, the .env file in the
// working directory and the config file. An explicit cfgFile must exist;
// otherwise .merak.toml is looked up in the working and home directories
// and may be absent.
func Init(v *viper.Viper, cfgFile string) error {
	// A missing .env is fine.
	_ = godotenv.Load()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// PYTHON_CMD is honoured for compatibility with existing build setups.
	if err := v.BindEnv("py_cmd", EnvPrefix+"_PY_CMD", "PYTHON_CMD"); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".merak")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sep", "_")
	v.SetDefault("prefix", "___")
	v.SetDefault("py_cmd", "python")
	v.SetDefault("suffixes", []string{".py"})
	v.SetDefault("exclude", []string{"**/__pycache__/**"})
	v.SetDefault("force", false)
	v.SetDefault("debounce", 300*time.Millisecond)
	v.SetDefault("verbose", 0)
	v.SetDefault("color", false)
}

// Load reads configuration from v, applying built-in defaults for any
// values not set by config file, environment, or flags. A nil v uses the
// global viper instance.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Debounce <= 0 {
		return Config{}, fmt.Errorf("debounce must be positive, got %s", cfg.Debounce)
	}
	return cfg, nil
}

// Package config loads the hawkietc settings from defaults, an optional YAML
// file, HAWKIETC_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. HAWKIETC_SKY_MODE.
const EnvPrefix = "HAWKIETC"

// Sky source modes.
const (
	SkyModeSkyCalc = "skycalc"
	SkyModeTable   = "table"
)

// Config is the full application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Sky        SkyConfig        `mapstructure:"sky"`
	Instrument InstrumentConfig `mapstructure:"instrument"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" default:"console" validate:"oneof=json console"`
}

// SkyConfig selects and tunes the sky background source.
type SkyConfig struct {
	Mode          string        `mapstructure:"mode" default:"skycalc" validate:"oneof=skycalc table"`
	URL           string        `mapstructure:"url" default:"https://etimecalret-002.eso.org/observing/etc/api/skycalc" validate:"required,url"`
	Timeout       time.Duration `mapstructure:"timeout" default:"30s" validate:"gt=0"`
	MaxTries      uint          `mapstructure:"max_tries" default:"3" validate:"gte=1,lte=10"`
	RetryInterval time.Duration `mapstructure:"retry_interval" default:"500ms" validate:"gte=0"`
	// TableFile replaces the built-in offline table in table mode.
	TableFile string `mapstructure:"table_file"`
}

// InstrumentConfig overrides instrument model parameters.
type InstrumentConfig struct {
	SystematicFraction float64 `mapstructure:"systematic_fraction" default:"0" validate:"gte=0,lt=1"`
	DefaultDIT         float64 `mapstructure:"default_dit" default:"60" validate:"gt=0"`
}

// MetricsConfig controls the Prometheus textfile output.
type MetricsConfig struct {
	// Textfile is written after each run when set.
	Textfile string `mapstructure:"textfile"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration with every default applied.
func Default() Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return c
}

// settings flattens c into viper keys.
func (c Config) settings() map[string]any {
	return map[string]any{
		"log.level":                      c.Log.Level,
		"log.format":                     c.Log.Format,
		"sky.mode":                       c.Sky.Mode,
		"sky.url":                        c.Sky.URL,
		"sky.timeout":                    c.Sky.Timeout,
		"sky.max_tries":                  c.Sky.MaxTries,
		"sky.retry_interval":             c.Sky.RetryInterval,
		"sky.table_file":                 c.Sky.TableFile,
		"instrument.systematic_fraction": c.Instrument.SystematicFraction,
		"instrument.default_dit":         c.Instrument.DefaultDIT,
		"metrics.textfile":               c.Metrics.Textfile,
	}
}

// Keys returns every configuration key.
func Keys() []string {
	s := Default().settings()
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// FlagName returns the command-line flag for a key, e.g. "sky.max_tries"
// becomes "sky-max-tries".
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	for key, val := range Default().settings() {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag in fs whose name matches FlagName of a key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range Keys() {
		f := fs.Lookup(FlagName(key))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", f.Name, err)
		}
	}
	return nil
}

// Load reads the optional config file into v and returns the validated
// configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
	}
	return fmt.Errorf("validate config: %s", strings.Join(msgs, "; "))
}

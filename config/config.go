// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/artpar/ctrlgen/core/convention"
	"github.com/artpar/ctrlgen/core/schema"
	"github.com/artpar/ctrlgen/pkg/pubsub"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "ctrlgen.yaml"

// Config is the root configuration structure.
type Config struct {
	Generate GenerateConfig `yaml:"generate" toml:"generate"`
	Channels ChannelsConfig `yaml:"channels" toml:"channels"`
	Watch    WatchConfig    `yaml:"watch" toml:"watch"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// GenerateConfig configures code generation.
type GenerateConfig struct {
	Suffix   string `yaml:"suffix" toml:"suffix" validate:"required,endswith=.go"`
	Strategy string `yaml:"strategy" toml:"strategy" validate:"oneof=latest history"`
	Jobs     int    `yaml:"jobs" toml:"jobs" validate:"gte=0"` // 0 means GOMAXPROCS
}

// ChannelsConfig sets the limits of generated channels.
type ChannelsConfig struct {
	Capacity        int `yaml:"capacity" toml:"capacity" validate:"gte=1"`
	SignalCapacity  int `yaml:"signal_capacity" toml:"signal_capacity" validate:"gte=1"`
	MaxSubscribers  int `yaml:"max_subscribers" toml:"max_subscribers" validate:"gte=1"`
	CommandCapacity int `yaml:"command_capacity" toml:"command_capacity" validate:"gte=1"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" toml:"debounce" validate:"gte=0s"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=json console"`
}

var validation = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// Load reads configuration from a YAML or TOML file, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and otherwise starts from the defaults
// with environment overrides applied.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	var cfg Config
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// ConventionOptions returns the derivation options described by the configuration.
func (c *Config) ConventionOptions() convention.Options {
	strategy, _ := schema.ParseStrategy(c.Generate.Strategy)
	return convention.Options{
		DefaultStrategy: strategy,
		Capacity:        c.Channels.Capacity,
		SignalCapacity:  c.Channels.SignalCapacity,
		MaxSubscribers:  c.Channels.MaxSubscribers,
		CommandCapacity: c.Channels.CommandCapacity,
	}
}

// applyEnvOverrides applies CTRLGEN_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CTRLGEN_GENERATE_SUFFIX"); v != "" {
		cfg.Generate.Suffix = v
	}
	if v := os.Getenv("CTRLGEN_GENERATE_STRATEGY"); v != "" {
		cfg.Generate.Strategy = v
	}
	if v := os.Getenv("CTRLGEN_GENERATE_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generate.Jobs = n
		}
	}

	intOverride("CTRLGEN_CHANNELS_CAPACITY", &cfg.Channels.Capacity)
	intOverride("CTRLGEN_CHANNELS_SIGNAL_CAPACITY", &cfg.Channels.SignalCapacity)
	intOverride("CTRLGEN_CHANNELS_MAX_SUBSCRIBERS", &cfg.Channels.MaxSubscribers)
	intOverride("CTRLGEN_CHANNELS_COMMAND_CAPACITY", &cfg.Channels.CommandCapacity)

	if v := os.Getenv("CTRLGEN_WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Debounce = d
		}
	}

	if v := os.Getenv("CTRLGEN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CTRLGEN_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func intOverride(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Generate.Suffix == "" {
		cfg.Generate.Suffix = "_ctrl.gen.go"
	}
	if cfg.Generate.Strategy == "" {
		cfg.Generate.Strategy = "latest"
	}

	if cfg.Channels.Capacity == 0 {
		cfg.Channels.Capacity = pubsub.DefaultCapacity
	}
	if cfg.Channels.SignalCapacity == 0 {
		cfg.Channels.SignalCapacity = pubsub.DefaultSignalCapacity
	}
	if cfg.Channels.MaxSubscribers == 0 {
		cfg.Channels.MaxSubscribers = pubsub.DefaultMaxSubscribers
	}
	if cfg.Channels.CommandCapacity == 0 {
		cfg.Channels.CommandCapacity = pubsub.DefaultCommandCapacity
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validate(cfg *Config) error {
	if err := validation.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldError(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	if schema.IsInput(cfg.Generate.Suffix) {
		return fmt.Errorf("generate.suffix %q would be picked up as a controller input", cfg.Generate.Suffix)
	}
	return nil
}

func fieldError(fe validator.FieldError) string {
	// Namespace is "Config.section.key".
	name := fe.Namespace()
	if _, rest, ok := strings.Cut(name, "."); ok {
		name = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s, got %q", name, strings.ReplaceAll(fe.Param(), " ", ", "), fmt.Sprint(fe.Value()))
	case "endswith":
		return fmt.Sprintf("%s must end with %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s must be %s %s, got %v", name, fe.Tag(), fe.Param(), fe.Value())
	}
}

// Package config loads afm settings from defaults, a config file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/felixgeelhaar/afm/internal/adapters/lockfile"
	"github.com/felixgeelhaar/afm/internal/adapters/logging"
	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/store"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AFM_"

// Default locations, relative to the user's home directory.
const (
	DefaultHome        = "~/.afm"
	DefaultRegistryDir = DefaultHome + "/registry"
	DefaultPluginDir   = DefaultHome + "/plugins"
	DefaultDataDir     = DefaultHome + "/data"
)

// Names of the files Load looks for in DefaultHome when no file is given.
var defaultFiles = []string{"config.yaml", "config.yml", "afmrc"}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds resolved settings.
type Config struct {
	RegistryDir       string    `koanf:"registry_dir"`
	PluginDir         string    `koanf:"plugin_dir"`
	DataDir           string    `koanf:"data_dir"`
	Lockfile          string    `koanf:"lockfile"`
	Channel           string    `koanf:"channel"`
	ChecksumAlgorithm string    `koanf:"checksum_algorithm"`
	Ignore            []string  `koanf:"ignore"`
	Concurrency       int       `koanf:"concurrency"`
	Log               LogConfig `koanf:"log"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		RegistryDir:       DefaultRegistryDir,
		PluginDir:         DefaultPluginDir,
		DataDir:           DefaultDataDir,
		Channel:           string(version.ChannelStable),
		ChecksumAlgorithm: integrity.DefaultAlgorithm,
		Concurrency:       4,
		Log: LogConfig{
			Level:  "warn",
			Format: logging.FormatText,
		},
	}
}

func (c Config) asMap() map[string]any {
	return map[string]any{
		"registry_dir":       c.RegistryDir,
		"plugin_dir":         c.PluginDir,
		"data_dir":           c.DataDir,
		"lockfile":           c.Lockfile,
		"channel":            c.Channel,
		"checksum_algorithm": c.ChecksumAlgorithm,
		"ignore":             c.Ignore,
		"concurrency":        c.Concurrency,
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
	}
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. It must exist.
	File string
	// Home replaces DefaultHome when searching for a default config file.
	Home string
	// Flags contributes the flags registered by BindFlags that were set.
	Flags *pflag.FlagSet
}

// Load resolves the configuration and validates it.
func Load(opts Options) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(Default().asMap()), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	path, err := findFile(opts)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagKey(opts.Flags)), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.File = path
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findFile(opts Options) (string, error) {
	if opts.File != "" {
		path := ports.ExpandPath(opts.File)
		if !fileExists(path) {
			return "", fmt.Errorf("config file not found: %s", path)
		}
		return path, nil
	}

	home := opts.Home
	if home == "" {
		home = DefaultHome
	}
	home = ports.ExpandPath(home)
	for _, name := range defaultFiles {
		path := filepath.Join(home, name)
		if fileExists(path) {
			return path, nil
		}
	}
	return "", nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = k.Load(file.Provider(path), yaml.Parser())
	default:
		err = k.Load(iniProvider(path), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// envKey maps AFM_LOG_LEVEL to log.level and AFM_PLUGIN_DIR to plugin_dir.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "log_"); ok {
		return "log." + rest
	}
	return key
}

func (c *Config) normalize() {
	c.RegistryDir = ports.ExpandPath(c.RegistryDir)
	c.PluginDir = ports.ExpandPath(c.PluginDir)
	c.DataDir = ports.ExpandPath(c.DataDir)
	c.Lockfile = ports.ExpandPath(c.Lockfile)
	c.Channel = strings.ToLower(strings.TrimSpace(c.Channel))
	c.ChecksumAlgorithm = strings.ToLower(strings.TrimSpace(c.ChecksumAlgorithm))

	ignore := c.Ignore[:0]
	for _, p := range c.Ignore {
		if p = strings.TrimSpace(p); p != "" {
			ignore = append(ignore, p)
		}
	}
	c.Ignore = ignore
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string
	for _, dir := range []struct{ key, value string }{
		{"registry_dir", c.RegistryDir},
		{"plugin_dir", c.PluginDir},
		{"data_dir", c.DataDir},
	} {
		if strings.TrimSpace(dir.value) == "" {
			problems = append(problems, dir.key+" is required")
		}
	}
	if _, err := version.ParseChannel(c.Channel); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := integrity.NewHash(c.ChecksumAlgorithm); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if !strings.EqualFold(c.Log.Level, "off") {
		if _, err := ports.ParseLevel(c.Log.Level); err != nil {
			problems = append(problems, err.Error())
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// RecordsPath returns the store records document.
func (c Config) RecordsPath() string {
	return filepath.Join(c.DataDir, store.RecordsFileName)
}

// LockfilePath returns the lockfile, defaulting to plugins.lock in DataDir.
func (c Config) LockfilePath() string {
	if c.Lockfile != "" {
		return c.Lockfile
	}
	return filepath.Join(c.DataDir, lockfile.DefaultFileName)
}

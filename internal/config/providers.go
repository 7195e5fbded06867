package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
	"gopkg.in/ini.v1"
)

// mapProvider feeds a nested map to koanf.
type mapProvider map[string]any

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support ReadBytes")
}

func (p mapProvider) Read() (map[string]any, error) {
	return p, nil
}

// iniFile reads an afmrc style INI file. Keys outside any section are top
// level; keys inside [log] become log.<key>.
type iniFile string

func iniProvider(path string) iniFile {
	return iniFile(path)
}

func (p iniFile) ReadBytes() ([]byte, error) {
	return os.ReadFile(string(p))
}

func (p iniFile) Read() (map[string]any, error) {
	cfg, err := ini.Load(string(p))
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	for _, section := range cfg.Sections() {
		values := make(map[string]any)
		for _, key := range section.Keys() {
			name := strings.ToLower(key.Name())
			if name == "ignore" {
				values[name] = key.Strings(",")
				continue
			}
			values[name] = key.String()
		}
		if len(values) == 0 {
			continue
		}
		if section.Name() == ini.DefaultSection {
			for k, v := range values {
				out[k] = v
			}
			continue
		}
		out[strings.ToLower(section.Name())] = values
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Flag names bound by BindFlags, mapped to config keys.
var flagKeys = map[string]string{
	"registry":    "registry_dir",
	"plugin-dir":  "plugin_dir",
	"data-dir":    "data_dir",
	"lockfile":    "lockfile",
	"channel":     "channel",
	"algorithm":   "checksum_algorithm",
	"concurrency": "concurrency",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

// BindFlags registers the configuration flags on fs. Only flags the user
// sets override lower layers.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml or ini)")
	fs.String("registry", "", "registry directory")
	fs.String("plugin-dir", "", "directory plugins are installed into")
	fs.String("data-dir", "", "directory for store records and the default lockfile")
	fs.String("lockfile", "", "lockfile path")
	fs.String("channel", "", "release channel: stable, beta or canary")
	fs.String("algorithm", "", "checksum algorithm used when publishing")
	fs.Int("concurrency", 0, "parallel plugin fetches")
	fs.String("log-level", "", "log level: debug, info, warn, error or off")
	fs.String("log-format", "", "log format: text or json")
}

func flagKey(fs *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

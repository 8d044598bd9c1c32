package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "PICTOWEBP_"

// Source is a single configuration source in the loading chain. Sources are
// applied in ascending Priority order, so higher priorities override.
type Source interface {
	// Name identifies the source in error messages.
	Name() string

	// Priority orders the source in the chain; higher wins.
	Priority() int

	// Load merges the source's values into the koanf instance.
	Load(k *koanf.Koanf) error
}

// DefaultSources returns the standard loading chain: defaults, config file
// (if any), environment, flags, and finally the debug override.
func DefaultSources(configFilePath string, flags *pflag.FlagSet, debug bool) []Source {
	sources := []Source{
		DefaultsSource{},
		FileSource{Path: configFilePath},
		EnvSource{},
	}
	if flags != nil {
		sources = append(sources, FlagSource{Flags: flags})
	}
	if debug {
		sources = append(sources, debugSource{})
	}
	return sources
}

// DefaultsSource loads the hardcoded defaults. Lowest priority.
type DefaultsSource struct{}

func (DefaultsSource) Name() string  { return "defaults" }
func (DefaultsSource) Priority() int { return 0 }

func (DefaultsSource) Load(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil)
}

// FileSource loads a YAML config file. An empty path is skipped silently; a
// non-empty path that doesn't exist is an error, since the user asked for it
// explicitly.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return fmt.Sprintf("file(%s)", s.Path) }
func (FileSource) Priority() int  { return 10 }

func (s FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil
	}
	if _, err := os.Stat(s.Path); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	return k.Load(file.Provider(s.Path), yaml.Parser())
}

// EnvSource loads PICTOWEBP_ environment variables, mapping underscores to
// the dotted key hierarchy.
type EnvSource struct{}

func (EnvSource) Name() string  { return "env" }
func (EnvSource) Priority() int { return 20 }

func (EnvSource) Load(k *koanf.Koanf) error {
	return k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		// PICTOWEBP_CONVERT_QUALITY -> convert.quality. Only the first
		// underscore separates section from key, so multi-word keys like
		// job_timeout survive.
		return strings.Replace(key, "_", ".", 1)
	}), nil)
}

// FlagSource loads values from a pflag set. Highest regular priority.
type FlagSource struct {
	Flags *pflag.FlagSet
}

func (FlagSource) Name() string  { return "flags" }
func (FlagSource) Priority() int { return 30 }

func (s FlagSource) Load(k *koanf.Koanf) error {
	return k.Load(posflag.Provider(s.Flags, ".", k), nil)
}

// debugSource forces log.level to debug. It sits above flags so --debug
// always wins.
type debugSource struct{}

func (debugSource) Name() string  { return "debug-override" }
func (debugSource) Priority() int { return 40 }

func (debugSource) Load(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(map[string]any{"log.level": "debug"}, "."), nil)
}

// Package config loads the application configuration from defaults, an
// optional YAML file, PICTOWEBP_ environment variables, and command-line
// flags, in that order of precedence (flags win).
package config

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Global Koanf instance, initialized once at startup.
var (
	k    *koanf.Koanf
	once sync.Once
)

// InitGlobalConfig initializes the global Koanf instance. It should be
// called early in the application lifecycle, before Load.
func InitGlobalConfig() {
	once.Do(func() {
		k = koanf.New(".")
	})
}

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex
}

// NewManager creates a new Manager backed by the global Koanf instance,
// initializing it if needed.
func NewManager() *Manager {
	InitGlobalConfig()
	return &Manager{
		koanfInstance: k,
	}
}

// Config is the full application configuration tree.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Convert ConvertConfig `koanf:"convert"`
	Server  ServerConfig  `koanf:"server"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is text or json.
	Format string `koanf:"format"`

	// File is an optional log file path. Empty logs to stderr.
	File string `koanf:"file"`
}

// ConvertConfig carries the conversion defaults applied when a run does not
// specify its own values.
type ConvertConfig struct {
	Quality      int           `koanf:"quality"`
	Threads      int           `koanf:"threads"`
	JobTimeout   time.Duration `koanf:"job_timeout"`
	ReencodeWebP bool          `koanf:"reencode_webp"`
	Lossless     bool          `koanf:"lossless"`
}

// ServerConfig configures the web front end.
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// DefaultConfig returns a Config populated with hardcoded default values.
// These serve as the baseline if no other source overrides them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Convert: ConvertConfig{
			Quality: 80,
			Threads: 16,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1",
			Port:        5000,
			ReadTimeout: 10 * time.Second,
			// Long-lived event streams hang off this server, so writes
			// are not bounded by default.
			WriteTimeout: 0,
		},
	}
}

// Load loads configuration from the default sources and populates the
// manager's current config.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags (--log.level=debug)
//  2. Environment variables (PICTOWEBP_LOG_LEVEL=debug)
//  3. Config file (YAML)
//  4. Default values
//
// Environment variables use the PICTOWEBP_ prefix and underscore-to-dot
// mapping:
//
//	PICTOWEBP_LOG_LEVEL       -> log.level
//	PICTOWEBP_SERVER_PORT     -> server.port
//	PICTOWEBP_CONVERT_QUALITY -> convert.quality
//
// For custom source ordering, use LoadWithSources instead.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	debug := false
	if flags != nil {
		debugFlag := flags.Lookup("debug")
		if debugFlag != nil && debugFlag.Value.String() == "true" {
			debug = true
		}
	}

	sources := DefaultSources(customConfigFilePath, flags, debug)
	return m.LoadWithSources(sources)
}

// LoadWithSources loads configuration from the provided sources in priority
// order. Sources with lower priority values are loaded first; higher
// priority sources override lower priority values.
func (m *Manager) LoadWithSources(sources []Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})

	for _, src := range sources {
		if err := src.Load(m.koanfInstance); err != nil {
			return fmt.Errorf("error loading config from %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := m.koanfInstance.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	m.currentConfig = newCfg

	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfgCopy := m.currentConfig
	return cfgCopy
}

// GetValue retrieves a configuration value by key path, e.g.
// GetValue("convert.quality"). Returns nil if the key doesn't exist.
func (m *Manager) GetValue(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance.Get(key)
}

// DefaultConfigAsMap converts DefaultConfig to a flat map for Koanf's
// confmap provider, so Koanf knows every key up front.
func DefaultConfigAsMap() map[string]any {
	def := DefaultConfig()
	return map[string]any{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,
		"log.file":   def.Log.File,

		"convert.quality":       def.Convert.Quality,
		"convert.threads":       def.Convert.Threads,
		"convert.job_timeout":   def.Convert.JobTimeout,
		"convert.reencode_webp": def.Convert.ReencodeWebP,
		"convert.lossless":      def.Convert.Lossless,

		"server.addr":          def.Server.Addr,
		"server.port":          def.Server.Port,
		"server.read_timeout":  def.Server.ReadTimeout,
		"server.write_timeout": def.Server.WriteTimeout,
	}
}

// BindFlags defines command-line flags corresponding to configuration
// settings. These flags allow overriding config file and environment
// variable settings. Call this when setting up Cobra commands.
func BindFlags(flags *pflag.FlagSet) {
	var flagvar bool
	flags.BoolVar(&flagvar, "debug", false, "Enable debug logging")
}

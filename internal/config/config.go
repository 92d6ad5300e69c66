// Package config loads launchguard settings.
//
// Values come from built-in defaults, then an optional YAML file, then
// LAUNCHGUARD_* environment variables, then command line flags. Each
// source overrides the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/provide-io/launchguard/pkg/bus"
	"github.com/provide-io/launchguard/pkg/logging"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig     = "LAUNCHGUARD_CONFIG"
	EnvLogLevel   = "LAUNCHGUARD_LOG_LEVEL"
	EnvLogOutput  = "LAUNCHGUARD_LOG_OUTPUT"
	EnvJSONLog    = "LAUNCHGUARD_JSON_LOG"
	EnvBusAddress = "LAUNCHGUARD_BUS_ADDRESS"
	EnvPrompt     = "LAUNCHGUARD_PROMPT"
)

// Config holds every setting.
type Config struct {
	// LogLevel is an hclog level name, optionally as "json:<level>".
	LogLevel string `yaml:"log_level"`
	// LogOutput is "console", "syslog" or "guess".
	LogOutput string `yaml:"log_output"`
	JSONLog   bool   `yaml:"json_log"`

	// BusAddress overrides the system bus, e.g. for a test bus.
	BusAddress string `yaml:"bus_address"`
	Service    string `yaml:"service"`
	ObjectPath string `yaml:"object_path"`
	Interface  string `yaml:"interface"`

	// Prompt lets the authority ask the user. When false only already
	// granted permissions count.
	Prompt bool `yaml:"prompt"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:   "warn",
		LogOutput:  "guess",
		Service:    bus.DefaultService,
		ObjectPath: bus.DefaultPath,
		Interface:  bus.DefaultInterface,
		Prompt:     true,
	}
}

// Flags are the command line overrides. Empty strings and nil pointers
// leave the loaded value alone.
type Flags struct {
	ConfigPath string
	LogLevel   string
	LogOutput  string
	BusAddress string
	NoPrompt   bool
}

// Register adds the flags to fs.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to YAML config file (env "+EnvConfig+")")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error, json:<level>)")
	fs.StringVar(&f.LogOutput, "log-output", "", "Log output (console, syslog, guess)")
	fs.StringVar(&f.BusAddress, "bus-address", "", "D-Bus address of the permission authority's bus")
	fs.BoolVar(&f.NoPrompt, "no-prompt", false, "Only accept already granted permissions, never prompt")
}

// Load builds the effective configuration.
func Load(flags Flags) (Config, error) {
	cfg := Default()

	path := flags.ConfigPath
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.LogOutput != "" {
		cfg.LogOutput = flags.LogOutput
	}
	if flags.BusAddress != "" {
		cfg.BusAddress = flags.BusAddress
	}
	if flags.NoPrompt {
		cfg.Prompt = false
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogOutput); v != "" {
		c.LogOutput = v
	}
	if os.Getenv(EnvJSONLog) != "" {
		c.JSONLog = isEnvTrue(EnvJSONLog)
	}
	if v := os.Getenv(EnvBusAddress); v != "" {
		c.BusAddress = v
	}
	if os.Getenv(EnvPrompt) != "" {
		c.Prompt = isEnvTrue(EnvPrompt)
	}
}

// Validate rejects settings no component can use.
func (c Config) Validate() error {
	if _, err := logging.ParseOutput(c.LogOutput); err != nil {
		return err
	}
	if c.Service == "" {
		return errors.New("service name must not be empty")
	}
	if !dbus.ObjectPath(c.ObjectPath).IsValid() {
		return fmt.Errorf("invalid object path %q", c.ObjectPath)
	}
	if c.Interface == "" {
		return errors.New("interface name must not be empty")
	}
	return nil
}

// Endpoint returns the authority address on the bus.
func (c Config) Endpoint() bus.Endpoint {
	return bus.Endpoint{
		Service:   c.Service,
		Path:      dbus.ObjectPath(c.ObjectPath),
		Interface: c.Interface,
	}
}

// Dialer returns the dialer for the configured bus.
func (c Config) Dialer() bus.Dialer {
	if c.BusAddress != "" {
		return bus.AddressDialer(c.BusAddress, c.Endpoint())
	}
	return bus.SystemDialer(c.Endpoint())
}

// Sink returns an unopened log sink for program name.
func (c Config) Sink(name string) *logging.Sink {
	output, _ := logging.ParseOutput(c.LogOutput)
	sink := logging.NewSink(name, c.LogLevel, output)
	sink.JSON = c.JSONLog
	return sink
}

// isEnvTrue checks if an environment variable is set to a true value
func isEnvTrue(key string) bool {
	val := os.Getenv(key)
	if val == "" {
		return false
	}

	valLower := strings.ToLower(val)
	if valLower == "on" || valLower == "yes" {
		return true
	}

	result, err := strconv.ParseBool(val)
	return err == nil && result
}

// Package config manages application configuration from various sources.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"github.com/sst/templateassist/pkg/global"
)

// Templates defines where completion files are found and how they are cached.
type Templates struct {
	Dirs    []string `json:"dirs,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Dedupe  bool     `json:"dedupe,omitempty"`
	Watch   bool     `json:"watch,omitempty"`

	// Resolver selects how replacements are found: "variables" reports
	// them while substituting, "diff" recovers them by diffing.
	Resolver string `json:"resolver,omitempty"`
}

// Server defines the HTTP listener of the daemon.
type Server struct {
	Addr string `json:"addr,omitempty"`
}

// Config is the main configuration structure for the application.
type Config struct {
	WorkingDir string    `json:"wd,omitempty"`
	Debug      bool      `json:"debug,omitempty"`
	Templates  Templates `json:"templates"`
	Server     Server    `json:"server"`
}

// Application constants
const (
	defaultLogLevel   = "info"
	defaultPattern    = "**/*.scripted-completions"
	defaultServerAddr = "127.0.0.1:4097"
	ResolverVariables = "variables"
	ResolverDiff      = "diff"
	appName           = "templateassist"
)

// Global configuration instance
var cfg *Config

// Load initializes the configuration from environment variables and config files.
// If debug is true, debug mode is enabled and log level is set to debug.
// It returns an error if configuration loading fails.
func Load(workingDir string, debug bool) (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	c, err := load(viper.GetViper(), workingDir, debug)
	if err != nil {
		return c, err
	}
	cfg = c
	return cfg, nil
}

func load(v *viper.Viper, workingDir string, debug bool) (*Config, error) {
	c := &Config{
		WorkingDir: workingDir,
	}

	configureViper(v)
	setDefaults(v, debug)

	// Read global config
	if err := readConfig(v.ReadInConfig()); err != nil {
		return c, err
	}

	// Load and merge local config
	mergeLocalConfig(v, workingDir)

	// Apply configuration to the struct
	if err := v.Unmarshal(c); err != nil {
		return c, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	defaultLevel := slog.LevelInfo
	if c.Debug {
		defaultLevel = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(defaultLevel)

	// Validate configuration
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// configureViper sets up viper's configuration paths and environment variables.
func configureViper(v *viper.Viper) {
	v.SetConfigName(fmt.Sprintf(".%s", appName))
	v.SetConfigType("json")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	v.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(v *viper.Viper, debug bool) {
	v.SetDefault("templates.pattern", defaultPattern)
	var dirs []string
	if dir := global.Completions(); dir != "" {
		dirs = append(dirs, dir)
	}
	v.SetDefault("templates.dirs", dirs)
	v.SetDefault("templates.dedupe", false)
	v.SetDefault("templates.watch", false)
	v.SetDefault("templates.resolver", ResolverVariables)
	v.SetDefault("server.addr", defaultServerAddr)

	if debug {
		v.SetDefault("debug", true)
		v.Set("log.level", "debug")
	} else {
		v.SetDefault("debug", false)
		v.SetDefault("log.level", defaultLogLevel)
	}
}

// readConfig handles the result of reading a configuration file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}

	// It's okay if the config file doesn't exist
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}

	return fmt.Errorf("failed to read config: %w", err)
}

// mergeLocalConfig loads and merges configuration from the local directory.
func mergeLocalConfig(v *viper.Viper, workingDir string) {
	local := viper.New()
	local.SetConfigName(fmt.Sprintf(".%s", appName))
	local.SetConfigType("json")
	local.AddConfigPath(workingDir)

	// Merge local config if it exists
	if err := local.ReadInConfig(); err == nil {
		v.MergeConfigMap(local.AllSettings())
	}
}

// Validate checks the template settings and the server address.
func (c *Config) Validate() error {
	if !doublestar.ValidatePattern(c.Templates.Pattern) {
		return fmt.Errorf("invalid templates.pattern %q", c.Templates.Pattern)
	}
	switch c.Templates.Resolver {
	case ResolverVariables, ResolverDiff:
	default:
		return fmt.Errorf("invalid templates.resolver %q", c.Templates.Resolver)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Get returns the current configuration.
// It's safe to call this function multiple times.
func Get() *Config {
	return cfg
}

// WorkingDirectory returns the current working directory from the configuration.
func WorkingDirectory() string {
	if cfg == nil {
		panic("config not loaded")
	}
	return cfg.WorkingDir
}

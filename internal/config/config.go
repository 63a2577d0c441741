// Package config loads rtmsg configuration from YAML and the environment and
// builds the process logger from it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvName      = "ROS_NAME"
	EnvNamespace = "ROS_NAMESPACE"
	EnvArguments = "ROS_ARGUMENTS"
)

// Config is the root configuration.
type Config struct {
	// NodeName is the node's base name. Defaults to rtmsg_<pid>.
	NodeName string `yaml:"node_name"`

	// Namespace the node lives in. Must be absolute.
	Namespace string `yaml:"namespace"`

	// Arguments are passed through to the application untouched.
	Arguments []string `yaml:"arguments"`

	// SchemaPaths are directories searched for .msg and .srv files after
	// the built-in schemas.
	SchemaPaths []string `yaml:"schema_paths"`

	// Allocator backs message buffers: heap, or mmap for one anonymous
	// mapping per buffer (unix only).
	Allocator string `yaml:"allocator"`

	Log LogConfig `yaml:"log"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: text or json
	Format string `yaml:"format"`
	// File, when set, receives log output instead of stderr.
	File     string         `yaml:"file"`
	Rotation RotationConfig `yaml:"rotation"`
}

// RotationConfig controls rotation of the log file.
type RotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// Default returns a Config with defaults filled in.
func Default() *Config {
	return &Config{
		NodeName:  fmt.Sprintf("rtmsg_%d", os.Getpid()),
		Namespace: "/",
		Allocator: "heap",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.ApplyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields from ROS_NAME, ROS_NAMESPACE and ROS_ARGUMENTS.
// ROS_ARGUMENTS is split on whitespace. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvName); ok && v != "" {
		c.NodeName = v
	}
	if v, ok := lookup(EnvNamespace); ok && v != "" {
		c.Namespace = v
	}
	if v, ok := lookup(EnvArguments); ok && strings.TrimSpace(v) != "" {
		c.Arguments = strings.Fields(v)
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.NodeName == "" {
		errs = append(errs, errors.New("node_name is empty"))
	} else if strings.Contains(c.NodeName, "/") {
		errs = append(errs, fmt.Errorf("node_name %q must not contain '/'", c.NodeName))
	}
	if !strings.HasPrefix(c.Namespace, "/") {
		errs = append(errs, fmt.Errorf("namespace %q must be absolute", c.Namespace))
	}
	switch c.Allocator {
	case "heap", "mmap":
	default:
		errs = append(errs, fmt.Errorf("allocator %q: must be heap or mmap", c.Allocator))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q: must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

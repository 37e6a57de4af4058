package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	ADBPath        string        `yaml:"adb_path"`
	Device         string        `yaml:"device,omitempty"`
	RNDIS          string        `yaml:"rndis,omitempty"`
	SimpleRT       string        `yaml:"simplert,omitempty"`
	SimpleRTDir    string        `yaml:"simplert_dir,omitempty"`
	TcpdumpBinary  string        `yaml:"tcpdump_binary,omitempty"`
	ArtifactDir    string        `yaml:"artifact_dir"`
	MinBattery     int           `yaml:"min_battery"`
	MaxTemperature float64       `yaml:"max_temperature"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	KnownApps      []string      `yaml:"known_apps"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		ADBPath:        "adb",
		ArtifactDir:    filepath.Join(home, "droidprep"),
		MinBattery:     50,
		MaxTemperature: 36.0,
		CommandTimeout: 60 * time.Second,
		KnownApps: []string{
			"com.motorola.ccc.ota",
			"com.google.android.apps.docs",
			"com.samsung.android.MtpApplication",
		},
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "droidprep")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "droidprep")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := ConfigPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Keys lists the settable config keys.
var Keys = []string{
	"adb_path", "device", "rndis", "simplert", "simplert_dir", "tcpdump_binary",
	"artifact_dir", "min_battery", "max_temperature", "command_timeout", "known_apps",
}

// Set assigns one field by its YAML key. known_apps takes a
// comma-separated list.
func (c *Config) Set(key, value string) error {
	switch key {
	case "adb_path":
		c.ADBPath = value
	case "device":
		c.Device = value
	case "rndis":
		c.RNDIS = value
	case "simplert":
		c.SimpleRT = value
	case "simplert_dir":
		c.SimpleRTDir = value
	case "tcpdump_binary":
		c.TcpdumpBinary = value
	case "artifact_dir":
		c.ArtifactDir = value
	case "min_battery":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 100 {
			return fmt.Errorf("min_battery: want 0-100, got %q", value)
		}
		c.MinBattery = n
	case "max_temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("max_temperature: %w", err)
		}
		c.MaxTemperature = f
	case "command_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("command_timeout: want a positive duration, got %q", value)
		}
		c.CommandTimeout = d
	case "known_apps":
		c.KnownApps = nil
		for _, app := range strings.Split(value, ",") {
			if app = strings.TrimSpace(app); app != "" {
				c.KnownApps = append(c.KnownApps, app)
			}
		}
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// ExpandArtifactDir expands ~ in the artifact dir path.
func (c *Config) ExpandArtifactDir() string {
	if len(c.ArtifactDir) > 0 && c.ArtifactDir[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, c.ArtifactDir[1:])
	}
	return c.ArtifactDir
}

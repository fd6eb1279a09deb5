// Package config loads the rulewatch settings file. The loaded *Config is
// built once at startup and handed to each component.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/Dicklesworthstone/rulewatch/internal/notify"
	"github.com/Dicklesworthstone/rulewatch/internal/util"
)

// DevConfigFile is picked up from the working directory when no path is given
const DevConfigFile = "config-dev.toml"

// Environment overrides
const (
	EnvSMTPPassword = "RULEWATCH_SMTP_PASSWORD"
	EnvSMTPUser     = "RULEWATCH_SMTP_USER"
	EnvRulesDir     = "RULEWATCH_RULES_DIR"
)

// Config is the whole settings file
type Config struct {
	Debug   bool          `toml:"debug"`
	Rules   RulesConfig   `toml:"rules"`
	Alerts  notify.Config `toml:"alerts"`
	Metrics MetricsConfig `toml:"metrics"`

	// Path is the file the config was loaded from, empty for defaults
	Path string `toml:"-"`
}

// RulesConfig locates the rule definitions
type RulesConfig struct {
	Location string `toml:"location"`
}

// MetricsConfig configures the Prometheus textfile export
type MetricsConfig struct {
	Textfile string `toml:"textfile"` // empty disables
}

// ConfigError is a missing, unreadable or invalid settings file
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rulewatch", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rulewatch", "config.toml")
}

// ResolvePath picks the file Load reads: the explicit path, then
// config-dev.toml in the working directory, then DefaultPath.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(DevConfigFile); err == nil {
		return DevConfigFile
	}
	return DefaultPath()
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Rules:  RulesConfig{Location: "rules"},
		Alerts: notify.DefaultConfig(),
	}
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Load reads the config file at path (see ResolvePath), fills missing values
// with defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	path = ResolvePath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("file not found (run 'rulewatch config init')")}
		}
		return nil, &ConfigError{Path: path, Err: err}
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parsing config: %w", err)}
	}
	cfg.Path = path

	applyDefaults(&cfg)
	applyEnv(&cfg)

	cfg.Rules.Location = ExpandHome(cfg.Rules.Location)
	cfg.Alerts.Logging.Location = ExpandHome(cfg.Alerts.Logging.Location)
	cfg.Metrics.Textfile = ExpandHome(cfg.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Rules.Location == "" {
		cfg.Rules.Location = defaults.Rules.Location
	}

	email := &cfg.Alerts.Email
	if email.Port == 0 {
		email.Port = defaults.Alerts.Email.Port
	}
	if email.Security == "" {
		email.Security = defaults.Alerts.Email.Security
	}
	if email.Timeout.Duration == 0 {
		email.Timeout = defaults.Alerts.Email.Timeout
	}

	logCfg := &cfg.Alerts.Logging
	if logCfg.File == "" {
		logCfg.File = defaults.Alerts.Logging.File
	}
	if logCfg.Rotation.MaxSizeMB == 0 {
		logCfg.Rotation.MaxSizeMB = defaults.Alerts.Logging.Rotation.MaxSizeMB
	}
	if logCfg.Rotation.MaxBackups == 0 {
		logCfg.Rotation.MaxBackups = defaults.Alerts.Logging.Rotation.MaxBackups
	}
	if logCfg.Rotation.MaxAge.Duration == 0 {
		logCfg.Rotation.MaxAge = defaults.Alerts.Logging.Rotation.MaxAge
	}

	if cfg.Alerts.Webhook.Method == "" {
		cfg.Alerts.Webhook.Method = defaults.Alerts.Webhook.Method
	}
	if cfg.Alerts.Webhook.Template == "" {
		cfg.Alerts.Webhook.Template = defaults.Alerts.Webhook.Template
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvSMTPUser); v != "" {
		cfg.Alerts.Email.User = v
	}
	if v := os.Getenv(EnvSMTPPassword); v != "" {
		cfg.Alerts.Email.Password = v
	}
	if v := os.Getenv(EnvRulesDir); v != "" {
		cfg.Rules.Location = v
	}
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs error

	if c.Rules.Location == "" {
		errs = multierr.Append(errs, errors.New("rules.location must be set"))
	}

	email := c.Alerts.Email
	if email.Enabled() {
		if email.Port < 1 || email.Port > 65535 {
			errs = multierr.Append(errs, fmt.Errorf("alerts.email.port %d out of range", email.Port))
		}
		switch email.Security {
		case notify.SecuritySSL, notify.SecurityStartTLS, notify.SecurityNone:
		default:
			errs = multierr.Append(errs, fmt.Errorf("alerts.email.security %q must be ssl, starttls or none", email.Security))
		}
		if email.FromAddress == "" {
			errs = multierr.Append(errs, errors.New("alerts.email.from_address is required when smtp is set"))
		}
		if email.Password != "" && email.User == "" {
			errs = multierr.Append(errs, errors.New("alerts.email.password is set without a user"))
		}
	}

	rot := c.Alerts.Logging.Rotation
	if rot.MaxSizeMB < 0 || rot.MaxBackups < 0 || rot.MaxAge.Duration < 0 {
		errs = multierr.Append(errs, errors.New("alerts.logging.rotation values must not be negative"))
	}

	if wh := c.Alerts.Webhook; wh.Enabled() {
		if u, err := url.Parse(wh.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = multierr.Append(errs, fmt.Errorf("alerts.webhook.url %q is not an absolute URL", wh.URL))
		}
	}

	return errs
}

// RulesPath returns the rules directory; relative locations are resolved
// against the working directory
func (c *Config) RulesPath() string {
	loc := c.Rules.Location
	if filepath.IsAbs(loc) {
		return loc
	}
	wd, err := os.Getwd()
	if err != nil {
		return loc
	}
	return filepath.Join(wd, loc)
}

// LogFilePath returns the alert log file, or "" when the log channel is off
func (c *Config) LogFilePath() string {
	if !c.Alerts.Logging.Enabled() {
		return ""
	}
	return c.Alerts.Logging.Path()
}

// Redacted returns a copy with the SMTP password masked
func (c *Config) Redacted() *Config {
	out := *c
	if out.Alerts.Email.Password != "" {
		out.Alerts.Email.Password = "********"
	}
	return &out
}

// CreateDefault writes the default config to path (DefaultPath when empty).
// An existing file is only replaced when force is set.
func CreateDefault(path string, force bool) (string, error) {
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := Print(Default(), f); err != nil {
		return "", err
	}

	return path, nil
}

// Print writes config to a writer in TOML format
func Print(cfg *Config, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintln(&b, "# rulewatch configuration")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "debug = %t\n", cfg.Debug)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[rules]")
	fmt.Fprintf(&b, "# Directory of rule files (.json, .yaml, .toml). Env: %s\n", EnvRulesDir)
	fmt.Fprintf(&b, "location = %q\n", cfg.Rules.Location)
	fmt.Fprintln(&b)

	email := cfg.Alerts.Email
	fmt.Fprintln(&b, "[alerts.email]")
	fmt.Fprintln(&b, "# Leave smtp empty to disable email alerts")
	fmt.Fprintf(&b, "smtp = %q\n", email.SMTP)
	fmt.Fprintf(&b, "port = %d\n", email.Port)
	fmt.Fprintln(&b, "# ssl, starttls or none")
	fmt.Fprintf(&b, "security = %q\n", email.Security)
	fmt.Fprintf(&b, "# Env: %s, %s\n", EnvSMTPUser, EnvSMTPPassword)
	fmt.Fprintf(&b, "user = %q\n", email.User)
	fmt.Fprintf(&b, "password = %q\n", email.Password)
	fmt.Fprintf(&b, "from_address = %q\n", email.FromAddress)
	fmt.Fprintf(&b, "timeout = %q\n", util.FormatDuration(email.Timeout.Duration))
	fmt.Fprintln(&b)

	logCfg := cfg.Alerts.Logging
	fmt.Fprintln(&b, "[alerts.logging]")
	fmt.Fprintln(&b, "# Leave location empty to disable the alert log")
	fmt.Fprintf(&b, "location = %q\n", logCfg.Location)
	fmt.Fprintf(&b, "file = %q\n", logCfg.File)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "[alerts.logging.rotation]")
	fmt.Fprintf(&b, "max_size_mb = %d\n", logCfg.Rotation.MaxSizeMB)
	fmt.Fprintf(&b, "max_backups = %d\n", logCfg.Rotation.MaxBackups)
	fmt.Fprintf(&b, "max_age = %q\n", util.FormatDuration(logCfg.Rotation.MaxAge.Duration))
	fmt.Fprintf(&b, "compress = %t\n", logCfg.Rotation.Compress)
	fmt.Fprintln(&b)

	wh := cfg.Alerts.Webhook
	fmt.Fprintln(&b, "[alerts.webhook]")
	fmt.Fprintln(&b, "# Leave url empty to disable webhook alerts")
	fmt.Fprintf(&b, "url = %q\n", wh.URL)
	fmt.Fprintf(&b, "method = %q\n", wh.Method)
	fmt.Fprintln(&b, "# Go template over .Rule, .Host, .RunID, .Timestamp and .Body; json quotes a value")
	fmt.Fprintf(&b, "template = %q\n", wh.Template)
	if len(wh.Headers) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "[alerts.webhook.headers]")
		keys := make([]string, 0, len(wh.Headers))
		for k := range wh.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%q = %q\n", k, wh.Headers[k])
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[metrics]")
	fmt.Fprintln(&b, "# node_exporter textfile collector path; empty disables")
	fmt.Fprintf(&b, "textfile = %q\n", cfg.Metrics.Textfile)

	_, err := io.WriteString(w, b.String())
	return err
}

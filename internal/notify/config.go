package notify

import (
	"time"

	"github.com/Dicklesworthstone/rulewatch/internal/util"
)

// TLS modes for the email channel
const (
	SecuritySSL      = "ssl"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

// Config holds the connection settings of every alert channel
type Config struct {
	Email   EmailConfig   `toml:"email"`
	Logging LogConfig     `toml:"logging"`
	Webhook WebhookConfig `toml:"webhook"`
}

// EmailConfig configures SMTP delivery
type EmailConfig struct {
	SMTP        string        `toml:"smtp"`
	Port        int           `toml:"port"`
	Security    string        `toml:"security"` // ssl, starttls or none
	User        string        `toml:"user"`
	Password    string        `toml:"password"`
	FromAddress string        `toml:"from_address"`
	Timeout     util.Duration `toml:"timeout"`
}

// Enabled reports whether an SMTP host is configured
func (c EmailConfig) Enabled() bool {
	return c.SMTP != ""
}

// LogConfig configures the alert log file
type LogConfig struct {
	Location string         `toml:"location"`
	File     string         `toml:"file"`
	Rotation RotationConfig `toml:"rotation"`
}

// Enabled reports whether a log location is configured
func (c LogConfig) Enabled() bool {
	return c.Location != ""
}

// RotationConfig is the size and age policy of the alert log
type RotationConfig struct {
	MaxSizeMB  int           `toml:"max_size_mb"`
	MaxBackups int           `toml:"max_backups"`
	MaxAge     util.Duration `toml:"max_age"`
	Compress   bool          `toml:"compress"`
}

// WebhookConfig configures webhook delivery
type WebhookConfig struct {
	URL      string            `toml:"url"`
	Method   string            `toml:"method"`   // HTTP method (default POST)
	Template string            `toml:"template"` // Go template for payload
	Headers  map[string]string `toml:"headers"`
}

// Enabled reports whether a webhook URL is configured
func (c WebhookConfig) Enabled() bool {
	return c.URL != ""
}

// DefaultConfig returns the default channel settings. No channel is enabled
// until a host, location or URL is set.
func DefaultConfig() Config {
	return Config{
		Email: EmailConfig{
			Port:     465,
			Security: SecuritySSL,
			Timeout:  util.Duration{Duration: 30 * time.Second},
		},
		Logging: LogConfig{
			File: "alerts.log",
			Rotation: RotationConfig{
				MaxSizeMB:  10,
				MaxBackups: 5,
				MaxAge:     util.Duration{Duration: 30 * 24 * time.Hour},
			},
		},
		Webhook: WebhookConfig{
			Method:   "POST",
			Template: DefaultWebhookTemplate,
		},
	}
}

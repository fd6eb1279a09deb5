package notify

import (
	"fmt"
	"os"
	"path/filepath"
)

// Path returns the alert log file path
func (c LogConfig) Path() string {
	return filepath.Join(c.Location, c.File)
}

// NewChannels builds a channel for every configured transport
func NewChannels(cfg Config) ([]Channel, error) {
	var channels []Channel

	if cfg.Email.Enabled() {
		channels = append(channels, NewEmailChannel(cfg.Email.FromAddress, NewSMTPSender(cfg.Email)))
	}

	if cfg.Logging.Enabled() {
		if err := os.MkdirAll(cfg.Logging.Location, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		channels = append(channels, NewLogChannel(cfg.Logging.Path(), cfg.Logging.Rotation))
	}

	if cfg.Webhook.Enabled() {
		wh, err := NewWebhookChannel(cfg.Webhook)
		if err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
		channels = append(channels, wh)
	}

	return channels, nil
}

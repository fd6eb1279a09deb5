package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

// Sender hands a composed message to a mail server
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// SMTPSender delivers through an SMTP server. A new connection is opened for
// every message.
type SMTPSender struct {
	cfg EmailConfig
}

// NewSMTPSender creates a Sender from the email settings
func NewSMTPSender(cfg EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) clientOptions() ([]mail.Option, error) {
	opts := []mail.Option{mail.WithPort(s.cfg.Port)}

	if s.cfg.Timeout.Duration > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout.Duration))
	}

	switch s.cfg.Security {
	case SecuritySSL, "":
		opts = append(opts, mail.WithSSL())
	case SecurityStartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case SecurityNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		return nil, fmt.Errorf("unsupported security mode %q", s.cfg.Security)
	}

	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts, nil
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, msg *mail.Msg) error {
	opts, err := s.clientOptions()
	if err != nil {
		return err
	}
	client, err := mail.NewClient(s.cfg.SMTP, opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending via %s:%d: %w", s.cfg.SMTP, s.cfg.Port, err)
	}
	return nil
}

// EmailChannel sends HTML alerts to the rule's contacts
type EmailChannel struct {
	from   string
	sender Sender
}

// NewEmailChannel creates the email channel
func NewEmailChannel(from string, sender Sender) *EmailChannel {
	return &EmailChannel{from: from, sender: sender}
}

// Name implements Channel
func (c *EmailChannel) Name() string { return rules.ChannelEmail }

// Format implements Channel
func (c *EmailChannel) Format() Format { return FormatHTML }

// Send implements Channel
func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	m, err := c.compose(msg)
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, m)
}

// Subject returns the subject line for an alert
func Subject(host, rule string) string {
	return fmt.Sprintf("%s - Failed Check: %s", host, rule)
}

// HTMLBody wraps the formatted failures with the alert timestamp
func HTMLBody(ts time.Time, body string) string {
	return fmt.Sprintf("<h3>%s</h3><b>%s</b>", ts.Format(time.RFC1123Z), body)
}

func (c *EmailChannel) compose(msg Message) (*mail.Msg, error) {
	if len(msg.Recipients) == 0 {
		return nil, errors.New("no recipients")
	}

	m := mail.NewMsg()
	if err := m.From(c.from); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", c.from, err)
	}
	if err := m.To(msg.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(Subject(msg.Host, msg.Rule))
	m.SetDateWithValue(msg.Timestamp)
	m.SetBodyString(mail.TypeTextHTML, HTMLBody(msg.Timestamp, msg.Body))
	return m, nil
}

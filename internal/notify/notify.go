// Package notify delivers rule failures through the configured alert
// channels: email, a rotated log file and webhooks.
package notify

import (
	"context"
	"fmt"
	"html"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/Dicklesworthstone/rulewatch/internal/engine"
	"github.com/Dicklesworthstone/rulewatch/internal/logging"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

// UnknownHost is used when the host name cannot be determined
const UnknownHost = "UNKNOWN"

// Format selects how failure records are joined into a message body
type Format int

const (
	// FormatPlain joins lines with " - " and records with newlines
	FormatPlain Format = iota
	// FormatHTML joins lines with <br /> and separates records with a rule
	FormatHTML
)

func (f Format) String() string {
	if f == FormatHTML {
		return "html"
	}
	return "plain"
}

const (
	htmlLineSep    = "<br />"
	htmlRecordSep  = "<br /><hr /><br />"
	plainLineSep   = " - "
	plainRecordSep = "\n"
)

// FormatBody joins failure records into one body. HTML bodies have each
// line escaped.
func FormatBody(format Format, failures []engine.FailureRecord) string {
	lineSep, recordSep := plainLineSep, plainRecordSep
	if format == FormatHTML {
		lineSep, recordSep = htmlLineSep, htmlRecordSep
	}

	records := make([]string, 0, len(failures))
	for _, f := range failures {
		lines := f.Lines
		if format == FormatHTML {
			lines = make([]string, len(f.Lines))
			for i, l := range f.Lines {
				lines[i] = html.EscapeString(l)
			}
		}
		records = append(records, strings.Join(lines, lineSep))
	}
	return strings.Join(records, recordSep)
}

// Message is what a channel delivers for one failing rule
type Message struct {
	Rule       string    `json:"rule"`
	Host       string    `json:"host"`
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Body       string    `json:"body"`
	Recipients []string  `json:"recipients,omitempty"`
}

// Channel delivers messages over one transport
type Channel interface {
	Name() string
	Format() Format
	Send(ctx context.Context, msg Message) error
}

// DeliveryError means a channel failed to deliver an alert. It aborts the run.
type DeliveryError struct {
	Channel string
	Rule    string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivering alert for rule %q via %s: %v", e.Rule, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Hostname returns the local host name, or UnknownHost
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return UnknownHost
	}
	return h
}

// Dispatcher routes the failures of a rule to the channels it names
type Dispatcher struct {
	logger   zerolog.Logger
	runID    string
	host     string
	now      func() time.Time
	channels map[string]Channel

	mu   sync.Mutex
	sent map[string]int
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithHost overrides the host name used in messages
func WithHost(host string) Option {
	return func(d *Dispatcher) {
		d.host = host
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a Dispatcher over the given channels
func New(logger zerolog.Logger, runID string, channels []Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:   logging.WithComponent(logger, "notify"),
		runID:    runID,
		now:      time.Now,
		channels: make(map[string]Channel, len(channels)),
		sent:     make(map[string]int),
	}
	for _, c := range channels {
		d.channels[c.Name()] = c
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.host == "" {
		d.host = Hostname()
	}
	return d
}

// Dispatch delivers one message per channel named in channels and returns
// the names of the channels that accepted it. Channels are visited in name
// order; names without a registered channel are skipped with a warning. The
// first delivery failure is returned as a *DeliveryError.
func (d *Dispatcher) Dispatch(ctx context.Context, rule string, failures []engine.FailureRecord, channels map[string]rules.ChannelConfig) ([]string, error) {
	if len(failures) == 0 {
		return nil, nil
	}

	log := d.logger.With().Str("rule", rule).Logger()
	for _, f := range failures {
		logging.Fail(&log).Str("target", f.Target).Msg(f.Summary())
	}

	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)

	var delivered []string
	ts := d.now()
	for _, name := range names {
		ch, ok := d.channels[name]
		if !ok {
			log.Warn().Str("channel", name).Msg("alert channel is unknown or not configured, ignoring")
			continue
		}

		msg := Message{
			Rule:       rule,
			Host:       d.host,
			RunID:      d.runID,
			Timestamp:  ts,
			Body:       FormatBody(ch.Format(), failures),
			Recipients: channels[name].Contacts,
		}
		if err := ch.Send(ctx, msg); err != nil {
			log.Error().Err(err).Str("channel", name).Msg("alert delivery failed")
			return delivered, &DeliveryError{Channel: name, Rule: rule, Err: err}
		}

		d.mu.Lock()
		d.sent[name]++
		d.mu.Unlock()
		delivered = append(delivered, name)
		log.Info().Str("channel", name).Int("failures", len(failures)).Msgf("Alert sent via %s", name)
	}
	if len(delivered) == 0 {
		log.Warn().Strs("channels", names).Msg("no configured alert channel for failing rule, alert not sent")
	}
	return delivered, nil
}

// Sent returns the number of messages delivered per channel
func (d *Dispatcher) Sent() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.sent))
	for k, v := range d.sent {
		out[k] = v
	}
	return out
}

// Close releases channels that hold open resources
func (d *Dispatcher) Close() error {
	var err error
	for _, c := range d.channels {
		if closer, ok := c.(interface{ Close() error }); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	return err
}

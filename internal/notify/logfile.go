package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

// LogChannel appends alerts to a size-rotated file
type LogChannel struct {
	mu  sync.Mutex
	out io.WriteCloser
}

// NewLogChannel writes to path with the given rotation policy
func NewLogChannel(path string, rot RotationConfig) *LogChannel {
	return &LogChannel{out: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     maxAgeDays(rot.MaxAge.Duration),
		Compress:   rot.Compress,
	}}
}

// NewLogChannelWriter writes to w; used by tests
func NewLogChannelWriter(w io.WriteCloser) *LogChannel {
	return &LogChannel{out: w}
}

// lumberjack counts age in whole days; any remainder rounds up
func maxAgeDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// Name implements Channel
func (c *LogChannel) Name() string { return rules.ChannelLog }

// Format implements Channel
func (c *LogChannel) Format() Format { return FormatPlain }

// Send writes one prefixed line per body line
func (c *LogChannel) Send(_ context.Context, msg Message) error {
	prefix := fmt.Sprintf("[%s] [%s] %s: ", msg.Timestamp.Format(time.RFC3339), msg.RunID, msg.Rule)

	var b strings.Builder
	for _, line := range strings.Split(msg.Body, "\n") {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}
	return nil
}

// Close closes the underlying file
func (c *LogChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Close()
}

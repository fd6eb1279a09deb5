package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Dicklesworthstone/rulewatch/internal/engine"
	"github.com/Dicklesworthstone/rulewatch/internal/probe"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	nameStyle = lipgloss.NewStyle().Bold(true)
)

type painter bool

func (p painter) paint(s lipgloss.Style, text string) string {
	if p {
		return s.Render(text)
	}
	return text
}

func (p painter) status(s engine.Status) string {
	switch s {
	case engine.StatusPassed:
		return p.paint(passStyle, "✓ pass")
	case engine.StatusFailed:
		return p.paint(failStyle, "✗ FAIL")
	default:
		return p.paint(skipStyle, "- skip")
	}
}

// RenderReport prints one block per rule with each check's outcome
func RenderReport(w io.Writer, r *engine.Report, color bool) error {
	p := painter(color)

	for _, rr := range r.Rules {
		if rr.Result == nil {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", p.paint(nameStyle, rr.Rule), p.paint(dimStyle, "("+rr.Type+")"))

		if rr.Error != "" {
			fmt.Fprintf(w, "  %s %s\n", p.paint(failStyle, "error:"), rr.Error)
		}

		t := NewTable(w)
		for _, c := range rr.Checks {
			detail := ""
			switch {
			case c.Status == engine.StatusSkipped:
				detail = c.Reason
			case c.Snapshot != nil:
				detail = fmt.Sprintf("%s free of %s",
					humanize.IBytes(uint64(c.Snapshot.Available)),
					humanize.IBytes(uint64(c.Snapshot.Total)))
			}
			t.AddLine("  "+p.status(c.Status), c.Target, c.Limit+" "+c.Mode, detail)
		}
		t.Print()

		switch {
		case rr.Dispatched:
			fmt.Fprintf(w, "  %s\n", p.paint(dimStyle, "alert sent via "+strings.Join(rr.Channels, ", ")))
		case len(rr.Failures) > 0 && r.DryRun:
			fmt.Fprintf(w, "  %s\n", p.paint(dimStyle, "dry run: alert not sent"))
		case len(rr.Failures) > 0 && rr.Error == "":
			fmt.Fprintf(w, "  %s\n", p.paint(skipStyle, "alert not sent: no configured channel"))
		}
	}

	failures := r.FailureCount()
	summary := fmt.Sprintf("%s evaluated, %s in %s (run %s)",
		CountStr(len(r.Rules), "rule", "rules"),
		CountStr(failures, "failed check", "failed checks"),
		r.Duration.Round(time.Millisecond),
		r.RunID)
	if failures > 0 {
		summary = p.paint(failStyle, summary)
	} else {
		summary = p.paint(passStyle, summary)
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}

// RenderDisks prints mounted filesystems with human-readable sizes
func RenderDisks(w io.Writer, disks []probe.DiskInfo) {
	t := NewTable(w)
	t.AddHeader("MOUNT", "DEVICE", "TYPE", "TOTAL", "USED", "FREE", "USE%")
	for _, d := range disks {
		pct := "-"
		if d.Total > 0 {
			pct = fmt.Sprintf("%.0f%%", float64(d.Used)/float64(d.Total)*100)
		}
		t.AddLine(d.MountPoint, d.Device, d.FSType,
			humanize.IBytes(d.Total),
			humanize.IBytes(d.Used),
			humanize.IBytes(d.Free),
			pct)
	}
	t.Print()
}

// RenderRules lists rules with their checks and channels. Descriptions are
// wrapped to width columns.
func RenderRules(w io.Writer, rs []*rules.Rule, width int, color bool) {
	p := painter(color)
	if width <= 20 {
		width = 80
	}

	for i, r := range rs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", p.paint(nameStyle, r.Name), p.paint(dimStyle, "("+r.Type.String()+", "+r.Path+")"))
		if r.Description != "" {
			for _, line := range strings.Split(wordwrap.String(r.Description, width-2), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}

		t := NewTable(w)
		for _, c := range r.Checks {
			t.AddLine("  -", c.Target, c.Mode, c.Limit)
		}
		t.Print()

		if names := r.ChannelNames(); len(names) > 0 {
			fmt.Fprintf(w, "  alerts: %s\n", strings.Join(names, ", "))
		}
	}
}

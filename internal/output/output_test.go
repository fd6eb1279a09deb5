package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Dicklesworthstone/rulewatch/internal/checks"
	"github.com/Dicklesworthstone/rulewatch/internal/engine"
	"github.com/Dicklesworthstone/rulewatch/internal/probe"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

func assertContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Errorf("output should contain %q, got:\n%s", want, out)
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "text"},
		{FormatJSON, "json"},
	}
	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormatterJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := New(WithJSON(true), WithWriter(buf))
	if !f.IsJSON() {
		t.Fatal("expected JSON formatter")
	}

	if err := f.OutputData(map[string]string{"hello": "world"}, nil); err != nil {
		t.Fatalf("OutputData failed: %v", err)
	}
	assertContains(t, buf.String(), `"hello": "world"`)
}

func TestFormatterText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := New(WithWriter(buf))

	if f.UseColor() {
		t.Error("a buffer is never a terminal")
	}
	err := f.OutputData(nil, func(w io.Writer) error {
		f.Textln("Hello, %s", "World")
		return nil
	})
	if err != nil {
		t.Fatalf("OutputData failed: %v", err)
	}
	if got := buf.String(); got != "Hello, World\n" {
		t.Errorf("got %q", got)
	}
}

func TestWithColor(t *testing.T) {
	f := New(WithWriter(&bytes.Buffer{}), WithColor(true))
	if !f.UseColor() {
		t.Error("WithColor(true) should force color")
	}
}

func TestColorEnabledNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if ColorEnabled(&bytes.Buffer{}) {
		t.Error("NO_COLOR must disable color")
	}
}

func TestFormatCLIError(t *testing.T) {
	e := NewCLIError("failed to load rules").
		WithCause("rules path /x doesn't exist").
		WithHint(HintRulesInvalid).
		WithCode("RULES_INVALID").
		WithExit(ExitConfig)

	want := "Error: failed to load rules [RULES_INVALID]\n" +
		"  Cause: rules path /x doesn't exist\n" +
		"  Hint: " + HintRulesInvalid + "\n"
	if got := FormatCLIError(e, false); got != want {
		t.Errorf("FormatCLIError() =\n%q\nwant\n%q", got, want)
	}
	if e.ExitCode != ExitConfig {
		t.Errorf("ExitCode = %d, want %d", e.ExitCode, ExitConfig)
	}
	if got := e.Error(); got != "failed to load rules: rules path /x doesn't exist" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCLIErrorWrap(t *testing.T) {
	inner := errors.New("boom")
	e := NewCLIError("delivery failed").Wrap(inner)

	if !errors.Is(e, inner) {
		t.Error("wrapped error should match with errors.Is")
	}
	if e.Cause != "boom" {
		t.Errorf("Cause = %q, want boom", e.Cause)
	}
	if e.ExitCode != ExitError {
		t.Errorf("ExitCode = %d, want %d", e.ExitCode, ExitError)
	}
}

func TestPrintCLIErrorJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	e := NewCLIError("bad").WithHint("fix it").WithCode("X")

	if err := PrintCLIError(&stdout, &stderr, e, true); err != nil {
		t.Fatalf("PrintCLIError failed: %v", err)
	}
	if stderr.Len() != 0 {
		t.Errorf("JSON mode should not write to stderr: %q", stderr.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if want := (ErrorResponse{Error: "bad", Code: "X", Hint: "fix it"}); resp != want {
		t.Errorf("got %+v, want %+v", resp, want)
	}

	stdout.Reset()
	if err := PrintCLIError(&stdout, &stderr, e, false); err != nil {
		t.Fatalf("PrintCLIError failed: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("text mode should not write to stdout: %q", stdout.String())
	}
	assertContains(t, stderr.String(), "Error: bad [X]")
}

func TestRenderReport(t *testing.T) {
	report := &engine.Report{
		RunID:    "run-1",
		Duration: 1200 * time.Millisecond,
		Rules: []engine.RuleReport{
			{
				Result: &engine.Result{
					Rule: "root",
					Type: "disk",
					Checks: []engine.CheckOutcome{
						{Target: "/", Mode: "free", Limit: "20%", Status: engine.StatusFailed, Snapshot: &checks.Snapshot{Total: 1 << 30, Available: 1 << 20}},
						{Target: "/x", Mode: "free", Limit: "lots", Status: engine.StatusSkipped, Reason: `invalid limit "lots"`},
					},
					Failures: []engine.FailureRecord{{Rule: "root", Target: "/"}},
				},
				Dispatched: true,
				Channels:   []string{"email", "log"},
			},
			{
				Result: &engine.Result{
					Rule:     "swap",
					Type:     "memory",
					Checks:   []engine.CheckOutcome{{Target: "swap", Mode: "free", Limit: "10%", Status: engine.StatusFailed}},
					Failures: []engine.FailureRecord{{Rule: "swap", Target: "swap"}},
				},
			},
			{
				Result: &engine.Result{Rule: "mem", Type: "memory"},
				Error:  "source unavailable",
			},
		},
	}

	var buf bytes.Buffer
	if err := RenderReport(&buf, report, false); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"root (disk)",
		"✗ FAIL",
		"1.0 MiB free of 1.0 GiB",
		`invalid limit "lots"`,
		"alert sent via email, log",
		"alert not sent: no configured channel",
		"error: source unavailable",
		"3 rules evaluated, 2 failed checks in 1.2s (run run-1)",
	} {
		assertContains(t, out, want)
	}
	if strings.Count(out, "alert sent via") != 1 {
		t.Errorf("only the dispatched rule should report a sent alert:\n%s", out)
	}
}

func TestRenderReportDryRun(t *testing.T) {
	report := &engine.Report{
		RunID:  "run-2",
		DryRun: true,
		Rules: []engine.RuleReport{{
			Result: &engine.Result{
				Rule:     "root",
				Type:     "disk",
				Checks:   []engine.CheckOutcome{{Target: "/", Mode: "free", Limit: "20%", Status: engine.StatusFailed}},
				Failures: []engine.FailureRecord{{Rule: "root", Target: "/"}},
			},
		}},
	}

	var buf bytes.Buffer
	if err := RenderReport(&buf, report, false); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}
	assertContains(t, buf.String(), "dry run: alert not sent")
	if strings.Contains(buf.String(), "no configured channel") {
		t.Errorf("dry run should not report missing channels:\n%s", buf.String())
	}
}

func TestRenderDisks(t *testing.T) {
	var buf bytes.Buffer
	RenderDisks(&buf, []probe.DiskInfo{
		{MountPoint: "/", Device: "/dev/sda1", FSType: "ext4", Total: 100 << 30, Used: 25 << 30, Free: 75 << 30},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, separator and one row, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "MOUNT") {
		t.Errorf("header = %q", lines[0])
	}
	assertContains(t, lines[2], "100 GiB")
	assertContains(t, lines[2], "25%")
}

func TestRenderRules(t *testing.T) {
	rs := []*rules.Rule{{
		Name:        "root",
		Description: strings.Repeat("word ", 30),
		Type:        rules.ResourceDisk,
		Path:        "rules/root.json",
		Checks:      []rules.Check{{Target: "/", Mode: "free", Limit: "20%"}},
		Alerts:      map[string]rules.ChannelConfig{"log": {}, "email": {Contacts: []string{"a@example.com"}}},
	}}

	var buf bytes.Buffer
	RenderRules(&buf, rs, 40, false)
	out := buf.String()

	assertContains(t, out, "root (disk, rules/root.json)")
	assertContains(t, out, "alerts: email, log")
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "  word") && len(line) > 40 {
			t.Errorf("description line exceeds width: %q", line)
		}
	}
}

func TestCountStr(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{CountStr(1, "rule", "rules"), "1 rule"},
		{CountStr(0, "rule", "rules"), "0 rules"},
		{Truncate("abcdefgh", 5), "ab..."},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/rulewatch/internal/engine"
	"github.com/Dicklesworthstone/rulewatch/internal/logging"
	"github.com/Dicklesworthstone/rulewatch/internal/notify"
	"github.com/Dicklesworthstone/rulewatch/internal/output"
	"github.com/Dicklesworthstone/rulewatch/internal/probe"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
	"github.com/Dicklesworthstone/rulewatch/internal/telemetry"
)

// selectAll is the rule selector that runs every rule
const selectAll = "ALL"

type metricsSource interface {
	probe.Source
	Disks(ctx context.Context) ([]probe.DiskInfo, error)
}

// newMetricsSource is replaced in tests
var newMetricsSource = func(l zerolog.Logger) metricsSource {
	return probe.NewSystemSource(l)
}

// newChannels is replaced in tests
var newChannels = notify.NewChannels

func newCheckCmd() *cobra.Command {
	var (
		parallel int
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "check <RULE|ALL>",
		Short: "Evaluate one rule or all rules and send alerts for failures",
		Long: `Evaluate rules against current disk and memory usage.

Each failing rule sends exactly one alert per channel listed in its
"alerts" section. Checks with an unknown target, limit or mode are logged
and skipped.

Examples:
  rulewatch check ALL
  rulewatch check root
  rulewatch check ALL --parallel 4
  rulewatch check ALL --dry-run --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], parallel, dryRun)
		},
	}

	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Evaluate up to N rules concurrently")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate without sending alerts")
	return cmd
}

func selectRules(dir, selector string) ([]*rules.Rule, error) {
	if strings.EqualFold(selector, selectAll) {
		rs, err := rules.LoadAll(dir)
		if err != nil {
			return nil, err
		}
		if len(rs) == 0 {
			return nil, &rules.ConfigError{Path: dir, Err: fmt.Errorf("no rule files found")}
		}
		return rs, nil
	}

	r, err := rules.Load(dir, selector)
	if err != nil {
		return nil, err
	}
	return []*rules.Rule{r}, nil
}

func runCheck(cmd *cobra.Command, selector string, parallel int, dryRun bool) error {
	rs, err := selectRules(cfg.RulesPath(), selector)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	runLog := logging.WithRun(logger, runID)

	var channels []notify.Channel
	if !dryRun {
		channels, err = newChannels(cfg.Alerts)
		if err != nil {
			return output.NewCLIError("failed to set up alert channels").
				Wrap(err).
				WithHint(output.HintDelivery).
				WithExit(output.ExitConfig)
		}
	}

	dispatcher := notify.New(runLog, runID, channels)
	defer func() {
		if cerr := dispatcher.Close(); cerr != nil {
			runLog.Warn().Err(cerr).Msg("closing alert channels")
		}
	}()

	runner := engine.NewRunner(
		logging.WithComponent(logger, "engine"),
		newMetricsSource(logging.WithComponent(runLog, "probe")),
		dispatcher,
		engine.WithRunID(runID),
		engine.WithParallel(parallel),
		engine.WithDryRun(dryRun),
	)

	report, runErr := runner.Run(cmd.Context(), rs)

	if path := cfg.Metrics.Textfile; path != "" && report != nil {
		if err := telemetry.Export(path, report, dispatcher.Sent()); err != nil {
			runLog.Warn().Err(err).Str("path", path).Msg("failed to write metrics textfile")
		} else {
			runLog.Debug().Str("path", path).Msg("metrics textfile written")
		}
	}

	if report != nil {
		f := formatter(cmd)
		if err := f.OutputData(report, func(w io.Writer) error {
			return output.RenderReport(w, report, f.UseColor())
		}); err != nil {
			return err
		}
	}

	return runErr
}

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/rulewatch/internal/config"
	"github.com/Dicklesworthstone/rulewatch/internal/logging"
	"github.com/Dicklesworthstone/rulewatch/internal/notify"
	"github.com/Dicklesworthstone/rulewatch/internal/output"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger

	// Global output flags - inherited by all subcommands
	jsonOutput bool
	debugLog   bool
	logJSON    bool

	// Build information - set by goreleaser via ldflags
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "rulewatch",
	Short: "Rule-driven disk and memory monitor with email, log and webhook alerts",
	Long: `rulewatch evaluates declarative rules against the host's disk and memory
usage and sends one alert per failing rule to the channels the rule names.

Quick Start:
  rulewatch config init          # Write ~/.config/rulewatch/config.toml
  rulewatch rules validate       # Check every rule file
  rulewatch check ALL            # Evaluate all rules once
  rulewatch check root --dry-run # Evaluate one rule without alerting`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd.ErrOrStderr(), debugLog)

		if !needsConfig(cmd) {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cfg.Debug && !debugLog {
			logger = newLogger(cmd.ErrOrStderr(), true)
		}
		logger.Debug().Str("config", cfg.Path).Msg("configuration loaded")
		return nil
	},
}

func newLogger(w io.Writer, debug bool) zerolog.Logger {
	return logging.New(logging.Options{
		Debug:   debug,
		JSON:    logJSON,
		NoColor: !output.ColorEnabled(w),
		Writer:  w,
	})
}

// needsConfig reports whether cmd reads the settings file
func needsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "init", "path", "completion":
		return false
	}
	return true
}

func formatter(cmd *cobra.Command) *output.Formatter {
	return output.New(output.WithJSON(jsonOutput), output.WithWriter(cmd.OutOrStdout()))
}

// Execute runs the root command. The returned error has already been
// printed; ExitCode maps it to a process status.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	cliErr := toCLIError(err)
	logger.Error().Err(err).Int("exit_code", cliErr.ExitCode).Msg("rulewatch failed")
	_ = output.PrintCLIError(rootCmd.OutOrStdout(), rootCmd.ErrOrStderr(), cliErr, jsonOutput)
	return cliErr
}

// ExitCode returns the process status for an error returned by Execute
func ExitCode(err error) int {
	if err == nil {
		return output.ExitOK
	}
	return toCLIError(err).ExitCode
}

// toCLIError classifies err: configuration and rule errors exit with 2,
// delivery errors with 3, everything else with 1.
func toCLIError(err error) *output.CLIError {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var (
		cfgErr  *config.ConfigError
		ruleErr *rules.ConfigError
		delErr  *notify.DeliveryError
	)
	switch {
	case errors.As(err, &cfgErr):
		hint := output.HintConfigInvalid
		if errors.Is(err, os.ErrNotExist) || cfgErr.Path != "" && !fileExists(cfgErr.Path) {
			hint = output.HintConfigNotFound
		}
		return output.NewCLIError("failed to load configuration").
			Wrap(err).
			WithCode("CONFIG_INVALID").
			WithHint(hint).
			WithExit(output.ExitConfig)
	case errors.Is(err, rules.ErrNotFound):
		return output.NewCLIError("unknown rule").
			Wrap(err).
			WithCode("RULE_NOT_FOUND").
			WithHint(output.HintRuleNotFound).
			WithExit(output.ExitConfig)
	case errors.As(err, &ruleErr):
		return output.NewCLIError("failed to load rules").
			Wrap(err).
			WithCode("RULES_INVALID").
			WithHint(output.HintRulesInvalid).
			WithExit(output.ExitConfig)
	case errors.As(err, &delErr):
		return output.NewCLIError(fmt.Sprintf("alert delivery via %s failed", delErr.Channel)).
			Wrap(err).
			WithCode("DELIVERY_FAILED").
			WithHint(output.HintDelivery).
			WithExit(output.ExitDelivery)
	default:
		return output.NewCLIError(err.Error()).WithExit(output.ExitError)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// goVersion returns the current Go runtime version.
func goVersion() string {
	return runtime.Version()
}

// goPlatform returns the OS/ARCH string.
func goPlatform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config-dev.toml, then ~/.config/rulewatch/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (machine-readable)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON lines")

	rootCmd.AddCommand(
		newCheckCmd(),
		newGetCmd(),
		newRulesCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Dicklesworthstone/rulewatch/internal/engine"
	"github.com/Dicklesworthstone/rulewatch/internal/output"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

// ruleView is the JSON form of a rule in listings
type ruleView struct {
	*rules.Rule
	Type string `json:"type"`
}

// validationResult is the JSON form of one file in `rules validate`
type validationResult struct {
	Path   string   `json:"path"`
	Rule   string   `json:"rule,omitempty"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate rule definitions",
	}
	cmd.AddCommand(newRulesListCmd(), newRulesValidateCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules with their checks and alert channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := rules.LoadAll(cfg.RulesPath())
			if err != nil {
				return err
			}

			views := make([]ruleView, 0, len(rs))
			for _, r := range rs {
				views = append(views, ruleView{Rule: r, Type: r.Type.String()})
			}

			f := formatter(cmd)
			return f.OutputData(views, func(w io.Writer) error {
				if len(rs) == 0 {
					fmt.Fprintf(w, "No rules found in %s\n", cfg.RulesPath())
					return nil
				}
				output.RenderRules(w, rs, terminalWidth(w), f.UseColor())
				return nil
			})
		},
	}
}

func newRulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every rule file for errors",
		Long: `Load every rule file and check each limit and mode.

Unlike 'check', which skips bad checks at run time, validate reports them
all and exits with status 2 when any file has a problem.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := rules.List(cfg.RulesPath())
			if err != nil {
				return err
			}

			var (
				results []validationResult
				errs    error
				invalid int
			)
			for _, p := range paths {
				res := validationResult{Path: p}
				r, err := rules.LoadFile(p)
				if err != nil {
					res.Errors = append(res.Errors, err.Error())
					errs = multierr.Append(errs, err)
				} else {
					res.Rule = r.Name
					for _, verr := range engine.Validate(r) {
						res.Errors = append(res.Errors, verr.Error())
						errs = multierr.Append(errs, &rules.ConfigError{Path: p, Err: verr})
					}
				}
				res.Valid = len(res.Errors) == 0
				if !res.Valid {
					invalid++
				}
				results = append(results, res)
			}

			f := formatter(cmd)
			if err := f.OutputData(results, func(w io.Writer) error {
				for _, res := range results {
					if res.Valid {
						fmt.Fprintf(w, "ok    %s\n", res.Path)
						continue
					}
					fmt.Fprintf(w, "FAIL  %s\n", res.Path)
					for _, e := range res.Errors {
						fmt.Fprintf(w, "      %s\n", e)
					}
				}
				fmt.Fprintf(w, "%s checked, %d invalid\n",
					output.CountStr(len(results), "rule file", "rule files"),
					invalid)
				return nil
			}); err != nil {
				return err
			}

			if errs != nil {
				return &rules.ConfigError{Err: errs}
			}
			return nil
		},
	}
}

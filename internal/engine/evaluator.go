// Package engine evaluates rules against resource snapshots and hands the
// aggregated failures of each rule to the alert dispatcher.
package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/rulewatch/internal/checks"
	"github.com/Dicklesworthstone/rulewatch/internal/logging"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
	"github.com/Dicklesworthstone/rulewatch/internal/threshold"
)

// Status is the outcome of a single check entry
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// UnresolvedTargetError means a check names a target with no snapshot
type UnresolvedTargetError struct {
	Rule   string
	Target string
}

func (e *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("rule %q: no snapshot for target %q", e.Rule, e.Target)
}

// FailureRecord describes one failed check as display lines
type FailureRecord struct {
	Rule    string   `json:"rule"`
	Target  string   `json:"target"`
	Mode    string   `json:"mode"`
	Limit   string   `json:"limit"`
	TotalMB float64  `json:"total_mb"`
	FreeMB  float64  `json:"free_mb"`
	Lines   []string `json:"lines"`
}

// CheckOutcome records what happened to one check entry
type CheckOutcome struct {
	Target   string           `json:"target"`
	Mode     string           `json:"mode"`
	Limit    string           `json:"limit"`
	Status   Status           `json:"status"`
	Reason   string           `json:"reason,omitempty"`
	Snapshot *checks.Snapshot `json:"snapshot,omitempty"`
}

// Result is the evaluation of one rule
type Result struct {
	Rule     string          `json:"rule"`
	Type     string          `json:"type"`
	Checks   []CheckOutcome  `json:"checks"`
	Failures []FailureRecord `json:"failures,omitempty"`
}

// Count returns the number of checks with the given status
func (r *Result) Count(s Status) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == s {
			n++
		}
	}
	return n
}

// Evaluator runs the checks of a rule
type Evaluator struct {
	logger zerolog.Logger
}

// NewEvaluator creates an Evaluator that reports through logger
func NewEvaluator(logger zerolog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// EvaluateRule checks every entry of rule in declaration order. Entries with
// an unknown target, an unparseable limit or an unknown mode are logged and
// skipped; they never abort the rule.
func (e *Evaluator) EvaluateRule(rule *rules.Rule, snapshots map[string]checks.Snapshot) *Result {
	res := &Result{
		Rule:   rule.Name,
		Type:   rule.Type.String(),
		Checks: make([]CheckOutcome, 0, len(rule.Checks)),
	}

	e.logger.Info().Str("rule", rule.Name).Msgf("Running Rule: %s", rule.Name)

	for _, c := range rule.Checks {
		outcome, failure := e.evaluateCheck(rule, c, snapshots)
		res.Checks = append(res.Checks, outcome)
		if failure != nil {
			res.Failures = append(res.Failures, *failure)
		}
	}

	return res
}

func (e *Evaluator) evaluateCheck(rule *rules.Rule, c rules.Check, snapshots map[string]checks.Snapshot) (CheckOutcome, *FailureRecord) {
	outcome := CheckOutcome{Target: c.Target, Mode: c.Mode, Limit: c.Limit}
	log := e.logger.With().
		Str("rule", rule.Name).
		Str("target", c.Target).
		Str("limit", c.Limit).
		Logger()

	snap, ok := snapshots[c.Target]
	if !ok {
		err := &UnresolvedTargetError{Rule: rule.Name, Target: c.Target}
		log.Error().Err(err).Msgf("Failed to find %s '%s'", rule.Type.TargetNoun(), c.Target)
		return skip(outcome, err), nil
	}
	outcome.Snapshot = &snap

	th, err := threshold.Parse(c.Limit)
	if err != nil {
		logging.Fail(&log).Err(err).Msgf("Failed to parse limit for %s check", rule.Type)
		return skip(outcome, err), nil
	}

	mode, err := checks.ParseMode(c.Mode)
	if err != nil {
		logging.Fail(&log).Err(err).Msgf("Unknown %s check type '%s'", rule.Type, c.Mode)
		return skip(outcome, err), nil
	}

	used := snap.Used()
	limitBytes, err := checks.ThresholdBytes(snap, th)
	if err != nil {
		logging.Fail(&log).Err(err).Msgf("Failed to parse limit for %s check", rule.Type)
		return skip(outcome, err), nil
	}
	log.Debug().
		Str("mode", mode.String()).
		Float64("total_mb", threshold.ToMB(snap.Total)).
		Float64("used_mb", threshold.ToMB(used)).
		Float64("available_mb", threshold.ToMB(snap.Available)).
		Float64("limit_mb", threshold.ToMB(limitBytes)).
		Msg("evaluating check")

	failed, err := checks.Evaluate(snap, mode, th)
	if err != nil {
		logging.Fail(&log).Err(err).Msgf("Unknown %s check type '%s'", rule.Type, c.Mode)
		return skip(outcome, err), nil
	}
	if !failed {
		log.Info().Msgf("Rule '%s' passed for %s '%s'", rule.Name, rule.Type.TargetNoun(), c.Target)
		outcome.Status = StatusPassed
		return outcome, nil
	}

	outcome.Status = StatusFailed
	return outcome, newFailureRecord(rule, c, snap)
}

func skip(o CheckOutcome, err error) CheckOutcome {
	o.Status = StatusSkipped
	o.Reason = err.Error()
	return o
}

func newFailureRecord(rule *rules.Rule, c rules.Check, snap checks.Snapshot) *FailureRecord {
	totalMB := math.Round(threshold.ToMB(snap.Total))
	freeMB := math.Round(threshold.ToMB(snap.Available))

	return &FailureRecord{
		Rule:    rule.Name,
		Target:  c.Target,
		Mode:    c.Mode,
		Limit:   c.Limit,
		TotalMB: totalMB,
		FreeMB:  freeMB,
		Lines: []string{
			fmt.Sprintf("Rule '%s' failed for %s '%s'", rule.Name, rule.Type.TargetNoun(), c.Target),
			fmt.Sprintf("Total/Free Space: %s MB/%s MB", formatMB(totalMB), formatMB(freeMB)),
			fmt.Sprintf("Warning Limit: %s %s", c.Limit, c.Mode),
		},
	}
}

func formatMB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Summary joins the record's lines for single-line output
func (f FailureRecord) Summary() string {
	return strings.Join(f.Lines, " - ")
}

// Validate parses every limit and mode of rule without probing, returning
// one error per bad entry.
func Validate(rule *rules.Rule) []error {
	var errs []error
	for i, c := range rule.Checks {
		if _, err := threshold.Parse(c.Limit); err != nil {
			errs = append(errs, fmt.Errorf("check #%d (%s): %w", i+1, c.Target, err))
		}
		if _, err := checks.ParseMode(c.Mode); err != nil {
			errs = append(errs, fmt.Errorf("check #%d (%s): %w", i+1, c.Target, err))
		}
	}
	return errs
}

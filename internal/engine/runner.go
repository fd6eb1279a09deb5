package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/rulewatch/internal/probe"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

// AlertDispatcher delivers the failures of one rule to its channels and
// reports which channels accepted the alert
type AlertDispatcher interface {
	Dispatch(ctx context.Context, rule string, failures []FailureRecord, channels map[string]rules.ChannelConfig) ([]string, error)
}

// RuleReport is the outcome of one rule within a run
type RuleReport struct {
	*Result
	Dispatched bool `json:"dispatched"`
	// Channels lists the channels that accepted the alert
	Channels []string `json:"channels,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Report summarizes a whole run
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	DryRun    bool          `json:"dry_run,omitempty"`
	Rules     []RuleReport  `json:"rules"`
}

// FailureCount returns the number of failed checks across all rules
func (r *Report) FailureCount() int {
	n := 0
	for _, rr := range r.Rules {
		if rr.Result != nil {
			n += len(rr.Failures)
		}
	}
	return n
}

// Errored reports whether any rule could not be evaluated
func (r *Report) Errored() bool {
	for _, rr := range r.Rules {
		if rr.Error != "" {
			return true
		}
	}
	return false
}

// Runner evaluates a set of rules and dispatches their failures
type Runner struct {
	logger     zerolog.Logger
	source     probe.Source
	dispatcher AlertDispatcher
	evaluator  *Evaluator
	parallel   int
	dryRun     bool
	runID      string
	now        func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithParallel evaluates up to n rules at once. Values below 2 keep the run
// sequential.
func WithParallel(n int) RunnerOption {
	return func(r *Runner) {
		r.parallel = n
	}
}

// WithDryRun evaluates without dispatching alerts
func WithDryRun(dry bool) RunnerOption {
	return func(r *Runner) {
		r.dryRun = dry
	}
}

// WithRunID sets the run identifier instead of generating one
func WithRunID(id string) RunnerOption {
	return func(r *Runner) {
		r.runID = id
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner
func NewRunner(logger zerolog.Logger, source probe.Source, dispatcher AlertDispatcher, opts ...RunnerOption) *Runner {
	r := &Runner{
		logger:     logger,
		source:     source,
		dispatcher: dispatcher,
		parallel:   1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.logger = r.logger.With().Str("run_id", r.runID).Logger()
	r.evaluator = NewEvaluator(r.logger)
	return r
}

// RunID returns the identifier attached to every log line of the run
func (r *Runner) RunID() string {
	return r.runID
}

// Run evaluates rules and dispatches one alert per failing rule. Per-rule
// reports keep the order of rules. The first delivery error cancels the
// remaining rules and is returned together with the partial report.
func (r *Runner) Run(ctx context.Context, rs []*rules.Rule) (*Report, error) {
	start := r.now()
	report := &Report{
		RunID:     r.runID,
		StartedAt: start,
		DryRun:    r.dryRun,
		Rules:     make([]RuleReport, len(rs)),
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := r.parallel
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	for i, rule := range rs {
		i, rule := i, rule
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rr, err := r.runRule(gctx, rule)
			mu.Lock()
			report.Rules[i] = rr
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	report.Duration = r.now().Sub(start)

	// Rules never started after cancellation carry no result.
	for i := range report.Rules {
		if report.Rules[i].Result == nil {
			report.Rules[i].Result = &Result{Rule: rs[i].Name, Type: rs[i].Type.String()}
			if report.Rules[i].Error == "" && err != nil {
				report.Rules[i].Error = "not run"
			}
		}
	}

	return report, err
}

func (r *Runner) runRule(ctx context.Context, rule *rules.Rule) (RuleReport, error) {
	log := r.logger.With().Str("rule", rule.Name).Logger()

	snaps, err := r.source.Snapshots(ctx, rule.Type)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to read %s metrics", rule.Type)
		return RuleReport{
			Result: &Result{Rule: rule.Name, Type: rule.Type.String()},
			Error:  err.Error(),
		}, nil
	}

	res := r.evaluator.EvaluateRule(rule, snaps)
	rr := RuleReport{Result: res}

	if len(res.Failures) == 0 {
		log.Debug().Int("checks", len(res.Checks)).Msg("rule passed")
		return rr, nil
	}

	if r.dryRun {
		log.Info().Int("failures", len(res.Failures)).Msg("dry run, alerts not sent")
		return rr, nil
	}

	delivered, err := r.dispatcher.Dispatch(ctx, rule.Name, res.Failures, rule.Alerts)
	rr.Channels = delivered
	rr.Dispatched = len(delivered) > 0
	if err != nil {
		rr.Error = err.Error()
		return rr, err
	}
	return rr, nil
}

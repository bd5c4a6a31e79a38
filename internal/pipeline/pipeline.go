// Package pipeline turns a free-text business question into a Result:
// parse, build workflow, fetch, aggregate, analyze and report.
//
// The three text-generation steps (parse, workflow, report) never abort a
// run; on failure they substitute a fixed default and record a StepError.
// Fetch, aggregate and analyze failures are fatal: the run stops with status
// "error" and keeps every slot filled so far.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/logging"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

// TextCompletion answers a prompt with free text.
type TextCompletion interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway fetches the tables named by source keys.
type Gateway interface {
	Fetch(ctx context.Context, sourceKeys []string, filters gateway.FilterSet) (gateway.Tables, error)
}

// UserContext identifies the caller. It only enriches prompts.
type UserContext struct {
	FullName   string `json:"full_name" yaml:"full_name" mapstructure:"full_name"`
	Department string `json:"department" yaml:"department" mapstructure:"department"`
	Role       string `json:"role" yaml:"role" mapstructure:"role"`
	Email      string `json:"email" yaml:"email" mapstructure:"email"`
}

const (
	DefaultStepTimeout      = 60 * time.Second
	DefaultReportingYear    = 2025
	DefaultPromptTokenLimit = 12000
)

// Pipeline is safe for concurrent use.
type Pipeline struct {
	gw               Gateway
	llm              TextCompletion
	log              *logging.Logger
	stepTimeout      time.Duration
	now              func() time.Time
	reportingYear    int
	promptTokenLimit int
	sources          []string
	rules            []analysis.Rule
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithStepTimeout bounds each text-generation call.
func WithStepTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.stepTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithReportingYear sets the year quarter references resolve to.
func WithReportingYear(y int) Option {
	return func(p *Pipeline) {
		if y > 0 {
			p.reportingYear = y
		}
	}
}

// WithPromptTokenLimit caps the data summary embedded in the report prompt.
func WithPromptTokenLimit(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.promptTokenLimit = n
		}
	}
}

// WithSources replaces the data sources of every parsed request.
func WithSources(keys ...string) Option {
	return func(p *Pipeline) {
		p.sources = append([]string(nil), keys...)
	}
}

// WithRules replaces the default anomaly rules.
func WithRules(rules ...analysis.Rule) Option {
	return func(p *Pipeline) {
		p.rules = append([]analysis.Rule(nil), rules...)
	}
}

// New builds a Pipeline. llm may be nil, in which case every
// text-generation step falls back to its default.
func New(gw Gateway, llm TextCompletion, opts ...Option) *Pipeline {
	p := &Pipeline{
		gw:               gw,
		llm:              llm,
		log:              logging.Discard(),
		stepTimeout:      DefaultStepTimeout,
		now:              time.Now,
		reportingYear:    DefaultReportingYear,
		promptTokenLimit: DefaultPromptTokenLimit,
		rules:            analysis.DefaultRules(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessQuery runs the whole pipeline. It always returns a Result; its
// Status is completed or error.
func (p *Pipeline) ProcessQuery(ctx context.Context, query string, user UserContext) *Result {
	res := &Result{
		Status:    StatusProcessing,
		Query:     query,
		RequestID: uuid.NewString(),
		StartedAt: p.now(),
	}
	defer func() { res.Duration = p.now().Sub(res.StartedAt) }()
	p.log.Info("request %s: %q", res.RequestID, query)

	parsed := p.parse(ctx, query, user, res)
	if len(p.sources) > 0 {
		parsed.DataSources = append([]string(nil), p.sources...)
	}
	res.ParsedRequest = &parsed

	wf := p.buildWorkflow(ctx, parsed, res)
	res.Workflow = &wf

	in, err := p.analyze(ctx, parsed, res)
	if err != nil {
		res.fail(err)
		p.log.Error("request %s: %v", res.RequestID, err)
		var fe *FatalError
		if errors.As(err, &fe) && fe.Stack != nil {
			p.log.Debug("%s", fe.Stack)
		}
		return res
	}

	res.Report = p.report(ctx, in, res)
	res.Status = StatusCompleted
	p.log.Info("request %s completed (fallbacks: %d)", res.RequestID, len(res.Fallbacks))
	return res
}

// analyze runs the fatal stages: fetch, aggregate, then the three analytics
// concurrently.
func (p *Pipeline) analyze(ctx context.Context, parsed ParsedRequest, res *Result) (reportInput, error) {
	in := reportInput{focus: parsed.ReportFocus}
	if in.focus == "" {
		in.focus = "General Report"
	}

	filters, dropped := parsed.Filters.Normalize()
	if len(dropped) > 0 {
		p.log.Warn("request %s: ignoring unusable filters %v", res.RequestID, dropped)
	}
	if err := guard(StepFetch, func() error {
		tables, err := p.gw.Fetch(ctx, parsed.DataSources, filters)
		if err != nil {
			return err
		}
		in.tables = tables
		res.DataSourcesUsed = tables.Keys()
		res.RecordsFetched = tables.Counts()
		return nil
	}); err != nil {
		return in, err
	}
	p.log.Debug("request %s: fetched %v", res.RequestID, res.RecordsFetched)

	if err := guard(StepAggregate, func() error {
		agg, err := analysis.Aggregate(in.tables)
		if err != nil {
			return err
		}
		in.aggregates = agg
		res.AggregatedData = &agg
		return nil
	}); err != nil {
		return in, err
	}

	var (
		g         errgroup.Group
		anomalies []analysis.Finding
		insights  []string
		forecasts map[string]analysis.ForecastResult
	)
	g.Go(func() error {
		return guard(StepAnalyze, func() (err error) {
			anomalies, err = analysis.DetectWith(in.tables, p.rules...)
			return err
		})
	})
	g.Go(func() error {
		return guard(StepAnalyze, func() error {
			insights = analysis.Insights(in.aggregates)
			return nil
		})
	})
	g.Go(func() error {
		return guard(StepAnalyze, func() (err error) {
			forecasts, err = analysis.Forecast(in.tables)
			return err
		})
	})
	err := g.Wait()
	if anomalies != nil {
		res.Anomalies, in.anomalies = anomalies, anomalies
	}
	if insights != nil {
		res.Insights, in.insights = insights, insights
	}
	if forecasts != nil {
		res.Forecasts, in.forecasts = forecasts, forecasts
	}
	return in, err
}

// guard runs fn and turns both its error and any panic into a FatalError.
func guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FatalError{Stage: stage, Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()
	if err := fn(); err != nil {
		return &FatalError{Stage: stage, Err: err}
	}
	return nil
}

// complete calls the text-generation service under the step timeout.
func (p *Pipeline) complete(ctx context.Context, prompt string) (string, error) {
	if p.llm == nil {
		return "", fmt.Errorf("no text-generation service configured")
	}
	ctx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()
	p.log.Debug("prompt: ~%d tokens", utils.CountTokens(prompt))
	return p.llm.Complete(ctx, prompt)
}

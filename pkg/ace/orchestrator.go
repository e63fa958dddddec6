package ace

import (
	"context"
	"fmt"
	"time"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// Query is one task for the pipeline: the text to solve and the expected
// answer for grading.
type Query struct {
	ID       string `json:"id,omitempty"`
	Text     string `json:"text"`
	Expected string `json:"expected,omitempty"`
}

// QueryResult is the outcome of one query, including any component
// failures that were recorded along the way.
type QueryResult struct {
	Query    Query         `json:"query"`
	TraceID  string        `json:"trace_id,omitempty"`
	Answer   string        `json:"answer,omitempty"`
	Correct  bool          `json:"correct"`
	UsedIDs  []BulletID    `json:"used_ids,omitempty"`
	Failures []string      `json:"failures,omitempty"`
	Steps    int           `json:"steps"`
	Epoch    int64         `json:"epoch"`
	Duration time.Duration `json:"duration"`
}

// RunReport aggregates a full run.
type RunReport struct {
	RunID       string         `json:"run_id"`
	Results     []QueryResult  `json:"results"`
	Correct     int            `json:"correct"`
	Total       int            `json:"total"`
	FinalSize   int            `json:"final_size"`
	ScoreBands  map[string]int `json:"score_bands"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Duration    time.Duration  `json:"duration"`
}

// Accuracy returns the fraction of queries answered correctly.
func (r *RunReport) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// OrchestratorConfig wires the pipeline components together. Playbook,
// Generator, Reflector, Evaluator, and Curator are required.
type OrchestratorConfig struct {
	Playbook  *Playbook
	Generator *Generator
	Reflector Reflector
	Evaluator EvaluationOracle
	Curator   *Curator

	// Selector picks the bullets offered per query; nil uses the default
	// lexical scorer.
	Selector Selector
	// TopK is how many bullets to offer per query; non-positive uses
	// DefaultTopK.
	TopK int
	// Concurrency processes queries in windows of this size: queries in
	// a window run against the same playbook snapshot, then their deltas
	// land in query order. 1 or less means fully sequential.
	Concurrency int
	// Isolated gives every query the initial playbook and discards all
	// deltas, for measuring the playbook without cross-query learning.
	Isolated bool
}

// Orchestrator drives the generate, evaluate, reflect, curate loop over a
// batch of queries. Component failures are recorded on the query result
// and the run continues; only a capacity violation aborts.
type Orchestrator struct {
	playbook    *Playbook
	generator   *Generator
	reflector   Reflector
	evaluator   EvaluationOracle
	curator     *Curator
	selector    Selector
	topK        int
	concurrency int
	isolated    bool
}

// NewOrchestrator validates the config and builds an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	switch {
	case cfg.Playbook == nil:
		return nil, errors.New(errors.InvalidInput, "orchestrator requires a playbook")
	case cfg.Generator == nil:
		return nil, errors.New(errors.InvalidInput, "orchestrator requires a generator")
	case cfg.Reflector == nil:
		return nil, errors.New(errors.InvalidInput, "orchestrator requires a reflector")
	case cfg.Evaluator == nil:
		return nil, errors.New(errors.InvalidInput, "orchestrator requires an evaluator")
	case cfg.Curator == nil:
		return nil, errors.New(errors.InvalidInput, "orchestrator requires a curator")
	}

	selector := cfg.Selector
	if selector == nil {
		selector = NewLexicalScorer()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Orchestrator{
		playbook:    cfg.Playbook,
		generator:   cfg.Generator,
		reflector:   cfg.Reflector,
		evaluator:   cfg.Evaluator,
		curator:     cfg.Curator,
		selector:    selector,
		topK:        topK,
		concurrency: concurrency,
		isolated:    cfg.Isolated,
	}, nil
}

// Playbook returns the orchestrator's playbook.
func (o *Orchestrator) Playbook() *Playbook {
	return o.playbook
}

// Run processes the queries in order and returns the aggregated report.
// The report covers every query processed before an abort, so it is valid
// even when an error is returned.
func (o *Orchestrator) Run(ctx context.Context, queries []Query) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		Results:   make([]QueryResult, 0, len(queries)),
		Total:     len(queries),
		StartedAt: time.Now(),
	}
	ctx = logging.WithRunID(ctx, report.RunID)
	ctx, endTask := logging.TraceTask(ctx, "ace.run")
	defer endTask()

	logger := logging.GetLogger()
	logger.Info(ctx, "run started: %d queries, concurrency=%d, isolated=%v, playbook size=%d",
		len(queries), o.concurrency, o.isolated, o.playbook.Size())

	var err error
	switch {
	case o.isolated:
		err = o.runIsolated(ctx, queries, report)
	case o.concurrency > 1:
		err = o.runWindowed(ctx, queries, report)
	default:
		err = o.runSequential(ctx, queries, report)
	}

	for i := range report.Results {
		if report.Results[i].Correct {
			report.Correct++
		}
	}
	report.CompletedAt = time.Now()
	report.Duration = report.CompletedAt.Sub(report.StartedAt)
	report.FinalSize = o.playbook.Size()
	report.ScoreBands = o.playbook.ScoreBands()

	logger.Info(ctx, "run finished: %d/%d correct (%.1f%%), playbook size=%d",
		report.Correct, report.Total, report.Accuracy()*100, report.FinalSize)

	return report, err
}

func (o *Orchestrator) runSequential(ctx context.Context, queries []Query, report *RunReport) error {
	for _, q := range queries {
		if err := errors.CheckContext(ctx, "run"); err != nil {
			return err
		}

		epoch := o.playbook.AdvanceEpoch()
		result, delta := o.attempt(ctx, q, o.playbook)
		result.Epoch = epoch

		cres, cerr := o.curator.Commit(ctx, o.playbook, delta)
		recordSkips(&result, cres)
		report.Results = append(report.Results, result)
		if cerr != nil {
			return cerr
		}
	}
	return nil
}

func (o *Orchestrator) runWindowed(ctx context.Context, queries []Query, report *RunReport) error {
	for start := 0; start < len(queries); start += o.concurrency {
		if err := errors.CheckContext(ctx, "run"); err != nil {
			return err
		}
		end := min(start+o.concurrency, len(queries))
		window := queries[start:end]

		// Every query in the window sees the same snapshot; their deltas
		// land afterwards in query order, so the outcome does not depend
		// on goroutine scheduling.
		snapshot := o.playbook.Clone()
		results := make([]QueryResult, len(window))
		deltas := make([]Delta, len(window))

		workers := pool.New().WithContext(ctx).WithMaxGoroutines(len(window))
		for i := range window {
			i := i
			workers.Go(func(ctx context.Context) error {
				results[i], deltas[i] = o.attempt(ctx, window[i], snapshot)
				return nil
			})
		}
		if werr := workers.Wait(); werr != nil {
			return errors.Wrap(werr, errors.Canceled, "run canceled")
		}

		for i := range window {
			results[i].Epoch = o.playbook.AdvanceEpoch()
			cres, cerr := o.curator.Commit(ctx, o.playbook, deltas[i])
			recordSkips(&results[i], cres)
			report.Results = append(report.Results, results[i])
			if cerr != nil {
				return cerr
			}
		}
	}
	return nil
}

func (o *Orchestrator) runIsolated(ctx context.Context, queries []Query, report *RunReport) error {
	initial := o.playbook.Clone()

	for _, q := range queries {
		if err := errors.CheckContext(ctx, "run"); err != nil {
			return err
		}

		scratch := initial.Clone()
		epoch := scratch.AdvanceEpoch()
		result, _ := o.attempt(ctx, q, scratch)
		result.Epoch = epoch
		report.Results = append(report.Results, result)
	}
	return nil
}

// attempt runs the per-query pipeline against the given playbook without
// modifying it: select, generate, evaluate, reflect. Failures become
// entries on the result, not errors.
func (o *Orchestrator) attempt(ctx context.Context, q Query, pb *Playbook) (QueryResult, Delta) {
	defer logging.TraceRegion(ctx, "ace.attempt")()

	result := QueryResult{Query: q}
	logger := logging.GetLogger()

	bullets := o.selector.Select(pb.Bullets(), q.Text, o.topK)

	trace, gerr := o.generator.Generate(ctx, q.Text, bullets)
	result.TraceID = trace.ID
	result.Answer = trace.Answer
	result.UsedIDs = trace.UsedIDs
	result.Steps = len(trace.Steps)
	result.Duration = trace.Duration
	if gerr != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("generation: %v", gerr))
		logger.Warn(ctx, "generation failed for query %q: %v", q.ID, gerr)
	}

	eval, eerr := o.evaluator.Evaluate(ctx, q.Text, trace.Answer, q.Expected)
	if eerr != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("evaluation: %v", eerr))
		logger.Warn(ctx, "evaluation failed for query %q: %v", q.ID, eerr)
		eval = nil
	}
	result.Correct = eval != nil && eval.Correct

	delta, rerr := o.reflector.Reflect(ctx, trace, eval)
	if rerr != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("reflection: %v", rerr))
		logger.Warn(ctx, "reflection failed for query %q: %v", q.ID, rerr)
	}

	return result, delta
}

func recordSkips(result *QueryResult, cres *CurationResult) {
	if cres == nil || cres.Applied == nil {
		return
	}
	for _, skip := range cres.Applied.Skipped {
		result.Failures = append(result.Failures, fmt.Sprintf("delta: %s", skip.Reason))
	}
}

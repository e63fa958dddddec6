// Package runner assembles the learning pipeline from a validated config
// and executes it: model, tools, reasoning engine, reflection, curation,
// checkpointing, and result export.
package runner

import (
	"context"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/config"
	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/datasets"
	"github.com/XiaoConstantine/ace-go/pkg/engine"
	"github.com/XiaoConstantine/ace-go/pkg/llms"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"github.com/XiaoConstantine/ace-go/pkg/storage"
	"github.com/XiaoConstantine/ace-go/pkg/tools"
)

// Options configures one learning run beyond what the config file covers.
type Options struct {
	// Config is the validated pipeline configuration.
	Config *config.Config
	// DatasetPath points at a local GSM8K parquet file. Empty downloads
	// the test split.
	DatasetPath string
	// TracePath arms a runtime flight recorder and dumps the trace here
	// when the run aborts.
	TracePath string
}

// Result is what a finished run hands back to the command.
type Result struct {
	Report *ace.RunReport
	// Restored is how many bullets the checkpoint contributed.
	Restored int
	// Seeded is how many starter bullets a fresh playbook received.
	Seeded int
	// Saved is the checkpoint path written, empty when persistence is off.
	Saved string
}

// Run executes the full loop over GSM8K queries.
//
// The result carries whatever completed before an abort: the playbook is
// checkpointed and partial results exported even when an error comes back
// alongside them.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}

	var recorder *logging.FlightRecorder
	if opts.TracePath != "" {
		recorder = logging.NewFlightRecorder()
		if err := recorder.Start(); err != nil {
			return nil, err
		}
		defer recorder.Stop()
	}

	llm, err := llms.NewLLM(cfg.LLM.APIKey, core.ModelID(cfg.LLM.ModelID))
	if err != nil {
		return nil, err
	}

	queries, err := loadQueries(ctx, opts.DatasetPath, cfg.Run.Limit)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var store storage.Store
	var pb *ace.Playbook
	if cfg.Run.PlaybookPath != "" {
		store, err = storage.Open(cfg.Run.PlaybookPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		pb, err = storage.LoadOrNew(ctx, store, cfg.Playbook.MaxSize)
		if err != nil {
			return nil, err
		}
		res.Restored = pb.Size()
	} else {
		pb = ace.NewPlaybook(cfg.Playbook.MaxSize)
	}

	if cfg.Playbook.Seed && pb.Size() == 0 {
		ids, err := ace.SeedDefaults(pb)
		if err != nil {
			return nil, err
		}
		res.Seeded = len(ids)
	}

	orch, err := buildOrchestrator(cfg, llm, pb)
	if err != nil {
		return nil, err
	}

	report, runErr := orch.Run(ctx, queries)
	res.Report = report

	logger := logging.GetLogger()
	if recorder != nil && runErr != nil {
		if err := recorder.Snapshot(opts.TracePath); err != nil {
			logger.Error(ctx, "trace snapshot failed: %v", err)
		} else {
			logger.Info(ctx, "runtime trace written to %s", opts.TracePath)
		}
	}

	if store != nil && !cfg.Run.Isolated {
		if err := store.Save(ctx, pb.Snapshot()); err != nil {
			if runErr == nil {
				return res, err
			}
			logger.Error(ctx, "checkpoint save failed after aborted run: %v", err)
		} else {
			res.Saved = cfg.Run.PlaybookPath
		}
	}

	if cfg.Run.OutputPath != "" && len(report.Results) > 0 {
		if err := datasets.WriteResultsCSV(cfg.Run.OutputPath, report.Results); err != nil {
			if runErr == nil {
				return res, err
			}
			logger.Error(ctx, "result export failed after aborted run: %v", err)
		}
	}

	return res, runErr
}

// setupLogging routes logs to stderr so stdout stays clean for the report,
// plus an optional file.
func setupLogging(cfg *config.Config) error {
	outputs := []logging.Output{logging.NewConsoleOutput(true)}
	if cfg.Logging.File != "" {
		fileOut, err := logging.NewFileOutput(cfg.Logging.File)
		if err != nil {
			return err
		}
		outputs = append(outputs, fileOut)
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: cfg.Severity(),
		Outputs:  outputs,
	}))
	return nil
}

func buildOrchestrator(cfg *config.Config, llm core.LLM, pb *ace.Playbook) (*ace.Orchestrator, error) {
	registry := tools.NewInMemoryToolRegistry()
	if err := tools.RegisterMathToolset(registry); err != nil {
		return nil, err
	}

	eng := engine.NewReActEngine(llm, registry).
		WithGenerateOptions(cfg.GenerateOptions()...)

	gen := ace.NewGenerator(eng, cfg.Generator.StepBudget)
	if d := cfg.Generator.Timeout.Std(); d > 0 {
		gen = gen.WithTimeout(d)
	}

	reflector := ace.NewOracleReflector(ace.NewLLMLessonOracle(llm).WithMaxLessons(cfg.Reflector.MaxLessons)).
		WithMaxLessons(cfg.Reflector.MaxLessons).
		WithMinLessonLength(cfg.Reflector.MinLessonLength).
		WithPenalizeUsedOnFailure(cfg.Reflector.PenalizeUsedOnFailure)
	if d := cfg.Reflector.Timeout.Std(); d > 0 {
		reflector = reflector.WithTimeout(d)
	}

	scorer := ace.NewLexicalScorer()
	scorer.MinScore = cfg.Selection.MinScore
	scorer.Parallel = cfg.Selection.Parallel

	return ace.NewOrchestrator(ace.OrchestratorConfig{
		Playbook:    pb,
		Generator:   gen,
		Reflector:   reflector,
		Evaluator:   ace.NewNumericOracle(),
		Curator:     ace.NewCurator(cfg.RefineMode(), cfg.RefineConfig()),
		Selector:    scorer,
		TopK:        cfg.Selection.TopK,
		Concurrency: cfg.Run.Concurrency,
		Isolated:    cfg.Run.Isolated,
	})
}

func loadQueries(ctx context.Context, datasetPath string, limit int) ([]ace.Query, error) {
	var examples []datasets.GSM8KExample
	var err error
	if datasetPath != "" {
		examples, err = datasets.LoadGSM8KFile(ctx, datasetPath)
	} else {
		examples, err = datasets.LoadGSM8K(ctx)
	}
	if err != nil {
		return nil, err
	}

	if limit > 0 && limit < len(examples) {
		examples = examples[:limit]
	}
	return datasets.Queries(examples), nil
}

// Package ace is a Go implementation of Agentic Context Engineering: a
// learning loop that grows a reusable playbook of strategies from its own
// successes and failures instead of fine-tuning model weights.
//
// ACE-Go runs each query through a generate, evaluate, reflect, curate
// cycle. The playbook of scored strategy bullets rides along in the prompt,
// the model cites the bullets it applies, and graded outcomes feed helpful
// and harmful counters that decide what survives curation. It focuses on
// making it easy to:
//   - Accumulate strategies across queries without unbounded prompt growth
//   - Credit or penalize individual strategies from cited usage
//   - Deduplicate near-identical lessons and prune what stops helping
//   - Checkpoint learned playbooks and resume or evaluate them later
//
// Key Components:
//
//   - ace: The pipeline itself. Playbook (capacity-bounded bullet store with
//     epochs and score bands), Generator (drives a reasoning engine under a
//     step budget), Reflector (extracts lessons from graded traces),
//     Curator (dedup, refinement, pruning), and the Orchestrator that runs
//     them over query batches sequentially, windowed, or isolated.
//
//   - engine: A ReAct-style reasoning engine that alternates model thoughts
//     with tool calls until it commits to an answer.
//
//   - llms: Anthropic provider behind the core.LLM interface, with JSON
//     mode for structured lesson extraction.
//
//   - tools: Tool registry plus a math toolset (equation solving,
//     statistics, base conversion) the engine can dispatch to.
//
//   - storage: Playbook checkpoints as JSON files or SQLite databases,
//     selected by path extension.
//
//   - datasets: GSM8K download and parquet loading, plus CSV export of
//     per-query results.
//
//   - config: YAML configuration with validation covering every pipeline
//     knob.
//
// Simple Example:
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/XiaoConstantine/ace-go/pkg/ace"
//	    "github.com/XiaoConstantine/ace-go/pkg/core"
//	    "github.com/XiaoConstantine/ace-go/pkg/engine"
//	    "github.com/XiaoConstantine/ace-go/pkg/llms"
//	    "github.com/XiaoConstantine/ace-go/pkg/tools"
//	)
//
//	func main() {
//	    llm, err := llms.NewLLM("your-api-key", core.ModelAnthropicSonnet)
//	    if err != nil {
//	        log.Fatalf("Failed to create LLM: %v", err)
//	    }
//
//	    registry := tools.NewInMemoryToolRegistry()
//	    if err := tools.RegisterMathToolset(registry); err != nil {
//	        log.Fatalf("Failed to register tools: %v", err)
//	    }
//
//	    playbook := ace.NewPlaybook(ace.DefaultMaxSize)
//	    orch, err := ace.NewOrchestrator(ace.OrchestratorConfig{
//	        Playbook:  playbook,
//	        Generator: ace.NewGenerator(engine.NewReActEngine(llm, registry), ace.DefaultStepBudget),
//	        Reflector: ace.NewOracleReflector(ace.NewLLMLessonOracle(llm)),
//	        Evaluator: ace.NewNumericOracle(),
//	        Curator:   ace.NewCurator(ace.RefineLazy, ace.DefaultRefineConfig()),
//	    })
//	    if err != nil {
//	        log.Fatalf("Failed to build orchestrator: %v", err)
//	    }
//
//	    report, err := orch.Run(context.Background(), []ace.Query{
//	        {ID: "q1", Text: "A pen costs $3. How much do 4 pens cost?", Expected: "12"},
//	    })
//	    if err != nil {
//	        log.Fatalf("Run aborted: %v", err)
//	    }
//
//	    fmt.Printf("Accuracy: %.0f%%, playbook now holds %d bullets\n",
//	        report.Accuracy()*100, playbook.Size())
//	}
//
// Advanced Features:
//
//   - Windowed Concurrency: Queries in a window share a playbook snapshot
//     and their deltas land in query order, so results do not depend on
//     goroutine scheduling
//
//   - Isolated Evaluation: Every query sees the initial playbook and all
//     updates are discarded, for measuring a playbook without letting it
//     learn
//
//   - Failure Isolation: Component failures are recorded on the query
//     result and the run continues; only capacity violations abort
//
//   - Structured Logging: Leveled logger with per-run context fields and
//     console or file outputs
//
//   - Flight Recording: Optional runtime trace ring buffer snapshotted on
//     aborted runs for postmortem analysis
//
//   - Dataset Management: Built-in GSM8K download with Arrow-based parquet
//     reading
//
// For more examples see the examples directory and the ace-cli command.
//
// ACE-Go is released under the MIT License.
package ace

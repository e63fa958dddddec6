// Package ace implements adaptive context engineering: a self-improving,
// capacity-bounded playbook of scored strategy bullets that an agent carries
// from query to query.
//
// # Architecture
//
// The pipeline consists of five cooperating components:
//
//   - Playbook: the bounded store of bullets with insertion order, epochs,
//     and monotonically assigned IDs
//   - Generator: runs a reasoning engine against a query with selected
//     bullets in context and records the resulting trace
//   - Reflector: turns a graded trace into a Delta of counter updates and
//     new bullet candidates
//   - Curator: applies deltas and refines the playbook (deduplication and
//     capacity pruning) eagerly or lazily
//   - Orchestrator: drives the full loop across a batch of queries
//
// # Basic Usage
//
//	pb := ace.NewPlaybook(20)
//	ace.SeedDefaults(pb)
//
//	gen := ace.NewGenerator(engine, 5)
//	refl := ace.NewOracleReflector(lessonOracle)
//	cur := ace.NewCurator(ace.RefineLazy, ace.DefaultRefineConfig())
//
//	orch, err := ace.NewOrchestrator(ace.OrchestratorConfig{
//	    Playbook:  pb,
//	    Generator: gen,
//	    Reflector: refl,
//	    Evaluator: ace.NewNumericOracle(),
//	    Curator:   cur,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := orch.Run(ctx, queries)
//
// # Citation Detection
//
// Bullets are offered to the engine with ID markers like [B12]. When the
// engine cites a marker in its reasoning or answer, the bullet counts as
// used. Credit assignment touches only used bullets: helpful on a correct
// answer, harmful on an incorrect one. Offered-but-uncited bullets are
// never incremented.
//
// # Deduplication and Pruning
//
// Refinement merges near-duplicate bullets by token-set similarity
// (Jaccard index with a configurable threshold), summing their counters
// into the higher-scoring survivor, then evicts the lowest-scoring bullets
// until the playbook fits its capacity. Retired IDs are never reassigned.
//
// # Failure Handling
//
// Component failures are recorded per query and the run continues: a
// generation failure still yields a partial trace, an evaluation failure
// is treated as an incorrect outcome, and a reflection failure falls back
// to a conservative penalty for the bullets that were used. Only a
// capacity invariant violation aborts a run.
package ace

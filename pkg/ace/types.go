package ace

import (
	"context"
	"fmt"
	"time"

	"github.com/XiaoConstantine/ace-go/pkg/core"
)

// BulletID identifies a bullet for its whole lifetime. IDs are assigned
// monotonically by the playbook and are never reused, even after removal.
type BulletID int64

// String formats the ID the way bullets are cited in prompts, e.g. "B12".
func (id BulletID) String() string {
	return fmt.Sprintf("B%d", int64(id))
}

// Bullet is a single reusable strategy with usage counters.
type Bullet struct {
	ID            BulletID `json:"id"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags,omitempty"`
	Helpful       int      `json:"helpful"`
	Harmful       int      `json:"harmful"`
	CreatedEpoch  int64    `json:"created_epoch"`
	LastUsedEpoch int64    `json:"last_used_epoch"`
}

// Score returns the net usefulness signal used for ranking and pruning.
func (b *Bullet) Score() int {
	return b.Helpful - b.Harmful
}

// TotalUses returns the total number of times this bullet has been evaluated.
func (b *Bullet) TotalUses() int {
	return b.Helpful + b.Harmful
}

// SuccessRate returns the ratio of helpful to total uses.
func (b *Bullet) SuccessRate() float64 {
	total := b.Helpful + b.Harmful
	if total == 0 {
		return 0.5
	}
	return float64(b.Helpful) / float64(total)
}

// String formats the bullet for logs and storage.
func (b *Bullet) String() string {
	return fmt.Sprintf("[%s] helpful=%d harmful=%d :: %s", b.ID, b.Helpful, b.Harmful, b.Content)
}

// DeltaOpType enumerates the update operations a reflector may emit.
type DeltaOpType string

const (
	OpAdd              DeltaOpType = "ADD"
	OpIncrementHelpful DeltaOpType = "INCREMENT_HELPFUL"
	OpIncrementHarmful DeltaOpType = "INCREMENT_HARMFUL"
	OpRemove           DeltaOpType = "REMOVE"
)

// DeltaOp is a single playbook update. ADD carries Content and Tags; the
// other operations target an existing bullet by ID.
type DeltaOp struct {
	Type     DeltaOpType `json:"type"`
	BulletID BulletID    `json:"bullet_id,omitempty"`
	Content  string      `json:"content,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
}

// AddOp creates an ADD operation.
func AddOp(content string, tags ...string) DeltaOp {
	return DeltaOp{Type: OpAdd, Content: content, Tags: tags}
}

// IncrementHelpfulOp creates an INCREMENT_HELPFUL operation.
func IncrementHelpfulOp(id BulletID) DeltaOp {
	return DeltaOp{Type: OpIncrementHelpful, BulletID: id}
}

// IncrementHarmfulOp creates an INCREMENT_HARMFUL operation.
func IncrementHarmfulOp(id BulletID) DeltaOp {
	return DeltaOp{Type: OpIncrementHarmful, BulletID: id}
}

// RemoveOp creates a REMOVE operation.
func RemoveOp(id BulletID) DeltaOp {
	return DeltaOp{Type: OpRemove, BulletID: id}
}

// Delta is an ordered batch of update operations applied atomically.
type Delta struct {
	Ops []DeltaOp `json:"ops"`
}

// Empty reports whether the delta contains no operations.
func (d Delta) Empty() bool {
	return len(d.Ops) == 0
}

// TraceStep is a single reasoning or tool action inside a trace.
type TraceStep struct {
	Index       int       `json:"index"`
	Thought     string    `json:"thought,omitempty"`
	Action      string    `json:"action,omitempty"`
	Tool        string    `json:"tool,omitempty"`
	Observation string    `json:"observation,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsSuccessful returns true if the step completed without error.
func (s *TraceStep) IsSuccessful() bool {
	return s.Error == ""
}

// Trace captures one complete attempt at a query: the steps taken, the
// final answer, and which playbook bullets were offered versus actually
// cited along the way.
type Trace struct {
	ID          string        `json:"id"`
	Query       string        `json:"query"`
	OfferedIDs  []BulletID    `json:"offered_ids,omitempty"`
	UsedIDs     []BulletID    `json:"used_ids,omitempty"`
	Steps       []TraceStep   `json:"steps"`
	Answer      string        `json:"answer,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"`
	Completed   bool          `json:"completed"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}

// Used reports whether the given bullet was cited during this trace.
func (t *Trace) Used(id BulletID) bool {
	for _, u := range t.UsedIDs {
		if u == id {
			return true
		}
	}
	return false
}

// Evaluation is the graded outcome of a trace against the expected answer.
// Score is 1 or 0 for binary graders; fractional oracles may report partial
// credit without affecting Correct.
type Evaluation struct {
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score"`
	Expected string  `json:"expected,omitempty"`
	Actual   string  `json:"actual,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// Lesson is a candidate strategy extracted from a finished trace.
type Lesson struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// EngineResult is what a reasoning engine returns for one query. Steps may
// be partial when the engine ran out of budget; Completed reports whether
// a final answer was reached. Confidence is the engine's own estimate of
// the answer, between 0 and 1.
type EngineResult struct {
	Steps      []TraceStep
	Answer     string
	Confidence float64
	Completed  bool
	Usage      *core.TokenInfo
}

// ReasoningEngine answers queries with the formatted playbook in context.
// Implementations stop after at most budget reasoning steps and return
// whatever partial result they have.
type ReasoningEngine interface {
	Solve(ctx context.Context, query, playbook string, budget int) (*EngineResult, error)
}

// EvaluationOracle grades an answer against the expected result.
type EvaluationOracle interface {
	Evaluate(ctx context.Context, query, answer, expected string) (*Evaluation, error)
}

// LessonOracle extracts new strategy candidates from a finished trace.
// Implementations may call an LLM; errors are surfaced to the reflector,
// which falls back to counter updates only.
type LessonOracle interface {
	ExtractLessons(ctx context.Context, trace *Trace, eval *Evaluation) ([]Lesson, error)
}

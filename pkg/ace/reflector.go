package ace

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// Reflector turns a graded trace into a playbook delta.
type Reflector interface {
	Reflect(ctx context.Context, trace *Trace, eval *Evaluation) (Delta, error)
}

const (
	// DefaultMaxLessons caps how many new bullets one trace may add.
	DefaultMaxLessons = 2
	// DefaultMinLessonLength drops trivially short lesson candidates.
	DefaultMinLessonLength = 10
)

// OracleReflector produces counter updates deterministically from the
// trace and evaluation, and optionally asks a LessonOracle for new bullet
// candidates. Increments target exactly the bullets the trace used, in
// ascending ID order: helpful on a correct answer, harmful otherwise.
type OracleReflector struct {
	oracle                LessonOracle
	maxLessons            int
	minLessonLength       int
	penalizeUsedOnFailure bool
	timeout               time.Duration
}

// NewOracleReflector creates a reflector. A nil oracle disables lesson
// extraction; the reflector then emits counter updates only.
func NewOracleReflector(oracle LessonOracle) *OracleReflector {
	return &OracleReflector{
		oracle:                oracle,
		maxLessons:            DefaultMaxLessons,
		minLessonLength:       DefaultMinLessonLength,
		penalizeUsedOnFailure: true,
	}
}

// WithMaxLessons caps new bullets per trace.
func (r *OracleReflector) WithMaxLessons(n int) *OracleReflector {
	r.maxLessons = n
	return r
}

// WithMinLessonLength sets the minimum lesson length in characters.
func (r *OracleReflector) WithMinLessonLength(n int) *OracleReflector {
	r.minLessonLength = n
	return r
}

// WithPenalizeUsedOnFailure controls the fallback when no evaluation is
// available: penalize the used bullets (conservative) or leave counters
// untouched.
func (r *OracleReflector) WithPenalizeUsedOnFailure(penalize bool) *OracleReflector {
	r.penalizeUsedOnFailure = penalize
	return r
}

// WithTimeout bounds each oracle call by wall clock; expiry surfaces as a
// reflection failure while the counter updates still apply. Zero means no
// bound beyond the caller's context.
func (r *OracleReflector) WithTimeout(d time.Duration) *OracleReflector {
	r.timeout = d
	return r
}

// Reflect builds the delta for one graded trace. A nil eval means the
// evaluation itself failed; the used bullets are then penalized (or left
// alone, per configuration) and no lessons are extracted. A lesson
// extraction failure likewise falls back to the penalty delta, returned
// alongside the ReflectionFailed error.
func (r *OracleReflector) Reflect(ctx context.Context, trace *Trace, eval *Evaluation) (Delta, error) {
	used := append([]BulletID(nil), trace.UsedIDs...)
	sort.Slice(used, func(i, j int) bool { return used[i] < used[j] })

	if eval == nil {
		return r.failureDelta(used), nil
	}

	ops := make([]DeltaOp, 0, len(used))
	for _, id := range used {
		if eval.Correct {
			ops = append(ops, IncrementHelpfulOp(id))
		} else {
			ops = append(ops, IncrementHarmfulOp(id))
		}
	}

	if r.oracle == nil {
		return Delta{Ops: ops}, nil
	}

	extractCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	lessons, err := r.oracle.ExtractLessons(extractCtx, trace, eval)
	if err != nil {
		return r.failureDelta(used), errors.Wrap(err, errors.ReflectionFailed, "lesson extraction failed")
	}

	added := 0
	for _, lesson := range lessons {
		if added >= r.maxLessons {
			break
		}
		content := strings.TrimSpace(lesson.Content)
		if utf8.RuneCountInString(content) < r.minLessonLength {
			continue
		}
		ops = append(ops, AddOp(content, lesson.Tags...))
		added++
	}

	return Delta{Ops: ops}, nil
}

// failureDelta is the fallback when reflection cannot complete: penalize
// every used bullet, or change nothing when penalization is disabled.
func (r *OracleReflector) failureDelta(used []BulletID) Delta {
	if !r.penalizeUsedOnFailure {
		return Delta{}
	}
	ops := make([]DeltaOp, 0, len(used))
	for _, id := range used {
		ops = append(ops, IncrementHarmfulOp(id))
	}
	return Delta{Ops: ops}
}

package ace

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"github.com/google/uuid"
)

// DefaultStepBudget bounds how many reasoning steps the engine may take
// per query.
const DefaultStepBudget = 5

// Generator runs the reasoning engine for one query at a time and records
// the attempt as a trace, including which offered bullets were cited.
type Generator struct {
	engine  ReasoningEngine
	budget  int
	timeout time.Duration
}

// NewGenerator creates a generator. A non-positive budget falls back to
// DefaultStepBudget.
func NewGenerator(engine ReasoningEngine, budget int) *Generator {
	if budget <= 0 {
		budget = DefaultStepBudget
	}
	return &Generator{engine: engine, budget: budget}
}

// WithTimeout bounds each engine call by wall clock; expiry surfaces as a
// generation failure. Zero means no bound beyond the caller's context.
func (g *Generator) WithTimeout(d time.Duration) *Generator {
	g.timeout = d
	return g
}

// Budget returns the per-query step budget.
func (g *Generator) Budget() int {
	return g.budget
}

// Generate answers the query with the given bullets in context. The trace
// is always returned, partial if the engine failed or ran out of budget;
// in those cases the error carries the GenerationFailed code.
func (g *Generator) Generate(ctx context.Context, query string, bullets []Bullet) (*Trace, error) {
	trace := &Trace{
		ID:         uuid.New().String(),
		Query:      query,
		OfferedIDs: bulletIDs(bullets),
		StartedAt:  time.Now(),
	}

	solveCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	res, err := g.engine.Solve(solveCtx, query, FormatForPrompt(bullets), g.budget)
	if res != nil {
		trace.Steps = res.Steps
		trace.Answer = res.Answer
		trace.Confidence = res.Confidence
		trace.Completed = res.Completed
		if res.Usage != nil {
			ctx = logging.WithTokenInfo(ctx, &logging.TokenInfo{
				PromptTokens:     res.Usage.PromptTokens,
				CompletionTokens: res.Usage.CompletionTokens,
				TotalTokens:      res.Usage.TotalTokens,
			})
		}
	}
	trace.CompletedAt = time.Now()
	trace.Duration = trace.CompletedAt.Sub(trace.StartedAt)
	trace.UsedIDs = usedBullets(trace)

	logger := logging.GetLogger()

	if err != nil {
		return trace, errors.Wrap(err, errors.GenerationFailed, "reasoning engine failed")
	}
	if !trace.Completed {
		return trace, errors.WithFields(
			errors.New(errors.GenerationFailed, "step budget exhausted without a final answer"),
			errors.Fields{"budget": g.budget, "steps": len(trace.Steps)},
		)
	}

	logger.Debug(ctx, "trace %s completed in %d step(s), cited %d of %d offered bullet(s)",
		trace.ID, len(trace.Steps), len(trace.UsedIDs), len(trace.OfferedIDs))
	return trace, nil
}

var citationRegex = regexp.MustCompile(`\[B(\d+)\]`)

// DetectCitations finds bullet references like [B12] in text, in first
// appearance order without duplicates.
func DetectCitations(text string) []BulletID {
	matches := citationRegex.FindAllStringSubmatch(text, -1)
	var citations []BulletID
	seen := make(map[BulletID]bool)

	for _, match := range matches {
		n, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		id := BulletID(n)
		if !seen[id] {
			citations = append(citations, id)
			seen[id] = true
		}
	}
	return citations
}

// usedBullets intersects the citations found in the engine's own text
// with the offered set. Tool observations are excluded: only the engine's
// reasoning and answer count as use.
func usedBullets(trace *Trace) []BulletID {
	offered := make(map[BulletID]bool, len(trace.OfferedIDs))
	for _, id := range trace.OfferedIDs {
		offered[id] = true
	}

	var b strings.Builder
	for _, step := range trace.Steps {
		b.WriteString(step.Thought)
		b.WriteString("\n")
		b.WriteString(step.Action)
		b.WriteString("\n")
	}
	b.WriteString(trace.Answer)

	var used []BulletID
	for _, id := range DetectCitations(b.String()) {
		if offered[id] {
			used = append(used, id)
		}
	}
	return used
}

func bulletIDs(bullets []Bullet) []BulletID {
	if len(bullets) == 0 {
		return nil
	}
	ids := make([]BulletID, len(bullets))
	for i := range bullets {
		ids[i] = bullets[i].ID
	}
	return ids
}

// FormatForPrompt renders bullets for injection into the engine's context.
// Bullets with usage history show their success rate.
func FormatForPrompt(bullets []Bullet) string {
	if len(bullets) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Strategy Playbook (cite a bullet's ID like [B12] when you apply it)\n")
	for i := range bullets {
		b := &bullets[i]
		if b.TotalUses() > 0 {
			successPct := int(b.SuccessRate() * 100)
			sb.WriteString(fmt.Sprintf("[%s] %s (%d%% success)\n", b.ID, b.Content, successPct))
		} else {
			sb.WriteString(fmt.Sprintf("[%s] %s\n", b.ID, b.Content))
		}
	}
	return sb.String()
}

package ace

import (
	"math"
	"sort"

	"github.com/sourcegraph/conc/pool"
)

// DefaultMinScore is the minimum overlap ratio for a bullet to count as
// relevant to a query.
const DefaultMinScore = 0.2

// DefaultTopK is the number of bullets offered to the engine per query.
const DefaultTopK = 5

// parallelScoringMin is the playbook size below which parallel scoring
// is not worth the goroutine overhead.
const parallelScoringMin = 64

// Selector picks which bullets are offered to the engine for a query.
// LexicalScorer is the default; an embedding-based ranker can be
// substituted as long as it returns a stable total order.
type Selector interface {
	Select(bullets []Bullet, query string, k int) []Bullet
}

// LexicalScorer scores bullets by token overlap: the fraction of query
// tokens present in the bullet's content or tags. Selection is read-only;
// it never touches usage counters or epochs.
type LexicalScorer struct {
	// MinScore filters out bullets scoring below it.
	MinScore float64
	// Parallel sets the number of goroutines used to score large
	// playbooks. Values below 2 keep scoring sequential.
	Parallel int
}

var _ Selector = (*LexicalScorer)(nil)

// NewLexicalScorer returns a scorer with the default relevance cutoff.
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{MinScore: DefaultMinScore}
}

// Score returns the fraction of query tokens found in the bullet's
// content and tags.
func (s *LexicalScorer) Score(query string, b *Bullet) float64 {
	return overlapRatio(tokenize(query), bulletTokens(b))
}

// bulletTokens is the bullet's match surface: content tokens plus tag
// tokens, so tag-only matches still rank.
func bulletTokens(b *Bullet) map[string]bool {
	parts := make([]string, 0, len(b.Tags)+1)
	parts = append(parts, b.Content)
	parts = append(parts, b.Tags...)
	return tokenizeAll(parts...)
}

// Select returns up to k bullets relevant to the query, best first.
// Ranking is by score descending; ties prefer the bullet with the lower
// harmful-to-helpful ratio, then the earlier insertion.
func (s *LexicalScorer) Select(bullets []Bullet, query string, k int) []Bullet {
	if k <= 0 || len(bullets) == 0 {
		return nil
	}

	minScore := s.MinScore
	queryTokens := tokenize(query)

	scores := s.scoreAll(bullets, queryTokens)

	type candidate struct {
		idx   int
		score float64
	}
	var candidates []candidate
	for i := range bullets {
		if scores[i] <= 0 || scores[i] < minScore {
			continue
		}
		candidates = append(candidates, candidate{idx: i, score: scores[i]})
	}

	// Candidates are in insertion order; the stable sort keeps that order
	// for full ties.
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		ra := harmRatio(&bullets[candidates[a].idx])
		rb := harmRatio(&bullets[candidates[b].idx])
		return ra < rb
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]Bullet, len(candidates))
	for i, c := range candidates {
		out[i] = bullets[c.idx]
	}
	return out
}

// scoreAll computes overlap scores for every bullet, in parallel when the
// playbook is large enough and Parallel allows it.
func (s *LexicalScorer) scoreAll(bullets []Bullet, queryTokens map[string]bool) []float64 {
	scores := make([]float64, len(bullets))

	if s.Parallel < 2 || len(bullets) < parallelScoringMin {
		for i := range bullets {
			scores[i] = overlapRatio(queryTokens, bulletTokens(&bullets[i]))
		}
		return scores
	}

	chunk := (len(bullets) + s.Parallel - 1) / s.Parallel
	workers := pool.New().WithMaxGoroutines(s.Parallel)
	for start := 0; start < len(bullets); start += chunk {
		start := start
		end := start + chunk
		if end > len(bullets) {
			end = len(bullets)
		}
		workers.Go(func() {
			for i := start; i < end; i++ {
				scores[i] = overlapRatio(queryTokens, bulletTokens(&bullets[i]))
			}
		})
	}
	workers.Wait()

	return scores
}

// harmRatio orders tie-broken bullets: clean records first, pure-harm
// records last.
func harmRatio(b *Bullet) float64 {
	if b.Harmful == 0 {
		return 0
	}
	if b.Helpful == 0 {
		return math.Inf(1)
	}
	return float64(b.Harmful) / float64(b.Helpful)
}

// Select returns up to k bullets relevant to the query using the default
// lexical scorer. The playbook is not modified.
func (p *Playbook) Select(query string, k int) []Bullet {
	return NewLexicalScorer().Select(p.Bullets(), query, k)
}

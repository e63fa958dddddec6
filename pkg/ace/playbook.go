package ace

import (
	"fmt"
	"strings"
	"sync"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// DefaultMaxSize is the playbook capacity used when none is configured.
const DefaultMaxSize = 20

// Playbook is the bounded, insertion-ordered store of bullets. All methods
// are safe for concurrent use; Apply and Refine take a write lock so each
// delta lands atomically.
type Playbook struct {
	mu      sync.RWMutex
	bullets []Bullet
	byID    map[BulletID]int
	maxSize int
	epoch   int64
	nextID  BulletID
}

// NewPlaybook creates an empty playbook with the given capacity. A
// non-positive capacity falls back to DefaultMaxSize.
func NewPlaybook(maxSize int) *Playbook {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Playbook{
		byID:    make(map[BulletID]int),
		maxSize: maxSize,
		nextID:  1,
	}
}

// Size returns the current number of bullets.
func (p *Playbook) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.bullets)
}

// MaxSize returns the configured capacity.
func (p *Playbook) MaxSize() int {
	return p.maxSize
}

// OverCapacity reports whether the playbook currently exceeds its capacity.
func (p *Playbook) OverCapacity() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.bullets) > p.maxSize
}

// CurrentEpoch returns the playbook's logical clock.
func (p *Playbook) CurrentEpoch() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.epoch
}

// AdvanceEpoch increments the logical clock and returns the new value.
// The orchestrator advances it once per processed query.
func (p *Playbook) AdvanceEpoch() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	return p.epoch
}

// Bullets returns a copy of all bullets in insertion order. Mutating the
// returned slice does not affect the playbook.
func (p *Playbook) Bullets() []Bullet {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Bullet, len(p.bullets))
	copy(out, p.bullets)
	for i := range out {
		out[i].Tags = append([]string(nil), p.bullets[i].Tags...)
	}
	return out
}

// Get returns a copy of the bullet with the given ID.
func (p *Playbook) Get(id BulletID) (Bullet, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	i, ok := p.byID[id]
	if !ok {
		return Bullet{}, false
	}
	b := p.bullets[i]
	b.Tags = append([]string(nil), p.bullets[i].Tags...)
	return b, true
}

// SkippedOp records a delta operation that could not be applied.
type SkippedOp struct {
	Op     DeltaOp `json:"op"`
	Reason string  `json:"reason"`
}

// ApplyResult describes the effect of applying one delta.
type ApplyResult struct {
	Added   []BulletID  `json:"added,omitempty"`
	Removed []BulletID  `json:"removed,omitempty"`
	Updated []BulletID  `json:"updated,omitempty"`
	Skipped []SkippedOp `json:"skipped,omitempty"`
	Epoch   int64       `json:"epoch"`
}

// Err returns a DeltaApplyFailed error summarizing the skipped operations,
// or nil if every operation applied cleanly.
func (r *ApplyResult) Err() error {
	if len(r.Skipped) == 0 {
		return nil
	}
	reasons := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		reasons[i] = s.Reason
	}
	return errors.WithFields(
		errors.New(errors.DeltaApplyFailed, fmt.Sprintf("%d operation(s) skipped", len(r.Skipped))),
		errors.Fields{"reasons": strings.Join(reasons, "; ")},
	)
}

// Apply executes the delta's operations in order under a single write
// lock. Operations referencing unknown bullet IDs and ADDs with blank
// content are skipped and recorded; they never abort the batch. Counter
// increments refresh the target's LastUsedEpoch.
func (p *Playbook) Apply(delta Delta) *ApplyResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := &ApplyResult{Epoch: p.epoch}

	for _, op := range delta.Ops {
		switch op.Type {
		case OpAdd:
			content := strings.TrimSpace(op.Content)
			if content == "" {
				result.Skipped = append(result.Skipped, SkippedOp{Op: op, Reason: "empty content"})
				continue
			}
			b := Bullet{
				ID:            p.nextID,
				Content:       content,
				Tags:          normalizeTags(op.Tags),
				CreatedEpoch:  p.epoch,
				LastUsedEpoch: p.epoch,
			}
			p.nextID++
			p.byID[b.ID] = len(p.bullets)
			p.bullets = append(p.bullets, b)
			result.Added = append(result.Added, b.ID)

		case OpIncrementHelpful:
			i, ok := p.byID[op.BulletID]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedOp{Op: op, Reason: fmt.Sprintf("unknown bullet %s", op.BulletID)})
				continue
			}
			p.bullets[i].Helpful++
			p.bullets[i].LastUsedEpoch = p.epoch
			result.Updated = append(result.Updated, op.BulletID)

		case OpIncrementHarmful:
			i, ok := p.byID[op.BulletID]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedOp{Op: op, Reason: fmt.Sprintf("unknown bullet %s", op.BulletID)})
				continue
			}
			p.bullets[i].Harmful++
			p.bullets[i].LastUsedEpoch = p.epoch
			result.Updated = append(result.Updated, op.BulletID)

		case OpRemove:
			i, ok := p.byID[op.BulletID]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedOp{Op: op, Reason: fmt.Sprintf("unknown bullet %s", op.BulletID)})
				continue
			}
			p.removeAtLocked(i)
			result.Removed = append(result.Removed, op.BulletID)

		default:
			result.Skipped = append(result.Skipped, SkippedOp{Op: op, Reason: fmt.Sprintf("unknown operation type %q", op.Type)})
		}
	}

	return result
}

// removeAtLocked splices out the bullet at index i and reindexes the tail.
func (p *Playbook) removeAtLocked(i int) {
	delete(p.byID, p.bullets[i].ID)
	p.bullets = append(p.bullets[:i], p.bullets[i+1:]...)
	for j := i; j < len(p.bullets); j++ {
		p.byID[p.bullets[j].ID] = j
	}
}

// RefineConfig controls deduplication and pruning behavior.
type RefineConfig struct {
	// SimilarityThreshold is the Jaccard index at or above which two
	// bullets are considered duplicates. Values outside (0, 1] fall back
	// to the default.
	SimilarityThreshold float64
	// HarmfulRatio enables the low-performer sweep when positive: bullets
	// whose success rate falls below it are removed. Zero disables the
	// sweep.
	HarmfulRatio float64
	// MinUses is the number of evaluations a bullet needs before the
	// sweep may remove it.
	MinUses int
}

// DefaultSimilarityThreshold is the Jaccard cutoff for merging bullets.
const DefaultSimilarityThreshold = 0.7

// DefaultRefineConfig returns the standard refinement settings: merge at
// 0.7 similarity, sweep disabled.
func DefaultRefineConfig() RefineConfig {
	return RefineConfig{
		SimilarityThreshold: DefaultSimilarityThreshold,
		HarmfulRatio:        0,
		MinUses:             1,
	}
}

// Merge records one deduplication: Retired's counters were folded into
// Survivor and Retired's ID was permanently retired.
type Merge struct {
	Survivor BulletID `json:"survivor"`
	Retired  BulletID `json:"retired"`
}

// RefineResult describes the changes one refinement pass made.
type RefineResult struct {
	Merged     []Merge    `json:"merged,omitempty"`
	Swept      []BulletID `json:"swept,omitempty"`
	Pruned     []BulletID `json:"pruned,omitempty"`
	SizeBefore int        `json:"size_before"`
	SizeAfter  int        `json:"size_after"`
}

// Refine deduplicates near-identical bullets, optionally sweeps chronic
// low performers, and evicts the lowest-scoring bullets until the playbook
// fits its capacity. The pass runs under one write lock. It returns a
// CapacityViolation error if the playbook somehow still exceeds capacity
// afterwards; that error is fatal to a run.
func (p *Playbook) Refine(cfg RefineConfig) (*RefineResult, error) {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := &RefineResult{SizeBefore: len(p.bullets)}

	result.Merged = p.dedupeLocked(threshold)
	if cfg.HarmfulRatio > 0 {
		result.Swept = p.sweepLocked(cfg.HarmfulRatio, cfg.MinUses)
	}
	result.Pruned = p.pruneLocked()

	result.SizeAfter = len(p.bullets)

	if len(p.bullets) > p.maxSize {
		return result, errors.WithFields(
			errors.New(errors.CapacityViolation, "playbook exceeds capacity after refinement"),
			errors.Fields{"size": len(p.bullets), "max_size": p.maxSize},
		)
	}

	return result, nil
}

// Clone returns a deep copy sharing no state with the original. The copy
// keeps the same capacity, epoch, and ID counter, so deltas computed
// against it stay meaningful for the original.
func (p *Playbook) Clone() *Playbook {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &Playbook{
		bullets: make([]Bullet, len(p.bullets)),
		byID:    make(map[BulletID]int, len(p.byID)),
		maxSize: p.maxSize,
		epoch:   p.epoch,
		nextID:  p.nextID,
	}
	copy(clone.bullets, p.bullets)
	for i := range clone.bullets {
		clone.bullets[i].Tags = append([]string(nil), p.bullets[i].Tags...)
		clone.byID[clone.bullets[i].ID] = i
	}
	return clone
}

// Snapshot captures the full playbook state for persistence.
type Snapshot struct {
	Bullets      []Bullet `json:"bullets"`
	MaxSize      int      `json:"max_size"`
	CurrentEpoch int64    `json:"current_epoch"`
	NextID       BulletID `json:"next_id"`
}

// Snapshot returns a copy of the playbook's complete state.
func (p *Playbook) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bullets := make([]Bullet, len(p.bullets))
	copy(bullets, p.bullets)
	for i := range bullets {
		bullets[i].Tags = append([]string(nil), p.bullets[i].Tags...)
	}

	return &Snapshot{
		Bullets:      bullets,
		MaxSize:      p.maxSize,
		CurrentEpoch: p.epoch,
		NextID:       p.nextID,
	}
}

// Validate checks the snapshot's internal consistency.
func (s *Snapshot) Validate() error {
	if s.MaxSize <= 0 {
		return errors.New(errors.ValidationFailed, "snapshot max_size must be positive")
	}
	seen := make(map[BulletID]bool, len(s.Bullets))
	var maxID BulletID
	for _, b := range s.Bullets {
		if strings.TrimSpace(b.Content) == "" {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "snapshot bullet has empty content"),
				errors.Fields{"bullet_id": b.ID.String()},
			)
		}
		if seen[b.ID] {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "snapshot contains duplicate bullet ID"),
				errors.Fields{"bullet_id": b.ID.String()},
			)
		}
		seen[b.ID] = true
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	if s.NextID <= maxID {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "snapshot next_id must exceed every bullet ID"),
			errors.Fields{"next_id": int64(s.NextID), "max_bullet_id": int64(maxID)},
		)
	}
	return nil
}

// RestoreSnapshot replaces the playbook's state with the snapshot's.
func (p *Playbook) RestoreSnapshot(s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.bullets = make([]Bullet, len(s.Bullets))
	copy(p.bullets, s.Bullets)
	p.byID = make(map[BulletID]int, len(s.Bullets))
	for i := range p.bullets {
		p.bullets[i].Tags = append([]string(nil), s.Bullets[i].Tags...)
		p.byID[p.bullets[i].ID] = i
	}
	p.maxSize = s.MaxSize
	p.epoch = s.CurrentEpoch
	p.nextID = s.NextID
	return nil
}

// NewPlaybookFromSnapshot builds a playbook from a persisted snapshot.
func NewPlaybookFromSnapshot(s *Snapshot) (*Playbook, error) {
	p := NewPlaybook(s.MaxSize)
	if err := p.RestoreSnapshot(s); err != nil {
		return nil, err
	}
	return p, nil
}

// ScoreBands summarizes the playbook by net score: how many bullets are
// negative, neutral, emerging (1 or 2), and established (3 or more).
func (p *Playbook) ScoreBands() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bands := map[string]int{
		"negative":    0,
		"neutral":     0,
		"emerging":    0,
		"established": 0,
	}
	for i := range p.bullets {
		switch score := p.bullets[i].Score(); {
		case score < 0:
			bands["negative"]++
		case score == 0:
			bands["neutral"]++
		case score <= 2:
			bands["emerging"]++
		default:
			bands["established"]++
		}
	}
	return bands
}

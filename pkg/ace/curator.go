package ace

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
)

// RefineMode selects when the curator refines the playbook after applying
// a delta. The set of modes is closed; ParseRefineMode rejects anything
// else.
type RefineMode string

const (
	// RefineEager refines after every delta.
	RefineEager RefineMode = "eager"
	// RefineLazy refines only when the playbook exceeds capacity.
	RefineLazy RefineMode = "lazy"
)

// ParseRefineMode converts a config string into a RefineMode.
func ParseRefineMode(s string) (RefineMode, error) {
	switch RefineMode(s) {
	case RefineEager:
		return RefineEager, nil
	case RefineLazy:
		return RefineLazy, nil
	default:
		return "", errors.New(errors.InvalidInput, fmt.Sprintf("unknown refine mode %q (want eager or lazy)", s))
	}
}

// CurationResult describes one delta commit: what the delta changed and
// what refinement, if any, did afterwards.
type CurationResult struct {
	Applied *ApplyResult  `json:"applied"`
	Refined bool          `json:"refined"`
	Refine  *RefineResult `json:"refine,omitempty"`
	Size    int           `json:"size"`
}

// Curator applies deltas to the playbook and keeps it within capacity.
type Curator struct {
	mode RefineMode
	cfg  RefineConfig
}

// NewCurator creates a curator. An unrecognized mode falls back to lazy.
func NewCurator(mode RefineMode, cfg RefineConfig) *Curator {
	if mode != RefineEager && mode != RefineLazy {
		mode = RefineLazy
	}
	return &Curator{mode: mode, cfg: cfg}
}

// Mode returns the curator's refine mode.
func (c *Curator) Mode() RefineMode {
	return c.mode
}

// Commit applies the delta and refines the playbook according to the
// curator's mode. Skipped operations are logged, not fatal. The only
// error a commit can return is a capacity violation out of refinement.
func (c *Curator) Commit(ctx context.Context, pb *Playbook, delta Delta) (*CurationResult, error) {
	logger := logging.GetLogger()

	applied := pb.Apply(delta)
	for _, skip := range applied.Skipped {
		logger.Warn(ctx, "delta op skipped: %s (%s)", skip.Op.Type, skip.Reason)
	}

	result := &CurationResult{Applied: applied}

	if c.mode == RefineEager || pb.OverCapacity() {
		refine, err := pb.Refine(c.cfg)
		result.Refined = true
		result.Refine = refine
		if len(refine.Merged) > 0 || len(refine.Swept) > 0 || len(refine.Pruned) > 0 {
			logger.Debug(ctx, "refined playbook: %d merged, %d swept, %d pruned (size %d -> %d)",
				len(refine.Merged), len(refine.Swept), len(refine.Pruned), refine.SizeBefore, refine.SizeAfter)
		}
		if err != nil {
			result.Size = pb.Size()
			return result, err
		}
	}

	result.Size = pb.Size()
	return result, nil
}

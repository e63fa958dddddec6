package ace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefinePrunesLowestScorer(t *testing.T) {
	pb := NewPlaybook(3)
	pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("Draw a diagram of the problem."),
		AddOp("Restate the goal in your own words."),
		AddOp("Guess the answer randomly."),
	}})
	pb.Apply(Delta{Ops: []DeltaOp{
		IncrementHelpfulOp(1), IncrementHelpfulOp(1),
		IncrementHelpfulOp(2), IncrementHarmfulOp(2),
		IncrementHarmfulOp(3), IncrementHarmfulOp(3),
	}})

	// A fourth bullet pushes the playbook over capacity.
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("Convert quantities to matching units.")}})
	require.True(t, pb.OverCapacity())

	result, err := pb.Refine(DefaultRefineConfig())
	require.NoError(t, err)

	// The net score minimum loses: scores were +2, 0, -2, 0.
	assert.Equal(t, []BulletID{3}, result.Pruned)
	assert.Equal(t, []BulletID{1, 2, 4}, bulletIDs(pb.Bullets()))
	assert.False(t, pb.OverCapacity())
}

func TestRefinePruneTieEvictsLeastRecentlyUsed(t *testing.T) {
	pb := NewPlaybook(2)
	pb.AdvanceEpoch()
	pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("Extract every numerical value first."),
		AddOp("Identify what the question asks for."),
	}})

	// Touch the first bullet at a later epoch so the second is stale.
	pb.AdvanceEpoch()
	pb.Apply(Delta{Ops: []DeltaOp{IncrementHelpfulOp(1), IncrementHarmfulOp(1)}})

	pb.AdvanceEpoch()
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("Work through the steps in order.")}})

	result, err := pb.Refine(DefaultRefineConfig())
	require.NoError(t, err)

	// All three score zero; B2 is the least recently used.
	assert.Equal(t, []BulletID{2}, result.Pruned)
	assert.Equal(t, []BulletID{1, 3}, bulletIDs(pb.Bullets()))
}

func TestRefinePruneTieEvictsLatestInsertion(t *testing.T) {
	pb := NewPlaybook(2)
	pb.AdvanceEpoch()
	pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("Extract every numerical value first."),
		AddOp("Identify what the question asks for."),
		AddOp("Work through the steps in order."),
	}})

	result, err := pb.Refine(DefaultRefineConfig())
	require.NoError(t, err)

	// Identical scores and recency: the newest insertion goes first.
	assert.Equal(t, []BulletID{3}, result.Pruned)
	assert.Equal(t, []BulletID{1, 2}, bulletIDs(pb.Bullets()))
}

func TestRefinePrunesRepeatedly(t *testing.T) {
	pb := NewPlaybook(2)
	pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("Draw a diagram of the problem."),
		AddOp("Restate the goal in your own words."),
		AddOp("Guess the answer randomly."),
		AddOp("Convert quantities to matching units."),
		AddOp("Verify the answer format at the end."),
	}})

	result, err := pb.Refine(DefaultRefineConfig())
	require.NoError(t, err)

	assert.Len(t, result.Pruned, 3)
	assert.Equal(t, 2, pb.Size())
}

func TestRefineSweepsChronicLowPerformers(t *testing.T) {
	pb := NewPlaybook(10)
	pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("Guess the answer randomly."),
		AddOp("Draw a diagram of the problem."),
		AddOp("Extract every numerical value first."),
	}})
	pb.Apply(Delta{Ops: []DeltaOp{
		IncrementHarmfulOp(1), IncrementHarmfulOp(1), IncrementHarmfulOp(1),
		IncrementHelpfulOp(2), IncrementHarmfulOp(2),
	}})

	cfg := RefineConfig{SimilarityThreshold: 0.7, HarmfulRatio: 0.4, MinUses: 3}
	result, err := pb.Refine(cfg)
	require.NoError(t, err)

	// B1 failed three times. B2 is under the use floor and B3 is unused,
	// so both stay.
	assert.Equal(t, []BulletID{1}, result.Swept)
	assert.Equal(t, []BulletID{2, 3}, bulletIDs(pb.Bullets()))
}

func TestRefineSweepDisabledByDefault(t *testing.T) {
	pb := NewPlaybook(10)
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("Guess the answer randomly.")}})
	pb.Apply(Delta{Ops: []DeltaOp{
		IncrementHarmfulOp(1), IncrementHarmfulOp(1), IncrementHarmfulOp(1), IncrementHarmfulOp(1),
	}})

	result, err := pb.Refine(DefaultRefineConfig())
	require.NoError(t, err)

	assert.Empty(t, result.Swept)
	assert.Equal(t, 1, pb.Size())
}

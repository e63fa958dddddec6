package ace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybookApplyAdd(t *testing.T) {
	pb := NewPlaybook(10)
	pb.AdvanceEpoch()

	result := pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("Draw a diagram first.", "diagrams"),
		AddOp("Check units.", "verification", "units"),
	}})

	require.NoError(t, result.Err())
	assert.Equal(t, []BulletID{1, 2}, result.Added)
	assert.Equal(t, 2, pb.Size())

	b, ok := pb.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Draw a diagram first.", b.Content)
	assert.Equal(t, []string{"diagrams"}, b.Tags)
	assert.Equal(t, int64(1), b.CreatedEpoch)
	assert.Equal(t, int64(1), b.LastUsedEpoch)
	assert.Equal(t, 0, b.Helpful)
	assert.Equal(t, 0, b.Harmful)
}

func TestPlaybookApplyNormalizesTags(t *testing.T) {
	pb := NewPlaybook(10)

	pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("Check units.", "Units", "verification", " units ", ""),
	}})

	b, ok := pb.Get(1)
	require.True(t, ok)
	assert.Equal(t, []string{"units", "verification"}, b.Tags)
}

func TestPlaybookApplyIncrements(t *testing.T) {
	pb := NewPlaybook(10)
	pb.AdvanceEpoch()
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("State the goal.")}})

	pb.AdvanceEpoch()
	result := pb.Apply(Delta{Ops: []DeltaOp{
		IncrementHelpfulOp(1),
		IncrementHelpfulOp(1),
		IncrementHarmfulOp(1),
	}})

	require.NoError(t, result.Err())
	assert.Equal(t, []BulletID{1, 1, 1}, result.Updated)

	b, _ := pb.Get(1)
	assert.Equal(t, 2, b.Helpful)
	assert.Equal(t, 1, b.Harmful)
	// Increments count as use and refresh recency.
	assert.Equal(t, int64(2), b.LastUsedEpoch)
	assert.Equal(t, int64(1), b.CreatedEpoch)
}

func TestPlaybookApplyRemove(t *testing.T) {
	pb := NewPlaybook(10)
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("one"), AddOp("two"), AddOp("three")}})

	result := pb.Apply(Delta{Ops: []DeltaOp{RemoveOp(2)}})

	require.NoError(t, result.Err())
	assert.Equal(t, []BulletID{2}, result.Removed)
	assert.Equal(t, 2, pb.Size())
	_, ok := pb.Get(2)
	assert.False(t, ok)

	// Insertion order of the survivors is preserved.
	bullets := pb.Bullets()
	assert.Equal(t, BulletID(1), bullets[0].ID)
	assert.Equal(t, BulletID(3), bullets[1].ID)
}

func TestPlaybookIDsNeverReused(t *testing.T) {
	pb := NewPlaybook(10)
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("one"), AddOp("two")}})
	pb.Apply(Delta{Ops: []DeltaOp{RemoveOp(2)}})

	result := pb.Apply(Delta{Ops: []DeltaOp{AddOp("three")}})
	assert.Equal(t, []BulletID{3}, result.Added)
}

func TestPlaybookApplyUnknownIDSkipped(t *testing.T) {
	pb := NewPlaybook(10)
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("keep me")}})
	before := pb.Bullets()

	result := pb.Apply(Delta{Ops: []DeltaOp{
		IncrementHelpfulOp(99),
		RemoveOp(42),
	}})

	require.Len(t, result.Skipped, 2)
	assert.Contains(t, result.Skipped[0].Reason, "B99")
	assert.Contains(t, result.Skipped[1].Reason, "B42")
	assert.Error(t, result.Err())

	// Skips leave the playbook untouched.
	assert.Equal(t, before, pb.Bullets())
}

func TestPlaybookApplyMixedValidAndUnknown(t *testing.T) {
	pb := NewPlaybook(10)
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("first")}})

	result := pb.Apply(Delta{Ops: []DeltaOp{
		IncrementHelpfulOp(1),
		IncrementHelpfulOp(7),
		AddOp("second"),
	}})

	// Valid ops landed even though one was skipped.
	assert.Equal(t, []BulletID{1}, result.Updated)
	assert.Equal(t, []BulletID{2}, result.Added)
	require.Len(t, result.Skipped, 1)
	b, _ := pb.Get(1)
	assert.Equal(t, 1, b.Helpful)
}

func TestPlaybookApplyEmptyContentSkipped(t *testing.T) {
	pb := NewPlaybook(10)

	result := pb.Apply(Delta{Ops: []DeltaOp{AddOp("   "), AddOp("real")}})

	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0].Reason, "empty content")
	assert.Equal(t, []BulletID{1}, result.Added)
	b, _ := pb.Get(1)
	assert.Equal(t, "real", b.Content)
}

func TestPlaybookApplyInOrder(t *testing.T) {
	pb := NewPlaybook(10)

	// The ADD takes effect before the increment that targets it.
	result := pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("new strategy"),
		IncrementHelpfulOp(1),
	}})

	require.NoError(t, result.Err())
	b, _ := pb.Get(1)
	assert.Equal(t, 1, b.Helpful)
}

func TestPlaybookBulletsAreCopies(t *testing.T) {
	pb := NewPlaybook(10)
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("original", "tag")}})

	bullets := pb.Bullets()
	bullets[0].Content = "mutated"
	bullets[0].Tags[0] = "mutated"

	b, _ := pb.Get(1)
	assert.Equal(t, "original", b.Content)
	assert.Equal(t, []string{"tag"}, b.Tags)
}

func TestPlaybookClone(t *testing.T) {
	pb := NewPlaybook(5)
	pb.AdvanceEpoch()
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("shared", "tag")}})

	clone := pb.Clone()
	assert.Equal(t, pb.Size(), clone.Size())
	assert.Equal(t, pb.CurrentEpoch(), clone.CurrentEpoch())

	// Diverge the clone; the original must not see it.
	clone.Apply(Delta{Ops: []DeltaOp{AddOp("clone only"), IncrementHelpfulOp(1)}})
	assert.Equal(t, 1, pb.Size())
	b, _ := pb.Get(1)
	assert.Equal(t, 0, b.Helpful)

	// Fresh ids continue from the shared counter independently.
	res := pb.Apply(Delta{Ops: []DeltaOp{AddOp("original only")}})
	assert.Equal(t, []BulletID{2}, res.Added)
}

func TestPlaybookSnapshotRoundTrip(t *testing.T) {
	pb := NewPlaybook(5)
	pb.AdvanceEpoch()
	pb.Apply(Delta{Ops: []DeltaOp{AddOp("persist me", "tag"), AddOp("and me")}})
	pb.Apply(Delta{Ops: []DeltaOp{IncrementHelpfulOp(1), RemoveOp(2)}})

	snap := pb.Snapshot()
	restored, err := NewPlaybookFromSnapshot(snap)
	require.NoError(t, err)

	assert.Equal(t, pb.Bullets(), restored.Bullets())
	assert.Equal(t, pb.CurrentEpoch(), restored.CurrentEpoch())
	assert.Equal(t, pb.MaxSize(), restored.MaxSize())

	// Retired ids stay retired after a restore.
	res := restored.Apply(Delta{Ops: []DeltaOp{AddOp("new after restore")}})
	assert.Equal(t, []BulletID{3}, res.Added)
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr bool
	}{
		{"valid", func(s *Snapshot) {}, false},
		{"zero max size", func(s *Snapshot) { s.MaxSize = 0 }, true},
		{"blank content", func(s *Snapshot) { s.Bullets[0].Content = "  " }, true},
		{"duplicate id", func(s *Snapshot) { s.Bullets[1].ID = s.Bullets[0].ID }, true},
		{"next id behind", func(s *Snapshot) { s.NextID = 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewPlaybook(5)
			pb.Apply(Delta{Ops: []DeltaOp{AddOp("one"), AddOp("two")}})
			snap := pb.Snapshot()
			tt.mutate(snap)

			err := snap.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlaybookScoreBands(t *testing.T) {
	pb := NewPlaybook(10)
	pb.Apply(Delta{Ops: []DeltaOp{
		AddOp("negative"), AddOp("neutral"), AddOp("emerging"), AddOp("established"),
	}})
	pb.Apply(Delta{Ops: []DeltaOp{
		IncrementHarmfulOp(1),
		IncrementHelpfulOp(3), IncrementHelpfulOp(3),
		IncrementHelpfulOp(4), IncrementHelpfulOp(4), IncrementHelpfulOp(4),
	}})

	bands := pb.ScoreBands()
	assert.Equal(t, 1, bands["negative"])
	assert.Equal(t, 1, bands["neutral"])
	assert.Equal(t, 1, bands["emerging"])
	assert.Equal(t, 1, bands["established"])
}

func TestBulletScoreHelpers(t *testing.T) {
	b := Bullet{Helpful: 3, Harmful: 1}
	assert.Equal(t, 2, b.Score())
	assert.Equal(t, 4, b.TotalUses())
	assert.InDelta(t, 0.75, b.SuccessRate(), 1e-9)

	unused := Bullet{}
	assert.Equal(t, 0.5, unused.SuccessRate())
}

package ace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaults(t *testing.T) {
	pb := NewPlaybook(20)

	ids, err := SeedDefaults(pb)
	require.NoError(t, err)

	assert.Equal(t, []BulletID{1, 2, 3, 4, 5}, ids)
	assert.Equal(t, len(DefaultSeedLessons), pb.Size())

	// Every seed starts with one helpful mark so early pruning does not
	// wipe the initial strategies.
	for _, b := range pb.Bullets() {
		assert.Equal(t, 1, b.Helpful, "bullet %s", b.ID)
		assert.Equal(t, 0, b.Harmful, "bullet %s", b.ID)
	}
}

func TestSeedCustomLessons(t *testing.T) {
	pb := NewPlaybook(20)
	pb.AdvanceEpoch()

	ids, err := Seed(pb, []Lesson{
		{Content: "Sketch the scenario before computing.", Tags: []string{"diagrams"}},
		{Content: "Double-check sign conventions.", Tags: []string{"signs"}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	b, ok := pb.Get(ids[0])
	require.True(t, ok)
	assert.Equal(t, "Sketch the scenario before computing.", b.Content)
	assert.Equal(t, []string{"diagrams"}, b.Tags)
	assert.Equal(t, 1, b.Helpful)
	assert.Equal(t, int64(1), b.CreatedEpoch)
}

func TestSeedEmpty(t *testing.T) {
	pb := NewPlaybook(20)

	ids, err := Seed(pb, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, pb.Size())
}

package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxscribe/voxscribe/pkg/types"
)

func TestStore_UsageNotLoadedInitially(t *testing.T) {
	s := NewStore()

	_, ok := s.Usage()
	assert.False(t, ok)

	s.SetUsage(types.Usage{RemainingMinutes: 90})
	u, ok := s.Usage()
	require.True(t, ok)
	assert.Equal(t, float64(90), u.RemainingMinutes)
}

func TestStore_PrependKeepsMostRecentFirst(t *testing.T) {
	s := NewStore()
	s.Replace([]types.TranscriptionJob{{ID: "old-1"}, {ID: "old-2"}})

	s.Prepend(types.TranscriptionJob{ID: "new"})

	first, ok := s.First()
	require.True(t, ok)
	assert.Equal(t, "new", first.ID)
	assert.Equal(t, 3, s.Len())
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	s.Replace([]types.TranscriptionJob{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))

	ids := []string{}
	for _, j := range s.Jobs() {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestStore_JobsReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Replace([]types.TranscriptionJob{{ID: "a"}})

	jobs := s.Jobs()
	jobs[0].ID = "mutated"

	first, _ := s.First()
	assert.Equal(t, "a", first.ID)
}

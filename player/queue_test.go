package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeTracks() []Track {
	return []Track{{ID: 1, Title: "One"}, {ID: 2, Title: "Two"}, {ID: 3, Title: "Three"}}
}

func TestNewQueue(t *testing.T) {
	q := NewQueue()
	assert.Nil(t, q.Current)
	assert.False(t, q.Playing)
	assert.Equal(t, 75, q.Volume)
	assert.Equal(t, 0, q.Progress)
	assert.Empty(t, q.Tracks)
	assert.False(t, q.HasNext())
	assert.False(t, q.HasPrevious())
}

func TestQueue_PlayAndToggle(t *testing.T) {
	q := NewQueue()
	q.Play(Track{ID: 9, Title: "Nine"})

	require.NotNil(t, q.Current)
	assert.Equal(t, int64(9), q.Current.ID)
	assert.True(t, q.Playing)

	q.Toggle()
	assert.False(t, q.Playing)
	q.Toggle()
	assert.True(t, q.Playing)
}

func TestQueue_Clamping(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0}, {0, 0}, {42, 42}, {100, 100}, {150, 100},
	}

	for _, tt := range tests {
		q := NewQueue()
		q.SetVolume(tt.in)
		assert.Equal(t, tt.want, q.Volume, "volume %d", tt.in)
		q.SetProgress(tt.in)
		assert.Equal(t, tt.want, q.Progress, "progress %d", tt.in)
	}
}

func TestQueue_NextPrevious(t *testing.T) {
	q := NewQueue()
	q.SetTracks(threeTracks())
	q.Play(q.Tracks[0])

	assert.True(t, q.HasNext())
	assert.False(t, q.HasPrevious())
	assert.False(t, q.Previous())
	assert.Equal(t, int64(1), q.Current.ID)

	assert.True(t, q.Next())
	assert.Equal(t, int64(2), q.Current.ID)
	assert.True(t, q.HasNext())
	assert.True(t, q.HasPrevious())

	assert.True(t, q.Next())
	assert.Equal(t, int64(3), q.Current.ID)
	assert.False(t, q.HasNext())
	assert.False(t, q.Next())
	assert.Equal(t, int64(3), q.Current.ID)

	assert.True(t, q.Previous())
	assert.Equal(t, int64(2), q.Current.ID)
}

func TestQueue_NextWithoutCurrentStartsAtFirst(t *testing.T) {
	q := NewQueue()
	q.SetTracks(threeTracks())

	assert.False(t, q.HasNext())
	assert.True(t, q.Next())
	require.NotNil(t, q.Current)
	assert.Equal(t, int64(1), q.Current.ID)
	assert.True(t, q.Playing)
}

func TestQueue_CurrentOutsideQueue(t *testing.T) {
	q := NewQueue()
	q.SetTracks(threeTracks())
	q.Play(Track{ID: 99})

	assert.True(t, q.HasNext())
	assert.False(t, q.HasPrevious())
	assert.False(t, q.Previous())
	assert.Equal(t, int64(99), q.Current.ID)
}

func TestQueue_SetTracksCopies(t *testing.T) {
	tracks := threeTracks()
	q := NewQueue()
	q.SetTracks(tracks)
	tracks[0].Title = "changed"

	assert.Equal(t, "One", q.Tracks[0].Title)
}

func TestQueue_PlayCopiesTrack(t *testing.T) {
	q := NewQueue()
	q.SetTracks(threeTracks())
	q.Play(q.Tracks[0])
	q.Current.Title = "renamed"

	assert.Equal(t, "One", q.Tracks[0].Title)
}

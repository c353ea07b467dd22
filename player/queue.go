// Package player models a playback queue of songs and follows timed lyrics
// against a playback position.
package player

import "songbook-api-go/lyrics"

// DefaultVolume is the volume of a fresh queue.
const DefaultVolume = 75

// Track is a queue entry.
type Track struct {
	ID     int64           `json:"id"`
	Title  string          `json:"title"`
	Lyrics *lyrics.Payload `json:"lyrics,omitempty"`
}

// Queue is the playback state. The zero value is not ready for use; call
// NewQueue.
type Queue struct {
	Current  *Track  `json:"current"`
	Playing  bool    `json:"playing"`
	Volume   int     `json:"volume"`
	Progress int     `json:"progress"`
	Tracks   []Track `json:"tracks"`
}

// NewQueue returns a stopped, empty queue at DefaultVolume.
func NewQueue() *Queue {
	return &Queue{Volume: DefaultVolume, Tracks: []Track{}}
}

// Play makes t the current track and starts playback.
func (q *Queue) Play(t Track) {
	q.Current = &t
	q.Playing = true
}

// Toggle flips between playing and paused.
func (q *Queue) Toggle() {
	q.Playing = !q.Playing
}

// SetVolume sets the volume, clamped to 0..100.
func (q *Queue) SetVolume(v int) {
	q.Volume = clamp(v)
}

// SetProgress sets the progress percentage, clamped to 0..100.
func (q *Queue) SetProgress(p int) {
	q.Progress = clamp(p)
}

// SetTracks replaces the queued tracks. The current track is kept even if it
// is not part of the new list.
func (q *Queue) SetTracks(tracks []Track) {
	q.Tracks = append([]Track(nil), tracks...)
}

// index returns the position of the current track in Tracks, or -1.
func (q *Queue) index() int {
	if q.Current == nil {
		return -1
	}
	for i, t := range q.Tracks {
		if t.ID == q.Current.ID {
			return i
		}
	}
	return -1
}

// Next plays the track after the current one. With no current track (or one
// outside the queue) it starts from the first track. At the end it does
// nothing.
func (q *Queue) Next() bool {
	i := q.index()
	if i+1 >= len(q.Tracks) {
		return false
	}
	q.Play(q.Tracks[i+1])
	return true
}

// Previous plays the track before the current one. At the start it does
// nothing.
func (q *Queue) Previous() bool {
	i := q.index()
	if i <= 0 {
		return false
	}
	q.Play(q.Tracks[i-1])
	return true
}

// HasNext reports whether Next would move forward from the current track.
func (q *Queue) HasNext() bool {
	if q.Current == nil {
		return false
	}
	return q.index() < len(q.Tracks)-1
}

// HasPrevious reports whether Previous would move back.
func (q *Queue) HasPrevious() bool {
	if q.Current == nil {
		return false
	}
	return q.index() > 0
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

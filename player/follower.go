package player

import "songbook-api-go/lyrics"

// Follower tracks which line of a payload is active as the position moves.
type Follower struct {
	payload lyrics.Payload
	current int
}

// NewFollower starts with no active line.
func NewFollower(p lyrics.Payload) *Follower {
	return &Follower{payload: p, current: -1}
}

// Current returns the index of the active line, or -1.
func (f *Follower) Current() int {
	return f.current
}

// Advance moves to positionMs. It returns the active line index and whether
// it differs from the previous call. Seeking backwards is allowed.
func (f *Follower) Advance(positionMs int) (int, bool) {
	idx := lyrics.ActiveLine(f.payload, positionMs)
	changed := idx != f.current
	f.current = idx
	return idx, changed
}

// Line returns the active line, if any.
func (f *Follower) Line() (lyrics.Line, bool) {
	if f.current < 0 || f.current >= len(f.payload.Lines) {
		return lyrics.Line{}, false
	}
	return f.payload.Lines[f.current], true
}

// Done reports whether positionMs is past the end of the payload.
func (f *Follower) Done(positionMs int) bool {
	if !f.payload.IsTimed() {
		return true
	}
	return positionMs >= f.payload.Duration()
}

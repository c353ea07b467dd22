package player

import (
	"testing"

	"songbook-api-go/lyrics"

	"github.com/stretchr/testify/assert"
)

func TestFollower_LRC(t *testing.T) {
	p := lyrics.ParseLRC("[00:01.00]one\n[00:03.00]two\n[00:05.00]three")
	f := NewFollower(p)

	idx, changed := f.Advance(0)
	assert.Equal(t, -1, idx)
	assert.False(t, changed)
	_, ok := f.Line()
	assert.False(t, ok)

	idx, changed = f.Advance(1000)
	assert.Equal(t, 0, idx)
	assert.True(t, changed)

	idx, changed = f.Advance(2000)
	assert.Equal(t, 0, idx)
	assert.False(t, changed)

	idx, changed = f.Advance(3500)
	assert.Equal(t, 1, idx)
	assert.True(t, changed)
	line, ok := f.Line()
	assert.True(t, ok)
	assert.Equal(t, "two", line.Text)

	idx, _ = f.Advance(60000)
	assert.Equal(t, 2, idx)
	assert.True(t, f.Done(60000))
	assert.False(t, f.Done(4000))

	idx, changed = f.Advance(1500)
	assert.Equal(t, 0, idx)
	assert.True(t, changed)
	assert.Equal(t, 0, f.Current())
}

func TestFollower_SRTGap(t *testing.T) {
	p := lyrics.ParseSRT("1\n00:00:01,000 --> 00:00:02,000\nA\n\n2\n00:00:04,000 --> 00:00:05,000\nB")
	f := NewFollower(p)

	idx, _ := f.Advance(1500)
	assert.Equal(t, 0, idx)

	idx, changed := f.Advance(3000)
	assert.Equal(t, -1, idx)
	assert.True(t, changed)

	idx, _ = f.Advance(4200)
	assert.Equal(t, 1, idx)
	assert.True(t, f.Done(5000))
}

func TestFollower_Plain(t *testing.T) {
	f := NewFollower(lyrics.ParsePlain("a\nb"))

	idx, changed := f.Advance(1000)
	assert.Equal(t, -1, idx)
	assert.False(t, changed)
	assert.True(t, f.Done(0))
}

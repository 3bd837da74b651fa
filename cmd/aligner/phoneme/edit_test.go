package phoneme

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func wordTrack(segs ...*Segment) *Track {
	t := NewTrack(1, "en")
	t.Phonemes = segs
	return t
}

func TestAutoCloseGapsFillsInactivePlaceholder(t *testing.T) {
	// one word: active "a" [0,100], inactive gap placeholder, active "b" [150,200]
	a := NewSegment("a", true, 0, 100, 1.0, true)
	gap := NewSegment("_", false, 100, 150, 0.0, false)
	b := NewSegment("b", false, 150, 200, 1.0, true)

	track := wordTrack(a, gap, b)

	n := AutoCloseGaps(1000, track)
	require.Equal(t, 1, n)
	require.True(t, gap.Active)

	// no overlap, no gap remaining between any consecutive segments
	require.LessOrEqual(t, a.End, gap.Start)
	require.LessOrEqual(t, gap.End, b.Start)
}

func TestAutoCloseGapsIdempotent(t *testing.T) {
	a := NewSegment("a", true, 0, 100, 1.0, true)
	gap := NewSegment("_", false, 100, 150, 0.0, false)
	b := NewSegment("b", false, 150, 200, 1.0, true)
	track := wordTrack(a, gap, b)

	first := AutoCloseGaps(1000, track)
	require.Equal(t, 1, first)

	second := AutoCloseGaps(1000, track)
	require.Equal(t, 0, second, "no inactive '_' placeholders remain after the first pass")
}

func TestAutoCloseGapsNoPlaceholders(t *testing.T) {
	a := NewSegment("a", true, 0, 100, 1.0, true)
	b := NewSegment("b", false, 100, 200, 1.0, true)
	track := wordTrack(a, b)

	require.Equal(t, 0, AutoCloseGaps(1000, track))
}

func TestClampMs(t *testing.T) {
	require.Equal(t, 0, clampMs(-10, 5, 0, 1000))
	require.Equal(t, 1000, clampMs(5000, 5, 0, 1000))
	require.Equal(t, 10, clampMs(11, 5, 0, 1000))
	require.Equal(t, 15, clampMs(13, 5, 0, 1000))
}

// TestActivationRoundTrip is a generative check of an activate-then-
// deactivate cycle on an inactive segment between two active neighbours:
// after activation the segment is active, non-negative and not inverted;
// after deactivation it is inactive and collapsed to a single point.
func TestActivationRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := rapid.IntRange(0, 900).Draw(rt, "start")
		dur := rapid.IntRange(0, 100).Draw(rt, "dur")
		end := start + dur

		seg := NewSegment("_", false, start, end, 0, false)
		before := NewSegment("a", true, 0, start, 1.0, true)
		after := NewSegment("b", false, end, end+200, 1.0, true)
		phonemes := []*Segment{before, seg, after}

		UpdateTimingsOnActivation(2000, phonemes, 1, true)
		require.True(rt, seg.Active)
		require.LessOrEqual(rt, seg.Start, seg.End)
		require.GreaterOrEqual(rt, seg.Start, 0)

		UpdateTimingsOnActivation(2000, phonemes, 1, false)
		require.False(rt, seg.Active)
		require.Equal(rt, seg.Start, seg.End, "a deactivated segment always collapses to a single point")
		require.GreaterOrEqual(rt, seg.Start, 0)
	})
}

func TestWords(t *testing.T) {
	a := NewSegment("a", true, 0, 10, 1, true)
	b := NewSegment("b", false, 10, 20, 1, true)
	c := NewSegment("c", true, 20, 30, 1, true)

	track := wordTrack(a, b, c)
	words := track.Words()

	require.Len(t, words, 2)
	require.Equal(t, []*Segment{a, b}, words[0])
	require.Equal(t, []*Segment{c}, words[1])
}

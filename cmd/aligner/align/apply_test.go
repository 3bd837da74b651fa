package align

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyAlignmentMergeLeft(t *testing.T) {
	// Two audio phonemes merge into a single output segment covering both.
	audio := []AudioPhoneme{
		{Phoneme: "a", Start: 0, End: 50},
		{Phoneme: "a", Start: 50, End: 100},
	}
	text := []TextPhoneme{{Phoneme: "a", WordStart: true, Weight: 1}}
	steps := []step{
		{Op: OpMatch, Score: 2.0},
		{Op: OpMergeLeft, Score: 1.0},
	}

	segs, anyGap, minScore, traces, err := applyAlignment(audio, text, steps)
	require.NoError(t, err)
	require.False(t, anyGap)
	require.Len(t, segs, 1)
	require.Len(t, traces, 1)

	seg := segs[0]
	require.Equal(t, 0, seg.Start)
	require.Equal(t, 100, seg.End)
	require.InDelta(t, 1.5, seg.Score, 1e-9)
	require.InDelta(t, 1.5, minScore, 1e-9)
}

func TestApplyAlignmentSplitLeft(t *testing.T) {
	// One audio phoneme splits its time slot between two text phonemes.
	audio := []AudioPhoneme{{Phoneme: "a", Start: 0, End: 100}}
	text := []TextPhoneme{
		{Phoneme: "a", WordStart: true, Weight: 1},
		{Phoneme: "b", WordStart: false, Weight: 1},
	}
	steps := []step{
		{Op: OpMatch, Score: 2.0},
		{Op: OpSplitLeft, Score: 1.0},
	}

	segs, anyGap, _, _, err := applyAlignment(audio, text, steps)
	require.NoError(t, err)
	require.False(t, anyGap)
	require.Len(t, segs, 2)

	require.Equal(t, 0, segs[0].Start)
	require.Equal(t, 50, segs[0].End)
	require.True(t, segs[0].Active)

	require.Equal(t, 50, segs[1].Start)
	require.Equal(t, 100, segs[1].End)
	require.True(t, segs[1].Active)
	require.Equal(t, "b", segs[1].Phoneme)
}

func TestApplyAlignmentDeleteDropsSilence(t *testing.T) {
	audio := []AudioPhoneme{{Phoneme: "SIL", Start: 0, End: 50}}
	steps := []step{{Op: OpDelete, Score: -1.0}}

	segs, anyGap, _, traces, err := applyAlignment(audio, nil, steps)
	require.NoError(t, err)
	require.Empty(t, segs)
	require.Empty(t, traces)
	require.False(t, anyGap)
}

func TestApplyAlignmentDeleteEmitsGapForRealPhoneme(t *testing.T) {
	audio := []AudioPhoneme{{Phoneme: "x", Start: 0, End: 50}}
	steps := []step{{Op: OpDelete, Score: -1.0}}

	segs, anyGap, _, _, err := applyAlignment(audio, nil, steps)
	require.NoError(t, err)
	require.True(t, anyGap)
	require.Len(t, segs, 1)
	require.False(t, segs[0].Active)
	require.Equal(t, "_", segs[0].Phoneme)
}

func TestApplyAlignmentInsertAnchorsToPriorEnd(t *testing.T) {
	audio := []AudioPhoneme{{Phoneme: "a", Start: 0, End: 50}}
	text := []TextPhoneme{
		{Phoneme: "a", WordStart: true, Weight: 1},
		{Phoneme: "b", WordStart: false, Weight: 1},
	}
	steps := []step{
		{Op: OpMatch, Score: 2.0},
		{Op: OpInsert, Score: -1.0},
	}

	segs, anyGap, _, _, err := applyAlignment(audio, text, steps)
	require.NoError(t, err)
	require.True(t, anyGap)
	require.Len(t, segs, 2)
	require.False(t, segs[1].Active)
	require.Equal(t, segs[0].End, segs[1].Start)
	require.Equal(t, segs[1].Start, segs[1].End)
}

func TestApplyAlignmentUnknownOpErrors(t *testing.T) {
	_, _, _, _, err := applyAlignment(nil, nil, []step{{Op: Op(99)}})
	require.Error(t, err)
}

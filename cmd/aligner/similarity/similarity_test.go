package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMatrix() *Matrix {
	m := New([]string{"a", "b", "SIL"}, []string{"a", "b"})
	m.SetScore("a", "a", 1.0)
	m.SetScore("b", "b", 1.0)
	m.SetScore("a", "b", 0.3)
	m.SetScore("b", "a", 0.3)
	return m
}

func TestGetScore(t *testing.T) {
	m := newTestMatrix()

	t.Run("known pair", func(t *testing.T) {
		require.Equal(t, 1.0, m.GetScore("a", "a"))
	})

	t.Run("special audio token always scores minimum", func(t *testing.T) {
		require.Equal(t, ScoreMin, m.GetScore("SIL", "a"))
		require.Equal(t, ScoreMin, m.GetScore("sil", "a"))
		require.Equal(t, ScoreMin, m.GetScore("+NSN+", "b"))
	})

	t.Run("unknown audio falls back to gap penalty", func(t *testing.T) {
		require.Equal(t, GapPenalty, m.GetScore("zzz", "a"))
	})

	t.Run("unknown text falls back to gap penalty", func(t *testing.T) {
		require.Equal(t, GapPenalty, m.GetScore("a", "zzz"))
	})
}

func TestGetDeleteScore(t *testing.T) {
	m := newTestMatrix()

	require.Equal(t, ScoreMax+0.01, m.GetDeleteScore("SIL"))
	require.Equal(t, ScoreMax+0.01, m.GetDeleteScore("sil"))
	require.Equal(t, GapPenalty, m.GetDeleteScore("a"))
}

func TestGetInsertScore(t *testing.T) {
	m := newTestMatrix()
	require.Equal(t, GapPenalty, m.GetInsertScore("a"))
}

func TestMergeAndSplitScores(t *testing.T) {
	m := newTestMatrix()

	require.InDelta(t, m.GetScore("a", "a")-0.01, m.GetMergeLeftScore("a", "a"), 1e-9)
	require.InDelta(t, m.GetScore("a", "a")-0.01, m.GetSplitLeftScore("a", "a"), 1e-9)

	wantOverGap := GapPenalty*1.5 + 0.5*m.GetScore("a", "a")
	require.InDelta(t, wantOverGap, m.GetMergeLeftScoreOverGap("a", "a"), 1e-9)
	require.InDelta(t, wantOverGap, m.GetGapWithinWordScore("a", "a"), 1e-9)
	require.InDelta(t, wantOverGap, m.GetSplitLeftGapWithinWordScore("a", "a"), 1e-9)
}

func TestSortedScores(t *testing.T) {
	m := New([]string{"a", "b", "c"}, []string{"x"})
	m.SetScore("a", "x", 0.05) // below threshold, excluded
	m.SetScore("b", "x", 0.9)
	m.SetScore("c", "x", 0.4)

	out := m.SortedScores()
	require.Len(t, out["x"], 2)
	require.Equal(t, "b", out["x"][0].Audio)
	require.Equal(t, "c", out["x"][1].Audio)
}

func TestGrammarAlternativesSingleCandidate(t *testing.T) {
	m := New([]string{"a", "b"}, []string{"x"})
	m.SetScore("a", "x", 0.9)

	out := m.GrammarAlternatives()
	require.Equal(t, "a", out["x"])
}

func TestGrammarAlternativesMultipleCandidatesParenthesised(t *testing.T) {
	m := New([]string{"a", "b", "c"}, []string{"x"})
	m.SetScore("b", "x", 0.9)
	m.SetScore("c", "x", 0.4)

	out := m.GrammarAlternatives()
	require.Equal(t, "(b|c)", out["x"])
}

func TestGrammarAlternativesOmitsEmpty(t *testing.T) {
	m := New([]string{"a"}, []string{"x"})
	out := m.GrammarAlternatives()
	require.NotContains(t, out, "x")
}

func TestDebugString(t *testing.T) {
	m := newTestMatrix()
	out := m.DebugString()
	require.True(t, strings.HasPrefix(out, `[T\A]`))
	require.Contains(t, out, "a")
	require.Contains(t, out, "b")
}

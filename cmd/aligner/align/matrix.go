package align

import (
	"fmt"

	"github.com/voicelab/phonealign/cmd/aligner/matrix"
	"github.com/voicelab/phonealign/cmd/aligner/similarity"
)

// precedingGaps reports, for every audio index i, whether a silence gap
// precedes it (audio[i].Start > audio[i-1].End). The leading gap before
// index 0 is never set.
func precedingGaps(audio []AudioPhoneme) []bool {
	gaps := make([]bool, len(audio))
	for i := 1; i < len(audio); i++ {
		gaps[i] = audio[i].Start > audio[i-1].End
	}
	return gaps
}

// buildScoreMatrix fills the (m+1)x(n+1) DP grid, x addressing the audio
// axis and y the text axis, matching matrix.Matrix2D's (x, y) convention.
func buildScoreMatrix(audio []AudioPhoneme, text []TextPhoneme, sim *similarity.Matrix) (*matrix.Matrix2D[ScoreCell], error) {
	m := len(audio)
	n := len(text)

	grid, err := matrix.New[ScoreCell](m+1, n+1)
	if err != nil {
		return nil, err
	}

	grid.Set(0, 0, ScoreCell{Total: 0})

	for a := 1; a <= m; a++ {
		prev := grid.At(a-1, 0)
		s := sim.GetDeleteScore(audio[a-1].Phoneme)
		grid.Set(a, 0, ScoreCell{Total: prev.Total + s, Score: s, Op: OpDelete})
	}

	for t := 1; t <= n; t++ {
		prev := grid.At(0, t-1)
		s := sim.GetInsertScore(text[t-1].Phoneme)
		grid.Set(0, t, ScoreCell{Total: prev.Total + s, Score: s, Op: OpInsert})
	}

	precedingGap := precedingGaps(audio)

	for a := 1; a <= m; a++ {
		for t := 1; t <= n; t++ {
			i := a - 1
			j := t - 1

			flagPrecedingGap := precedingGap[i]
			flagAudioNextGap := false
			if i+1 < len(precedingGap) {
				flagAudioNextGap = precedingGap[i+1]
			}
			flagNextTextWordStart := true
			if j+1 < len(text) {
				flagNextTextWordStart = text[j+1].WordStart
			}
			flagTextSinglePhonemeWord := text[j].WordStart && flagNextTextWordStart
			flagTextWordMultiStart := text[j].WordStart && !flagNextTextWordStart
			flagAudioGapWithinWord := flagPrecedingGap && !text[j].WordStart
			flagAudioEndVsTextStart := flagAudioNextGap && flagTextWordMultiStart

			// 1. Match
			prevMatch := grid.At(a-1, t-1)
			var matchScore float64
			if !flagTextSinglePhonemeWord && (flagAudioGapWithinWord || flagAudioEndVsTextStart) {
				matchScore = sim.GetGapWithinWordScore(audio[i].Phoneme, text[j].Phoneme)
			} else {
				matchScore = sim.GetScore(audio[i].Phoneme, text[j].Phoneme)
			}
			best := ScoreCell{Total: prevMatch.Total + matchScore, Score: matchScore, Op: OpMatch}

			// 2. Delete
			prevDelete := grid.At(a-1, t)
			delScore := sim.GetDeleteScore(audio[i].Phoneme)
			if cand := (ScoreCell{Total: prevDelete.Total + delScore, Score: delScore, Op: OpDelete}); cand.Total > best.Total {
				best = cand
			}

			// 3. MergeLeft, only when the cell it extends from was itself a Match.
			if prevDelete.Op == OpMatch {
				var mergeScore float64
				if flagPrecedingGap {
					mergeScore = sim.GetMergeLeftScoreOverGap(audio[i].Phoneme, text[j].Phoneme)
				} else {
					mergeScore = sim.GetMergeLeftScore(audio[i].Phoneme, text[j].Phoneme)
				}
				if cand := (ScoreCell{Total: prevDelete.Total + mergeScore, Score: mergeScore, Op: OpMergeLeft}); cand.Total > best.Total {
					best = cand
				}
			}

			// 4. Insert
			prevInsert := grid.At(a, t-1)
			insertScore := sim.GetInsertScore(text[j].Phoneme)
			if cand := (ScoreCell{Total: prevInsert.Total + insertScore, Score: insertScore, Op: OpInsert}); cand.Total > best.Total {
				best = cand
			}

			// 5. SplitLeft, only when the cell it extends from was itself a Match.
			if prevInsert.Op == OpMatch {
				var splitScore float64
				if !flagNextTextWordStart && flagAudioNextGap {
					splitScore = sim.GetSplitLeftGapWithinWordScore(audio[i].Phoneme, text[j].Phoneme)
				} else {
					splitScore = sim.GetSplitLeftScore(audio[i].Phoneme, text[j].Phoneme)
				}
				if cand := (ScoreCell{Total: prevInsert.Total + splitScore, Score: splitScore, Op: OpSplitLeft}); cand.Total > best.Total {
					best = cand
				}
			}

			grid.Set(a, t, best)
		}
	}

	return grid, nil
}

// step is one element of the applied (forward-ordered) operation sequence.
type step struct {
	Op    Op
	Score float64
}

// backtrace walks from (m, n) to (0, 0) following each cell's winning op,
// then reverses the collected sequence into forward order.
func backtrace(grid *matrix.Matrix2D[ScoreCell], m, n int) ([]step, error) {
	var steps []step

	a, t := m, n
	for a > 0 || t > 0 {
		cell := grid.At(a, t)
		if cell.Op == OpNone {
			return nil, fmt.Errorf("missing operation at cell (%d, %d)", a, t)
		}
		steps = append(steps, step{Op: cell.Op, Score: cell.Score})

		switch cell.Op {
		case OpMatch:
			a--
			t--
		case OpDelete, OpMergeLeft:
			a--
		case OpInsert, OpSplitLeft:
			t--
		default:
			return nil, fmt.Errorf("unexpected operation at cell (%d, %d)", a, t)
		}
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}

	return steps, nil
}

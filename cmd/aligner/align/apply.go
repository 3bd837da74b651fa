package align

import (
	"fmt"
	"math"

	"github.com/voicelab/phonealign/cmd/aligner/phoneme"
)

// applyAlignment walks the forward-ordered op sequence, emitting output
// segments per the op-effects table, and collects the aggregate outputs
// (whether a gap was ever inserted, and the minimum score seen).
func applyAlignment(audio []AudioPhoneme, text []TextPhoneme, steps []step) ([]*phoneme.Segment, bool, float64, []string, error) {
	var out []*phoneme.Segment
	var traces []string

	i, j := 0, 0
	anyGap := false
	minScore := math.Inf(1)

	track := func(score float64) {
		if score < minScore {
			minScore = score
		}
	}

	for _, s := range steps {
		switch s.Op {
		case OpMatch:
			if i >= len(audio) || j >= len(text) {
				return nil, false, 0, nil, fmt.Errorf("match step out of range (i=%d, j=%d)", i, j)
			}
			a, t := audio[i], text[j]
			seg := phoneme.NewSegment(t.Phoneme, t.WordStart, a.Start, a.End, s.Score, true)
			seg.Weight = t.Weight
			out = append(out, seg)
			traces = append(traces, fmt.Sprintf("%s ~ %s [%d - %d]", t.Phoneme, a.Phoneme, a.Start, a.End))
			track(s.Score)
			i++
			j++

		case OpDelete:
			if i >= len(audio) {
				return nil, false, 0, nil, fmt.Errorf("delete step out of range (i=%d)", i)
			}
			a := audio[i]
			if isDroppedToken(a.Phoneme) {
				i++
				continue
			}
			seg := phoneme.NewSegment("_", false, a.Start, a.End, s.Score, false)
			out = append(out, seg)
			traces = append(traces, fmt.Sprintf("(deleted) %s", a.Phoneme))
			anyGap = true
			i++

		case OpMergeLeft:
			if i >= len(audio) {
				return nil, false, 0, nil, fmt.Errorf("merge step out of range (i=%d)", i)
			}
			if len(out) == 0 {
				return nil, false, 0, nil, fmt.Errorf("mergeLeft with no prior emitted segment")
			}
			a := audio[i]
			prev := out[len(out)-1]
			prev.End = a.End
			prev.Score = (prev.Score + s.Score) / 2
			traces[len(traces)-1] += fmt.Sprintf(" + %s [merged]", a.Phoneme)
			track(prev.Score)
			i++

		case OpInsert:
			if j >= len(text) {
				return nil, false, 0, nil, fmt.Errorf("insert step out of range (j=%d)", j)
			}
			t := text[j]
			start := 0
			if len(out) > 0 {
				start = out[len(out)-1].End
			}
			seg := phoneme.NewSegment(t.Phoneme, t.WordStart, start, start, s.Score, false)
			seg.Weight = t.Weight
			out = append(out, seg)
			traces = append(traces, fmt.Sprintf("(inserted) %s", t.Phoneme))
			anyGap = true
			track(s.Score)
			j++

		case OpSplitLeft:
			if i == 0 || i > len(audio) || j >= len(text) {
				return nil, false, 0, nil, fmt.Errorf("splitLeft step out of range (i=%d, j=%d)", i, j)
			}
			if len(out) == 0 {
				return nil, false, 0, nil, fmt.Errorf("splitLeft with no prior emitted segment")
			}
			// SplitLeft shares the audio slot of the preceding Match, which
			// has already advanced i past it.
			a, t := audio[i-1], text[j]
			prev := out[len(out)-1]
			half := a.Start + (a.End-a.Start)/2
			prev.End = half

			seg := phoneme.NewSegment(t.Phoneme, t.WordStart, half, a.End, s.Score, true)
			seg.Weight = t.Weight
			out = append(out, seg)
			traces = append(traces, fmt.Sprintf("%s ~ %s [split %d - %d]", t.Phoneme, a.Phoneme, half, a.End))
			track(s.Score)
			j++

		default:
			return nil, false, 0, nil, fmt.Errorf("unknown op %v in applied sequence", s.Op)
		}
	}

	if math.IsInf(minScore, 1) {
		minScore = 0
	}

	return out, anyGap, minScore, traces, nil
}

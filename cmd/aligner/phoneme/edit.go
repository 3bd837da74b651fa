package phoneme

import "math"

// AutoCloseGaps converts every inactive gap-placeholder segment (phoneme
// "_", inactive) in the track into an active one, re-timing it and its
// neighbours via UpdateTimingsOnActivation so that no gap or overlap
// remains. maxPositionMs bounds how far a segment's end may be pushed
// (typically the audio clip's total duration). Returns the number of
// segments flipped.
func AutoCloseGaps(maxPositionMs int, track *Track) int {
	var flipped []int

	for i, seg := range track.Phonemes {
		if !seg.Active && seg.Phoneme == "_" {
			seg.Active = true
			flipped = append(flipped, i)
		}
	}

	for _, slot := range flipped {
		UpdateTimingsOnActivation(maxPositionMs, track.Phonemes, slot, true)
	}

	return len(flipped)
}

// UpdateTimingsOnActivation toggles phonemes[slot]'s activity and re-times
// it and the neighbouring segments so that the "no gaps within a word" and
// "no overlapping segments" invariants hold. The nearest active-or-word-
// start predecessor and nearest active successor (stopping at the next
// word boundary) anchor the redistribution.
func UpdateTimingsOnActivation(maxPositionMs int, phonemes []*Segment, slot int, activated bool) {
	segment := phonemes[slot]
	segment.Active = activated

	predIdx, predActive := findPredecessor(phonemes, slot)
	succIdx, succActive := findSuccessor(phonemes, slot)

	if segment.WordStart {
		predIdx = -1
	}

	if activated {
		activateWithNeighbours(maxPositionMs, phonemes, slot, predIdx, succIdx)
	} else {
		deactivateWithNeighbours(phonemes, slot, predIdx, predActive, succIdx, succActive)
	}
}

func findPredecessor(phonemes []*Segment, slot int) (idx int, active bool) {
	for i := slot - 1; i >= 0; i-- {
		if phonemes[i].Active || phonemes[i].WordStart {
			return i, phonemes[i].Active
		}
	}
	return -1, false
}

func findSuccessor(phonemes []*Segment, slot int) (idx int, active bool) {
	idx = -1
	for i := slot + 1; i < len(phonemes); i++ {
		if phonemes[i].WordStart {
			break
		}
		idx = i
		active = phonemes[i].Active
		if phonemes[i].Active {
			break
		}
	}
	return idx, active
}

func activateWithNeighbours(maxPositionMs int, phonemes []*Segment, slot, predIdx, succIdx int) {
	segment := phonemes[slot]

	duration := segment.End - segment.Start
	if duration < 0 {
		duration = 0
	}
	segmentMid := float64(segment.Start) + float64(duration)*0.5
	durF := math.Max(50, float64(duration))

	start := clampMs(segmentMid-durF*0.5, 5.0, 0, segment.End)
	end := clampMs(segmentMid+durF*0.5, 5.0, start, maxPositionMs)

	if predIdx != -1 {
		for i := predIdx; i < slot; i++ {
			p := phonemes[i]
			if p.Active {
				p.End = clampMs(float64(p.Start)+float64(p.End-p.Start)*0.75, 5.0, p.Start, p.End)
			} else {
				p.Start = start
				p.End = start
			}
			start = p.End
		}
	}

	if succIdx != -1 {
		for i := succIdx; i >= slot+1; i-- {
			s := phonemes[i]
			if s.Active {
				s.Start = clampMs(float64(s.Start)+float64(s.End-s.Start)/3.0, 5.0, s.Start, s.End)
			} else {
				s.Start = end
				s.End = end
			}
			end = s.Start
		}
	}

	segment.Start = start
	segment.End = end
}

func deactivateWithNeighbours(phonemes []*Segment, slot, predIdx int, predActive bool, succIdx int, succActive bool) {
	segment := phonemes[slot]

	activePred := predIdx != -1 && predActive
	activeSucc := succIdx != -1 && succActive

	duration := segment.End - segment.Start
	if duration < 0 {
		duration = 0
	}
	segmentMid := segment.Start + duration/2

	var newPos int
	switch {
	case activePred && activeSucc:
		newPos = segmentMid
	case activePred && !activeSucc:
		newPos = segment.End
	case !activePred && activeSucc:
		newPos = segment.Start
	default:
		newPos = segmentMid
	}

	if predIdx != -1 {
		for i := predIdx; i < slot; i++ {
			p := phonemes[i]
			if !p.Active {
				p.Start = newPos
			}
			p.End = newPos
		}
	}

	segment.Start = newPos
	segment.End = newPos

	if succIdx != -1 {
		for i := slot + 1; i <= succIdx; i++ {
			s := phonemes[i]
			if !s.Active {
				s.End = newPos
			}
			s.Start = newPos
		}
	}
}

// clampMs rounds t to the nearest multiple of granularity milliseconds,
// then clamps into [lo, hi].
func clampMs(t, granularity float64, lo, hi int) int {
	x := math.Round(t/granularity) * granularity
	if x < float64(lo) {
		return lo
	}
	if x > float64(hi) {
		return hi
	}
	return int(x)
}

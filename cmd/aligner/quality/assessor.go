// Package quality implements the pass that inspects a phoneme track for
// timing and confidence problems and assigns it an overall Quality tag.
package quality

import "github.com/voicelab/phonealign/cmd/aligner/phoneme"

const (
	minDurationMs       = 15
	maxDurationMs       = 500
	lowScoreThreshold    = 0.15
	lowScoreFractionWarn = 0.20
)

// severity orders Quality tags from best to worst so "take the strictest
// observed warning" can be expressed as a simple max.
var severity = map[phoneme.Quality]int{
	phoneme.QualityOk:               0,
	phoneme.QualityEditedOk:         0,
	phoneme.QualityNeedsCheckWarn:   1,
	phoneme.QualityNeedsCheckError:  2,
	phoneme.QualityEditedWithErrors: 3,
	phoneme.QualityUnknown:          0,
}

func promote(current, candidate phoneme.Quality) phoneme.Quality {
	if severity[candidate] > severity[current] {
		return candidate
	}
	return current
}

// Assess runs the quality pass over track, clearing and recomputing every
// segment's Warnings, and returns the overall Quality tag it assigns to
// the track (which Assess also stores in track.Quality).
func Assess(track *phoneme.Track) phoneme.Quality {
	for _, seg := range track.Phonemes {
		seg.Warnings = nil
	}

	wasEdited := track.Version > 1
	status := phoneme.QualityOk
	if wasEdited {
		status = phoneme.QualityEditedOk
	}

	for _, word := range track.Words() {
		status = promote(status, checkGapsInWord(word))
		status = promote(status, checkInactiveInWord(word))
	}

	status = promote(status, checkDurations(track.Phonemes))
	status = promote(status, checkLowScoreFraction(track.Phonemes))

	if wasEdited && severity[status] >= severity[phoneme.QualityNeedsCheckWarn] {
		status = phoneme.QualityEditedWithErrors
	}

	track.Quality = status
	return status
}

// checkGapsInWord flags any active segment whose start follows the
// previous active segment's end within the same word.
func checkGapsInWord(word []*phoneme.Segment) phoneme.Quality {
	status := phoneme.QualityOk
	var prevActive *phoneme.Segment

	for _, seg := range word {
		if !seg.Active {
			continue
		}
		if prevActive != nil && seg.Start > prevActive.End {
			seg.Warnings = append(seg.Warnings, phoneme.Warning{Kind: phoneme.WarningGapInWord})
			status = phoneme.QualityNeedsCheckError
		}
		prevActive = seg
	}

	return status
}

// checkInactiveInWord flags words where a real (non "_") text phoneme
// ended up inactive; interior inactivity is an error, boundary inactivity
// only a warning. Position is counted by slot among real phonemes only,
// so a gap placeholder trailing the last real phoneme doesn't turn a
// boundary case into an interior one.
func checkInactiveInWord(word []*phoneme.Segment) phoneme.Quality {
	status := phoneme.QualityOk

	type inactiveSlot struct {
		seg  *phoneme.Segment
		slot int
	}

	slot := 0
	var inactive []inactiveSlot
	for _, seg := range word {
		if seg.Phoneme == "_" {
			continue
		}
		slot++
		if !seg.Active {
			inactive = append(inactive, inactiveSlot{seg, slot})
		}
	}

	if len(inactive) == 0 {
		return status
	}

	interior := false
	for _, is := range inactive {
		is.seg.Warnings = append(is.seg.Warnings, phoneme.Warning{
			Kind:  phoneme.WarningInactiveInWord,
			Value: float64(len(inactive)),
		})
		if is.slot > 1 && is.slot < slot {
			interior = true
		}
	}

	if interior {
		return phoneme.QualityNeedsCheckError
	}
	return phoneme.QualityNeedsCheckWarn
}

// checkDurations flags active segments outside [minDurationMs, maxDurationMs].
func checkDurations(segments []*phoneme.Segment) phoneme.Quality {
	status := phoneme.QualityOk
	for _, seg := range segments {
		if !seg.Active {
			continue
		}
		d := seg.Duration()
		if d < minDurationMs || d > maxDurationMs {
			seg.Warnings = append(seg.Warnings, phoneme.Warning{
				Kind:  phoneme.WarningUnusualDuration,
				Value: float64(d),
			})
			status = promote(status, phoneme.QualityNeedsCheckWarn)
		}
	}
	return status
}

// checkLowScoreFraction tags every active low-confidence segment when more
// than lowScoreFractionWarn of all active segments fall below
// lowScoreThreshold.
func checkLowScoreFraction(segments []*phoneme.Segment) phoneme.Quality {
	var active, low []*phoneme.Segment
	for _, seg := range segments {
		if !seg.Active {
			continue
		}
		active = append(active, seg)
		if seg.Score < lowScoreThreshold {
			low = append(low, seg)
		}
	}

	if len(active) == 0 || len(low) == 0 {
		return phoneme.QualityOk
	}

	fraction := float64(len(low)) / float64(len(active))
	if fraction <= lowScoreFractionWarn {
		return phoneme.QualityOk
	}

	for _, seg := range low {
		seg.Warnings = append(seg.Warnings, phoneme.Warning{
			Kind:  phoneme.WarningHighLowScoreFraction,
			Value: fraction,
			Score: seg.Score,
		})
	}

	return phoneme.QualityNeedsCheckWarn
}

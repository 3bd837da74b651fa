// Package align implements the global sequence-alignment core: it matches
// an audio phoneme hypothesis against a text phoneme sequence and produces
// a timed phoneme.Track.
package align

import (
	"fmt"
	"strings"

	"github.com/voicelab/phonealign/cmd/aligner/phoneme"
	"github.com/voicelab/phonealign/cmd/aligner/similarity"
)

// Op tags the winning alignment operation at one DP cell.
type Op int

const (
	OpNone Op = iota
	OpMatch
	OpDelete
	OpMergeLeft
	OpInsert
	OpSplitLeft
)

func (o Op) String() string {
	switch o {
	case OpMatch:
		return "Match"
	case OpDelete:
		return "Delete"
	case OpMergeLeft:
		return "MergeLeft"
	case OpInsert:
		return "Insert"
	case OpSplitLeft:
		return "SplitLeft"
	default:
		return "None"
	}
}

// ScoreCell is one cell of the DP score matrix.
type ScoreCell struct {
	Total float64
	Score float64
	Op    Op
}

// AudioPhoneme is one timed phoneme from the acoustic hypothesis.
type AudioPhoneme struct {
	Phoneme string
	Start   int
	End     int
}

// TextPhoneme is one untimed phoneme from the text hypothesis.
type TextPhoneme struct {
	Phoneme   string
	WordStart bool
	Weight    float64
}

// droppedOnDelete lists the audio tokens that are silently discarded
// (emit nothing) when a Delete operation consumes them, rather than
// becoming an inactive gap segment in the output.
var droppedOnDelete = map[string]bool{
	"sil":   true,
	"+nsn+": true,
	"+spn+": true,
	"<sil>": true,
	"</s>":  true,
}

// Result bundles the aligned track together with the aggregate outputs
// spec'd for the matcher: whether any gap was inserted (a caller-visible
// warning signal) and the minimum per-segment score encountered (a
// low-confidence signal).
type Result struct {
	Track       *phoneme.Track
	GapInserted bool
	MinScore    float64
}

// Align performs global alignment of audio against text using sim for
// scoring, returning the resulting timed track. On failure the caller
// should fall back to a default untimed track (see DefaultTrack).
func Align(id uint32, language string, audio []AudioPhoneme, text []TextPhoneme, sim *similarity.Matrix) (Result, error) {
	if len(audio) == 0 && len(text) == 0 {
		return Result{}, fmt.Errorf("align: empty audio and text sequences")
	}

	grid, err := buildScoreMatrix(audio, text, sim)
	if err != nil {
		return Result{}, fmt.Errorf("align: building score matrix: %w", err)
	}

	steps, err := backtrace(grid, len(audio), len(text))
	if err != nil {
		return Result{}, fmt.Errorf("align: backtrace: %w", err)
	}
	if len(steps) == 0 {
		return Result{}, fmt.Errorf("align: empty operation list")
	}

	segments, anyGap, minScore, traces, err := applyAlignment(audio, text, steps)
	if err != nil {
		return Result{}, fmt.Errorf("align: applying alignment: %w", err)
	}

	track := phoneme.NewTrack(id, language)
	track.Phonemes = segments
	for i, tr := range traces {
		if i < len(track.Phonemes) {
			track.Phonemes[i].Traceback = tr
		}
	}

	return Result{Track: track, GapInserted: anyGap, MinScore: minScore}, nil
}

// DefaultTrack returns the "ok, untimed" fallback track used when
// alignment fails: one inactive, zero-duration segment per text phoneme.
func DefaultTrack(id uint32, language string, text []TextPhoneme) *phoneme.Track {
	track := phoneme.NewTrack(id, language)
	for _, t := range text {
		seg := phoneme.NewSegment(t.Phoneme, t.WordStart, 0, 0, 0, false)
		seg.Weight = t.Weight
		track.Phonemes = append(track.Phonemes, seg)
	}
	return track
}

func isDroppedToken(phoneme string) bool {
	return droppedOnDelete[strings.ToLower(phoneme)]
}

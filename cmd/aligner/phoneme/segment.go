// Package phoneme holds the PhonemeSegment/PhonemeTrack data model and the
// gap-close/activation editing operations that keep it internally
// consistent after an editor toggles a segment's activity.
package phoneme

// WarningKind tags the reason a segment was flagged by the quality
// assessor.
type WarningKind string

const (
	WarningGapInWord             WarningKind = "PhonemeGapInWord"
	WarningUnusualDuration       WarningKind = "UnusualDuration"
	WarningInactiveInWord        WarningKind = "InactiveSegmentsInWord"
	WarningHighLowScoreFraction  WarningKind = "HighAmountOfLowScoreSegments"
)

// Warning is one quality-assessor finding attached to a segment. Value
// holds a duration (ms), inactive count, or percentage depending on Kind;
// Score additionally holds the offending segment's own score for
// WarningHighLowScoreFraction.
type Warning struct {
	Kind  WarningKind
	Value float64
	Score float64
}

// Segment is one timed phoneme cell, either carrying real audio timing
// (active) or acting as a zero-duration placeholder (inactive).
type Segment struct {
	Phoneme   string
	WordStart bool

	// Start and End are milliseconds from the start of the recording.
	Start int
	End   int

	// Weight is an editor-visible emphasis factor, default 1.0.
	Weight float64

	// Score is the alignment confidence assigned by the matcher.
	Score float64

	Active bool

	MatchingInfo string
	Traceback    string

	Warnings []Warning
}

// NewSegment returns a Segment with the default weight and no warnings.
func NewSegment(phoneme string, wordStart bool, start, end int, score float64, active bool) *Segment {
	return &Segment{
		Phoneme:   phoneme,
		WordStart: wordStart,
		Start:     start,
		End:       end,
		Weight:    1.0,
		Score:     score,
		Active:    active,
	}
}

// Duration returns End - Start.
func (s *Segment) Duration() int { return s.End - s.Start }

// IsGapPlaceholder reports whether this is an inactive gap-filler segment
// produced by Delete application, identified by the reserved
// phoneme label "_".
func (s *Segment) IsGapPlaceholder() bool {
	return !s.Active && s.Phoneme == "_"
}

func (s *Segment) addWarning(kind WarningKind, value float64) {
	s.Warnings = append(s.Warnings, Warning{Kind: kind, Value: value})
}

func (s *Segment) clearWarnings() {
	s.Warnings = nil
}

package phoneme

// Quality is the overall assessment of a track, recomputed after every load
// or save by the quality assessor.
type Quality string

const (
	QualityUnknown           Quality = "Unknown"
	QualityOk                Quality = "Ok"
	QualityNeedsCheckWarn    Quality = "NeedsCheckWarn"
	QualityNeedsCheckError   Quality = "NeedsCheckError"
	QualityEditedOk          Quality = "EditedOk"
	QualityEditedWithErrors  Quality = "EditedWithErrors"
)

// Track is the ordered list of segments for one voice line, plus its
// header metadata.
type Track struct {
	ID       uint32
	Version  uint16
	Language string

	InputText       string
	Translation     string
	AudioHypothesis string
	Actor           string

	Phonemes []*Segment

	Quality Quality
}

// NewTrack returns an empty track at version 1.
func NewTrack(id uint32, language string) *Track {
	return &Track{
		ID:       id,
		Version:  1,
		Language: language,
		Quality:  QualityUnknown,
	}
}

// Words splits Phonemes into word-delimited slices, using WordStart flags
// as boundaries. The first segment need not be a word start (a leading
// silence may precede the first word).
func (t *Track) Words() [][]*Segment {
	var words [][]*Segment
	var current []*Segment

	for _, seg := range t.Phonemes {
		if seg.WordStart && len(current) > 0 {
			words = append(words, current)
			current = nil
		}
		current = append(current, seg)
	}
	if len(current) > 0 {
		words = append(words, current)
	}
	return words
}

// Bump increments Version, marking the track as saved after editing.
func (t *Track) Bump() {
	t.Version++
}

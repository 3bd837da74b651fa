// Package similarity implements the phoneme similarity score table and the
// operation-specific scoring rules consumed by the sequence matcher.
package similarity

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

const (
	// ScoreMax is the highest score a pair of phonemes can be assigned.
	ScoreMax = 2.1
	// ScoreMin is the lowest score a pair of phonemes can be assigned.
	ScoreMin = -2.1
	// ScoreDefault is used for any pair without an explicit entry, and
	// doubles as the gap penalty.
	ScoreDefault = -1.0
	// GapPenalty is charged for operations that consume only one side of
	// the alignment (Delete, Insert).
	GapPenalty = ScoreDefault
	// AlternativesMinScore is the floor for a candidate to show up in
	// SortedScores.
	AlternativesMinScore = 0.1
)

// specialAudioTokens never carry real phonetic content: they mark silence
// or noise in the audio hypothesis and are scored to strongly favour being
// deleted from the alignment rather than matched to real text.
var specialAudioTokens = map[string]bool{
	"sil":   true,
	"+nsn+": true,
	"+spn+": true,
}

// Matrix holds similarity scores addressed by (audio phoneme, text
// phoneme) name, independent forward vocabularies for each side, and the
// shared gap penalty.
type Matrix struct {
	scores  *mat.Dense
	gapPen  float64
	audioID map[string]int
	textID  map[string]int
	audio   []string
	text    []string
}

// New creates an empty matrix over the given audio and text phoneme
// vocabularies, every cell preset to ScoreDefault. Both vocabularies are
// folded to lower case, matching the case-insensitive lookups in
// GetScore/SetScore.
func New(audioPhonemes, textPhonemes []string) *Matrix {
	m := &Matrix{
		gapPen:  GapPenalty,
		audioID: make(map[string]int, len(audioPhonemes)),
		textID:  make(map[string]int, len(textPhonemes)),
		audio:   make([]string, len(audioPhonemes)),
		text:    make([]string, len(textPhonemes)),
	}
	for i, a := range audioPhonemes {
		a = strings.ToLower(a)
		m.audio[i] = a
		m.audioID[a] = i
	}
	for i, tx := range textPhonemes {
		tx = strings.ToLower(tx)
		m.text[i] = tx
		m.textID[tx] = i
	}

	width := len(audioPhonemes)
	height := len(textPhonemes)
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	m.scores = mat.NewDense(height, width, nil)
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			m.scores.Set(r, c, ScoreDefault)
		}
	}
	return m
}

// SetScore assigns the score for a (audio, text) phoneme pair. Both names
// are folded to lower case before lookup against the vocabularies given
// to New.
func (m *Matrix) SetScore(audio, text string, score float64) {
	a, aok := m.audioID[strings.ToLower(audio)]
	t, tok := m.textID[strings.ToLower(text)]
	if !aok || !tok {
		return
	}
	m.scores.Set(t, a, score)
}

func isSpecialAudioToken(audio string) bool {
	return specialAudioTokens[strings.ToLower(audio)]
}

// GetScore returns the base similarity between one audio and one text
// phoneme. Both names are folded to lower case before lookup, so an
// extractor that emits upper-case phoneme codes still scores against a
// lower-case similarity table. Special audio tokens always score
// ScoreMin on a match, pulling silence/noise away from being matched to
// real text. Missing vocabulary entries log a warning on every lookup
// (repeats are not suppressed) and fall back to the gap penalty.
func (m *Matrix) GetScore(audio, text string) float64 {
	if isSpecialAudioToken(audio) {
		return ScoreMin
	}

	a, aok := m.audioID[strings.ToLower(audio)]
	t, tok := m.textID[strings.ToLower(text)]
	if !aok {
		slog.Warn("similarity: unknown audio phoneme", slog.String("phoneme", audio))
		return m.gapPen
	}
	if !tok {
		slog.Warn("similarity: unknown text phoneme", slog.String("phoneme", text))
		return m.gapPen
	}
	return m.scores.At(t, a)
}

// GetDeleteScore scores deleting one audio phoneme from the alignment.
// Silence is strongly preferred for deletion.
func (m *Matrix) GetDeleteScore(audio string) float64 {
	if strings.ToLower(audio) == "sil" {
		return ScoreMax + 0.01
	}
	return m.gapPen
}

// GetInsertScore scores inserting one text phoneme with no corresponding
// audio.
func (m *Matrix) GetInsertScore(_ string) float64 {
	return m.gapPen
}

// GetMergeLeftScore scores extending the previous output segment to also
// cover audio phoneme a, matched against text phoneme t. Slightly
// penalised relative to a plain match so a clean Match always wins ties.
func (m *Matrix) GetMergeLeftScore(audio, text string) float64 {
	return m.GetScore(audio, text) - 0.01
}

// GetMergeLeftScoreOverGap is GetMergeLeftScore but for the case where a
// silence precedes the audio phoneme being merged in; merging across a
// gap is heavily discouraged.
func (m *Matrix) GetMergeLeftScoreOverGap(audio, text string) float64 {
	return m.gapPen*1.5 + 0.5*m.GetScore(audio, text)
}

// GetGapWithinWordScore scores a Match that straddles a silence gap inside
// a single word. Same formula as GetMergeLeftScoreOverGap: the penalty is
// for matching across the gap, regardless of which operation does it.
func (m *Matrix) GetGapWithinWordScore(audio, text string) float64 {
	return m.gapPen*1.5 + 0.5*m.GetScore(audio, text)
}

// GetSplitLeftScore scores splitting the previous output segment's time
// slot to also emit text phoneme t, matched against audio phoneme a.
func (m *Matrix) GetSplitLeftScore(audio, text string) float64 {
	return m.GetScore(audio, text) - 0.01
}

// GetSplitLeftGapWithinWordScore is GetSplitLeftScore for the case where
// the split straddles an audio gap inside a word.
func (m *Matrix) GetSplitLeftGapWithinWordScore(audio, text string) float64 {
	return m.gapPen*1.5 + 0.5*m.GetScore(audio, text)
}

// ScoredAlternative is one audio phoneme candidate for a text phoneme,
// above AlternativesMinScore.
type ScoredAlternative struct {
	Audio string
	Score float64
}

// SortedScores returns, for every text phoneme, the audio phonemes whose
// score against it is at least AlternativesMinScore, sorted by descending
// score. The result feeds grammar-alternative construction for an
// extractor collaborator.
func (m *Matrix) SortedScores() map[string][]ScoredAlternative {
	out := make(map[string][]ScoredAlternative, len(m.text))

	for ti, tx := range m.text {
		var alts []ScoredAlternative
		for ai, a := range m.audio {
			score := m.scores.At(ti, ai)
			if score >= AlternativesMinScore {
				alts = append(alts, ScoredAlternative{Audio: a, Score: score})
			}
		}
		sort.SliceStable(alts, func(i, j int) bool {
			return alts[i].Score > alts[j].Score
		})
		out[tx] = alts
	}

	return out
}

// MaxPhonemeAlternatives caps how many candidate audio phonemes
// GrammarAlternatives includes per text phoneme.
const MaxPhonemeAlternatives = 25

// GrammarAlternatives renders SortedScores into extractor-ready grammar
// strings: a single candidate is rendered bare, two or more are
// parenthesised and pipe-joined, e.g. "(a|e|i)", capped at
// MaxPhonemeAlternatives per text phoneme.
func (m *Matrix) GrammarAlternatives() map[string]string {
	scores := m.SortedScores()
	out := make(map[string]string, len(scores))

	for text, alts := range scores {
		if len(alts) == 0 {
			continue
		}
		if len(alts) == 1 {
			out[text] = alts[0].Audio
			continue
		}

		n := len(alts)
		if n > MaxPhonemeAlternatives {
			n = MaxPhonemeAlternatives
		}
		names := make([]string, n)
		for i := 0; i < n; i++ {
			names[i] = alts[i].Audio
		}
		out[text] = "(" + strings.Join(names, "|") + ")"
	}

	return out
}

// DebugString renders the full score table aligned in columns, matching
// the debug dump of the original Rust implementation.
func (m *Matrix) DebugString() string {
	var b strings.Builder

	b.WriteString("[T\\A]")
	for _, a := range m.audio {
		b.WriteByte('|')
		b.WriteString(a)
	}
	b.WriteByte('\n')

	for ti, tx := range m.text {
		b.WriteString(tx)
		for ai := range m.audio {
			fmt.Fprintf(&b, "|%.2f", m.scores.At(ti, ai))
		}
		b.WriteByte('\n')
	}

	return b.String()
}

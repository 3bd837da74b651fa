package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voicelab/phonealign/cmd/aligner/phoneme"
)

const sampleTrack = `;meta[language=en]
;meta[version=1]
;meta[actor=geralt]
;meta[text=Hello, world.]
;meta[translation=h@loU w3:ld]
;meta[audio-hypothesis=HH AH L OW W ER L D]
;
;auto-matched phoneme translation with timings:
;
;phoneme|start|  end|weight| score| status     | match + pocketsphinx timing
h       |    0|   70|  1.00|  1.20| ok          | h  ~  HH [    0 -   70]
----------------------------------------------------------------
@       |   70|  130|  1.00|  0.80| ok          | @  ~  AH [   70 -  130]
;l      |  130|  130|  1.00|  0.00| ok          | l  i
`

func TestLoadTrack(t *testing.T) {
	track, err := LoadTrack(7, strings.NewReader(sampleTrack))
	require.NoError(t, err)

	require.Equal(t, "en", track.Language)
	require.EqualValues(t, 1, track.Version)
	require.Equal(t, "geralt", track.Actor)
	require.Equal(t, "Hello, world.", track.InputText)
	require.Equal(t, "h@loU w3:ld", track.Translation)
	require.Equal(t, "HH AH L OW W ER L D", track.AudioHypothesis)

	require.Len(t, track.Phonemes, 3)

	h := track.Phonemes[0]
	require.Equal(t, "h", h.Phoneme)
	require.False(t, h.WordStart)
	require.True(t, h.Active)
	require.Equal(t, 0, h.Start)
	require.Equal(t, 70, h.End)
	require.InDelta(t, 1.20, h.Score, 1e-9)

	at := track.Phonemes[1]
	require.Equal(t, "@", at.Phoneme)
	require.True(t, at.WordStart)
	require.True(t, at.Active)

	l := track.Phonemes[2]
	require.Equal(t, "l", l.Phoneme)
	require.False(t, l.Active)
	require.Equal(t, 130, l.Start)
	require.Equal(t, 130, l.End)
}

func TestLoadTrackLegacyFormat(t *testing.T) {
	legacy := `;provided source text: "hello"
;phoneme translation: "h @ l"
;audio hypothesis: "HH AH L"
;phoneme|start|end|weight|score|status
h|0|50|1.00|1.00|ok
`
	track, err := LoadTrack(1, strings.NewReader(legacy))
	require.NoError(t, err)
	require.Equal(t, "hello", track.InputText)
	require.Equal(t, "h @ l", track.Translation)
	require.Equal(t, "HH AH L", track.AudioHypothesis)
	require.Len(t, track.Phonemes, 1)
}

func TestLoadTrackUnknownMetaKeyErrors(t *testing.T) {
	_, err := LoadTrack(1, strings.NewReader(";meta[bogus=1]\n;phoneme|start|end|weight\n"))
	require.Error(t, err)
}

func TestLoadTrackMissingHeaderErrors(t *testing.T) {
	_, err := LoadTrack(1, strings.NewReader("h|0|50|1.00\n"))
	require.Error(t, err)
}

func TestSaveTrackRoundTrip(t *testing.T) {
	track := phoneme.NewTrack(1, "en")
	track.InputText = "hi"
	track.Translation = "h aI"
	track.Actor = "geralt"
	a := phoneme.NewSegment("h", true, 0, 50, 1.0, true)
	b := phoneme.NewSegment("aI", false, 50, 100, 0.9, true)
	track.Phonemes = []*phoneme.Segment{a, b}

	var buf strings.Builder
	require.NoError(t, SaveTrack(&buf, track))

	reloaded, err := LoadTrack(1, strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Equal(t, track.Language, reloaded.Language)
	require.Equal(t, track.Actor, reloaded.Actor)
	require.Len(t, reloaded.Phonemes, 2)
	require.Equal(t, "h", reloaded.Phonemes[0].Phoneme)
	require.True(t, reloaded.Phonemes[0].WordStart)
	require.Equal(t, "aI", reloaded.Phonemes[1].Phoneme)
	require.False(t, reloaded.Phonemes[1].WordStart)
}

func TestSaveTrackRoundTripIdempotent(t *testing.T) {
	track := phoneme.NewTrack(1, "en")
	a := phoneme.NewSegment("h", true, 0, 50, 1.0, true)
	track.Phonemes = []*phoneme.Segment{a}

	var first strings.Builder
	require.NoError(t, SaveTrack(&first, track))

	reloaded, err := LoadTrack(1, strings.NewReader(first.String()))
	require.NoError(t, err)

	var second strings.Builder
	require.NoError(t, SaveTrack(&second, reloaded))
	require.Equal(t, first.String(), second.String())
}

package queue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAudioFilenameWithActor(t *testing.T) {
	name := FormatAudioFilename(123, 4.5, "geralt", "Hello, world.", "wav")
	require.Equal(t, "0000000123[4.50]-GERALT-Hello_ world_.wav", name)
}

func TestFormatAudioFilenameNoActor(t *testing.T) {
	name := FormatAudioFilename(1, 1.0, "", "hi", "ogg")
	require.Equal(t, "0000000001[1.00]-hi.ogg", name)
}

func TestFormatAudioFilenameTruncatesTextHint(t *testing.T) {
	longText := strings.Repeat("a", 80)
	name := FormatAudioFilename(1, 1.0, "", longText, "wav")
	want := "0000000001[1.00]-" + strings.Repeat("a", textHintMaxLen) + ".wav"
	require.Equal(t, want, name)
}

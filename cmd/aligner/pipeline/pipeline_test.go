package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voicelab/phonealign/cmd/aligner/collab"
	"github.com/voicelab/phonealign/cmd/aligner/format"
	"github.com/voicelab/phonealign/cmd/aligner/queue"
	"github.com/voicelab/phonealign/cmd/aligner/similarity"
)

type fakeTranslator struct{ phonemes []string }

func (f fakeTranslator) Translate(context.Context, string, string) ([]string, error) {
	return f.phonemes, nil
}

type fakeExtractor struct{ phonemes []collab.TimedPhoneme }

func (f fakeExtractor) Extract(context.Context, string, []byte, map[string][]string) ([]collab.TimedPhoneme, error) {
	return f.phonemes, nil
}

type fakeLoader struct{}

func (fakeLoader) Load(context.Context, string) ([]byte, error) { return []byte("audio"), nil }

type fakeBytesLoader struct{ data []byte }

func (f fakeBytesLoader) Load(context.Context, string) ([]byte, error) { return f.data, nil }

// buildMinimalWAV constructs a PCM WAV file's bytes directly off the RIFF
// spec, so the duration it implies (numSamples/sampleRate) is known
// exactly by the test without relying on any encoder.
func buildMinimalWAV(t *testing.T, sampleRate, bitsPerSample, numChannels, numSamples int) []byte {
	t.Helper()
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := numSamples * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(16)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(1)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(numChannels)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(sampleRate)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(byteRate)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(blockAlign)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample)))
	buf.WriteString("data")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(dataSize)))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func newSimilarity() *similarity.Matrix {
	m := similarity.New([]string{"a", "d"}, []string{"a", "d"})
	m.SetScore("a", "a", 1.0)
	m.SetScore("d", "d", 1.0)
	return m
}

func newStrings(t *testing.T, id uint32, text string) *format.Strings {
	t.Helper()
	r := strings.NewReader(";meta[language=en]\nid|text|actor\n" +
		"1|" + text + "|geralt\n")
	s, err := format.LoadStrings(r, "en")
	require.NoError(t, err)
	return s
}

func TestWorkerExtractProducesTrackAndRenamesAudio(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "a.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("x"), 0o644))

	w := &Worker{
		Language:   "en",
		Strings:    newStrings(t, 1, "ad"),
		Similarity: newSimilarity(),
		Translator: fakeTranslator{phonemes: []string{"a", "d"}},
		Extractor: fakeExtractor{phonemes: []collab.TimedPhoneme{
			{Phoneme: "a", Start: 0, End: 50},
			{Phoneme: "d", Start: 50, End: 100},
		}},
		AudioLoader: fakeLoader{},
	}

	result := w.Process(context.Background(), queue.TaskData{ID: 1, LineID: 1, AudioFile: audioPath, Operation: queue.OpExtract})
	require.Empty(t, result.Err)
	require.True(t, result.Finished)
	require.FileExists(t, result.PhonemeFile)
	require.True(t, result.Renamed)
	require.FileExists(t, result.NewAudio)
}

func TestWorkerExtractReportsMissingStringsEntry(t *testing.T) {
	w := &Worker{
		Language:    "en",
		Strings:     newStrings(t, 1, "ad"),
		Similarity:  newSimilarity(),
		Translator:  collab.NullTranslator{},
		Extractor:   collab.NullExtractor{},
		AudioLoader: collab.FileAudioLoader{},
	}

	result := w.Process(context.Background(), queue.TaskData{ID: 2, LineID: 99, AudioFile: "missing.wav", Operation: queue.OpExtract})
	require.NotEmpty(t, result.Err)
}

func TestWorkerExtractReportsTranslatorFailure(t *testing.T) {
	w := &Worker{
		Language:    "en",
		Strings:     newStrings(t, 1, "ad"),
		Similarity:  newSimilarity(),
		Translator:  collab.NullTranslator{},
		Extractor:   collab.NullExtractor{},
		AudioLoader: collab.FileAudioLoader{},
	}

	result := w.Process(context.Background(), queue.TaskData{ID: 3, LineID: 1, AudioFile: "missing.wav", Operation: queue.OpExtract})
	require.Contains(t, result.Err, "translate")
}

func TestWorkerRenameUsesExistingTrack(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "a.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("x"), 0o644))
	phonemesPath := filepath.Join(dir, "a.phonemes")
	require.NoError(t, os.WriteFile(phonemesPath, []byte(
		";meta[language=en]\n;meta[version=1]\n;meta[actor=geralt]\n;meta[text=hi]\n"+
			";phoneme|start|end|weight\nh|0|50|1.00\n"), 0o644))

	w := &Worker{Language: "en"}
	result := w.Process(context.Background(), queue.TaskData{ID: 4, LineID: 7, AudioFile: audioPath, Operation: queue.OpRename})
	require.Empty(t, result.Err)
	require.True(t, result.Renamed)
	require.FileExists(t, result.NewAudio)
}

// TestWorkerRenameFirstPassDerivesDurationFromAudio covers the common
// first-contact case: a freshly dropped audio file, no paired .phonemes
// file yet. The rename pass must derive duration from the audio itself
// (not fail looking for a track that doesn't exist) and fall back to
// Waiting for a follow-up extraction pass.
func TestWorkerRenameFirstPassDerivesDurationFromAudio(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "a.wav")
	wavBytes := buildMinimalWAV(t, 8000, 8, 1, 4000) // 4000 samples @ 8kHz = 0.5s
	require.NoError(t, os.WriteFile(audioPath, wavBytes, 0o644))

	w := &Worker{
		Language:    "en",
		Strings:     newStrings(t, 1, "hi"),
		AudioLoader: fakeBytesLoader{data: wavBytes},
	}

	result := w.Process(context.Background(), queue.TaskData{ID: 5, LineID: 1, AudioFile: audioPath, Operation: queue.OpRename})
	require.Empty(t, result.Err)
	require.True(t, result.Renamed)
	require.False(t, result.Finished)
	require.Empty(t, result.PhonemeFile)
	require.FileExists(t, result.NewAudio)
	require.Equal(t, "0000000001[0.50]-GERALT-hi.wav", filepath.Base(result.NewAudio))
}

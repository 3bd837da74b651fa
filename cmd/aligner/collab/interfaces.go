// Package collab declares the collaborator contracts the core depends on
// but does not implement: translating text into a phoneme hypothesis,
// extracting phonemes with timing from audio, and loading audio samples.
// Concrete engines (eSpeak, pocketsphinx, or any replacement) are wired in
// by the process entrypoint, not by this package.
package collab

import (
	"context"
	"errors"
	"os"
)

// Translator turns input text into an untimed phoneme hypothesis.
type Translator interface {
	Translate(ctx context.Context, language, text string) (phonemes []string, err error)
}

// Extractor turns a raw audio hypothesis into a timed phoneme sequence,
// optionally constrained by a recognition grammar built from a
// similarity.Matrix's sorted alternatives.
type Extractor interface {
	Extract(ctx context.Context, language string, audio []byte, grammar map[string][]string) (phonemes []TimedPhoneme, err error)
}

// TimedPhoneme is one phoneme as reported by an Extractor, in
// milliseconds from the start of the clip.
type TimedPhoneme struct {
	Phoneme string
	Start   int
	End     int
}

// AudioLoader loads the raw sample bytes for a voice line's audio file on
// demand; tasks in the queue keep only the file path, not the bytes.
type AudioLoader interface {
	Load(ctx context.Context, path string) ([]byte, error)
}

// ErrNoCollaborator is returned by the Null* stand-ins below, and
// surfaces to a task's Error(msg) state when no real translator,
// extractor, or audio loader has been wired in by the entrypoint.
var ErrNoCollaborator = errors.New("collab: no engine wired for this operation")

// NullTranslator always fails with ErrNoCollaborator. It lets a process
// start and service rename-only queues without a text-to-phoneme engine
// configured.
type NullTranslator struct{}

func (NullTranslator) Translate(context.Context, string, string) ([]string, error) {
	return nil, ErrNoCollaborator
}

// NullExtractor always fails with ErrNoCollaborator.
type NullExtractor struct{}

func (NullExtractor) Extract(context.Context, string, []byte, map[string][]string) ([]TimedPhoneme, error) {
	return nil, ErrNoCollaborator
}

// FileAudioLoader is the one AudioLoader concrete enough to live in the
// core: it just reads the file at path, leaving decoding/resampling
// (explicitly out of scope) to whatever Extractor receives the bytes.
type FileAudioLoader struct{}

func (FileAudioLoader) Load(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Package pipeline wires the collaborators (translate/extract/load) and
// the core (align/quality) into the per-task worker the queue pool calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/voicelab/phonealign/cmd/aligner/align"
	"github.com/voicelab/phonealign/cmd/aligner/collab"
	"github.com/voicelab/phonealign/cmd/aligner/format"
	"github.com/voicelab/phonealign/cmd/aligner/phoneme"
	"github.com/voicelab/phonealign/cmd/aligner/quality"
	"github.com/voicelab/phonealign/cmd/aligner/queue"
	"github.com/voicelab/phonealign/cmd/aligner/similarity"
)

// Worker implements queue.Worker, running the translate -> extract ->
// align -> save pipeline for OpExtract tasks and the filename-canonicalise
// pass for OpRename tasks.
type Worker struct {
	Language string

	Strings      *format.Strings
	Similarity   *similarity.Matrix
	ActorMapping *collab.ActorMapping

	Translator  collab.Translator
	Extractor   collab.Extractor
	AudioLoader collab.AudioLoader
}

// Process satisfies queue.Worker.
func (w *Worker) Process(ctx context.Context, task queue.TaskData) queue.Result {
	switch task.Operation {
	case queue.OpRename:
		return w.rename(ctx, task)
	default:
		return w.extract(ctx, task)
	}
}

func (w *Worker) extract(ctx context.Context, task queue.TaskData) queue.Result {
	line, ok := w.Strings.Get(task.LineID)
	if !ok {
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("no strings entry for line %d", task.LineID)}
	}

	textPhonemes, err := w.Translator.Translate(ctx, w.Language, line.Text)
	if err != nil {
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("translate: %s", err)}
	}

	audioBytes, err := w.AudioLoader.Load(ctx, task.AudioFile)
	if err != nil {
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("load audio: %s", err)}
	}

	grammar := map[string][]string{}
	for text, alt := range w.Similarity.GrammarAlternatives() {
		grammar[text] = strings.Split(strings.Trim(alt, "()"), "|")
	}

	extracted, err := w.Extractor.Extract(ctx, w.Language, audioBytes, grammar)
	if err != nil {
		// One fallback retry without the grammar constraint, per the
		// core's error handling policy for extractor failures.
		extracted, err = w.Extractor.Extract(ctx, w.Language, audioBytes, nil)
		if err != nil {
			return queue.Result{ID: task.ID, Err: fmt.Sprintf("extract: %s", err)}
		}
	}

	audio := make([]align.AudioPhoneme, len(extracted))
	for i, p := range extracted {
		audio[i] = align.AudioPhoneme{Phoneme: p.Phoneme, Start: p.Start, End: p.End}
	}

	text := buildTextPhonemes(textPhonemes)

	result, err := align.Align(task.LineID, w.Language, audio, text, w.Similarity)
	var track *phoneme.Track
	if err != nil {
		slog.Warn("pipeline: alignment failed, falling back to untimed track",
			slog.Any("lineID", task.LineID), slog.Any("error", err))
		track = align.DefaultTrack(task.LineID, w.Language, text)
	} else {
		track = result.Track
	}

	track.InputText = line.Text
	track.Actor = w.resolveActor(line.Actor)
	track.Translation = strings.Join(textPhonemes, " ")

	maxPosition := 0
	for _, p := range extracted {
		if p.End > maxPosition {
			maxPosition = p.End
		}
	}
	phoneme.AutoCloseGaps(maxPosition, track)
	track.Quality = quality.Assess(track)

	phonemeFile := strings.TrimSuffix(task.AudioFile, filepath.Ext(task.AudioFile)) + ".phonemes"
	if err := saveTrackFile(phonemeFile, track); err != nil {
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("save track: %s", err)}
	}

	newAudio, err := renameAudioFile(task.AudioFile, task.LineID, maxPosition, track.Actor, track.InputText)
	if err != nil {
		slog.Warn("pipeline: rename after extraction failed", slog.Any("error", err))
		return queue.Result{ID: task.ID, Finished: true, PhonemeFile: phonemeFile}
	}

	return queue.Result{ID: task.ID, Finished: true, PhonemeFile: phonemeFile, Renamed: true, NewAudio: newAudio}
}

// rename canonicalises a task's audiofile name. When a phoneme track has
// already been saved for this line, duration and actor/text come from it.
// Otherwise this is the first pass over a freshly dropped voice line:
// there is no track yet, so duration is probed straight from the audio
// and actor/text come from the strings table; the task then falls back
// to Waiting (via queue.UpdateResult) for a follow-up extraction pass.
func (w *Worker) rename(ctx context.Context, task queue.TaskData) queue.Result {
	phonemeFile := strings.TrimSuffix(task.AudioFile, filepath.Ext(task.AudioFile)) + ".phonemes"

	track, err := loadTrackFile(task.LineID, phonemeFile)
	switch {
	case err == nil:
		return w.renameWithTrack(task, phonemeFile, track)
	case errors.Is(err, os.ErrNotExist):
		return w.renameWithoutTrack(ctx, task)
	default:
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("rename: loading track: %s", err)}
	}
}

func (w *Worker) renameWithTrack(task queue.TaskData, phonemeFile string, track *phoneme.Track) queue.Result {
	maxPosition := 0
	for _, seg := range track.Phonemes {
		if seg.End > maxPosition {
			maxPosition = seg.End
		}
	}

	newAudio, err := renameAudioFile(task.AudioFile, task.LineID, maxPosition, w.resolveActor(track.Actor), track.InputText)
	if err != nil {
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("rename: %s", err)}
	}

	return queue.Result{ID: task.ID, Finished: true, PhonemeFile: phonemeFile, Renamed: true, NewAudio: newAudio}
}

func (w *Worker) renameWithoutTrack(ctx context.Context, task queue.TaskData) queue.Result {
	audioBytes, err := w.AudioLoader.Load(ctx, task.AudioFile)
	if err != nil {
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("rename: loading audio: %s", err)}
	}

	duration, err := collab.ProbeDuration(audioBytes)
	if err != nil {
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("rename: probing audio duration: %s", err)}
	}

	var actor, text string
	if line, ok := w.Strings.Get(task.LineID); ok {
		actor, text = w.resolveActor(line.Actor), line.Text
	}

	newAudio, err := renameAudioFile(task.AudioFile, task.LineID, int(duration.Milliseconds()), actor, text)
	if err != nil {
		return queue.Result{ID: task.ID, Err: fmt.Sprintf("rename: %s", err)}
	}

	// No PhonemeFile yet: UpdateResult sees Renamed with an empty
	// PhonemeFile and re-queues the task as Waiting for extraction.
	return queue.Result{ID: task.ID, Renamed: true, NewAudio: newAudio}
}

func (w *Worker) resolveActor(actor string) string {
	if w.ActorMapping == nil || actor == "" {
		return actor
	}
	return w.ActorMapping.Resolve(actor)
}

// buildTextPhonemes turns a translator's flat phoneme list into
// TextPhonemes, treating a blank entry as a word boundary marker (the
// convention a Translator implementation is expected to use for the
// flat-string contract it's handed).
func buildTextPhonemes(phonemes []string) []align.TextPhoneme {
	out := make([]align.TextPhoneme, 0, len(phonemes))
	wordStart := true
	for _, p := range phonemes {
		if p == "" {
			wordStart = true
			continue
		}
		out = append(out, align.TextPhoneme{Phoneme: p, WordStart: wordStart, Weight: 1.0})
		wordStart = false
	}
	return out
}

func loadTrackFile(lineID uint32, path string) (*phoneme.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return format.LoadTrack(lineID, f)
}

func saveTrackFile(path string, track *phoneme.Track) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return format.SaveTrack(f, track)
}

func renameAudioFile(oldPath string, lineID uint32, maxPositionMs int, actor, text string) (string, error) {
	dir := filepath.Dir(oldPath)
	ext := strings.TrimPrefix(filepath.Ext(oldPath), ".")
	newName := queue.FormatAudioFilename(lineID, float64(maxPositionMs)/1000.0, actor, text, ext)
	newPath := filepath.Join(dir, newName)

	if newPath == oldPath {
		return newPath, nil
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("renaming %s to %s: %w", oldPath, newPath, err)
	}
	return newPath, nil
}

// Package queue tracks per-voice-line processing tasks: scanning an input
// directory for audio/phoneme files, handing waiting tasks out to a
// worker pool, and recording each task's resulting state.
package queue

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/voicelab/phonealign/cmd/aligner/phoneme"
	"github.com/voicelab/phonealign/cmd/aligner/quality"
)

// State is the lifecycle state of one Task.
type State int

const (
	StateUnassignedID State = iota
	StateWaiting
	StateProcessing
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnassignedID:
		return "UnassignedId"
	case StateWaiting:
		return "Waiting"
	case StateProcessing:
		return "Processing"
	case StateFinished:
		return "Finished"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// TaskID identifies one Task for its lifetime in the queue.
type TaskID uint64

// Operation tells a worker what to do with a Task's audio file.
type Operation int

const (
	OpExtract Operation = iota
	OpRename
)

// Task is one voice line's processing state: its input files, whether it
// still needs the legacy rename pass, and the quality of its last
// persisted phoneme track (if any).
type Task struct {
	id               TaskID
	LineID           uint32
	AudioFile        string
	PhonemeFile      string
	renamingRequired bool
	fullRename       bool
	state            State
	errMsg           string
	Quality          phoneme.Quality
}

func (t *Task) ID() TaskID         { return t.id }
func (t *Task) State() State       { return t.state }
func (t *Task) ErrorMessage() string { return t.errMsg }

// TaskData is the snapshot handed to a worker when it takes a waiting
// task off the queue.
type TaskData struct {
	ID        TaskID
	LineID    uint32
	AudioFile string
	Operation Operation
}

// Result is what a worker reports back for a task it was given.
type Result struct {
	ID          TaskID
	Renamed     bool
	NewAudio    string
	Finished    bool
	PhonemeFile string
	Err         string
}

// Queue holds every known task, keyed by insertion order, with O(1)
// running counts of finished/failed/unassigned tasks so take() can check
// for outstanding work without a linear scan.
type Queue struct {
	lastUsedID TaskID
	tasks      []*Task
	finished   int
	failed     int
	unassigned int
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// NewFromDirectory scans path and builds the initial task set. See
// InitFromDirectory for the matching rules.
func NewFromDirectory(path string, forceRename bool) (*Queue, error) {
	q := New()
	if err := q.InitFromDirectory(path, forceRename); err != nil {
		return nil, err
	}
	return q, nil
}

// Clear empties the queue and resets its counters.
func (q *Queue) Clear() {
	q.tasks = nil
	q.finished = 0
	q.failed = 0
	q.unassigned = 0
}

func (q *Queue) nextTaskID() TaskID {
	q.lastUsedID++
	return q.lastUsedID
}

// InitFromDirectory replaces the queue's contents with a fresh scan of
// path: audio files are paired with a phonemes file of the same
// extracted id when one exists; a linked audio file already carrying a
// duration marker (and not under forceRename) is considered Finished,
// everything else Waiting; unlinked audio files (no id could be
// extracted) become UnassignedId placeholders.
func (q *Queue) InitFromDirectory(path string, forceRename bool) error {
	files, err := scanDirectory(path)
	if err != nil {
		return fmt.Errorf("queue: scanning %s: %w", path, err)
	}

	audio := make(map[uint32]FileInfo)
	phonemeFiles := make(map[uint32]string)
	var unassigned []string

	for _, f := range files {
		switch f.Kind {
		case KindUnlinkedAudio:
			slog.Info("found unlinked audiofile", slog.String("path", f.Path))
			unassigned = append(unassigned, f.Path)
		case KindAudio:
			if _, exists := audio[f.ID]; exists {
				slog.Warn("found duplicate audiofile for id, skipping", slog.Any("id", f.ID), slog.String("path", f.Path))
				continue
			}
			audio[f.ID] = f
		case KindPhonemes:
			if _, exists := phonemeFiles[f.ID]; exists {
				slog.Warn("found duplicate phoneme file for id, skipping", slog.Any("id", f.ID), slog.String("path", f.Path))
				continue
			}
			phonemeFiles[f.ID] = f.Path
		}
	}

	q.tasks = nil
	q.failed = 0
	q.finished = 0
	q.unassigned = len(unassigned)

	for lineid, a := range audio {
		var task *Task
		if pfile, ok := phonemeFiles[lineid]; ok {
			state := StateWaiting
			renamingRequired := true
			if a.HasDur && !forceRename {
				state = StateFinished
				renamingRequired = false
				q.finished++
			}
			task = &Task{
				id:               q.nextTaskID(),
				LineID:           lineid,
				AudioFile:        a.Path,
				PhonemeFile:      pfile,
				renamingRequired: renamingRequired,
				fullRename:       forceRename,
				state:            state,
				Quality:          assessedQualityOf(lineid, pfile),
			}
		} else {
			task = &Task{
				id:               q.nextTaskID(),
				LineID:           lineid,
				AudioFile:        a.Path,
				renamingRequired: !a.HasDur || forceRename,
				fullRename:       forceRename,
				state:            StateWaiting,
			}
		}
		q.tasks = append(q.tasks, task)
	}

	for _, path := range unassigned {
		q.tasks = append(q.tasks, &Task{
			id:               q.nextTaskID(),
			LineID:           0,
			AudioFile:        path,
			renamingRequired: true,
			state:            StateUnassignedID,
		})
	}

	sort.SliceStable(q.tasks, func(i, j int) bool { return q.tasks[i].LineID < q.tasks[j].LineID })

	return nil
}

// assessedQualityOf loads the phoneme track at path and returns its
// assessed quality, or QualityUnknown if it can't be loaded.
func assessedQualityOf(lineid uint32, path string) phoneme.Quality {
	track, err := loadTrackFile(lineid, path)
	if err != nil {
		slog.Warn("failed to load phoneme track for quality assessment", slog.String("path", path), slog.Any("error", err))
		return phoneme.QualityUnknown
	}
	return quality.Assess(track)
}

// Get returns the task at slot, or nil if out of range.
func (q *Queue) Get(slot int) *Task {
	if slot < 0 || slot >= len(q.tasks) {
		return nil
	}
	return q.tasks[slot]
}

// All returns every task in queue order.
func (q *Queue) All() []*Task {
	return append([]*Task(nil), q.tasks...)
}

// ContainsLineID reports whether any task already tracks lineid.
func (q *Queue) ContainsLineID(lineid uint32) bool {
	for _, t := range q.tasks {
		if t.LineID == lineid {
			return true
		}
	}
	return false
}

// RemoveTask deletes the task with the given id, adjusting the running
// counters. Removing a task mid-processing is rejected.
func (q *Queue) RemoveTask(id TaskID) (*Task, error) {
	for i, t := range q.tasks {
		if t.id != id {
			continue
		}
		if t.state == StateProcessing {
			return nil, fmt.Errorf("queue: cannot remove task %d in processing state", id)
		}
		switch t.state {
		case StateUnassignedID:
			q.unassigned--
		case StateFinished:
			q.finished--
		case StateError:
			q.failed--
		}
		q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
		return t, nil
	}
	return nil, fmt.Errorf("queue: task (%d) not found", id)
}

// AddAudioFile registers a brand-new audio file for lineid, rejecting a
// duplicate.
func (q *Queue) AddAudioFile(lineid uint32, file string) error {
	if q.ContainsLineID(lineid) {
		return fmt.Errorf("queue: found duplicate audiofile for id [%d], audiofile not added", lineid)
	}

	q.tasks = append(q.tasks, &Task{
		id:        q.nextTaskID(),
		LineID:    lineid,
		AudioFile: file,
		state:     StateWaiting,
	})
	sort.SliceStable(q.tasks, func(i, j int) bool { return q.tasks[i].LineID < q.tasks[j].LineID })
	return nil
}

// Take pops the first Waiting task, flips it to Processing, and returns
// the snapshot a worker needs to act on it. Returns false if no task is
// currently eligible.
func (q *Queue) Take() (TaskData, bool) {
	if q.failed+q.finished+q.unassigned >= len(q.tasks) {
		return TaskData{}, false
	}
	for _, t := range q.tasks {
		if t.state != StateWaiting {
			continue
		}
		t.state = StateProcessing
		op := OpExtract
		if t.renamingRequired {
			op = OpRename
		}
		return TaskData{ID: t.id, LineID: t.LineID, AudioFile: t.AudioFile, Operation: op}, true
	}
	return TaskData{}, false
}

// ForceRenaming flips every Waiting or Finished task back to Waiting with
// a full rename requested; Processing, Error and UnassignedId tasks are
// left as they are.
func (q *Queue) ForceRenaming() {
	for _, t := range q.tasks {
		switch t.state {
		case StateProcessing, StateUnassignedID, StateError:
			continue
		case StateFinished:
			q.finished--
		}
		t.renamingRequired = true
		t.fullRename = true
		t.state = StateWaiting
	}
}

// UpdateResult applies a worker's Result to the task it names, moving it
// out of Processing into Waiting (renamed, re-needs extraction),
// Finished, or Error.
func (q *Queue) UpdateResult(r Result) (*Task, error) {
	var task *Task
	for _, t := range q.tasks {
		if t.id == r.ID {
			task = t
			break
		}
	}
	if task == nil {
		return nil, fmt.Errorf("queue: update of unknown task: %d", r.ID)
	}
	if task.state != StateProcessing {
		return nil, fmt.Errorf("queue: setting result valid only in processing state")
	}

	switch {
	case r.Err != "":
		task.errMsg = r.Err
		task.state = StateError
		q.failed++

	case r.Renamed:
		task.renamingRequired = false
		task.AudioFile = r.NewAudio
		if r.PhonemeFile != "" {
			task.PhonemeFile = r.PhonemeFile
		}
		if task.PhonemeFile != "" {
			task.Quality = assessedQualityOf(task.LineID, task.PhonemeFile)
			task.state = StateFinished
			q.finished++
		} else {
			task.state = StateWaiting
		}

	case r.Finished:
		task.Quality = assessedQualityOf(task.LineID, r.PhonemeFile)
		task.PhonemeFile = r.PhonemeFile
		task.state = StateFinished
		q.finished++

	default:
		return nil, fmt.Errorf("queue: result for task %d carries no outcome", r.ID)
	}

	return task, nil
}

package collab

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-audio/wav"
)

// ProbeDuration returns the playback duration of a WAV clip's raw bytes by
// reading its RIFF/fmt header, not by decoding every sample. It's what the
// first rename pass uses to derive a duration before any phoneme track
// exists to read one back out of.
func ProbeDuration(data []byte) (time.Duration, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return 0, fmt.Errorf("collab: not a valid wav file")
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, fmt.Errorf("collab: probing wav duration: %w", err)
	}
	return dur, nil
}

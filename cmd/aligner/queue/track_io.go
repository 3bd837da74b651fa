package queue

import (
	"fmt"
	"os"

	"github.com/voicelab/phonealign/cmd/aligner/format"
	"github.com/voicelab/phonealign/cmd/aligner/phoneme"
)

// loadTrackFile opens a ".phonemes" file and decodes it.
func loadTrackFile(lineid uint32, path string) (*phoneme.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %w", path, err)
	}
	defer f.Close()

	return format.LoadTrack(lineid, f)
}

// Package format implements the on-disk text formats the core reads and
// writes: the ".phonemes" track file and the strings CSV (native and
// Redkit dialects).
package format

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/voicelab/phonealign/cmd/aligner/phoneme"
)

// warnMatchingScoreMin is the threshold below which a written segment's
// status column reads "<- VERIFY!" instead of "ok".
const warnMatchingScoreMin = 0.0

// LoadTrack parses a ".phonemes" track file from r. id is supplied by the
// caller (it comes from the file name, not the file contents).
func LoadTrack(id uint32, r io.Reader) (*phoneme.Track, error) {
	track := phoneme.NewTrack(id, "")

	scanner := bufio.NewScanner(r)
	headerFound := false
	newWordStarting := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if !headerFound {
			switch {
			case strings.HasPrefix(line, ";meta["):
				if err := applyMeta(track, line); err != nil {
					return nil, fmt.Errorf("phonemes loader: line %d: %w", lineNo, err)
				}
			case isHeaderLine(line):
				headerFound = true
			case strings.HasPrefix(line, ";provided source text"):
				text, err := legacyParse(line)
				if err != nil {
					return nil, fmt.Errorf("phonemes loader: line %d: %w", lineNo, err)
				}
				track.InputText = text
			case strings.HasPrefix(line, ";phoneme translation"):
				text, err := legacyParse(line)
				if err != nil {
					return nil, fmt.Errorf("phonemes loader: line %d: %w", lineNo, err)
				}
				track.Translation = text
			case strings.HasPrefix(line, ";audio hypothesis"):
				text, err := legacyParse(line)
				if err != nil {
					return nil, fmt.Errorf("phonemes loader: line %d: %w", lineNo, err)
				}
				track.AudioHypothesis = text
			case strings.HasPrefix(line, ";"):
				continue
			default:
				return nil, fmt.Errorf("phonemes loader: line %d: expected header line with column definition (phoneme, start, end, weight, [score]) before start of data block", lineNo)
			}
			continue
		}

		if strings.HasPrefix(line, "---") {
			newWordStarting = true
			continue
		}

		seg, err := parseSegment(line, newWordStarting)
		if err != nil {
			return nil, fmt.Errorf("phonemes loader: line %d: %w", lineNo, err)
		}
		track.Phonemes = append(track.Phonemes, seg)
		newWordStarting = false
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("phonemes loader: %w", err)
	}

	return track, nil
}

func applyMeta(track *phoneme.Track, line string) error {
	key, value, err := parseMeta(line)
	if err != nil {
		return err
	}

	switch key {
	case "language":
		track.Language = value
	case "text":
		track.InputText = value
	case "translation":
		track.Translation = value
	case "audio-hypothesis":
		track.AudioHypothesis = value
	case "version":
		v, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return fmt.Errorf("meta[version]: %w", err)
		}
		track.Version = uint16(v)
	case "actor":
		track.Actor = strings.ToLower(strings.TrimSpace(value))
	default:
		return fmt.Errorf("found unsupported meta key [%s]", key)
	}
	return nil
}

// parseMeta splits a ";meta[key=value]" line into its key and value.
func parseMeta(line string) (string, string, error) {
	if !strings.HasPrefix(line, ";meta[") || !strings.HasSuffix(line, "]") {
		return "", "", fmt.Errorf("line does not contain any meta data")
	}
	s := line[len(";meta[") : len(line)-1]
	idx := strings.Index(s, "=")
	if idx < 0 {
		return "", "", fmt.Errorf("invalid meta format")
	}
	return s[:idx], s[idx+1:], nil
}

func legacyParse(line string) (string, error) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", fmt.Errorf("could not parse legacy format (missing separator)")
	}
	return strings.Trim(strings.TrimSpace(line[idx+1:]), "\""), nil
}

func isHeaderLine(line string) bool {
	cols := strings.Split(line, "|")
	if len(cols) <= 3 {
		return false
	}
	for i := range cols {
		cols[i] = strings.ToLower(strings.TrimSpace(cols[i]))
	}
	return cols[0] == ";phoneme" && cols[1] == "start" && cols[2] == "end" && cols[3] == "weight"
}

func parseSegment(line string, wordStart bool) (*phoneme.Segment, error) {
	active := true
	rest := line
	if strings.HasPrefix(line, ";") {
		active = false
		rest = line[1:]
	}

	data := strings.Split(rest, "|")
	for i := range data {
		data[i] = strings.TrimSpace(data[i])
	}
	if len(data) <= 3 {
		return nil, fmt.Errorf("data line must contain at least 4 columns (phoneme, start, end, weight, [score]), found: %d", len(data))
	}

	start, err := strconv.Atoi(data[1])
	if err != nil {
		return nil, fmt.Errorf("col #1: %w", err)
	}
	end, err := strconv.Atoi(data[2])
	if err != nil {
		return nil, fmt.Errorf("col #2: %w", err)
	}
	weight, err := strconv.ParseFloat(data[3], 64)
	if err != nil {
		return nil, fmt.Errorf("col #3: %w", err)
	}

	seg := phoneme.NewSegment(data[0], wordStart, start, end, 0, active)
	seg.Weight = weight
	seg.Traceback = rest

	if len(data) > 4 {
		score, err := strconv.ParseFloat(data[4], 64)
		if err != nil {
			return nil, fmt.Errorf("col #4: %w", err)
		}
		seg.Score = score
	}
	// column 5 (status) is derived on write, ignored on read.
	if len(data) > 6 {
		seg.MatchingInfo = data[6]
	}

	return seg, nil
}

// SaveTrack writes track to w in the canonical ".phonemes" layout.
func SaveTrack(w io.Writer, track *phoneme.Track) error {
	bw := bufio.NewWriter(w)

	writeMeta := func(key, value string) error {
		_, err := fmt.Fprintf(bw, ";meta[%s=%s]\n", key, value)
		return err
	}
	writeComment := func(line string) error {
		_, err := fmt.Fprintf(bw, ";%s\n", line)
		return err
	}

	if err := writeMeta("language", track.Language); err != nil {
		return err
	}
	if err := writeMeta("version", strconv.Itoa(int(track.Version))); err != nil {
		return err
	}
	if track.Actor != "" {
		if err := writeMeta("actor", track.Actor); err != nil {
			return err
		}
	}
	if err := writeMeta("text", track.InputText); err != nil {
		return err
	}
	if err := writeMeta("translation", track.Translation); err != nil {
		return err
	}

	lineLength := 48
	if track.AudioHypothesis != "" {
		if err := writeMeta("audio-hypothesis", track.AudioHypothesis); err != nil {
			return err
		}
		if err := writeComment(""); err != nil {
			return err
		}
		if err := writeComment("auto-matched phoneme translation (eSpeak) with timings (pocketsphinx):"); err != nil {
			return err
		}
		if err := writeComment(""); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(bw, ";phoneme|start|  end|weight| score| status     | match + pocketsphinx timing\n"); err != nil {
			return err
		}
		lineLength = 72
	} else {
		if err := writeComment(""); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(bw, ";phoneme|start|  end|weight| score| status\n"); err != nil {
			return err
		}
	}

	wordSeparator := strings.Repeat("-", lineLength)

	for _, seg := range track.Phonemes {
		status := "ok"
		if seg.Score < warnMatchingScoreMin {
			status = "<- VERIFY!"
		}
		active := ""
		if !seg.Active {
			active = ";"
		}
		if seg.WordStart {
			if _, err := fmt.Fprintln(bw, wordSeparator); err != nil {
				return err
			}
		}
		matchingInfo := strings.TrimSpace(seg.MatchingInfo)

		line := fmt.Sprintf("%s%-8s|%5d|%5d|%6.2f|%6.2f| %-11s| %s",
			active, seg.Phoneme, seg.Start, seg.End, seg.Weight, seg.Score, status, matchingInfo)
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}

	return bw.Flush()
}

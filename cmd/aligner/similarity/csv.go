package similarity

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

const headerPrefix = `[T\A]`

// LoadCSV parses a pipe-delimited similarity table. Lines starting with ';'
// are comments. The first non-comment line must be the header, prefixed
// with `[T\A]`, listing audio phoneme names. Every following line starts
// with a text phoneme name followed by one float per audio column; a blank
// cell defaults to ScoreDefault.
func LoadCSV(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)

	var audioNames []string
	var textNames []string
	var rows [][]float64
	textSeen := make(map[string]bool)

	lineNo := 0
	headerParsed := false

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if strings.HasPrefix(line, ";") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !headerParsed {
			names, err := parseHeaderLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			audioNames = names
			headerParsed = true
			continue
		}

		if strings.HasPrefix(line, headerPrefix) {
			return nil, fmt.Errorf("line %d: duplicate header line", lineNo)
		}

		text, scores, err := parseScoresLine(line, len(audioNames))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if textSeen[text] {
			return nil, fmt.Errorf("line %d: duplicate text phoneme %q", lineNo, text)
		}
		textSeen[text] = true

		textNames = append(textNames, text)
		rows = append(rows, scores)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading similarity csv: %w", err)
	}
	if !headerParsed {
		return nil, fmt.Errorf("similarity csv: missing header line")
	}

	m := New(audioNames, textNames)
	for ti, scores := range rows {
		for ai, score := range scores {
			m.scores.Set(ti, ai, score)
		}
	}

	slog.Info("loaded similarity scores",
		slog.Int("audioPhonemes", len(m.audio)),
		slog.Int("textPhonemes", len(m.text)))

	return m, nil
}

func parseHeaderLine(line string) ([]string, error) {
	if !strings.HasPrefix(line, headerPrefix) {
		return nil, fmt.Errorf("expected header starting with %q", headerPrefix)
	}
	rest := strings.TrimPrefix(line, headerPrefix)
	cols := strings.Split(rest, "|")
	var names []string
	for _, c := range cols {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		names = append(names, c)
	}
	if len(names) < 1 {
		return nil, fmt.Errorf("header line has no audio phoneme columns")
	}
	return names, nil
}

func parseScoresLine(line string, numAudio int) (string, []float64, error) {
	cols := strings.Split(line, "|")
	if len(cols) < 2 {
		return "", nil, fmt.Errorf("at least 2 columns required, found %d", len(cols))
	}

	text := strings.ToLower(strings.TrimSpace(cols[0]))
	scores := make([]float64, numAudio)
	for i := 0; i < numAudio; i++ {
		if i+1 >= len(cols) {
			scores[i] = ScoreDefault
			continue
		}
		raw := strings.TrimSpace(cols[i+1])
		if raw == "" {
			scores[i] = ScoreDefault
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", nil, fmt.Errorf("column %d: could not parse score %q: %w", i+1, raw, err)
		}
		if f < ScoreMin || f > ScoreMax {
			return "", nil, fmt.Errorf("column %d: score %v out of range [%v, %v]", i+1, f, ScoreMin, ScoreMax)
		}
		scores[i] = f
	}

	return text, scores, nil
}

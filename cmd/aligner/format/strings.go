package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// StringLine is one entry of a strings table: the source text for a voice
// line id, plus an optional actor name.
type StringLine struct {
	ID    uint32
	Text  string
	Actor string
}

// Strings holds every line loaded from a strings CSV, keyed by id.
type Strings struct {
	Language string
	lines    map[uint32]StringLine
}

// Get returns the line for id, and whether it was found.
func (s *Strings) Get(id uint32) (StringLine, bool) {
	l, ok := s.lines[id]
	return l, ok
}

// All returns every line sorted by id.
func (s *Strings) All() []StringLine {
	out := make([]StringLine, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadStrings parses a strings CSV, auto-detecting the native (pipe,
// ";meta[language=xx]" first line) or Redkit (semicolon, language-named
// column) dialect. language, when non-empty, both validates a native
// file's declared language and names the text column to look for in a
// Redkit file; an empty language defaults Redkit parsing to "en".
func LoadStrings(r io.Reader, language string) (*Strings, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	nextLine := func() (string, bool, error) {
		if !scanner.Scan() {
			return "", false, scanner.Err()
		}
		lineNo++
		return scanner.Text(), true, nil
	}

	first, ok, err := nextLine()
	if err != nil {
		return nil, fmt.Errorf("strings loader: reading line 1: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("strings loader: failed to read line 1")
	}

	result := &Strings{lines: make(map[uint32]StringLine)}

	var sep byte
	var idCol, textCol int
	var actorCol = -1

	if lang, isNative := extractLanguage(first); isNative {
		if language != "" && language != lang {
			return nil, fmt.Errorf("strings loader: expected language [%s] in file, found: %s", language, lang)
		}
		result.Language = lang

		colLine, ok, err := nextLine()
		if err != nil {
			return nil, fmt.Errorf("strings loader: reading line 2: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("strings loader: failed to read columns from line 2")
		}
		sep = '|'
		idCol, textCol, actorCol, err = extractColumns(colLine)
		if err != nil {
			return nil, fmt.Errorf("strings loader: %w", err)
		}
	} else {
		lang := language
		if lang == "" {
			lang = "en"
		}
		result.Language = strings.ToLower(lang)

		sep = ';'
		idCol, textCol, actorCol, err = extractRedkitColumns(result.Language, first)
		if err != nil {
			return nil, fmt.Errorf("strings loader: %w", err)
		}
	}

	for {
		line, ok, err := nextLine()
		if err != nil {
			return nil, fmt.Errorf("strings loader: line %d: %w", lineNo, err)
		}
		if !ok {
			break
		}
		if strings.HasPrefix(line, ";") {
			continue
		}

		id, text, actor, err := extractTextline(sep, idCol, textCol, actorCol, line)
		if errors.Is(err, errInvalidID) {
			slog.Warn("strings loader: skipping line", slog.Int("line", lineNo), slog.Any("error", err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("strings loader: line %d: %w", lineNo, err)
		}
		result.lines[id] = StringLine{ID: id, Text: text, Actor: actor}
	}

	slog.Info("loaded strings", slog.Int("count", len(result.lines)), slog.String("language", result.Language))
	return result, nil
}

func extractLanguage(line string) (string, bool) {
	const prefix = ";meta[language="
	if strings.HasPrefix(line, prefix) && strings.HasSuffix(line, "]") {
		return line[len(prefix) : len(line)-1], true
	}
	return "", false
}

func findColumn(cols []string, name string) (int, bool) {
	for i, c := range cols {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

func extractColumns(line string) (idCol, textCol, actorCol int, err error) {
	line = strings.TrimPrefix(line, ";")
	rawCols := strings.Split(line, "|")
	cols := make([]string, len(rawCols))
	for i, c := range rawCols {
		cols[i] = strings.TrimSpace(c)
	}

	idCol, ok := findColumn(cols, "id")
	if !ok {
		return 0, 0, -1, fmt.Errorf("failed to find 'id' column")
	}
	textCol, ok = findColumn(cols, "text")
	if !ok {
		return 0, 0, -1, fmt.Errorf("failed to find 'text' column")
	}
	actorCol = -1
	if i, ok := findColumn(cols, "actor"); ok {
		actorCol = i
	}
	return idCol, textCol, actorCol, nil
}

func extractRedkitColumns(lang, line string) (idCol, textCol, actorCol int, err error) {
	rawCols := strings.Split(line, ";")
	cols := make([]string, len(rawCols))
	for i, c := range rawCols {
		cols[i] = strings.ToLower(strings.TrimSpace(c))
	}

	idCol, ok := findColumn(cols, "id")
	if !ok {
		return 0, 0, -1, fmt.Errorf("failed to find 'id' column")
	}
	textCol, ok = findColumn(cols, lang)
	if !ok {
		return 0, 0, -1, fmt.Errorf("failed to find '%s' column for text extraction", lang)
	}
	actorCol = -1
	if i, ok := findColumn(cols, "voiceover"); ok {
		actorCol = i
	}
	return idCol, textCol, actorCol, nil
}

// errInvalidID marks a data line whose id column is blank or not a u32;
// LoadStrings skips such lines with a warning.
var errInvalidID = errors.New("invalid id")

// extractTextline splits one data line into (id, text, actor), handling
// the Redkit dialect's quoted-field escaping and actor derivation.
func extractTextline(sep byte, idCol, textCol int, actorCol int, line string) (uint32, string, string, error) {
	var cols []string

	if sep == ';' {
		var b strings.Builder
		runes := []rune(line)
		quoted := false
		for i := 0; i < len(runes); i++ {
			c := runes[i]
			var next rune
			hasNext := i+1 < len(runes)
			if hasNext {
				next = runes[i+1]
			}
			switch {
			case quoted:
				b.WriteRune(c)
				if c == '"' && hasNext && next == ';' {
					quoted = false
				}
			case c == ';':
				b.WriteRune('|')
				if hasNext && next == '"' {
					quoted = true
				}
			default:
				b.WriteRune(c)
			}
		}
		cols = strings.Split(b.String(), "|")
	} else {
		cols = strings.Split(line, string(rune(sep)))
	}

	minCols := idCol
	if textCol > minCols {
		minCols = textCol
	}
	minCols++
	if len(cols) < minCols {
		return 0, "", "", fmt.Errorf("at least %d columns required, found: %d", minCols, len(cols))
	}

	idStr := strings.TrimSpace(cols[idCol])
	id64, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, "", "", fmt.Errorf("%w: could not parse id [%s]: %v", errInvalidID, cols[idCol], err)
	}

	text := strings.ReplaceAll(cols[textCol], `""`, "|")
	text = strings.Trim(text, " \t\"")
	text = strings.ReplaceAll(text, "|", `"`)

	var actor string
	if actorCol >= 0 && actorCol < len(cols) {
		raw := cols[actorCol]
		if sep == ';' {
			actor = filterVoiceover(raw)
		} else {
			actor = strings.ToUpper(strings.TrimSpace(raw))
		}
	}

	return uint32(id64), text, actor, nil
}

// filterVoiceover derives an actor name from a "<actor>_<something>_<id>"
// voiceover string: split from the right at most twice and keep the
// leftmost remainder.
func filterVoiceover(voiceover string) string {
	parts := strings.SplitN(reverseString(voiceover), "_", 3)
	if len(parts) == 0 {
		return ""
	}
	last := reverseString(parts[len(parts)-1])
	return strings.ToUpper(strings.TrimSpace(last))
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

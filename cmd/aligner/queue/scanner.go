package queue

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileKind tags what scan found at one path.
type FileKind int

const (
	KindUnlinkedAudio FileKind = iota
	KindAudio
	KindPhonemes
)

// FileInfo is one file discovered by scanDirectory, classified by
// extension and, for linked files, by the voice-line id embedded in its
// name.
type FileInfo struct {
	Kind     FileKind
	ID       uint32
	Path     string
	Duration float64
	HasDur   bool
}

// scanDirectory globs path (path/* for a directory, the literal path
// otherwise) and classifies every regular file it finds.
func scanDirectory(path string) ([]FileInfo, error) {
	wildcard := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		wildcard = filepath.Join(path, "*")
	}

	slog.Info("scanning for files", slog.String("wildcard", wildcard))

	matches, err := filepath.Glob(wildcard)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		filename := filepath.Base(m)
		isAudio := strings.HasSuffix(filename, ".wav") || strings.HasSuffix(filename, ".ogg")

		id, duration, hasDur, ok := extractMetaInfo(filename)
		switch {
		case ok && isAudio:
			files = append(files, FileInfo{Kind: KindAudio, ID: id, Path: m, Duration: duration, HasDur: hasDur})
		case ok && strings.HasSuffix(filename, ".phonemes"):
			files = append(files, FileInfo{Kind: KindPhonemes, ID: id, Path: m})
		case ok:
			// known extension class not matched; ignore silently.
		case isAudio:
			files = append(files, FileInfo{Kind: KindUnlinkedAudio, Path: m})
		}
	}

	slog.Debug("scan complete", slog.Int("found", len(files)))
	return files, nil
}

// extractDuration pulls the value enclosed in "[...]" out of filename
// (without extension), used for the "<id>[<duration>]-..." naming
// convention.
func extractDuration(filename string) (float64, bool) {
	start := strings.IndexByte(filename, '[')
	if start < 0 {
		return 0, false
	}
	rest := filename[start+1:]
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return 0, false
	}
	raw := rest[:end]
	if raw == "" {
		return 0, false
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// extractMetaInfo extracts the voice-line id from filename: first by
// taking up to 10 leading ASCII digits, else up to 10 trailing ASCII
// digits, else by parsing the whole (extension-less) name as an
// integer.
func extractMetaInfo(filename string) (id uint32, duration float64, hasDur bool, ok bool) {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return 0, 0, false, false
	}
	name := filename[:dot]

	if idStr := leadingDigits(name, 10); idStr != "" {
		if v, err := strconv.ParseUint(idStr, 10, 32); err == nil {
			d, hd := extractDuration(name)
			return uint32(v), d, hd, true
		}
	}

	if idStr := trailingDigits(name, 10); idStr != "" {
		if v, err := strconv.ParseUint(idStr, 10, 32); err == nil {
			d, hd := extractDuration(name)
			return uint32(v), d, hd, true
		}
	}

	if v, err := strconv.ParseUint(name, 10, 32); err == nil {
		d, hd := extractDuration(name)
		return uint32(v), d, hd, true
	}

	return 0, 0, false, false
}

func leadingDigits(s string, max int) string {
	var b strings.Builder
	for i, r := range s {
		if i >= max || r < '0' || r > '9' {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

func trailingDigits(s string, max int) string {
	runes := []rune(s)
	var b strings.Builder
	count := 0
	for i := len(runes) - 1; i >= 0 && count < max; i-- {
		if runes[i] < '0' || runes[i] > '9' {
			break
		}
		b.WriteRune(runes[i])
		count++
	}
	rev := []rune(b.String())
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return string(rev)
}

package queue

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// sanitizedChars are replaced with "_" in the text-hint portion of a
// renamed audio filename.
const sanitizedChars = `\?%*:|<>.…,"/$`

const textHintMaxLen = 50

// FormatAudioFilename builds the canonical post-rename audio filename:
// <10-digit id>[<duration>]-<actor>-<text-hint>.<ext>. actor may be empty,
// in which case that segment is omitted.
func FormatAudioFilename(id uint32, durationSeconds float64, actor, text, ext string) string {
	hint := sanitizeTextHint(text)

	if actor == "" {
		return fmt.Sprintf("%010d[%.2f]-%s.%s", id, durationSeconds, hint, ext)
	}
	return fmt.Sprintf("%010d[%.2f]-%s-%s.%s", id, durationSeconds, strings.ToUpper(actor), hint, ext)
}

func sanitizeTextHint(text string) string {
	var b strings.Builder
	for _, r := range text {
		if strings.ContainsRune(sanitizedChars, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}

	hint := b.String()
	if utf8.RuneCountInString(hint) <= textHintMaxLen {
		return hint
	}

	runes := []rune(hint)
	return string(runes[:textHintMaxLen])
}

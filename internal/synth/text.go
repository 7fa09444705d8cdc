package synth

import (
	"regexp"
	"strings"
)

var (
	bracketNote = regexp.MustCompile(`\(.*?\)`)
	spaces      = regexp.MustCompile(`\s+`)
)

// CleanWord strips what a synthesizer reads badly from a vocabulary entry:
// bracketed notes such as "(sin)", leading and trailing hyphens and
// slashes, and word-internal hyphens and underscores (read as a pause).
// An entry that cleans to nothing is returned trimmed.
func CleanWord(raw string) string {
	w := strings.TrimSpace(raw)
	w = bracketNote.ReplaceAllString(w, "")
	w = strings.Trim(w, "-/ ")
	w = strings.NewReplacer("-", " ", "_", " ").Replace(w)
	w = strings.TrimSpace(spaces.ReplaceAllString(w, " "))
	if w == "" {
		return strings.TrimSpace(raw)
	}
	return w
}

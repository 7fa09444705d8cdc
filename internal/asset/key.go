package asset

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// xSystem spells the supersigned Esperanto letters in ASCII.
var xSystem = strings.NewReplacer(
	"ĉ", "cx", "ĝ", "gx", "ĥ", "hx", "ĵ", "jx", "ŝ", "sx", "ŭ", "ux",
	"Ĉ", "Cx", "Ĝ", "Gx", "Ĥ", "Hx", "Ĵ", "Jx", "Ŝ", "Sx", "Ŭ", "Ux",
)

// KeyFor derives the audio key of a word: supersigned letters go to the
// x-system, every run of other characters outside [0-9A-Za-z_] becomes a
// single underscore, and the result is lower-cased and trimmed of
// underscores. A word with nothing left, including one made only of
// punctuation such as "!!", maps to "untitled": a key is never empty.
//
//	KeyFor("ĉevalo")      == "cxevalo"
//	KeyFor("Bonan tagon!") == "bonan_tagon"
func KeyFor(word string) string {
	// Decomposed input (c + U+0302) must match the replacer.
	ascii := xSystem.Replace(norm.NFC.String(strings.TrimSpace(word)))

	var b strings.Builder
	b.Grow(len(ascii))
	inRun := false
	for _, r := range ascii {
		if isKeyRune(r) {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}

	key := strings.Trim(strings.ToLower(b.String()), "_")
	if key == "" {
		return "untitled"
	}
	return key
}

// PhraseKey is the key of a numbered example sentence, e.g. "0007_mi_lernas".
func PhraseKey(n int, phrase string) string {
	return fmt.Sprintf("%04d_%s", n, KeyFor(phrase))
}

func isKeyRune(r rune) bool {
	return r == '_' ||
		('0' <= r && r <= '9') ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z')
}

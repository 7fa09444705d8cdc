package asset

import "testing"

func TestKeyFor(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"ĉevalo", "cxevalo"},
		{"ŝanĝi", "sxangxi"},
		{"Ĝardeno", "gxardeno"},
		{"aŭto", "auxto"},
		{"ĥoro ĵaŭdo", "hxoro_jxauxdo"},
		{"Bonan tagon!", "bonan_tagon"},
		{"  kato  ", "kato"},
		{"--dom--o--", "dom_o"},
		{"snake_case", "snake_case"},
		{"café", "caf"},
		{"c\u0302evalo", "cxevalo"}, // decomposed
		{"!!!", "untitled"},
		{"!!", "untitled"},
		{" - ", "untitled"},
		{"", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			if got := KeyFor(tt.word); got != tt.want {
				t.Errorf("KeyFor(%q) = %q, want %q", tt.word, got, tt.want)
			}
		})
	}
}

func TestPhraseKey(t *testing.T) {
	if got := PhraseKey(7, "Mi lernas."); got != "0007_mi_lernas" {
		t.Errorf("PhraseKey = %q", got)
	}
}

package synth

import "testing"

func TestCleanWord(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"hundo", "hundo"},
		{"  kato  ", "kato"},
		{"-ig-", "ig"},
		{"mal-", "mal"},
		{"/ŝi/", "ŝi"},
		{"vidi (sin)", "vidi"},
		{"dank-al", "dank al"},
		{"bon_venon", "bon venon"},
		{"tro   multe", "tro multe"},
		{"(sin)", "(sin)"},
		{"---", "---"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := CleanWord(tt.raw); got != tt.want {
				t.Errorf("CleanWord(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

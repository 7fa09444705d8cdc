package synth

import (
	"reflect"
	"strings"
	"testing"
)

func TestReadWords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "named column",
			input: "Japanese,Esperanto\n犬,hundo\n猫,kato\n",
			want:  []string{"hundo", "kato"},
		},
		{
			name:  "byte order mark and quotes",
			input: "\xef\xbb\xbf\"Esperanto\",Level\n\"ŝipo\",1\n",
			want:  []string{"ŝipo"},
		},
		{
			name:  "column name is case insensitive",
			input: "esperanto\nhundo\n",
			want:  []string{"hundo"},
		},
		{
			name:  "bare word list",
			input: "hundo\nkato\n",
			want:  []string{"hundo", "kato"},
		},
		{
			name:  "blank and short rows skipped",
			input: "Japanese,Esperanto\n犬,\n猫\n馬,ĉevalo\n",
			want:  []string{"ĉevalo"},
		},
		{
			name:  "empty file",
			input: "",
			want:  nil,
		},
		{
			name:    "missing column",
			input:   "Japanese,English\n犬,dog\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadWords(strings.NewReader(tt.input), DefaultColumn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadWords() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadWords() = %q, want %q", got, tt.want)
			}
		})
	}
}

package synth

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultColumn is the vocabulary column holding the words.
const DefaultColumn = "Esperanto"

// ReadWords reads the words of a vocabulary CSV from the named column.
// A single-column file without that header is read as a bare word list.
// Blank entries are skipped; a UTF-8 byte order mark is ignored.
func ReadWords(r io.Reader, column string) ([]string, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		_, _ = br.Discard(3)
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var words []string
	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		if len(header) != 1 {
			return nil, fmt.Errorf("no %q column in %v", column, header)
		}
		// A bare word list: the first line is a word.
		idx = 0
		if w := strings.TrimSpace(header[0]); w != "" {
			words = append(words, w)
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return words, nil
		}
		if err != nil {
			return nil, err
		}
		if idx >= len(rec) {
			continue
		}
		if w := strings.TrimSpace(rec[idx]); w != "" {
			words = append(words, w)
		}
	}
}

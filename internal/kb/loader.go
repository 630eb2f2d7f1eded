// Package kb loads the raw answer corpus and builds the knowledge base index.
package kb

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Loader reads the answer corpus from a delimited flat file. Each row has two
// columns: an identifier (ignored) and the answer text. Rows with any other
// shape are skipped.
type Loader struct {
	path      string
	delimiter rune
}

// NewLoader creates a loader for the file at path. An empty delimiter falls
// back to '~'.
func NewLoader(path, delimiter string) *Loader {
	d := '~'
	if delimiter != "" {
		d = []rune(delimiter)[0]
	}
	return &Loader{path: path, delimiter: d}
}

// Load returns the ordered answer texts from the corpus file.
func (l *Loader) Load() ([]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = l.delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var answers []string
	for _, row := range rows {
		if len(row) != 2 {
			continue
		}
		if answer := strings.TrimSpace(row[1]); answer != "" {
			answers = append(answers, answer)
		}
	}
	return answers, nil
}

package e2e

import (
	"testing"

	"github.com/hyperjump/kotae/internal/kb"
)

func TestCorpus_LoadsThroughLoader(t *testing.T) {
	entries := BuildCorpus()
	if len(entries) == 0 {
		t.Fatal("corpus has no entries")
	}
	path := WriteCorpusFile(t, t.TempDir(), entries)

	answers, err := kb.NewLoader(path, "~").Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(answers) != len(entries) {
		t.Fatalf("loaded %d answers, want %d", len(answers), len(entries))
	}
	for i, a := range answers {
		if a != entries[i].Answer {
			t.Errorf("answer %d: got %q, want %q", i, a, entries[i].Answer)
		}
	}
}

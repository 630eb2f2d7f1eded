// Package e2e provides end-to-end tests over the full answer pipeline.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SupportEntry pairs a canonical customer question with the answer the
// knowledge base stores for it.
type SupportEntry struct {
	Question string
	Answer   string
}

// BuildCorpus returns a small, fixed support corpus. Answers are distinct
// enough that matching any of them is unambiguous in assertions.
func BuildCorpus() []SupportEntry {
	return []SupportEntry{
		{
			Question: "what are your opening hours",
			Answer:   "Our support desk is available Monday through Friday, 9:00 to 18:00.",
		},
		{
			Question: "how do i reset my password",
			Answer:   "To reset your password, open the login page and choose Forgot Password. A reset link is mailed within a minute.",
		},
		{
			Question: "where can i download my invoices",
			Answer:   "Invoices are available under Account, Billing, Documents. Each invoice can be downloaded as PDF.",
		},
		{
			Question: "how do i cancel my subscription",
			Answer:   "You can cancel anytime from Account Settings. The subscription stays active until the end of the paid period.",
		},
		{
			Question: "do you offer refunds",
			Answer:   "Refunds are granted within 14 days of purchase. Contact billing support with your order number.",
		},
		{
			Question: "how do i contact a human",
			Answer:   "Write to help@example.com or use the escalate button in chat; an agent replies within one business day.",
		},
	}
}

// WriteCorpusFile writes the corpus to a delimited flat file in dir and
// returns its path. The file uses the same two-column layout the loader
// expects: identifier, then answer text.
func WriteCorpusFile(t *testing.T, dir string, entries []SupportEntry) string {
	t.Helper()
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d~%s\n", i+1, e.Answer)
	}
	path := filepath.Join(dir, "base.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write corpus file: %v", err)
	}
	return path
}

// AnswerSet returns the corpus answers as a lookup set.
func AnswerSet(entries []SupportEntry) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e.Answer] = true
	}
	return set
}

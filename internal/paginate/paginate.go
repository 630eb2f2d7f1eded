// Package paginate splits arbitrary-length text into bounded-size pages.
package paginate

// Default page length bounds in runes.
const (
	DefaultMinLen = 2048
	DefaultMaxLen = 4096
)

// Paginator splits text into pages between minLen and maxLen runes. Splitting
// is pure and deterministic: the same text and bounds always produce the same
// pages, and concatenating the pages in order reproduces the input exactly.
type Paginator struct {
	minLen int
	maxLen int
}

// New creates a paginator with the given bounds. Non-positive values fall back
// to the defaults.
func New(minLen, maxLen int) *Paginator {
	if minLen <= 0 {
		minLen = DefaultMinLen
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	return &Paginator{minLen: minLen, maxLen: maxLen}
}

// Split returns the ordered pages of text. A window of at most maxLen runes
// slides across the text; if the final window falls short of minLen and more
// than one window was produced, the pages are re-sliced to a uniform target
// length (total length divided by the window count) with all trailing runes
// going to the final page. A single page shorter than minLen is returned
// as-is: redistribution is skipped entirely when only one window exists.
// Empty input yields nil.
func (p *Paginator) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var bounds []int // end offset of each window
	for i := 0; i < len(runes); {
		size := p.maxLen
		if rem := len(runes) - i; rem < size {
			size = rem
		}
		i += size
		bounds = append(bounds, i)
	}

	n := len(bounds)
	tail := bounds[n-1]
	if n > 1 {
		tail = bounds[n-1] - bounds[n-2]
	}
	if n == 1 || tail >= p.minLen {
		pages := make([]string, n)
		start := 0
		for i, end := range bounds {
			pages[i] = string(runes[start:end])
			start = end
		}
		return pages
	}

	// Re-slice evenly: n-1 pages of target runes, remainder on the final page.
	// No upper bound is enforced on that final page.
	target := len(runes) / n
	pages := make([]string, 0, n)
	start := 0
	for i := 0; i < n-1; i++ {
		pages = append(pages, string(runes[start:start+target]))
		start += target
	}
	pages = append(pages, string(runes[start:]))
	return pages
}

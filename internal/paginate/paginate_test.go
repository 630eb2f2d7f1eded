package paginate

import (
	"strings"
	"testing"
)

func repeat(n int) string {
	return strings.Repeat("a", n)
}

func TestSplit_Empty(t *testing.T) {
	p := New(0, 0)
	if pages := p.Split(""); pages != nil {
		t.Errorf("empty text should return nil, got %v", pages)
	}
}

func TestSplit_SingleShortPage(t *testing.T) {
	p := New(0, 0)
	text := repeat(100)
	pages := p.Split(text)
	if len(pages) != 1 || pages[0] != text {
		t.Errorf("short text should come back as one page, got %d pages", len(pages))
	}
}

func TestSplit_ExactWindows(t *testing.T) {
	p := New(0, 0)
	pages := p.Split(repeat(8192))
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for i, pg := range pages {
		if len(pg) != 4096 {
			t.Errorf("page %d length=%d", i, len(pg))
		}
	}
}

func TestSplit_RedistributesShortTail(t *testing.T) {
	p := New(0, 0)
	pages := p.Split(repeat(9000))
	// Windowing gives 4096+4096+808; the short tail triggers an even re-slice
	// into three pages instead of two full pages plus a fragment.
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i, pg := range pages {
		if len(pg) < DefaultMinLen {
			t.Errorf("page %d below minimum: %d", i, len(pg))
		}
	}
	if len(pages[0]) != 3000 || len(pages[1]) != 3000 || len(pages[2]) != 3000 {
		t.Errorf("pages not evenly re-sliced: %d %d %d", len(pages[0]), len(pages[1]), len(pages[2]))
	}
}

func TestSplit_TailAboveMinimumKept(t *testing.T) {
	p := New(0, 0)
	pages := p.Split(repeat(4096 + 2048))
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[0]) != 4096 || len(pages[1]) != 2048 {
		t.Errorf("unexpected page sizes: %d %d", len(pages[0]), len(pages[1]))
	}
}

func TestSplit_ConcatenationReproducesInput(t *testing.T) {
	p := New(0, 0)
	for _, n := range []int{1, 2047, 2048, 4096, 4097, 6000, 8192, 9000, 12300, 20000} {
		text := repeat(n)
		pages := p.Split(text)
		if got := strings.Join(pages, ""); got != text {
			t.Errorf("length %d: concatenated pages differ from input (%d vs %d runes)", n, len(got), len(text))
		}
		for i, pg := range pages {
			if len(pg) > DefaultMaxLen && i != len(pages)-1 {
				t.Errorf("length %d: page %d exceeds maximum: %d", n, i, len(pg))
			}
			if len(pages) > 1 && len(pg) < DefaultMinLen {
				t.Errorf("length %d: page %d below minimum: %d", n, i, len(pg))
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	p := New(0, 0)
	text := repeat(10240)
	a := p.Split(text)
	b := p.Split(text)
	if len(a) != len(b) {
		t.Fatalf("page counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("page %d differs between calls", i)
		}
	}
}

func TestSplit_RuneSafe(t *testing.T) {
	p := New(4, 8)
	text := strings.Repeat("日本語テキスト分割", 3) // 27 runes
	pages := p.Split(text)
	if got := strings.Join(pages, ""); got != text {
		t.Errorf("multibyte text not reassembled: %q", got)
	}
}

func TestSplit_CustomBounds(t *testing.T) {
	p := New(10, 20)
	pages := p.Split(repeat(45))
	// Windows 20+20+5; the 5-rune tail forces re-slicing into 15+15+15.
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i, pg := range pages {
		if len(pg) != 15 {
			t.Errorf("page %d length=%d, want 15", i, len(pg))
		}
	}
}

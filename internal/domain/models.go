package domain

// PageDiffMap holds one entry per page index, true when that page differs.
type PageDiffMap []bool

// Count returns the number of differing pages
func (m PageDiffMap) Count() int {
	n := 0
	for _, differs := range m {
		if differs {
			n++
		}
	}
	return n
}

// Next returns the first differing page after index, or -1.
func (m PageDiffMap) Next(index int) int {
	for i := index + 1; i < len(m); i++ {
		if m[i] {
			return i
		}
	}
	return -1
}

// Prev returns the last differing page before index, or -1.
func (m PageDiffMap) Prev(index int) int {
	if index > len(m) {
		index = len(m)
	}
	for i := index - 1; i >= 0; i-- {
		if m[i] {
			return i
		}
	}
	return -1
}

// PageResult describes the outcome for a single page index
type PageResult struct {
	Index      int  `json:"page"`
	Changed    bool `json:"changed"`
	DiffPixels int  `json:"diff_pixels"`
	InFirst    bool `json:"in_first"`
	InSecond   bool `json:"in_second"`
}

// Summary is the result of comparing two documents
type Summary struct {
	Equal         bool         `json:"equal"`
	PagesFirst    int          `json:"pages_first"`
	PagesSecond   int          `json:"pages_second"`
	PagesTotal    int          `json:"pages_total"`
	PagesCompared int          `json:"pages_compared"`
	StoppedEarly  bool         `json:"stopped_early"`
	DiffMap       PageDiffMap  `json:"diff_map,omitempty"`
	Pages         []PageResult `json:"pages"`
}

// PageCountMismatch reports whether the two documents have different page counts
func (s *Summary) PageCountMismatch() bool {
	return s.PagesFirst != s.PagesSecond
}

// ChangedPages returns the results of all differing pages
func (s *Summary) ChangedPages() []PageResult {
	var changed []PageResult
	for _, p := range s.Pages {
		if p.Changed {
			changed = append(changed, p)
		}
	}
	return changed
}

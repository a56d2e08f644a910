package model

// MaxPageCount caps the number of records a single list call returns
const MaxPageCount = 100

// Page is an offset/count window over an ordered listing
type Page struct {
	Offset int
	Count  int
}

// DefaultPage returns the first ten records
func DefaultPage() Page {
	return Page{Offset: 0, Count: 10}
}

// Validate checks bounds and clamps Count to MaxPageCount
func (p Page) Validate() (Page, error) {
	if p.Offset < 0 || p.Count < 1 {
		return p, ErrInvalidPage
	}
	if p.Count > MaxPageCount {
		p.Count = MaxPageCount
	}
	return p, nil
}

// Window returns the [start, end) slice bounds of the page within n records
func (p Page) Window(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Count
	if end > n {
		end = n
	}
	return start, end
}

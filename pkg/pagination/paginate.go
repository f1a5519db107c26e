package pagination

import "math"

// DefaultPageSize is the number of rows per listing page.
const DefaultPageSize = 20

// Page is one window of a larger result set.
type Page[T any] struct {
	// Items in this page. Never nil; shares backing storage with the input.
	Items []T

	// Number is the 1-based page number requested.
	Number int

	// Size is the requested page size.
	Size int

	// HasMore reports whether items exist past this page.
	HasMore bool

	// Total is the length of the full result set.
	Total int
}

// Paginate returns page number of items, size items per page.
// The input slice is not modified.
func Paginate[T any](items []T, number, size int) Page[T] {
	start, end := window(number, size)

	lo := clamp(start, 0, len(items))
	hi := clamp(end, lo, len(items))

	page := items[lo:hi:hi]
	if page == nil {
		page = []T{}
	}

	return Page[T]{
		Items:   page,
		Number:  number,
		Size:    size,
		HasMore: end < len(items),
		Total:   len(items),
	}
}

// window returns the unclipped half-open bounds of page number. Pages whose
// bounds would not fit in an int saturate instead of wrapping around.
func window(number, size int) (start, end int) {
	if size <= 0 {
		return 0, 0
	}
	switch {
	case number > 1 && number-1 > (math.MaxInt-size)/size:
		return math.MaxInt, math.MaxInt
	case number < 1 && number < math.MinInt/size+1:
		return math.MinInt, math.MinInt
	}
	start = (number - 1) * size
	return start, start + size
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

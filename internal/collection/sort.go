package collection

import (
	"slices"
	"time"
)

// SortOrder selects the direction of SortByDate.
type SortOrder int

const (
	// Descending puts the most recent item first. It is the zero value.
	Descending SortOrder = iota
	Ascending
)

// SortByDate returns a sorted copy of items; the input slice is left as is.
// dateOf reports false for items without a usable date, which sort as the
// zero time. Items with equal dates keep their relative order.
func SortByDate[T any](items []T, dateOf func(T) (time.Time, bool), order SortOrder) []T {
	sorted := slices.Clone(items)
	if len(sorted) < 2 {
		return sorted
	}
	key := func(item T) time.Time {
		t, ok := dateOf(item)
		if !ok {
			return time.Time{}
		}
		return t
	}
	slices.SortStableFunc(sorted, func(a, b T) int {
		c := key(a).Compare(key(b))
		if order == Descending {
			return -c
		}
		return c
	})
	return sorted
}

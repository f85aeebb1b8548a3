// Package portion splits the records of a test job into ordered portions.
package portion

// Count returns the number of portions for total records of portion size size:
// ceil(total/size), and 1 when total is smaller than size (including an empty file).
func Count(total, size int) int {
	if size <= 0 || total < size {
		return 1
	}
	n := total / size
	if total%size != 0 {
		n++
	}
	return n
}

// Partition splits items into Count(len(items), size) consecutive slices of at most size elements.
// The slices share the backing array of items. An empty input yields one empty portion.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	n := Count(len(items), size)
	portions := make([][]T, 0, n)
	for from := 0; len(portions) < n; from += size {
		to := from + size
		if to > len(items) {
			to = len(items)
		}
		portions = append(portions, items[from:to:to])
	}
	return portions
}

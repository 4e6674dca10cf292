package engine

import (
	"directoryhub/internal/models"
	"sort"
)

// rank returns the indices of the n highest (desc) or lowest values.
// Equal values keep their original relative order.
func rank(values []float64, n int, desc bool) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if desc {
			return values[idx[a]] > values[idx[b]]
		}
		return values[idx[a]] < values[idx[b]]
	})
	if n < len(idx) {
		idx = idx[:n]
	}
	return idx
}

// TopN keeps the n largest entries, largest first.
func TopN(ds models.Dataset, n int) models.Dataset {
	return ds.Pick(rank(ds.Values, n, true))
}

// BottomN keeps the n smallest entries, smallest first.
func BottomN(ds models.Dataset, n int) models.Dataset {
	return ds.Pick(rank(ds.Values, n, false))
}

// Single keeps only label. ok is false when label is absent.
func Single(ds models.Dataset, label string) (models.Dataset, bool) {
	i := ds.IndexOf(label)
	if i < 0 {
		return ds, false
	}
	return ds.Pick([]int{i}), true
}

package kvengine

import "sort"

// sortStrings sorts ss ascending in place.
func sortStrings(ss []string) {
	sort.Strings(ss)
}

// upperBound returns the index of the first element of the (ascending,
// sorted) slice ss that is strictly greater than after.
func upperBound(ss []string, after string) int {
	return sort.Search(len(ss), func(i int) bool {
		return ss[i] > after
	})
}

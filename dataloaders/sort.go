package dataloaders

import (
	"cmp"
	"slices"
	"strconv"
)

// Subject ids are numeric in every export seen so far; compare them as
// numbers when both parse.
func compareIDs(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(a, b)
}

func sortKeys(keys []lifeKey) {
	slices.SortFunc(keys, func(a, b lifeKey) int {
		if c := compareIDs(a.id, b.id); c != 0 {
			return c
		}
		return cmp.Compare(a.life, b.life)
	})
}

func sortByPeriod(rs []RawRecord) {
	slices.SortStableFunc(rs, func(a, b RawRecord) int {
		return cmp.Compare(a.Period, b.Period)
	})
}

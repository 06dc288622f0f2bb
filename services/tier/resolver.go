package tier

import "sort"

// Resolve returns the tier with the greatest MinPoints less than or equal to
// total. When no tier matches (total below every explicit threshold) the tier
// with the lowest SortOrder is returned as the base. Resolution has no hidden
// state: the same tiers and total always produce the same result.
func Resolve(tiers []*Tier, total int64) *Tier {
	if len(tiers) == 0 {
		return nil
	}

	ordered := make([]*Tier, len(tiers))
	copy(ordered, tiers)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SortOrder < ordered[j].SortOrder
	})

	current := ordered[0]
	for _, t := range ordered {
		if t.MinPoints <= total {
			current = t
		}
	}

	return current
}

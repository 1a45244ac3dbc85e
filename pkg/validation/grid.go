package validation

import "sort"

// Grid maps a parameter name to its candidate values.
type Grid map[string][]float64

// Combinations enumerates the cartesian product of the grid. Keys are walked
// in sorted order so the enumeration is deterministic, which fixes the
// tie-break order of equal-scoring candidates.
func (g Grid) Combinations() []map[string]float64 {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []map[string]float64{{}}
	for _, key := range keys {
		values := g[key]
		next := make([]map[string]float64, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				expanded := make(map[string]float64, len(combo)+1)
				for ck, cv := range combo {
					expanded[ck] = cv
				}
				expanded[key] = v
				next = append(next, expanded)
			}
		}
		combos = next
	}
	return combos
}

// Size returns the number of combinations the grid expands to.
func (g Grid) Size() int {
	n := 1
	for _, values := range g {
		n *= len(values)
	}
	return n
}

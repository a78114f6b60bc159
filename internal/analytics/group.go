package analytics

// Group is one bucket of a GroupBy result.
type Group struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
}

// GroupBy buckets items by key in first-seen order. Keys are compared
// case-sensitively. A nil value func only counts.
func GroupBy[T any](items []T, key func(T) string, value func(T) float64) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, it := range items {
		k := key(it)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Count++
		if value != nil {
			groups[i].Sum += value(it)
		}
	}

	for i := range groups {
		groups[i].Sum = round2(groups[i].Sum)
		groups[i].Average = round2(ratio(groups[i].Sum, float64(groups[i].Count)))
	}
	return groups
}

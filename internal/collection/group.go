// Package collection holds small generic helpers for expense lists.
package collection

// GroupBy buckets items by key. Items keep their input order inside each
// bucket.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		groups[k] = append(groups[k], item)
	}
	return groups
}

// Group is one bucket produced by GroupByOrdered.
type Group[K comparable, T any] struct {
	Key   K
	Items []T
}

// GroupByOrdered is GroupBy with the buckets listed in first-seen key order.
func GroupByOrdered[T any, K comparable](items []T, key func(T) K) []Group[K, T] {
	index := make(map[K]int)
	var groups []Group[K, T]
	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

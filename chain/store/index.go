package store

import "sort"

// UniqueIndex maps a unique key K to one record of type T.
type UniqueIndex[T any, K comparable] struct {
	keyFn func(*T) K
	byKey map[K]*T
}

func (idx *UniqueIndex[T, K]) add(obj *T)    { idx.byKey[idx.keyFn(obj)] = obj }
func (idx *UniqueIndex[T, K]) remove(obj *T) { delete(idx.byKey, idx.keyFn(obj)) }

// Find looks up the record for key, if any.
func (idx *UniqueIndex[T, K]) Find(key K) (*T, bool) {
	obj, ok := idx.byKey[key]
	return obj, ok
}

// MultiIndex maps a non-unique key K to any number of records of type T.
type MultiIndex[T any, K comparable] struct {
	keyFn func(*T) K
	byKey map[K]map[*T]struct{}
}

func (idx *MultiIndex[T, K]) add(obj *T) {
	key := idx.keyFn(obj)
	bucket := idx.byKey[key]
	if bucket == nil {
		bucket = make(map[*T]struct{})
		idx.byKey[key] = bucket
	}
	bucket[obj] = struct{}{}
}

func (idx *MultiIndex[T, K]) remove(obj *T) {
	key := idx.keyFn(obj)
	bucket := idx.byKey[key]
	if bucket == nil {
		return
	}
	delete(bucket, obj)
	if len(bucket) == 0 {
		delete(idx.byKey, key)
	}
}

// All returns every record currently filed under key, in unspecified order.
func (idx *MultiIndex[T, K]) All(key K) []*T {
	bucket := idx.byKey[key]
	out := make([]*T, 0, len(bucket))
	for obj := range bucket {
		out = append(out, obj)
	}
	return out
}

// SortedIndex keeps records ordered by a key using an injected Less
// function, so the order book can scan the best-priced order first. Insert
// and remove are O(n); acceptable at the scale this engine targets (spec
// budget is a faithful single-node reimplementation, not a throughput
// benchmark).
type SortedIndex[T any, K any] struct {
	keyFn   func(*T) K
	less    func(a, b K) bool
	entries []*T
}

func (idx *SortedIndex[T, K]) add(obj *T) {
	key := idx.keyFn(obj)
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.less(key, idx.keyFn(idx.entries[i]))
	})
	idx.entries = append(idx.entries, nil)
	copy(idx.entries[i+1:], idx.entries[i:])
	idx.entries[i] = obj
}

func (idx *SortedIndex[T, K]) remove(obj *T) {
	for i, e := range idx.entries {
		if e == obj {
			idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
			return
		}
	}
}

// Best returns the lowest-keyed record (the one Less ranks first), if any.
func (idx *SortedIndex[T, K]) Best() (*T, bool) {
	if len(idx.entries) == 0 {
		return nil, false
	}
	return idx.entries[0], true
}

// Ascending returns every record in ascending key order. Callers that mutate
// while iterating should copy the slice first or follow the copy-ID-then-
// mutate discipline from spec §9.
func (idx *SortedIndex[T, K]) Ascending() []*T {
	out := make([]*T, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Len reports how many records are indexed.
func (idx *SortedIndex[T, K]) Len() int { return len(idx.entries) }

package store

import (
	"fmt"

	"aurora-chain/chain/types"
)

// ID is an object identifier, unique within its table.
type ID = types.ID

// Object is implemented (via pointer receiver) by every record type kept in
// a Table.
type Object interface {
	GetID() ID
	SetID(ID)
}

// indexMaintainer is the narrow interface a Table uses to keep every
// registered secondary index in sync on create/modify/remove.
type indexMaintainer[T any] interface {
	add(*T)
	remove(*T)
}

// Table holds typed records keyed by a primary ID, plus any number of
// secondary indices registered with AddUniqueIndex/AddMultiIndex/AddSortedIndex.
// PT is the pointer-to-T constraint carrying the Object methods, the
// standard Go generics idiom for "T whose pointer implements an interface".
type Table[T any, PT interface {
	*T
	Object
}] struct {
	name    string
	records map[ID]*T
	nextID  ID
	indices []indexMaintainer[T]
}

// NewTable creates an empty table identified by name (used only for error
// messages).
func NewTable[T any, PT interface {
	*T
	Object
}](name string) *Table[T, PT] {
	return &Table[T, PT]{
		name:    name,
		records: make(map[ID]*T),
	}
}

// Create allocates a new record, assigns it the next ID, runs ctor to
// populate its fields, inserts it into every registered index, and records
// an inverse action on sess so a rollback removes it again.
func (tb *Table[T, PT]) Create(sess *Session, ctor func(*T)) *T {
	obj := new(T)
	ctor(obj)
	id := tb.nextID
	tb.nextID++
	PT(obj).SetID(id)
	tb.records[id] = obj
	for _, idx := range tb.indices {
		idx.add(obj)
	}
	sess.record(func() {
		for _, idx := range tb.indices {
			idx.remove(obj)
		}
		delete(tb.records, id)
	})
	return obj
}

// Modify relocates obj out of every index, runs mutator, then reinserts it —
// the only sanctioned way to change a field participating in an index,
// per spec §9's "mutation under an index" note. It snapshots the prior value
// so a rollback restores it exactly.
func (tb *Table[T, PT]) Modify(sess *Session, obj *T, mutator func(*T)) {
	old := *obj
	for _, idx := range tb.indices {
		idx.remove(obj)
	}
	mutator(obj)
	for _, idx := range tb.indices {
		idx.add(obj)
	}
	sess.record(func() {
		for _, idx := range tb.indices {
			idx.remove(obj)
		}
		*obj = old
		for _, idx := range tb.indices {
			idx.add(obj)
		}
	})
}

// Remove deletes obj from the table and every index, recording an inverse
// action that reinserts it on rollback.
func (tb *Table[T, PT]) Remove(sess *Session, obj *T) {
	id := PT(obj).GetID()
	for _, idx := range tb.indices {
		idx.remove(obj)
	}
	delete(tb.records, id)
	sess.record(func() {
		tb.records[id] = obj
		for _, idx := range tb.indices {
			idx.add(obj)
		}
	})
}

// Find looks up a record by primary ID without failing.
func (tb *Table[T, PT]) Find(id ID) (*T, bool) {
	obj, ok := tb.records[id]
	return obj, ok
}

// Get looks up a record by primary ID, failing if absent.
func (tb *Table[T, PT]) Get(id ID) (*T, error) {
	obj, ok := tb.records[id]
	if !ok {
		return nil, fmt.Errorf("%s: object %d not found", tb.name, id)
	}
	return obj, nil
}

// Len reports the number of live records.
func (tb *Table[T, PT]) Len() int { return len(tb.records) }

// Range calls fn for every live record in unspecified order, stopping early
// if fn returns false. Callers that mutate while ranging must follow §9's
// "pre-copy the ID, advance, then mutate" discipline; Range itself only
// reads.
func (tb *Table[T, PT]) Range(fn func(*T) bool) {
	for _, obj := range tb.records {
		if !fn(obj) {
			return
		}
	}
}

// AddUniqueIndex registers a secondary index keyed by a unique K, backed by
// keyFn, and backfills it with any records already in the table.
func AddUniqueIndex[T any, PT interface {
	*T
	Object
}, K comparable](tb *Table[T, PT], keyFn func(*T) K) *UniqueIndex[T, K] {
	idx := &UniqueIndex[T, K]{keyFn: keyFn, byKey: make(map[K]*T)}
	for _, obj := range tb.records {
		idx.add(obj)
	}
	tb.indices = append(tb.indices, idx)
	return idx
}

// AddMultiIndex registers a secondary index keyed by a non-unique K.
func AddMultiIndex[T any, PT interface {
	*T
	Object
}, K comparable](tb *Table[T, PT], keyFn func(*T) K) *MultiIndex[T, K] {
	idx := &MultiIndex[T, K]{keyFn: keyFn, byKey: make(map[K]map[*T]struct{})}
	for _, obj := range tb.records {
		idx.add(obj)
	}
	tb.indices = append(tb.indices, idx)
	return idx
}

// AddSortedIndex registers a secondary index ordered by less, used by the
// order book to scan the best-priced order first.
func AddSortedIndex[T any, PT interface {
	*T
	Object
}, K any](tb *Table[T, PT], keyFn func(*T) K, less func(a, b K) bool) *SortedIndex[T, K] {
	idx := &SortedIndex[T, K]{keyFn: keyFn, less: less}
	for _, obj := range tb.records {
		idx.add(obj)
	}
	tb.indices = append(tb.indices, idx)
	return idx
}

package store

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Snapshotter persists committed table contents to a leveldb instance,
// namespaced by table name, in the same key-prefix style the teacher's
// StateDB uses for account balances. Spec §6 requires only that an
// implementation "offer session semantics"; it does not prescribe a wire
// format, so callers own the encoding of each record (typically JSON) and
// this type only owns the namespacing and the open/close lifecycle. Writes
// should happen once per block, after the block's outermost session
// commits, not per-operation.
type Snapshotter struct {
	db *leveldb.DB
}

// OpenSnapshotter opens (or creates) a leveldb database at path.
func OpenSnapshotter(path string) (*Snapshotter, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Snapshotter{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Snapshotter) Close() error {
	return s.db.Close()
}

func namespacedKey(namespace string, key []byte) []byte {
	out := make([]byte, 0, len(namespace)+1+len(key))
	out = append(out, namespace...)
	out = append(out, '/')
	out = append(out, key...)
	return out
}

// Put writes value under namespace/key.
func (s *Snapshotter) Put(namespace string, key, value []byte) error {
	return s.db.Put(namespacedKey(namespace, key), value, nil)
}

// Get reads value under namespace/key.
func (s *Snapshotter) Get(namespace string, key []byte) ([]byte, error) {
	return s.db.Get(namespacedKey(namespace, key), nil)
}

// Delete removes namespace/key.
func (s *Snapshotter) Delete(namespace string, key []byte) error {
	return s.db.Delete(namespacedKey(namespace, key), nil)
}

// Range calls fn for every key/value pair under namespace, stopping early if
// fn returns false.
func (s *Snapshotter) Range(namespace string, fn func(key, value []byte) bool) error {
	prefix := append([]byte(namespace), '/')
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()[len(prefix):]
		if !fn(key, iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Package store declares the key value store interfaces used for state
// snapshots, along with btree backed in-memory implementations with
// cache-wrap (write or discard) support.
package store

import "fmt"

// ReadOnlyKVStore is the query side of a key value store.
type ReadOnlyKVStore interface {
	// Get returns nil if the key doesn't exist.
	Get(key []byte) ([]byte, error)

	// Has checks if a key exists.
	Has(key []byte) (bool, error)
}

// SetDeleter is the write side of a key value store.
type SetDeleter interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// KVStore is a simple interface to get and set data. All backing stores
// used by the engine implement at least this interface.
type KVStore interface {
	ReadOnlyKVStore
	SetDeleter

	// NewBatch returns a batch that can write to this store later.
	NewBatch() Batch
}

// Batch groups writes that are applied to the underlying store together
// on Write.
type Batch interface {
	SetDeleter
	Write() error
}

// CacheableKVStore is a KVStore that can capture a group of temporary
// writes which may be committed or discarded together, like a SAVEPOINT
// in sql.
type CacheableKVStore interface {
	KVStore
	CacheWrap() KVCacheWrap
}

// KVCacheWrap is a scratch pad of uncommitted data visible to all
// queries on it. At the end, call Write to flush it to the parent store,
// or Discard to drop everything.
type KVCacheWrap interface {
	// CacheableKVStore allows us to wrap recursively.
	CacheableKVStore

	// Write syncs with the underlying store.
	Write() error

	// Discard invalidates this CacheWrap and releases all data.
	Discard()
}

// EmptyKVStore never holds any data. It is used as the bottom layer
// below in-memory caches.
type EmptyKVStore struct{}

var _ KVStore = EmptyKVStore{}

func (e EmptyKVStore) Get(key []byte) ([]byte, error) { return nil, nil }

func (e EmptyKVStore) Has(key []byte) (bool, error) { return false, nil }

func (e EmptyKVStore) Set(key, value []byte) error { return nil }

func (e EmptyKVStore) Delete(key []byte) error { return nil }

func (e EmptyKVStore) NewBatch() Batch { return NewNonAtomicBatch(e) }

type opKind int32

const (
	setKind opKind = iota + 1
	delKind
)

// Op is a single set or delete operation recorded by a batch.
type Op struct {
	kind  opKind
	key   []byte
	value []byte // only for set
}

// SetOp is a helper to create a set operation.
func SetOp(key, value []byte) Op {
	return Op{kind: setKind, key: key, value: value}
}

// DelOp is a helper to create a delete operation.
func DelOp(key []byte) Op {
	return Op{kind: delKind, key: key}
}

// Apply performs the operation on the given store.
func (o Op) Apply(out SetDeleter) error {
	switch o.kind {
	case setKind:
		return out.Set(o.key, o.value)
	case delKind:
		return out.Delete(o.key)
	default:
		return fmt.Errorf("unknown operation kind: %d", o.kind)
	}
}

// NonAtomicBatch piles up operations and applies them to the underlying
// store on Write. There is no atomicity guarantee when the underlying
// store fails half way through, which is acceptable for the in-memory
// stores this package provides.
type NonAtomicBatch struct {
	out SetDeleter
	ops []Op
}

var _ Batch = (*NonAtomicBatch)(nil)

// NewNonAtomicBatch creates an empty batch to be later written to the
// given store.
func NewNonAtomicBatch(out SetDeleter) *NonAtomicBatch {
	return &NonAtomicBatch{out: out}
}

func (b *NonAtomicBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *NonAtomicBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

// Write applies all recorded operations to the underlying store and
// resets the batch.
func (b *NonAtomicBatch) Write() error {
	for _, op := range b.ops {
		if err := op.Apply(b.out); err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}

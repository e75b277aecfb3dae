package store

import (
	"bytes"

	"github.com/google/btree"

	"github.com/vaultsig/vault/errors"
)

// BTreeCacheable adds a btree based CacheWrap strategy to any KVStore.
type BTreeCacheable struct {
	KVStore
}

var _ CacheableKVStore = BTreeCacheable{}

// CacheWrap returns a cache layer that can later be written to the
// wrapped store, or rolled back.
func (b BTreeCacheable) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b.KVStore, b.NewBatch())
}

// MemStore returns a simple in-memory store, useful for tests. There is
// no persistence here.
func MemStore() CacheableKVStore {
	e := EmptyKVStore{}
	return NewBTreeCacheWrap(e, e.NewBatch())
}

// BTreeCacheWrap places a btree cache over a read-only view of a store.
// All writes are mirrored into the batch so that Write can flush them to
// the parent.
type BTreeCacheWrap struct {
	bt    *btree.BTree
	back  ReadOnlyKVStore
	batch Batch
}

var _ KVCacheWrap = BTreeCacheWrap{}

// NewBTreeCacheWrap initializes a btree cache around the given store.
// The ReadOnlyKVStore type emphasizes that all writes must go through
// the batch.
func NewBTreeCacheWrap(kv ReadOnlyKVStore, batch Batch) BTreeCacheWrap {
	return BTreeCacheWrap{
		bt:    btree.New(2),
		back:  kv,
		batch: batch,
	}
}

// CacheWrap layers another btree cache on top of this one.
func (b BTreeCacheWrap) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b, b.NewBatch())
}

// NewBatch returns a batch that eventually may write to this cache wrap.
func (b BTreeCacheWrap) NewBatch() Batch {
	return NewNonAtomicBatch(b)
}

// Write flushes the cached writes to the underlying store and then
// cleans up.
func (b BTreeCacheWrap) Write() error {
	err := b.batch.Write()
	b.Discard()
	return err
}

// Discard invalidates this cache wrap and releases all cached data.
func (b BTreeCacheWrap) Discard() {
	for b.bt.DeleteMin() != nil {
	}
}

// Set writes to the btree and records the write in the batch.
func (b BTreeCacheWrap) Set(key, value []byte) error {
	b.bt.ReplaceOrInsert(treeItem{key: key, value: value})
	return b.batch.Set(key, value)
}

// Delete marks the key as removed in the btree and records the delete in
// the batch.
func (b BTreeCacheWrap) Delete(key []byte) error {
	b.bt.ReplaceOrInsert(treeItem{key: key, deleted: true})
	return b.batch.Delete(key)
}

// Get reads from the btree if the key was touched, otherwise from the
// backing store.
func (b BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	if res := b.bt.Get(treeItem{key: key}); res != nil {
		item, ok := res.(treeItem)
		if !ok {
			return nil, errors.Wrapf(errors.ErrDatabase, "unexpected btree item: %#v", res)
		}
		if item.deleted {
			return nil, nil
		}
		return item.value, nil
	}
	return b.back.Get(key)
}

// Has reads from the btree if the key was touched, otherwise from the
// backing store.
func (b BTreeCacheWrap) Has(key []byte) (bool, error) {
	if res := b.bt.Get(treeItem{key: key}); res != nil {
		item, ok := res.(treeItem)
		if !ok {
			return false, errors.Wrapf(errors.ErrDatabase, "unexpected btree item: %#v", res)
		}
		return !item.deleted, nil
	}
	return b.back.Has(key)
}

// treeItem is the only item type stored in the btree. A deleted flag
// shadows any value the backing store may hold for the key.
type treeItem struct {
	key     []byte
	value   []byte
	deleted bool
}

var _ btree.Item = treeItem{}

// Less returns true iff the second argument is greater than the first.
func (i treeItem) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(treeItem).key) < 0
}

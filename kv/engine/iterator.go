package engine

import (
	"bytes"

	"github.com/coocood/badger"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/cloudkv/kv/util/codec"
)

// rawItem wraps a badger item from an unversioned family, stripping the
// column family prefix from the key.
type rawItem struct {
	item      *badger.Item
	prefixLen int
}

func (i *rawItem) Key() []byte {
	return i.item.Key()[i.prefixLen:]
}

func (i *rawItem) Value() ([]byte, error) {
	value, err := i.item.Value()
	return value, errors.Trace(err)
}

func (i *rawItem) ValueSize() int {
	return i.item.ValueSize()
}

func (i *rawItem) UserMeta() []byte {
	return i.item.UserMeta()
}

// versionedItem wraps a badger item from the write family. The stored key
// carries the commit version suffix; Key strips it.
type versionedItem struct {
	item      *badger.Item
	prefixLen int
}

func (i *versionedItem) Key() []byte {
	return codec.DecodeUserKey(i.item.Key()[i.prefixLen:])
}

// CommitTS returns the commit version the item was stored under.
func (i *versionedItem) CommitTS() uint64 {
	return codec.DecodeTs(i.item.Key()[i.prefixLen:])
}

func (i *versionedItem) Value() ([]byte, error) {
	value, err := i.item.Value()
	return value, errors.Trace(err)
}

func (i *versionedItem) ValueSize() int {
	return i.item.ValueSize()
}

func (i *versionedItem) UserMeta() []byte {
	return i.item.UserMeta()
}

// ownedItem holds copies that outlive the iterator they came from.
type ownedItem struct {
	key   []byte
	value []byte
	meta  []byte
}

func (i *ownedItem) Key() []byte            { return i.key }
func (i *ownedItem) Value() ([]byte, error) { return i.value, nil }
func (i *ownedItem) ValueSize() int         { return len(i.value) }
func (i *ownedItem) UserMeta() []byte       { return i.meta }

// plainIterator iterates an unversioned family.
type plainIterator struct {
	iter    *badger.Iterator
	prefix  []byte
	cf      string
	reverse bool
}

func (it *plainIterator) Item() Item {
	return &rawItem{item: it.iter.Item(), prefixLen: len(it.prefix)}
}

func (it *plainIterator) Valid() bool {
	return it.iter.ValidForPrefix(it.prefix)
}

func (it *plainIterator) Next() {
	snapshotNextCounter.WithLabelValues(it.cf).Inc()
	it.iter.Next()
}

func (it *plainIterator) Seek(key []byte) {
	snapshotSeekCounter.WithLabelValues(it.cf).Inc()
	it.iter.Seek(append(append([]byte{}, it.prefix...), key...))
}

func (it *plainIterator) Rewind() {
	snapshotSeekCounter.WithLabelValues(it.cf).Inc()
	it.iter.Seek(rewindTarget(it.prefix, it.reverse))
}

func (it *plainIterator) Close() {
	it.iter.Close()
}

// versionedIterator iterates the write family. When allVersions is unset it
// visits only the newest retained version of each user key.
type versionedIterator struct {
	iter        *badger.Iterator
	prefix      []byte
	cf          string
	reverse     bool
	allVersions bool
}

func (it *versionedIterator) Item() Item {
	return &versionedItem{item: it.iter.Item(), prefixLen: len(it.prefix)}
}

func (it *versionedIterator) Valid() bool {
	return it.iter.ValidForPrefix(it.prefix)
}

func (it *versionedIterator) Next() {
	snapshotNextCounter.WithLabelValues(it.cf).Inc()
	if it.allVersions {
		it.iter.Next()
		return
	}
	current := append([]byte{}, it.Item().Key()...)
	for {
		it.iter.Next()
		if !it.Valid() || !bytes.Equal(it.Item().Key(), current) {
			return
		}
	}
}

func (it *versionedIterator) Seek(key []byte) {
	snapshotSeekCounter.WithLabelValues(it.cf).Inc()
	// Seek to the newest version of key.
	it.iter.Seek(append(append([]byte{}, it.prefix...), codec.EncodeBytes(key)...))
}

func (it *versionedIterator) Rewind() {
	snapshotSeekCounter.WithLabelValues(it.cf).Inc()
	it.iter.Seek(rewindTarget(it.prefix, it.reverse))
}

func (it *versionedIterator) Close() {
	it.iter.Close()
}

// rewindTarget is the seek key that lands on the first entry of a family.
// Forward iterators seek the prefix itself; reverse iterators seek just past
// the last possible key of the family.
func rewindTarget(prefix []byte, reverse bool) []byte {
	target := append([]byte{}, prefix...)
	if reverse {
		target[len(target)-1]++
	}
	return target
}

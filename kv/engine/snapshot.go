package engine

import (
	"bytes"
	"math"

	"github.com/coocood/badger"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/cloudkv/kv/util/codec"
)

// SnapAccess is a point-in-time, read-only view of the engine. A snapshot can
// be shared between any number of concurrent readers; nothing reachable
// through it mutates. Each reader must call Discard exactly once when done.
type SnapAccess interface {
	// Get returns the item stored under key in cf whose commit version is the
	// greatest not exceeding tsCeiling. tsCeiling 0 means no ceiling. A nil
	// item means no visible entry; it is not an error.
	Get(cf string, key []byte, tsCeiling uint64) (Item, error)
	// NewIterator returns an iterator over cf in key order. For the versioned
	// write family, allVersions exposes every retained version of a key;
	// otherwise only the newest version of each key is visited.
	NewIterator(cf string, reverse, allVersions bool) Iterator
	// Discard releases the view.
	Discard()
}

// Item is a single stored entry exposed by a snapshot.
type Item interface {
	// Key returns the user key, with any engine version suffix stripped.
	Key() []byte
	// Value retrieves the value bytes.
	Value() ([]byte, error)
	// ValueSize returns the size of the value without fetching it.
	ValueSize() int
	// UserMeta returns the version metadata blob, empty if absent.
	UserMeta() []byte
}

// Iterator walks one column family of a snapshot.
type Iterator interface {
	// Item returns the current entry. Only call when Valid.
	Item() Item
	// Valid returns false when iteration is done.
	Valid() bool
	// Next advances the iterator by one. Always check Valid after a Next.
	Next()
	// Seek positions at the first entry with user key >= key (<= for reverse
	// iterators).
	Seek(key []byte)
	// Rewind positions at the first entry of the family.
	Rewind()
	// Close releases the iterator. It must be called.
	Close()
}

// Snapshot is the badger-backed SnapAccess. It holds a read-only transaction
// for the lifetime of the view.
type Snapshot struct {
	txn *badger.Txn
}

func (s *Snapshot) Get(cf string, key []byte, tsCeiling uint64) (Item, error) {
	snapshotGetCounter.WithLabelValues(cf).Inc()
	if cf == CfWrite {
		return s.getVersioned(cf, key, tsCeiling)
	}
	item, err := s.txn.Get(KeyWithCF(cf, key))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	if item.IsEmpty() {
		return nil, nil
	}
	return &rawItem{item: item, prefixLen: len(cf) + 1}, nil
}

// getVersioned performs version selection for the write family: a seek to
// (key, ceiling) lands on the version with the greatest commitTS <= ceiling.
func (s *Snapshot) getVersioned(cf string, key []byte, tsCeiling uint64) (Item, error) {
	if tsCeiling == 0 {
		tsCeiling = math.MaxUint64
	}
	prefix := []byte(cf + "_")
	iter := s.txn.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()
	snapshotSeekCounter.WithLabelValues(cf).Inc()
	iter.Seek(append(prefix, codec.EncodeKey(key, tsCeiling)...))
	if !iter.ValidForPrefix(prefix) {
		return nil, nil
	}
	item := iter.Item()
	versioned := item.Key()[len(prefix):]
	if !bytes.Equal(codec.DecodeUserKey(versioned), key) {
		return nil, nil
	}
	// The badger item dies with the iterator, so hand out copies.
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &ownedItem{
		key:   append([]byte{}, key...),
		value: value,
		meta:  append([]byte{}, item.UserMeta()...),
	}, nil
}

func (s *Snapshot) NewIterator(cf string, reverse, allVersions bool) Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	iter := s.txn.NewIterator(opts)
	if cf == CfWrite {
		return &versionedIterator{
			iter:        iter,
			prefix:      []byte(cf + "_"),
			cf:          cf,
			reverse:     reverse,
			allVersions: allVersions,
		}
	}
	return &plainIterator{iter: iter, prefix: []byte(cf + "_"), cf: cf, reverse: reverse}
}

func (s *Snapshot) Discard() {
	s.txn.Discard()
}

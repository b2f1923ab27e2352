package mvcc

import (
	"bytes"
	"fmt"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/cloudkv/kv/engine"
)

// Reader resolves transactional meaning from one engine snapshot: whether a
// transaction committed or rolled back on a key, which value is visible at a
// timestamp, and which locks are held. It never mutates the snapshot.
//
// A Reader is not safe for concurrent use; concurrent readers each take their
// own Reader over the same shared snapshot.
type Reader struct {
	snap engine.SnapAccess

	// Statistics accumulates the reads this instance issued.
	Statistics Statistics
}

func NewReader(snap engine.SnapAccess) *Reader {
	return &Reader{snap: snap}
}

// getCommitByItem synthesizes a commit record from a write-family item when
// the item belongs to the transaction started at startTS. Write-family items
// are always puts or deletes; an empty value encodes a delete.
func getCommitByItem(item engine.Item, startTS uint64) (*TxnCommitRecord, error) {
	meta, err := engine.DecodeUserMeta(item.UserMeta())
	if err != nil {
		return nil, errors.Trace(err)
	}
	if meta.StartTS() != startTS {
		return nil, nil
	}
	value, err := item.Value()
	if err != nil {
		return nil, errors.Trace(err)
	}
	var write Write
	if len(value) > 0 {
		write = NewWrite(WriteKindPut, meta.StartTS(), append([]byte{}, value...))
	} else {
		write = NewWrite(WriteKindDelete, meta.StartTS(), nil)
	}
	return &TxnCommitRecord{CommitTS: meta.CommitTS(), Write: &write}, nil
}

// GetTxnCommitRecord finds the recorded outcome of the transaction started
// at startTS against key. It checks the newest write-family version first,
// then every retained version of the key, and finally the extra family,
// which records rollbacks and lock cleanups that left no committed write.
func (r *Reader) GetTxnCommitRecord(key Key, startTS uint64) (TxnCommitRecord, error) {
	rawKey, err := key.Raw()
	if err != nil {
		return TxnCommitRecord{}, err
	}

	// Fast path: the newest retained version usually belongs to the queried
	// transaction.
	item, err := r.snap.Get(engine.CfWrite, rawKey, 0)
	r.Statistics.Write.Get++
	if err != nil {
		return TxnCommitRecord{}, err
	}
	if item != nil && len(item.UserMeta()) > 0 {
		record, err := getCommitByItem(item, startTS)
		if err != nil {
			return TxnCommitRecord{}, err
		}
		if record != nil {
			r.Statistics.Write.Processed++
			return *record, nil
		}
	}

	// The commit may have been superseded by a newer write on the same key
	// but still be retained, so walk every version.
	iter := r.snap.NewIterator(engine.CfWrite, false, true)
	defer iter.Close()
	r.Statistics.Write.Seek++
	for iter.Seek(rawKey); iter.Valid(); iter.Next() {
		item := iter.Item()
		if !bytes.Equal(item.Key(), rawKey) {
			break
		}
		r.Statistics.Write.Next++
		record, err := getCommitByItem(item, startTS)
		if err != nil {
			return TxnCommitRecord{}, err
		}
		if record != nil {
			r.Statistics.Write.Processed++
			return *record, nil
		}
	}

	// No committed write. The transaction either rolled back or had its lock
	// cleaned up without a value write; both leave an extra-family record.
	extraKey := EncodeExtraTxnStatusKey(rawKey, startTS)
	item, err = r.snap.Get(engine.CfExtra, extraKey, 0)
	r.Statistics.Extra.Get++
	if err != nil {
		return TxnCommitRecord{}, err
	}
	if item == nil || item.ValueSize() == 0 {
		return TxnCommitRecord{}, nil
	}
	meta, err := engine.DecodeUserMeta(item.UserMeta())
	if err != nil {
		return TxnCommitRecord{}, errors.Trace(err)
	}
	r.Statistics.Extra.Processed++
	var write Write
	if meta.CommitTS() == 0 {
		write = NewWrite(WriteKindRollback, startTS, nil)
	} else {
		write = NewWrite(WriteKindLock, startTS, nil)
	}
	return TxnCommitRecord{CommitTS: meta.CommitTS(), Write: &write}, nil
}

// LoadLock returns the current lock on key, or nil when the key is unlocked.
func (r *Reader) LoadLock(key Key) (*Lock, error) {
	rawKey, err := key.Raw()
	if err != nil {
		return nil, err
	}
	item, err := r.snap.Get(engine.CfLock, rawKey, 0)
	r.Statistics.Lock.Get++
	if err != nil {
		return nil, err
	}
	if item == nil || item.ValueSize() == 0 {
		return nil, nil
	}
	value, err := item.Value()
	if err != nil {
		return nil, err
	}
	lock, err := ParseLock(value)
	if err != nil {
		return nil, err
	}
	r.Statistics.Lock.Processed++
	return lock, nil
}

// Get returns the value visible at ts, or nil when the key has no visible
// value (deleted or never written).
func (r *Reader) Get(key Key, ts uint64) ([]byte, error) {
	rawKey, err := key.Raw()
	if err != nil {
		return nil, err
	}
	item, err := r.snap.Get(engine.CfWrite, rawKey, ts)
	r.Statistics.Write.Get++
	if err != nil {
		return nil, err
	}
	if item == nil || item.ValueSize() == 0 {
		return nil, nil
	}
	value, err := item.Value()
	if err != nil {
		return nil, err
	}
	r.Statistics.Write.Processed++
	r.Statistics.Write.FlowBytes += uint64(len(value))
	return value, nil
}

// SeekWrite returns the write record visible at ts together with its commit
// timestamp. The engine has already resolved visibility; this only projects
// the item into a record.
func (r *Reader) SeekWrite(key Key, ts uint64) (*Write, uint64, error) {
	rawKey, err := key.Raw()
	if err != nil {
		return nil, 0, err
	}
	item, err := r.snap.Get(engine.CfWrite, rawKey, ts)
	r.Statistics.Write.Get++
	if err != nil {
		return nil, 0, err
	}
	if item == nil || len(item.UserMeta()) == 0 {
		return nil, 0, nil
	}
	meta, err := engine.DecodeUserMeta(item.UserMeta())
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	value, err := item.Value()
	if err != nil {
		return nil, 0, err
	}
	r.Statistics.Write.Processed++
	var write Write
	if len(value) == 0 {
		write = NewWrite(WriteKindDelete, meta.StartTS(), nil)
	} else {
		write = NewWrite(WriteKindPut, meta.StartTS(), append([]byte{}, value...))
	}
	return &write, meta.CommitTS(), nil
}

// GetWrite is SeekWrite with the commit timestamp discarded.
func (r *Reader) GetWrite(key Key, ts uint64) (*Write, error) {
	write, _, err := r.SeekWrite(key, ts)
	return write, err
}

// GetOldValue converts a write record previously returned by SeekWrite or
// GetWrite into the value the key held before that write. A Lock or Rollback
// record here is a contract breach: those kinds only ever come from the
// extra family, never from a write-family lookup.
func (r *Reader) GetOldValue(prevWrite *Write) OldValue {
	if prevWrite == nil || prevWrite.Kind == WriteKindDelete {
		return nil
	}
	if prevWrite.Kind != WriteKindPut {
		panic(fmt.Sprintf("mvcc: %s write record cannot reach old value derivation", prevWrite.Kind))
	}
	if prevWrite.ShortValue == nil {
		panic("mvcc: put write record carries no value")
	}
	return OldValue(prevWrite.ShortValue)
}

// ScanLocks collects locks in key order from start (or the first lock when
// start is nil) up to but excluding end (unbounded when end is nil),
// keeping those that satisfy filter. At most limit locks are returned;
// limit 0 means unlimited. The returned bool hints that more matching locks
// may remain past the last one returned.
func (r *Reader) ScanLocks(start, end Key, filter Filter, limit int) ([]KlPair, bool, error) {
	var rawEnd []byte
	if end != nil {
		raw, err := end.Raw()
		if err != nil {
			return nil, false, err
		}
		rawEnd = raw
	}
	iter := r.snap.NewIterator(engine.CfLock, false, false)
	defer iter.Close()
	r.Statistics.Lock.Seek++
	if start != nil {
		rawStart, err := start.Raw()
		if err != nil {
			return nil, false, err
		}
		iter.Seek(rawStart)
	} else {
		iter.Rewind()
	}

	var locks []KlPair
	for ; iter.Valid(); iter.Next() {
		item := iter.Item()
		rawKey := item.Key()
		if rawEnd != nil && bytes.Compare(rawKey, rawEnd) >= 0 {
			return locks, false, nil
		}
		r.Statistics.Lock.Next++
		value, err := item.Value()
		if err != nil {
			return nil, false, err
		}
		lock, err := ParseLock(value)
		if err != nil {
			return nil, false, err
		}
		if filter(lock) {
			r.Statistics.Lock.Processed++
			locks = append(locks, KlPair{Key: FromRaw(rawKey), Lock: lock})
			if limit > 0 && len(locks) == limit {
				return locks, true, nil
			}
		}
	}
	return locks, false, nil
}

// BatchGet resolves the visible value for each key at ts against the same
// snapshot. Failures are reported per key.
func (r *Reader) BatchGet(keys []Key, ts uint64) []Pair {
	pairs := make([]Pair, 0, len(keys))
	for _, key := range keys {
		value, err := r.Get(key, ts)
		pairs = append(pairs, Pair{Key: key, Value: value, Err: err})
	}
	return pairs
}

// Pair is one key's outcome from a BatchGet.
type Pair struct {
	Key   Key
	Value []byte
	Err   error
}

package mvcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/cloudkv/kv/engine"
)

func commit(t *testing.T, db *engine.MemEngine, key, value []byte, startTS, commitTS uint64) {
	wb := new(engine.WriteBatch)
	wb.SetWithMeta(engine.CfWrite, key, value, engine.NewUserMeta(startTS, commitTS))
	require.NoError(t, db.Write(wb))
}

func putExtra(t *testing.T, db *engine.MemEngine, key []byte, startTS, commitTS uint64) {
	wb := new(engine.WriteBatch)
	wb.SetWithMeta(engine.CfExtra, EncodeExtraTxnStatusKey(key, startTS), []byte{1}, engine.NewUserMeta(startTS, commitTS))
	require.NoError(t, db.Write(wb))
}

func putLock(t *testing.T, db *engine.MemEngine, key []byte, lock *Lock) {
	wb := new(engine.WriteBatch)
	wb.SetCF(engine.CfLock, key, lock.ToBytes())
	require.NoError(t, db.Write(wb))
}

func newReader(db *engine.MemEngine) *Reader {
	return NewReader(db.NewSnapshot())
}

func TestGetTxnCommitRecordFastPath(t *testing.T) {
	db := engine.NewMem()
	commit(t, db, []byte("a"), []byte("x"), 5, 10)
	r := newReader(db)

	rec, err := r.GetTxnCommitRecord(FromRaw([]byte("a")), 5)
	require.NoError(t, err)
	require.True(t, rec.Found())
	assert.Equal(t, uint64(10), rec.CommitTS)
	assert.Equal(t, WriteKindPut, rec.Write.Kind)
	assert.Equal(t, uint64(5), rec.Write.StartTS)
	assert.Equal(t, []byte("x"), rec.Write.ShortValue)
	assert.Nil(t, rec.Overlapped)

	rec, err = r.GetTxnCommitRecord(FromRaw([]byte("a")), 7)
	require.NoError(t, err)
	assert.False(t, rec.Found())
}

func TestGetTxnCommitRecordSupersededVersion(t *testing.T) {
	db := engine.NewMem()
	commit(t, db, []byte("a"), []byte("x"), 5, 10)
	commit(t, db, []byte("a"), []byte("y"), 15, 20)
	commit(t, db, []byte("ab"), []byte("z"), 5, 10)
	r := newReader(db)

	// The newest version belongs to txn 15, so txn 5 is only reachable via
	// the retained-version scan.
	rec, err := r.GetTxnCommitRecord(FromRaw([]byte("a")), 5)
	require.NoError(t, err)
	require.True(t, rec.Found())
	assert.Equal(t, uint64(10), rec.CommitTS)
	assert.Equal(t, []byte("x"), rec.Write.ShortValue)

	rec, err = r.GetTxnCommitRecord(FromRaw([]byte("a")), 15)
	require.NoError(t, err)
	require.True(t, rec.Found())
	assert.Equal(t, uint64(20), rec.CommitTS)

	// The scan must not leak into the adjacent key.
	rec, err = r.GetTxnCommitRecord(FromRaw([]byte("a")), 99)
	require.NoError(t, err)
	assert.False(t, rec.Found())
}

func TestGetTxnCommitRecordDelete(t *testing.T) {
	db := engine.NewMem()
	commit(t, db, []byte("a"), nil, 5, 10)
	r := newReader(db)

	rec, err := r.GetTxnCommitRecord(FromRaw([]byte("a")), 5)
	require.NoError(t, err)
	require.True(t, rec.Found())
	assert.Equal(t, WriteKindDelete, rec.Write.Kind)
	assert.Nil(t, rec.Write.ShortValue)
}

func TestGetTxnCommitRecordRollback(t *testing.T) {
	db := engine.NewMem()
	putExtra(t, db, []byte("a"), 5, 0)
	r := newReader(db)

	rec, err := r.GetTxnCommitRecord(FromRaw([]byte("a")), 5)
	require.NoError(t, err)
	require.True(t, rec.Found())
	assert.Equal(t, uint64(0), rec.CommitTS)
	assert.Equal(t, WriteKindRollback, rec.Write.Kind)
	assert.Equal(t, uint64(5), rec.Write.StartTS)
}

func TestGetTxnCommitRecordLockCleanup(t *testing.T) {
	db := engine.NewMem()
	putExtra(t, db, []byte("a"), 5, 9)
	r := newReader(db)

	rec, err := r.GetTxnCommitRecord(FromRaw([]byte("a")), 5)
	require.NoError(t, err)
	require.True(t, rec.Found())
	assert.Equal(t, uint64(9), rec.CommitTS)
	assert.Equal(t, WriteKindLock, rec.Write.Kind)
}

func TestGetTxnCommitRecordIdempotent(t *testing.T) {
	db := engine.NewMem()
	commit(t, db, []byte("a"), []byte("x"), 5, 10)
	putExtra(t, db, []byte("b"), 7, 0)
	r := newReader(db)

	for _, query := range []struct {
		key     []byte
		startTS uint64
	}{{[]byte("a"), 5}, {[]byte("b"), 7}, {[]byte("c"), 9}} {
		first, err := r.GetTxnCommitRecord(FromRaw(query.key), query.startTS)
		require.NoError(t, err)
		second, err := r.GetTxnCommitRecord(FromRaw(query.key), query.startTS)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestLoadLock(t *testing.T) {
	db := engine.NewMem()
	r := newReader(db)
	lock, err := r.LoadLock(FromRaw([]byte("a")))
	require.NoError(t, err)
	assert.Nil(t, lock)

	putLock(t, db, []byte("a"), &Lock{Primary: []byte("a"), Ts: 5, Ttl: 1000, Kind: WriteKindPut})
	lock, err = r.LoadLock(FromRaw([]byte("a")))
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.Equal(t, []byte("a"), lock.Primary)
	assert.Equal(t, uint64(5), lock.Ts)
	assert.Equal(t, uint64(1000), lock.Ttl)
	assert.Equal(t, WriteKindPut, lock.Kind)
}

func TestLoadLockCorrupt(t *testing.T) {
	db := engine.NewMem()
	wb := new(engine.WriteBatch)
	wb.SetCF(engine.CfLock, []byte("a"), []byte("short"))
	require.NoError(t, db.Write(wb))
	r := newReader(db)

	_, err := r.LoadLock(FromRaw([]byte("a")))
	assert.Error(t, err)
}

func TestGetVisibility(t *testing.T) {
	db := engine.NewMem()
	commit(t, db, []byte("a"), []byte("x"), 5, 10)
	commit(t, db, []byte("a"), []byte("y"), 15, 20)
	commit(t, db, []byte("a"), nil, 25, 30)
	r := newReader(db)

	for _, tt := range []struct {
		ts       uint64
		expected []byte
	}{
		{9, nil},
		{10, []byte("x")},
		{15, []byte("x")},
		{20, []byte("y")},
		{29, []byte("y")},
		{30, nil},
		{100, nil},
	} {
		value, err := r.Get(FromRaw([]byte("a")), tt.ts)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, value, "ts=%d", tt.ts)
	}
}

func TestSeekWriteAgreesWithGetWrite(t *testing.T) {
	db := engine.NewMem()
	commit(t, db, []byte("a"), []byte("x"), 5, 10)
	commit(t, db, []byte("a"), nil, 25, 30)
	r := newReader(db)

	for _, ts := range []uint64{9, 10, 20, 30, 50} {
		seeked, commitTS, err := r.SeekWrite(FromRaw([]byte("a")), ts)
		require.NoError(t, err)
		got, err := r.GetWrite(FromRaw([]byte("a")), ts)
		require.NoError(t, err)
		assert.Equal(t, seeked, got, "ts=%d", ts)
		if seeked != nil {
			assert.True(t, commitTS <= ts)
		}
	}

	write, commitTS, err := r.SeekWrite(FromRaw([]byte("a")), 10)
	require.NoError(t, err)
	require.NotNil(t, write)
	assert.Equal(t, uint64(10), commitTS)
	assert.Equal(t, WriteKindPut, write.Kind)
	assert.Equal(t, uint64(5), write.StartTS)

	write, commitTS, err = r.SeekWrite(FromRaw([]byte("a")), 40)
	require.NoError(t, err)
	require.NotNil(t, write)
	assert.Equal(t, uint64(30), commitTS)
	assert.Equal(t, WriteKindDelete, write.Kind)
}

func TestGetOldValue(t *testing.T) {
	r := NewReader(engine.NewMem().NewSnapshot())

	assert.Nil(t, r.GetOldValue(nil))

	deleted := NewWrite(WriteKindDelete, 5, nil)
	assert.Nil(t, r.GetOldValue(&deleted))

	put := NewWrite(WriteKindPut, 5, []byte("x"))
	assert.Equal(t, OldValue("x"), r.GetOldValue(&put))

	rollback := NewWrite(WriteKindRollback, 5, nil)
	assert.Panics(t, func() { r.GetOldValue(&rollback) })
	locked := NewWrite(WriteKindLock, 5, nil)
	assert.Panics(t, func() { r.GetOldValue(&locked) })
	emptyPut := NewWrite(WriteKindPut, 5, nil)
	assert.Panics(t, func() { r.GetOldValue(&emptyPut) })
}

func acceptAll(*Lock) bool { return true }

func TestScanLocksBounds(t *testing.T) {
	db := engine.NewMem()
	for i, key := range []string{"a", "b", "c", "d"} {
		putLock(t, db, []byte(key), &Lock{Primary: []byte("a"), Ts: uint64(i + 1), Ttl: 10, Kind: WriteKindPut})
	}
	r := newReader(db)

	locks, more, err := r.ScanLocks(FromRaw([]byte("b")), FromRaw([]byte("d")), acceptAll, 0)
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, locks, 2)
	assert.Equal(t, FromRaw([]byte("b")), locks[0].Key)
	assert.Equal(t, FromRaw([]byte("c")), locks[1].Key)

	locks, more, err = r.ScanLocks(nil, nil, acceptAll, 0)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, locks, 4)
}

func TestScanLocksLimit(t *testing.T) {
	db := engine.NewMem()
	for _, key := range []string{"a", "b", "c"} {
		putLock(t, db, []byte(key), &Lock{Primary: []byte("a"), Ts: 1, Ttl: 10, Kind: WriteKindPut})
	}
	r := newReader(db)

	locks, more, err := r.ScanLocks(nil, nil, acceptAll, 2)
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, locks, 2)
	assert.Equal(t, FromRaw([]byte("a")), locks[0].Key)
	assert.Equal(t, FromRaw([]byte("b")), locks[1].Key)

	locks, more, err = r.ScanLocks(nil, nil, acceptAll, 5)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, locks, 3)
}

func TestScanLocksFilter(t *testing.T) {
	db := engine.NewMem()
	for i, key := range []string{"a", "b", "c", "d"} {
		putLock(t, db, []byte(key), &Lock{Primary: []byte("a"), Ts: uint64(i + 1), Ttl: 10, Kind: WriteKindPut})
	}
	r := newReader(db)

	locks, more, err := r.ScanLocks(nil, nil, func(lock *Lock) bool { return lock.IsBlocking(2) }, 0)
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, locks, 2)
	assert.Equal(t, uint64(1), locks[0].Lock.Ts)
	assert.Equal(t, uint64(2), locks[1].Lock.Ts)
}

func TestScanLocksEmptyRange(t *testing.T) {
	db := engine.NewMem()
	putLock(t, db, []byte("a"), &Lock{Primary: []byte("a"), Ts: 1, Ttl: 10, Kind: WriteKindPut})
	putLock(t, db, []byte("e"), &Lock{Primary: []byte("e"), Ts: 1, Ttl: 10, Kind: WriteKindPut})
	r := newReader(db)

	locks, more, err := r.ScanLocks(FromRaw([]byte("b")), FromRaw([]byte("d")), acceptAll, 0)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Empty(t, locks)
}

func TestBatchGet(t *testing.T) {
	db := engine.NewMem()
	commit(t, db, []byte("a"), []byte("x"), 5, 10)
	commit(t, db, []byte("b"), []byte("y"), 5, 10)
	r := newReader(db)

	pairs := r.BatchGet([]Key{FromRaw([]byte("a")), FromRaw([]byte("b")), FromRaw([]byte("c"))}, 20)
	require.Len(t, pairs, 3)
	assert.Equal(t, []byte("x"), pairs[0].Value)
	assert.Equal(t, []byte("y"), pairs[1].Value)
	assert.Nil(t, pairs[2].Value)
	for _, pair := range pairs {
		assert.NoError(t, pair.Err)
	}
}

func TestReaderRejectsMalformedKey(t *testing.T) {
	r := NewReader(engine.NewMem().NewSnapshot())
	bad := Key([]byte{1, 2, 3})

	_, err := r.GetTxnCommitRecord(bad, 5)
	assert.Error(t, err)
	_, err = r.LoadLock(bad)
	assert.Error(t, err)
	_, err = r.Get(bad, 5)
	assert.Error(t, err)
	_, _, err = r.SeekWrite(bad, 5)
	assert.Error(t, err)
	_, _, err = r.ScanLocks(bad, nil, acceptAll, 0)
	assert.Error(t, err)
}

func TestStatisticsAccumulate(t *testing.T) {
	db := engine.NewMem()
	commit(t, db, []byte("a"), []byte("x"), 5, 10)
	putLock(t, db, []byte("a"), &Lock{Primary: []byte("a"), Ts: 5, Ttl: 10, Kind: WriteKindPut})
	r := newReader(db)

	_, err := r.Get(FromRaw([]byte("a")), 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Statistics.Write.Get)
	assert.Equal(t, uint64(1), r.Statistics.Write.FlowBytes)

	_, err = r.Get(FromRaw([]byte("a")), 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.Statistics.Write.Get)

	_, err = r.LoadLock(FromRaw([]byte("a")))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Statistics.Lock.Get)

	var total Statistics
	total.Add(&r.Statistics)
	total.Add(&r.Statistics)
	assert.Equal(t, uint64(4), total.Write.Get)
}

package mvcc

// TsMax is the largest possible timestamp.
const TsMax uint64 = ^uint64(0)

// WriteKind is what a write record did to its key.
type WriteKind byte

const (
	WriteKindPut    WriteKind = 'P'
	WriteKindDelete WriteKind = 'D'
	// WriteKindLock marks a transaction that locked the key and was cleaned
	// up after the fact without writing a value. WriteKindRollback marks a
	// rolled back transaction. Both are reconstructed from the extra family;
	// they are never stored in, nor returned from, the write family.
	WriteKindLock     WriteKind = 'L'
	WriteKindRollback WriteKind = 'R'
)

func (wk WriteKind) String() string {
	switch wk {
	case WriteKindPut:
		return "PUT"
	case WriteKindDelete:
		return "DELETE"
	case WriteKindLock:
		return "LOCK"
	case WriteKindRollback:
		return "ROLLBACK"
	}
	return "UNKNOWN"
}

// Write is the logical record of one committed mutation or transaction-status
// marker against one key. ShortValue is set only for puts.
type Write struct {
	StartTS    uint64
	Kind       WriteKind
	ShortValue []byte
}

// NewWrite creates a write record.
func NewWrite(kind WriteKind, startTS uint64, shortValue []byte) Write {
	return Write{StartTS: startTS, Kind: kind, ShortValue: shortValue}
}

// OldValue is the value a key held just before a given write. Nil means the
// key had no value at that point: it was never written, or the prior write
// was a delete. It is derived for change-feed consumers, never stored.
type OldValue []byte

// TxnCommitRecord is the recorded outcome of one transaction against one
// key. A nil Write means the snapshot holds no trace of the transaction.
type TxnCommitRecord struct {
	CommitTS uint64
	Write    *Write
	// Overlapped is a newer committed write on the same key, for callers
	// that distinguish "no trace" from "overwritten". The reader keeps the
	// field in the result shape but never populates it.
	Overlapped *OverlappedWrite
}

// OverlappedWrite is a committed write paired with its commit timestamp.
type OverlappedWrite struct {
	CommitTS uint64
	Write    Write
}

// Found reports whether a commit record for the transaction exists.
func (rec TxnCommitRecord) Found() bool {
	return rec.Write != nil
}

package mvcc

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// Lock marks a key as reserved by an in-flight transaction.
type Lock struct {
	Primary []byte
	Ts      uint64
	Ttl     uint64
	Kind    WriteKind
}

// KlPair is a key with the lock currently held on it.
type KlPair struct {
	Key  Key
	Lock *Lock
}

// Filter decides whether a decoded lock is of interest to a scan.
type Filter func(*Lock) bool

// ToBytes serializes a lock as primary | kind | ts | ttl.
func (lock *Lock) ToBytes() []byte {
	buf := append(lock.Primary, byte(lock.Kind))
	buf = append(buf, make([]byte, 16)...)
	binary.BigEndian.PutUint64(buf[len(lock.Primary)+1:], lock.Ts)
	binary.BigEndian.PutUint64(buf[len(lock.Primary)+9:], lock.Ttl)
	return buf
}

// ParseLock attempts to parse a byte string into a Lock object. A failure
// means the lock family holds corrupt bytes and is never swallowed.
func ParseLock(input []byte) (*Lock, error) {
	if len(input) <= 16 {
		return nil, errors.Errorf("mvcc: error parsing lock, not enough input, found %d bytes", len(input))
	}

	primaryLen := len(input) - 17
	// The input may be an iterator-owned buffer, so the primary is copied.
	primary := append([]byte{}, input[:primaryLen]...)
	kind := WriteKind(input[primaryLen])
	ts := binary.BigEndian.Uint64(input[primaryLen+1:])
	ttl := binary.BigEndian.Uint64(input[primaryLen+9:])

	return &Lock{Primary: primary, Ts: ts, Ttl: ttl, Kind: kind}, nil
}

// IsBlocking reports whether the lock blocks a reader or writer operating at
// ts: the lock was taken by a transaction that started no later than ts.
func (lock *Lock) IsBlocking(ts uint64) bool {
	return lock.Ts <= ts
}

package mvcc

import (
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/cloudkv/kv/util/codec"
)

// Key is a user key as carried in requests: the raw key in memcomparable
// encoded form, so that encoded keys sort the same way as raw keys.
type Key []byte

// FromRaw encodes a raw key.
func FromRaw(raw []byte) Key {
	return Key(codec.EncodeBytes(raw))
}

// Raw decodes the key back to its raw byte form. It fails if the key is not
// a well-formed encoding, which aborts whatever operation needed it.
func (k Key) Raw() ([]byte, error) {
	left, raw, err := codec.DecodeBytes(k)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(left) != 0 {
		return nil, errors.Errorf("key %q carries %d trailing bytes", []byte(k), len(left))
	}
	return raw, nil
}

// EncodeExtraTxnStatusKey builds the extra-family key for a transaction
// status record: the raw key followed by the startTS encoded descending.
// Distinct (key, startTS) pairs always map to distinct encoded keys.
func EncodeExtraTxnStatusKey(key []byte, startTS uint64) []byte {
	buf := append([]byte{}, key...)
	return codec.EncodeUintDesc(buf, startTS)
}

// DecodeExtraTxnStatusKey splits an extra-family key back into the raw key
// and startTS.
func DecodeExtraTxnStatusKey(extraKey []byte) ([]byte, uint64, error) {
	if len(extraKey) < 8 {
		return nil, 0, errors.Errorf("extra txn status key too short, found %d bytes", len(extraKey))
	}
	_, startTS, err := codec.DecodeUintDesc(extraKey[len(extraKey)-8:])
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	return extraKey[:len(extraKey)-8], startTS, nil
}

package engine

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// UserMeta is the fixed-size version metadata attached to a stored item:
// two little-endian uint64s, startTS then commitTS.
type UserMeta []byte

// UserMetaLen is the exact length of an encoded UserMeta.
const UserMetaLen = 16

var metaEndian = binary.LittleEndian

// NewUserMeta creates a UserMeta for the given transaction timestamps.
func NewUserMeta(startTS, commitTS uint64) UserMeta {
	m := make(UserMeta, UserMetaLen)
	metaEndian.PutUint64(m, startTS)
	metaEndian.PutUint64(m[8:], commitTS)
	return m
}

// DecodeUserMeta validates the length of a stored metadata blob.
func DecodeUserMeta(data []byte) (UserMeta, error) {
	if len(data) != UserMetaLen {
		return nil, errors.Errorf("user meta is incorrect length, expected %d, found %d", UserMetaLen, len(data))
	}
	return UserMeta(data), nil
}

// StartTS reads the startTS from the UserMeta.
func (m UserMeta) StartTS() uint64 {
	return metaEndian.Uint64(m[:8])
}

// CommitTS reads the commitTS from the UserMeta.
func (m UserMeta) CommitTS() uint64 {
	return metaEndian.Uint64(m[8:])
}

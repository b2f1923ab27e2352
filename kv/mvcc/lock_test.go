package mvcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockRoundTrip(t *testing.T) {
	lock := Lock{
		Primary: []byte{16},
		Ts:      100,
		Ttl:     100000,
		Kind:    WriteKindPut,
	}
	parsed, err := ParseLock(lock.ToBytes())
	require.NoError(t, err)
	assert.Equal(t, &lock, parsed)
}

func TestParseLockTooShort(t *testing.T) {
	_, err := ParseLock(nil)
	assert.Error(t, err)
	_, err = ParseLock(make([]byte, 16))
	assert.Error(t, err)
}

func TestLockIsBlocking(t *testing.T) {
	lock := Lock{Primary: []byte("p"), Ts: 10, Kind: WriteKindPut}
	assert.False(t, lock.IsBlocking(9))
	assert.True(t, lock.IsBlocking(10))
	assert.True(t, lock.IsBlocking(TsMax))
}

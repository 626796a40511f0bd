package plumbing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHashRoundTrip(t *testing.T) {
	h := NewHash(BLANK_BLOB)
	require.False(t, h.IsZero())
	assert.Equal(t, BLANK_BLOB, h.String())
	assert.Equal(t, BLANK_BLOB[:SHORT_HEX_SIZE], h.Short())
}

func TestHasherBlankBlob(t *testing.T) {
	h := NewHasher()
	assert.Equal(t, BLANK_BLOB, h.Sum().String())
}

func TestValidateHashHex(t *testing.T) {
	assert.True(t, ValidateHashHex(BLANK_BLOB))
	assert.True(t, ValidateHashHex(ZERO_OID))
	assert.False(t, ValidateHashHex(BLANK_BLOB[:HASH_HEX_SIZE-1]))
	assert.False(t, ValidateHashHex(strings.Replace(BLANK_BLOB, "a", "x", 1)))
}

func TestValidateHashPrefix(t *testing.T) {
	assert.True(t, ValidateHashPrefix("af13"))
	assert.True(t, ValidateHashPrefix(BLANK_BLOB))
	assert.False(t, ValidateHashPrefix("af1"))
	assert.False(t, ValidateHashPrefix("af1z"))
	assert.False(t, ValidateHashPrefix(BLANK_BLOB+"0"))
}

func TestNewHashEx(t *testing.T) {
	_, err := NewHashEx("af13")
	require.Error(t, err)
	oid, err := NewHashEx(BLANK_BLOB)
	require.NoError(t, err)
	assert.Equal(t, BLANK_BLOB, oid.String())
}

func TestAmbiguousObjectName(t *testing.T) {
	a := NewHash("1111111111111111111111111111111111111111111111111111111111111111")
	b := NewHash("1111211111111111111111111111111111111111111111111111111111111111")
	err := NewErrAmbiguousObjectName("1111", []Hash{a, b})
	require.True(t, IsErrAmbiguousObjectName(err))
	assert.Contains(t, err.Error(), a.Short())
	assert.Contains(t, err.Error(), b.Short())
	assert.Contains(t, err.Error(), "'1111'")
}

func TestNoSuchObject(t *testing.T) {
	err := NoSuchObject(NewHash(BLANK_BLOB))
	require.True(t, IsNoSuchObject(err))
	assert.Contains(t, err.Error(), BLANK_BLOB)
	assert.False(t, IsNoSuchObject(nil))

	err = NoSuchObjectName("af13")
	require.True(t, IsNoSuchObject(err))
	assert.Contains(t, err.Error(), "af13")
}

func TestRevNotFound(t *testing.T) {
	err := NewErrRevNotFound("unknown revision '%s'", "dev")
	require.True(t, IsErrRevNotFound(err))
	assert.False(t, IsErrRevNotFound(nil))
	assert.Equal(t, "unknown revision 'dev'", err.Error())
}

package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDEK() []byte {
	dek := make([]byte, 32)
	for i := range dek {
		dek[i] = byte(i)
	}
	return dek
}

func TestAccountNumberCodec_RoundTrip(t *testing.T) {
	codec, err := NewAccountNumberCodec(testDEK())
	require.NoError(t, err)

	ciphertext, fingerprint, err := codec.Encode("PL61109010140000071219812874")
	require.NoError(t, err)
	assert.NotEmpty(t, ciphertext)
	assert.Len(t, fingerprint, 32)

	plaintext, err := codec.Decode(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "PL61109010140000071219812874", plaintext)

	assert.True(t, codec.MatchesFingerprint("PL61109010140000071219812874", fingerprint))
	assert.False(t, codec.MatchesFingerprint("PL00000000000000000000000000", fingerprint))
}

func TestEncryptBytes_ProducesDistinctCiphertextPerCall(t *testing.T) {
	keys, err := DeriveKeys(testDEK())
	require.NoError(t, err)

	a, err := EncryptBytes(keys.EncKey, []byte("same plaintext"))
	require.NoError(t, err)
	b, err := EncryptBytes(keys.EncKey, []byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "random nonce must make repeated encryptions differ")
}

func TestDeriveKeys_DomainSeparation(t *testing.T) {
	keys, err := DeriveKeys(testDEK())
	require.NoError(t, err)
	assert.NotEqual(t, keys.EncKey, keys.MacKey)
}

package storage

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
    plain := []byte("%PDF-1.4 fake document body")
    enc, err := encryptGCM(plain, "hunter2")
    require.NoError(t, err)
    assert.Equal(t, outputMagic, string(enc[:8]))
    assert.NotContains(t, string(enc), "fake document")

    dec, err := decryptGCM(enc, "hunter2")
    require.NoError(t, err)
    assert.Equal(t, plain, dec)
}

func TestDecryptWrongPassword(t *testing.T) {
    enc, err := encryptGCM([]byte("secret"), "right")
    require.NoError(t, err)

    _, err = decryptGCM(enc, "wrong")
    require.Error(t, err)
}

func TestDecryptTruncated(t *testing.T) {
    _, err := decryptGCM([]byte(outputMagic), "pw")
    require.Error(t, err)
}

func TestEncryptUniquePerCall(t *testing.T) {
    // fresh salt and nonce every time
    a, err := encryptGCM([]byte("same input"), "pw")
    require.NoError(t, err)
    b, err := encryptGCM([]byte("same input"), "pw")
    require.NoError(t, err)
    assert.NotEqual(t, a, b)
}

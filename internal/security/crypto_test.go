package security

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"pakaudio/pkg/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := PackKey("secret")
	require.Len(t, key, 32)

	sealed, err := Encrypt([]byte("opus payload"), key)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "opus payload")

	plain, err := Decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "opus payload", string(plain))

	_, err = Decrypt(sealed, PackKey("wrong"))
	require.Error(t, err)

	_, err = Decrypt([]byte{1, 2}, key)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_, err = Decrypt(sealed[:spec.NonceSize+4], key)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// Nonce, ciphertext and tag.
	assert.Len(t, sealed, spec.NonceSize+len("opus payload")+16)
}

func TestKeyLocker(t *testing.T) {
	dir := t.TempDir()
	pak := filepath.Join(dir, "bgm.pak")

	require.NoError(t, CreateKeyLocker(pak, "hunter2"))
	assert.Equal(t, filepath.Join(dir, "bgm_keys.dat"), LockerPath(pak))

	pass, err := UnlockKeyLocker(LockerPath(pak))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pass)

	bad := filepath.Join(dir, "bad_keys.dat")
	require.NoError(t, os.WriteFile(bad, []byte("garbage!"), 0o644))
	_, err = UnlockKeyLocker(bad)
	require.ErrorIs(t, err, ErrBadLocker)
}

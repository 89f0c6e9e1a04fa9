package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"pakaudio/pkg/spec"

	"golang.org/x/crypto/pbkdf2"
)

var ErrBadLocker = errors.New("not a valid pack key locker")

// DeriveKey returns a 32-byte key for password and salt.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, 4096, 32, sha256.New)
}

// PackKey is the entry key for a sealed pack.
func PackKey(password string) []byte {
	return DeriveKey(password, []byte(spec.Salt))
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, spec.NonceSize)
}

// Encrypt seals data with AES-GCM under a random nonce, prepended to the result.
func Encrypt(data []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, spec.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Decrypt opens data produced by Encrypt.
func Decrypt(data []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < spec.NonceSize+gcm.Overhead() {
		return nil, io.ErrUnexpectedEOF
	}
	nonce, ciphertext := data[:spec.NonceSize], data[spec.NonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// LockerPath is where the key locker for packPath lives (bgm.pak -> bgm_keys.dat).
func LockerPath(packPath string) string {
	return strings.TrimSuffix(packPath, spec.PackExt) + "_keys.dat"
}

// CreateKeyLocker writes the pack password, sealed with the master key, next to the pack.
func CreateKeyLocker(packPath, password string) error {
	sealed, err := Encrypt([]byte(password), DeriveKey(spec.MasterKey, []byte(spec.Salt)))
	if err != nil {
		return err
	}
	data := append([]byte(spec.LockerMagic), sealed...)
	return os.WriteFile(LockerPath(packPath), data, 0o644)
}

// UnlockKeyLocker reads a locker written by CreateKeyLocker and returns the password.
func UnlockKeyLocker(lockerPath string) (string, error) {
	data, err := os.ReadFile(lockerPath)
	if err != nil {
		return "", err
	}
	return OpenKeyLocker(data)
}

// OpenKeyLocker decodes locker bytes (for lockers that live in an fs.FS).
func OpenKeyLocker(data []byte) (string, error) {
	n := len(spec.LockerMagic)
	if len(data) < n || string(data[:n]) != spec.LockerMagic {
		return "", ErrBadLocker
	}
	dec, err := Decrypt(data[n:], DeriveKey(spec.MasterKey, []byte(spec.Salt)))
	if err != nil {
		return "", fmt.Errorf("opening key locker: %w", err)
	}
	return string(dec), nil
}

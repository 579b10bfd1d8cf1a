package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 10_000
)

// deriveKey stretches the configured key string into a 32 byte AES key using
// the given salt, so short config values are still usable.
func deriveKey(keyStr string, salt []byte) []byte {
	return pbkdf2.Key([]byte(keyStr), salt, iterations, keySize, sha256.New)
}

// EncryptAES encrypts data with AES-256-GCM and returns salt+nonce+ciphertext.
func EncryptAES(keyStr string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "salt")
	}

	block, err := aes.NewCipher(deriveKey(keyStr, salt))
	if err != nil {
		return nil, errors.Wrap(err, "new cipher")
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "new gcm")
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "nonce")
	}

	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	return append(out, ciphertext...), nil
}

// DecryptAES decrypts data produced by EncryptAES.
func DecryptAES(keyStr string, data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, errors.New("cipher too short")
	}
	salt, rest := data[:saltSize], data[saltSize:]

	block, err := aes.NewCipher(deriveKey(keyStr, salt))
	if err != nil {
		return nil, errors.Wrap(err, "new cipher")
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "new gcm")
	}

	ns := aesgcm.NonceSize()
	if len(rest) < ns {
		return nil, errors.New("cipher too short")
	}
	nonce, ciphertext := rest[:ns], rest[ns:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}
	return plaintext, nil
}

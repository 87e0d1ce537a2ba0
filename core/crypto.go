package core

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

func cipherFor(secretKey string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(secretKey)) // AES-256
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt encrypts plaintext using AES-256-GCM keyed by secretKey.
// The result is URL-safe so it can be used in links.
func Encrypt(plaintext, secretKey string) (string, error) {
	gcm, err := cipherFor(secretKey)
	if err != nil {
		return "", errors.Wrap(err, "creating cipher")
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "generating nonce")
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a ciphertext produced by Encrypt.
func Decrypt(ciphertext, secretKey string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	gcm, err := cipherFor(secretKey)
	if err != nil {
		return "", errors.Wrap(err, "creating cipher")
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

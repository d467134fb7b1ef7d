package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrEncryption     = errors.New("encryption failed")
	ErrDecryption     = errors.New("decryption failed")
)

// Encryptor provides a generic interface for encryption/decryption
type Encryptor interface {
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

// NewSecretboxEncryptor creates an XSalsa20-Poly1305 encryptor from a 32-byte key.
func NewSecretboxEncryptor(key []byte) (Encryptor, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKeySize
	}
	e := &secretboxEncryptor{}
	copy(e.key[:], key)
	return e, nil
}

// NewSecretboxEncryptorHex decodes a hex key, the form it takes in config.
func NewSecretboxEncryptorHex(key string) (Encryptor, error) {
	raw, err := hex.DecodeString(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}
	return NewSecretboxEncryptor(raw)
}

type secretboxEncryptor struct {
	key [keySize]byte
}

// Encrypt returns nonce || sealed box.
func (s *secretboxEncryptor) Encrypt(data []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, ErrEncryption
	}
	return secretbox.Seal(nonce[:], data, &nonce, &s.key), nil
}

func (s *secretboxEncryptor) Decrypt(data []byte) ([]byte, error) {
	if len(data) < nonceSize+secretbox.Overhead {
		return nil, ErrDecryption
	}

	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plaintext, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

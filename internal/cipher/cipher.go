// Package cipher encrypts short text records under a user password. The
// output is a self-contained base64 string: salt and every other parameter
// needed for decryption travel inside it, and callers treat it as opaque.
package cipher

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// Scheme names accepted by New and the cipher_scheme config key.
const (
	SchemeOpenSSL  = "openssl"
	SchemeArgon2id = "argon2id"
)

var (
	// ErrEmptyPassword is returned when encrypting or decrypting without a password.
	ErrEmptyPassword = errors.New("cipher: empty password")
	// ErrMalformed is returned when a blob is not valid for any known scheme.
	ErrMalformed = errors.New("cipher: malformed ciphertext")
	// ErrWrongPassword is returned when authentication or padding fails on decrypt.
	ErrWrongPassword = errors.New("cipher: wrong password or corrupted data")
)

// Cipher encrypts and decrypts strings under a password.
type Cipher interface {
	Encrypt(plaintext, password string) (string, error)
	Decrypt(ciphertext, password string) (string, error)
}

// New returns the cipher for the named scheme. An empty name selects the
// OpenSSL-compatible scheme.
func New(scheme string) (Cipher, error) {
	switch scheme {
	case "", SchemeOpenSSL:
		return NewOpenSSL(rand.Reader), nil
	case SchemeArgon2id:
		return NewArgon2id(rand.Reader), nil
	default:
		return nil, fmt.Errorf("cipher: unknown scheme %q", scheme)
	}
}

// Decrypt detects the scheme of blob from its header and decrypts it.
func Decrypt(blob, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace([]byte(blob))))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	switch {
	case bytes.HasPrefix(raw, []byte(opensslMagic)):
		return NewOpenSSL(rand.Reader).decryptRaw(raw, password)
	case bytes.HasPrefix(raw, []byte(argonMagic)):
		return NewArgon2id(rand.Reader).decryptRaw(raw, password)
	default:
		return "", fmt.Errorf("%w: unrecognized header", ErrMalformed)
	}
}

// SchemeOf reports which scheme produced blob, or "" if unrecognized.
func SchemeOf(blob string) string {
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace([]byte(blob))))
	if err != nil {
		return ""
	}

	switch {
	case bytes.HasPrefix(raw, []byte(opensslMagic)):
		return SchemeOpenSSL
	case bytes.HasPrefix(raw, []byte(argonMagic)):
		return SchemeArgon2id
	default:
		return ""
	}
}

func readRandom(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("cipher: reading random bytes: %w", err)
	}

	return b, nil
}

package cipher

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Header layout: magic[4] || version[1] || salt[16] || nonce[24].
const (
	argonMagic    = "VOCA"
	argonVersion  = byte(1)
	argonSaltSize = 16
	argonKeySize  = chacha20poly1305.KeySize

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var argonHeaderSize = len(argonMagic) + 1 + argonSaltSize + chacha20poly1305.NonceSizeX

// Argon2id derives a key with argon2id and seals with XChaCha20-Poly1305.
// The header is authenticated as additional data.
type Argon2id struct {
	rand io.Reader
}

// NewArgon2id returns an argon2id cipher drawing salts and nonces from r.
func NewArgon2id(r io.Reader) *Argon2id {
	return &Argon2id{rand: r}
}

// Encrypt encrypts plaintext under password.
func (a *Argon2id) Encrypt(plaintext, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt, err := readRandom(a.rand, argonSaltSize)
	if err != nil {
		return "", err
	}

	nonce, err := readRandom(a.rand, chacha20poly1305.NonceSizeX)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(deriveArgonKey(password, salt))
	if err != nil {
		return "", fmt.Errorf("cipher: creating AEAD: %w", err)
	}

	header := make([]byte, 0, argonHeaderSize)
	header = append(header, argonMagic...)
	header = append(header, argonVersion)
	header = append(header, salt...)
	header = append(header, nonce...)

	sealed := aead.Seal(nil, nonce, []byte(plaintext), header)

	return base64.StdEncoding.EncodeToString(append(header, sealed...)), nil
}

// Decrypt reverses Encrypt.
func (a *Argon2id) Decrypt(ciphertext, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace([]byte(ciphertext))))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return a.decryptRaw(raw, password)
}

func (a *Argon2id) decryptRaw(raw []byte, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	if len(raw) < argonHeaderSize+chacha20poly1305.Overhead || !bytes.HasPrefix(raw, []byte(argonMagic)) {
		return "", fmt.Errorf("%w: short argon2id blob", ErrMalformed)
	}

	if v := raw[len(argonMagic)]; v != argonVersion {
		return "", fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}

	saltStart := len(argonMagic) + 1
	salt := raw[saltStart : saltStart+argonSaltSize]
	nonce := raw[saltStart+argonSaltSize : argonHeaderSize]
	header := raw[:argonHeaderSize]

	aead, err := chacha20poly1305.NewX(deriveArgonKey(password, salt))
	if err != nil {
		return "", fmt.Errorf("cipher: creating AEAD: %w", err)
	}

	plain, err := aead.Open(nil, nonce, raw[argonHeaderSize:], header)
	if err != nil {
		return "", ErrWrongPassword
	}

	return string(plain), nil
}

func deriveArgonKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeySize)
}

package cipher

import (
	"bytes"
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/md5" //nolint:gosec // EVP_BytesToKey is defined over MD5
	"encoding/base64"
	"fmt"
	"io"
)

const (
	opensslMagic    = "Salted__"
	opensslSaltSize = 8
	opensslKeySize  = 32
)

// OpenSSL implements the passphrase mode of `openssl enc -aes-256-cbc -md md5`,
// which is also what CryptoJS.AES.encrypt(text, passphrase) produces:
// base64("Salted__" || salt[8] || AES-256-CBC(PKCS#7)), key and IV derived
// with EVP_BytesToKey over MD5. Files written this way decrypt with stock
// OpenSSL and with existing browser tooling.
type OpenSSL struct {
	rand io.Reader
}

// NewOpenSSL returns an OpenSSL-compatible cipher drawing salts from r.
func NewOpenSSL(r io.Reader) *OpenSSL {
	return &OpenSSL{rand: r}
}

// Encrypt encrypts plaintext under password.
func (o *OpenSSL) Encrypt(plaintext, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt, err := readRandom(o.rand, opensslSaltSize)
	if err != nil {
		return "", err
	}

	key, iv := evpBytesToKey([]byte(password), salt, opensslKeySize, aes.BlockSize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher: creating AES block: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(opensslMagic)+opensslSaltSize+len(padded))
	copy(out, opensslMagic)
	copy(out[len(opensslMagic):], salt)

	gocipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(opensslMagic)+opensslSaltSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (o *OpenSSL) Decrypt(ciphertext, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace([]byte(ciphertext))))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return o.decryptRaw(raw, password)
}

func (o *OpenSSL) decryptRaw(raw []byte, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	header := len(opensslMagic) + opensslSaltSize
	if len(raw) < header+aes.BlockSize || !bytes.HasPrefix(raw, []byte(opensslMagic)) {
		return "", fmt.Errorf("%w: missing salt header", ErrMalformed)
	}

	body := raw[header:]
	if len(body)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrMalformed)
	}

	key, iv := evpBytesToKey([]byte(password), raw[len(opensslMagic):header], opensslKeySize, aes.BlockSize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher: creating AES block: %w", err)
	}

	plain := make([]byte, len(body))
	gocipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	unpadded, ok := pkcs7Unpad(plain, aes.BlockSize)
	if !ok {
		return "", ErrWrongPassword
	}

	return string(unpadded), nil
}

// evpBytesToKey is OpenSSL's EVP_BytesToKey with MD5 and one iteration:
// D_i = MD5(D_{i-1} || password || salt), concatenated until key+iv bytes.
func evpBytesToKey(password, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var (
		derived []byte
		prev    []byte
	)

	for len(derived) < keyLen+ivLen {
		h := md5.New() //nolint:gosec // required by the format
		h.Write(prev)
		h.Write(password)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}

	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}

	return data[:len(data)-n], true
}

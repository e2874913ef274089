package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// PasswordCipher reversibly encrypts passwords for storage. Encryption is
// deterministic for a given key and plaintext: login compares ciphertexts, so
// two Encrypt calls with the same input must agree (AES-ECB with PKCS#7
// padding, base64-encoded).
//
// Deterministic reversible encryption is a known weakness compared to salted
// one-way hashing. It is kept because the stored format and the
// ciphertext-comparison login check depend on it.
type PasswordCipher struct {
	block cipher.Block
}

// NewPasswordCipher derives a 256-bit AES key from the configured secret via
// HKDF-SHA256, so secrets of any length are accepted.
func NewPasswordCipher(secret string) (*PasswordCipher, error) {
	if secret == "" {
		return nil, errors.New("cipher key must not be empty")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("password-cipher"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &PasswordCipher{block: block}, nil
}

// Encrypt returns the base64 ciphertext of the plaintext password.
func (c *PasswordCipher) Encrypt(plain string) (string, error) {
	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		c.block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *PasswordCipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", errors.New("ciphertext is not a multiple of the block size")
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += aes.BlockSize {
		c.block.Decrypt(out[i:i+aes.BlockSize], data[i:i+aes.BlockSize])
	}
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) (string, error) {
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return "", errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return "", errors.New("invalid padding")
		}
	}
	return string(data[:len(data)-padding]), nil
}

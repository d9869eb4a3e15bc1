package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
)

const pbkdf2Iterations = 100_000

// deriveKey turns the operator-supplied ENCRYPTION_KEY passphrase into a
// 32-byte AES-256 key, since unlike a raw-bytes-as-key approach
// an operator-typed passphrase rarely happens to be exactly 16/24/32 bytes.
func deriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte("verifyd-enrichment-credentials"), pbkdf2Iterations, 32, sha3.New256)
}

// Encrypt protects an enrichment-provider API key at rest.
func (c *Config) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	block, err := aes.NewCipher(deriveKey(c.EncryptionKey))
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(plaintext))

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// decryptEnrichmentKeys resolves *_API_KEY_ENCRYPTED environment overrides,
// so an operator can store enrichment-provider credentials at rest instead
// of as plaintext env vars. The plaintext *_API_KEY vars still win if set.
func (c *Config) decryptEnrichmentKeys() error {
	if cheap := getEnv("ENRICHMENT_CHEAP_API_KEY_ENCRYPTED", ""); cheap != "" && c.Enrichment.CheapAPIKey == "" {
		plain, err := c.Decrypt(cheap)
		if err != nil {
			return fmt.Errorf("decrypting ENRICHMENT_CHEAP_API_KEY_ENCRYPTED: %w", err)
		}
		c.Enrichment.CheapAPIKey = plain
	}
	if expensive := getEnv("ENRICHMENT_EXPENSIVE_API_KEY_ENCRYPTED", ""); expensive != "" && c.Enrichment.ExpensiveAPIKey == "" {
		plain, err := c.Decrypt(expensive)
		if err != nil {
			return fmt.Errorf("decrypting ENRICHMENT_EXPENSIVE_API_KEY_ENCRYPTED: %w", err)
		}
		c.Enrichment.ExpensiveAPIKey = plain
	}
	return nil
}

// Decrypt reverses Encrypt.
func (c *Config) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	block, err := aes.NewCipher(deriveKey(c.EncryptionKey))
	if err != nil {
		return "", err
	}

	decoded, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	if len(decoded) < aes.BlockSize {
		return "", errors.New("ciphertext too short")
	}

	iv := decoded[:aes.BlockSize]
	decoded = decoded[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(decoded, decoded)

	return string(decoded), nil
}

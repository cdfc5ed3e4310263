// Package security implements account-number-at-rest encryption: data
// encrypted with AES-256-GCM, per-purpose enc/mac keys derived from one
// data-encryption key via HKDF-SHA256, and a constant-time HMAC
// fingerprint for lookup without decryption.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12
)

// KeyPair holds the two keys derived from one data-encryption key via
// HKDF, domain-separated by info label so a leak of one never exposes the
// other.
type KeyPair struct {
	EncKey []byte
	MacKey []byte
}

// DeriveKeys runs HKDF-SHA256 over dek twice with distinct info labels,
// producing independent encryption and MAC keys.
func DeriveKeys(dek []byte) (KeyPair, error) {
	encKey, err := hkdfExpand(dek, []byte("enc"))
	if err != nil {
		return KeyPair{}, fmt.Errorf("derive enc key: %w", err)
	}
	macKey, err := hkdfExpand(dek, []byte("mac"))
	if err != nil {
		return KeyPair{}, fmt.Errorf("derive mac key: %w", err)
	}
	return KeyPair{EncKey: encKey, MacKey: macKey}, nil
}

func hkdfExpand(secret, info []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nil, info)
	out := make([]byte, keySize)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncryptBytes seals plaintext with AES-256-GCM under encKey, returning
// nonce||ciphertext.
func EncryptBytes(encKey, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// DecryptBytes opens nonce||ciphertext produced by EncryptBytes.
func DecryptBytes(encKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// Fingerprint produces a deterministic HMAC-SHA256 of plaintext under
// macKey, used as a globally-unique lookup key without decrypting the
// ciphertext.
func Fingerprint(macKey, plaintext []byte) []byte {
	mac := hmac.New(sha256.New, macKey)
	mac.Write(plaintext)
	return mac.Sum(nil)
}

// VerifyFingerprint constant-time compares a candidate fingerprint against
// one freshly computed from plaintext.
func VerifyFingerprint(macKey, plaintext, candidate []byte) bool {
	expected := Fingerprint(macKey, plaintext)
	return subtle.ConstantTimeCompare(expected, candidate) == 1
}

// AccountNumberCodec wraps an account number at rest: ciphertext for
// storage and retrieval, fingerprint for equality lookup.
type AccountNumberCodec struct {
	keys KeyPair
}

func NewAccountNumberCodec(dek []byte) (*AccountNumberCodec, error) {
	keys, err := DeriveKeys(dek)
	if err != nil {
		return nil, err
	}
	return &AccountNumberCodec{keys: keys}, nil
}

// Encode returns (ciphertext, fingerprint) for a plaintext account number.
func (c *AccountNumberCodec) Encode(accountNumber string) (ciphertext, fingerprint []byte, err error) {
	ciphertext, err = EncryptBytes(c.keys.EncKey, []byte(accountNumber))
	if err != nil {
		return nil, nil, err
	}
	fingerprint = Fingerprint(c.keys.MacKey, []byte(accountNumber))
	return ciphertext, fingerprint, nil
}

// Decode recovers the plaintext account number from its ciphertext.
func (c *AccountNumberCodec) Decode(ciphertext []byte) (string, error) {
	plaintext, err := DecryptBytes(c.keys.EncKey, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// MatchesFingerprint checks a candidate account number against a stored
// fingerprint without decrypting anything, using constant-time comparison.
func (c *AccountNumberCodec) MatchesFingerprint(accountNumber string, storedFingerprint []byte) bool {
	return VerifyFingerprint(c.keys.MacKey, []byte(accountNumber), storedFingerprint)
}

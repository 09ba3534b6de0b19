// Package vault encrypts credential fields with a Fernet key kept in the
// data directory.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fernet/fernet-go"
)

// KeyFile is the key file name inside the data directory.
const KeyFile = "key.key"

// ErrDecrypt is returned when a token was not produced by this key.
var ErrDecrypt = errors.New("failed to decrypt: token invalid or key mismatch")

// Cipher encrypts and decrypts strings with a single Fernet key.
type Cipher struct {
	key *fernet.Key
}

// Open loads the key from dir, generating and persisting a new one with
// owner-only permissions when none exists.
func Open(dir string) (*Cipher, error) {
	path := filepath.Join(dir, KeyFile)

	data, err := os.ReadFile(path)
	if err == nil {
		key, err := fernet.DecodeKey(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode key file %s: %w", path, err)
		}
		return &Cipher{key: key}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var key fernet.Key
	if err := key.Generate(); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key.Encode()), 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return &Cipher{key: &key}, nil
}

// Encrypt returns the Fernet token for plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return string(tok), nil
}

// Decrypt reverses Encrypt. Tokens never expire.
func (c *Cipher) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{c.key})
	if msg == nil {
		return "", ErrDecrypt
	}
	return string(msg), nil
}

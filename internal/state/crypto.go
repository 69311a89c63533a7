package state

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

const keyFileSize = 32

// Keeper seals and opens the persisted session with a key derived from a
// machine-local key file. The token never touches disk in the clear.
type Keeper struct {
	key []byte
}

// LoadKeeper reads the key file, creating it with fresh random material
// on first use. The file is written 0600 and its parent directory 0700.
func LoadKeeper(path string) (*Keeper, error) {
	material, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		material, err = createKeyFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading key file: %w", err)
	}
	if len(material) != keyFileSize {
		return nil, fmt.Errorf("key file %s: expected %d bytes, got %d", path, keyFileSize, len(material))
	}

	h := hkdf.New(sha256.New, material, nil, []byte("session-at-rest"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("deriving seal key: %w", err)
	}
	return &Keeper{key: key}, nil
}

// Seal encrypts plaintext with AES-GCM and returns nonce||ciphertext.
func (k *Keeper) Seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ct := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ct...), nil
}

// Open decrypts a blob produced by Seal.
func (k *Keeper) Open(blob []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	ns := gcm.NonceSize()
	if len(blob) < ns {
		return nil, errors.New("ciphertext too short")
	}
	return gcm.Open(nil, blob[:ns], blob[ns:], nil)
}

func createKeyFile(path string) ([]byte, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	material := make([]byte, keyFileSize)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, material, 0o600); err != nil {
		return nil, err
	}
	return material, nil
}

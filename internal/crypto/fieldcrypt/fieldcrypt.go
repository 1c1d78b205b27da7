// Package fieldcrypt encrypts individual record fields with a locally
// persisted process key.
//
// Tokens are self-describing: a version byte, the AEAD nonce and the
// authentication tag all travel inside a single base64url string, so a token
// can be stored wherever a plain string fits.
package fieldcrypt

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"acadkeeper/internal/errs"
)

// KeyLen is the size of the persisted symmetric key.
const KeyLen = chacha20poly1305.KeySize

// tokenVersion prefixes every ciphertext token.
const tokenVersion byte = 0x01

// Keeper owns the key file and caches the key after first use. Safe for
// concurrent use within one process; no cross-process coordination exists
// (single-process model).
type Keeper struct {
	keyPath string

	mu  sync.Mutex
	key []byte
}

// New returns a Keeper over the given key file path. The key is loaded (or
// generated) lazily on first use.
func New(keyPath string) *Keeper {
	return &Keeper{keyPath: keyPath}
}

// EnsureKey loads the persisted key, generating and persisting a fresh one
// when no key file exists yet. Idempotent.
func (k *Keeper) EnsureKey() ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ensureKeyLocked()
}

func (k *Keeper) ensureKeyLocked() ([]byte, error) {
	if k.key != nil {
		return k.key, nil
	}

	b, err := os.ReadFile(k.keyPath)
	switch {
	case err == nil:
		if len(b) != KeyLen {
			return nil, fmt.Errorf("key file %s: want %d bytes, got %d", k.keyPath, KeyLen, len(b))
		}
		k.key = b
		return k.key, nil
	case os.IsNotExist(err):
		// fall through to generation
	default:
		return nil, fmt.Errorf("read key file: %w", err)
	}

	b = make([]byte, KeyLen)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.WriteFile(k.keyPath, b, 0o600); err != nil {
		return nil, fmt.Errorf("persist key file: %w", err)
	}
	k.key = b
	return k.key, nil
}

// Encrypt seals plaintext under the process key and returns the token.
// First call may create the key file; everything else is pure.
func (k *Keeper) Encrypt(plaintext string) (string, error) {
	key, err := k.EnsureKey()
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, tokenVersion)
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, []byte(plaintext), nil)...)
	return base64.URLEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Tokens whose trailing base64 padding was lost in
// transit are re-padded before decoding. Every decode, version, length or
// authentication problem comes back as errs.ErrDecryptFailed; a raw parse
// error never escapes.
func (k *Keeper) Decrypt(token string) (string, error) {
	key, err := k.EnsureKey()
	if err != nil {
		return "", err
	}

	// Some storage paths strip trailing '=' characters.
	if n := len(token) % 4; n != 0 {
		token += strings.Repeat("=", 4-n)
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", errs.ErrDecryptFailed)
	}
	if len(data) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", fmt.Errorf("token too short: %w", errs.ErrDecryptFailed)
	}
	if data[0] != tokenVersion {
		return "", fmt.Errorf("unknown token version %#x: %w", data[0], errs.ErrDecryptFailed)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := data[1 : 1+chacha20poly1305.NonceSizeX]
	ct := data[1+chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("open token: %w", errs.ErrDecryptFailed)
	}
	return string(plaintext), nil
}

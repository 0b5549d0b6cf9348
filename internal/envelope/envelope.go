// Package envelope seals JSON values into opaque string tokens.
//
// The key is derived from a fixed application constant mixed with a string
// that identifies the execution environment, so a token copied to a
// materially different machine or account fails to open. This binds saved
// sessions loosely to where they were written; it is not a security
// boundary against someone who can read the environment string.
package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	appSecret     = "WP_DEPLOY_GEN_SECURE_"
	deriveContext = "wpdeploy 2026 session envelope v1"
)

var (
	// ErrMalformed means the token is not a well-formed envelope.
	ErrMalformed = errors.New("malformed token")
	// ErrDecrypt means authentication failed, usually a different
	// environment or a tampered token.
	ErrDecrypt = errors.New("decryption failed")
	// ErrNotJSON means the plaintext did not parse.
	ErrNotJSON = errors.New("decrypted payload is not JSON")
)

// Envelope seals and opens tokens under one derived key.
type Envelope struct {
	key [chacha20poly1305.KeySize]byte
}

// New derives the envelope key for an environment string.
func New(environment string) *Envelope {
	e := &Envelope{}
	blake3.DeriveKey(deriveContext, []byte(appSecret+environment), e.key[:])
	return e
}

// DefaultEnvironment describes the current host and account.
func DefaultEnvironment() string {
	host, _ := os.Hostname()
	name := ""
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return strings.Join([]string{host, runtime.GOOS, runtime.GOARCH, name}, "/")
}

// Seal serializes v to JSON and encrypts it.
func (e *Envelope) Seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}

	aead, err := chacha20poly1305.NewX(e.key[:])
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal decrypts a token and returns the JSON plaintext. Errors wrap one of
// ErrMalformed, ErrDecrypt or ErrNotJSON.
func (e *Envelope) Unseal(token string) (json.RawMessage, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	aead, err := chacha20poly1305.NewX(e.key[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	if !json.Valid(plaintext) {
		return nil, ErrNotJSON
	}
	return json.RawMessage(plaintext), nil
}

// Open is Unseal for callers that only care whether a value came back. It
// never fails; any problem yields nil.
func (e *Envelope) Open(token string) any {
	raw, err := e.Unseal(token)
	if err != nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// Package auth secures feature server connections with a shared key.
//
// A client opens the connection with Magic, a random nonce and an HMAC of
// that nonce under the derived key. The server answers "OK\x00" and its own
// nonce. Both sides then switch to an AEAD framed stream keyed by
// SessionKey.
package auth

import (
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/blake2b"
)

const (
	GeneratedKeyLength = 16
	Base62Chars        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	PBKDF2Iterations   = 100000
	PBKDF2Salt         = "featurec-key-v1"
	sessionLabel       = "featurec-session-v1"
)

// ErrUnauthorized is returned when a peer fails the handshake.
var ErrUnauthorized = errors.New("unauthorized")

// GenerateKey creates a random base62 key suitable as a server password.
func GenerateKey() (string, error) {
	raw := make([]byte, GeneratedKeyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	key := make([]byte, GeneratedKeyLength)
	for i, b := range raw {
		key[i] = Base62Chars[int(b)%len(Base62Chars)]
	}
	return string(key), nil
}

// DeriveKey stretches a password to 32 bytes with PBKDF2.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}
	return pbkdf2.Key(sha256.New, password, []byte(PBKDF2Salt), PBKDF2Iterations, 32)
}

// SessionKey mixes the derived key with both handshake nonces.
func SessionKey(key, serverNonce, clientNonce []byte) []byte {
	h, err := blake2b.New256(key)
	if err != nil {
		// keys longer than 64 bytes are hashed first
		sum := blake2b.Sum256(key)
		h, _ = blake2b.New256(sum[:])
	}
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionLabel))
	return h.Sum(nil)
}

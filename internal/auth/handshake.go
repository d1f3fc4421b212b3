package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Alia5/featurec/apitypes"
)

const (
	Magic     = "fcA1\x00"
	NonceSize = 32
	accepted  = "OK\x00"
	authLabel = "featurec-auth-v1"
)

func proof(key, clientNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authLabel))
	_, _ = mac.Write(clientNonce)
	return mac.Sum(nil)
}

func nonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return n, nil
}

// IsHandshake reports whether the next bytes in r are the handshake magic.
func IsHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(Magic))
	if err != nil {
		return false, err
	}
	return string(b) == Magic, nil
}

// Connect runs the client half of the handshake on conn and returns the
// encrypted connection. A server that rejects the key answers with a fault
// frame, which is returned as its typed error.
func Connect(conn net.Conn, key []byte) (net.Conn, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("handshake: missing key")
	}
	clientNonce, err := nonce()
	if err != nil {
		return nil, err
	}
	msg := append([]byte(Magic), clientNonce...)
	msg = append(msg, proof(key, clientNonce)...)
	if _, err := conn.Write(msg); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}

	r := bufio.NewReader(conn)
	status := make([]byte, len(accepted))
	if _, err := io.ReadFull(r, status); err != nil {
		return nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(status) != accepted {
		rest, _ := r.ReadString('\n')
		line := strings.TrimSpace(string(status) + rest)
		var f apitypes.Frame
		if err := json.Unmarshal([]byte(line), &f); err == nil && f.Fault != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, f.Fault.Err())
		}
		return nil, fmt.Errorf("%w: unexpected handshake response %q", ErrUnauthorized, line)
	}
	serverNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, fmt.Errorf("read server nonce: %w", err)
	}
	return wrap(&bufferedConn{Conn: conn, r: r}, SessionKey(key, serverNonce, clientNonce), true)
}

// Accept runs the server half of the handshake. r must read from conn; bytes
// it already buffered are kept for the encrypted stream.
func Accept(r *bufio.Reader, conn net.Conn, key []byte) (net.Conn, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("handshake: missing key")
	}
	head := make([]byte, len(Magic)+NonceSize+sha256.Size)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("%w: read handshake: %w", ErrUnauthorized, err)
	}
	if string(head[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("%w: missing handshake", ErrUnauthorized)
	}
	clientNonce := head[len(Magic) : len(Magic)+NonceSize]
	if !hmac.Equal(head[len(Magic)+NonceSize:], proof(key, clientNonce)) {
		return nil, fmt.Errorf("%w: invalid key", ErrUnauthorized)
	}

	serverNonce, err := nonce()
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append([]byte(accepted), serverNonce...)); err != nil {
		return nil, fmt.Errorf("write handshake response: %w", err)
	}
	return wrap(&bufferedConn{Conn: conn, r: r}, SessionKey(key, serverNonce, clientNonce), false)
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }

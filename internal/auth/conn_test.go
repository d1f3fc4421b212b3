package auth_test

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/featurec/internal/auth"
)

var sessionKey = []byte("0123456789abcdef0123456789abcdef")

func pipe(t *testing.T, clientKey, serverKey []byte) (client, server net.Conn) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() { _ = c.Close(); _ = s.Close() })
	client, err := auth.WrapConn(c, clientKey, true)
	require.NoError(t, err)
	server, err = auth.WrapConn(s, serverKey, false)
	require.NoError(t, err)
	return client, server
}

func TestConnRoundTrip(t *testing.T) {
	client, server := pipe(t, sessionKey, sessionKey)

	go func() { _, _ = client.Write([]byte("execute/a/b/c/v1/Command/Hi {}\x00")) }()
	buf := make([]byte, 64)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "execute/a/b/c/v1/Command/Hi {}\x00", string(buf[:n]))

	go func() { _, _ = server.Write([]byte("{\"kind\":\"result\"}\n")) }()
	n, err = client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "{\"kind\":\"result\"}\n", string(buf[:n]))
}

func TestConnPartialReads(t *testing.T) {
	client, server := pipe(t, sessionKey, sessionKey)
	go func() { _, _ = client.Write([]byte("abcdef")) }()

	got := make([]byte, 6)
	_, err := io.ReadFull(server, got[:2])
	require.NoError(t, err)
	_, err = io.ReadFull(server, got[2:])
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got))
}

func TestConnRejects(t *testing.T) {
	t.Run("differing keys", func(t *testing.T) {
		other := []byte("fedcba9876543210fedcba9876543210")
		client, server := pipe(t, sessionKey, other)
		go func() { _, _ = client.Write([]byte("x")) }()
		_, err := server.Read(make([]byte, 8))
		assert.EqualError(t, err, "chacha20poly1305: message authentication failed")
	})
	t.Run("reflected frame", func(t *testing.T) {
		c, s := net.Pipe()
		t.Cleanup(func() { _ = c.Close(); _ = s.Close() })
		// both ends believe they are the client
		a, err := auth.WrapConn(c, sessionKey, true)
		require.NoError(t, err)
		b, err := auth.WrapConn(s, sessionKey, true)
		require.NoError(t, err)
		go func() { _, _ = a.Write([]byte("x")) }()
		_, err = b.Read(make([]byte, 8))
		assert.Error(t, err)
	})
	t.Run("bad key length", func(t *testing.T) {
		c, _ := net.Pipe()
		_, err := auth.WrapConn(c, []byte("short"), true)
		assert.Error(t, err)
	})
}

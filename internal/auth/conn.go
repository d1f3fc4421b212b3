package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// maxPacketSize bounds a single sealed frame.
const maxPacketSize = 2 << 20

// Conn seals every Write into one length-prefixed frame:
// `len[4] nonce[12] ciphertext`. Nonces carry the sender direction and a
// counter so the two directions never share one.
type Conn struct {
	net.Conn
	aead cipher.AEAD

	wmu     sync.Mutex
	dir     byte
	sendCtr uint64

	rmu     sync.Mutex
	recvDir byte
	recvCtr uint64
	recvBuf bytes.Buffer
}

// WrapConn encrypts conn with sessionKey. Both peers must pass opposite
// values for client.
func WrapConn(conn net.Conn, sessionKey []byte, client bool) (net.Conn, error) {
	return wrap(conn, sessionKey, client)
}

func wrap(conn net.Conn, sessionKey []byte, client bool) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	c := &Conn{Conn: conn, aead: aead, dir: 's', recvDir: 'c'}
	if client {
		c.dir, c.recvDir = 'c', 's'
	}
	return c, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	nonce := make([]byte, chacha20poly1305.NonceSize)
	nonce[0] = c.dir
	binary.BigEndian.PutUint64(nonce[4:], c.sendCtr)
	c.sendCtr++

	ct := c.aead.Seal(nil, nonce, p, nil)
	frame := make([]byte, 4, 4+len(nonce)+len(ct))
	binary.BigEndian.PutUint32(frame, uint32(len(nonce)+len(ct)))
	frame = append(frame, nonce...)
	frame = append(frame, ct...)
	if _, err := c.Conn.Write(frame); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if c.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
			return 0, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length > maxPacketSize || length < chacha20poly1305.NonceSize {
			return 0, io.ErrUnexpectedEOF
		}
		pkt := make([]byte, length)
		if _, err := io.ReadFull(c.Conn, pkt); err != nil {
			return 0, err
		}
		nonce, ct := pkt[:chacha20poly1305.NonceSize], pkt[chacha20poly1305.NonceSize:]
		if nonce[0] != c.recvDir || binary.BigEndian.Uint64(nonce[4:]) != c.recvCtr {
			return 0, fmt.Errorf("auth: out of order frame")
		}
		pt, err := c.aead.Open(nil, nonce, ct, nil)
		if err != nil {
			return 0, err
		}
		c.recvCtr++
		c.recvBuf.Write(pt)
	}
	return c.recvBuf.Read(p)
}

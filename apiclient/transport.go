package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/Alia5/featurec/apitypes"
	"github.com/Alia5/featurec/internal/auth"
)

// Transport carries one request to a feature server and reads its frames.
// emit receives the data of every intermediate and value frame; the data of
// the final result frame is returned. A fault frame is returned as an
// apitypes.Fault error.
type Transport interface {
	Call(ctx context.Context, path string, env apitypes.Envelope, emit func(json.RawMessage)) (json.RawMessage, error)
}

// Config controls low-level transport behavior such as timeouts.
type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// ReadTimeout bounds a property read. Executions and subscriptions run
	// until their context ends.
	ReadTimeout time.Duration
	// Password enables the key handshake expected by a server started with
	// RequireKey.
	Password string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  5 * time.Second,
	}
}

// TCPTransport speaks the line protocol of apiserver.Server.
// Request framing: `<path> SP <envelope json> \x00`. The envelope may contain
// newlines because only \x00 ends the request.
// Response framing: one JSON frame per line, terminated by `\n`. The server
// closes the connection after the final frame. With Config.Password set the
// exchange runs inside the key handshake of package auth.
type TCPTransport struct {
	addr   string
	cfg    Config
	key    []byte
	keyErr error
}

// NewTransport creates a TCP transport with default timeouts.
func NewTransport(addr string) *TCPTransport { return NewTransportWithConfig(addr, nil) }

// NewTransportWithConfig creates a TCP transport with optional timeouts configuration.
func NewTransportWithConfig(addr string, cfg *Config) *TCPTransport {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	t := &TCPTransport{addr: addr, cfg: c}
	if c.Password != "" {
		t.key, t.keyErr = auth.DeriveKey(c.Password)
	}
	return t
}

func (t *TCPTransport) Call(ctx context.Context, path string, env apitypes.Envelope, emit func(json.RawMessage)) (json.RawMessage, error) {
	if t.keyErr != nil {
		return nil, fmt.Errorf("derive key: %w", t.keyErr)
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	stream := conn
	if t.key != nil {
		if t.cfg.DialTimeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(t.cfg.DialTimeout))
		}
		sc, err := auth.Connect(conn, t.key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("handshake: %w", err)
		}
		_ = conn.SetDeadline(time.Time{})
		stream = sc
	}
	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	line := append([]byte(path+" "), payload...)
	if _, err := stream.Write(append(line, '\x00')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	if verb, _, _ := apitypes.SplitPath(path); verb == apitypes.VerbRead && t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}

	data, err := ReadFrames(bufio.NewReader(stream), emit)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return data, err
}

// ReadFrames consumes frames from r until the final one.
func ReadFrames(r *bufio.Reader, emit func(json.RawMessage)) (json.RawMessage, error) {
	for {
		line, err := r.ReadBytes('\n')
		if len(strings.TrimSpace(string(line))) == 0 {
			if err == nil {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil, errors.New("read: connection closed before the final frame")
			}
			return nil, fmt.Errorf("read: %w", err)
		}
		var f apitypes.Frame
		if jerr := json.Unmarshal(line, &f); jerr != nil {
			return nil, fmt.Errorf("decode frame: %w", jerr)
		}
		switch f.Kind {
		case apitypes.FrameResult:
			return f.Data, nil
		case apitypes.FrameFault:
			if f.Fault == nil {
				return nil, apitypes.Fault{Kind: apitypes.FaultUndefined, Message: "empty fault"}
			}
			return nil, *f.Fault
		case apitypes.FrameIntermediate, apitypes.FrameValue:
			if emit != nil {
				emit(f.Data)
			}
		default:
			return nil, fmt.Errorf("decode frame: unknown kind %q", f.Kind)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("read: connection closed before the final frame")
			}
			return nil, fmt.Errorf("read: %w", err)
		}
	}
}

// MockTransport answers calls in-process. It is meant for tests and for
// wiring a client directly to an apiserver.Router.
type MockTransport struct {
	handler func(ctx context.Context, path string, env apitypes.Envelope, emit func(json.RawMessage)) (json.RawMessage, error)
}

// NewMockTransport creates a transport that hands every call to handler.
func NewMockTransport(handler func(ctx context.Context, path string, env apitypes.Envelope, emit func(json.RawMessage)) (json.RawMessage, error)) *MockTransport {
	return &MockTransport{handler: handler}
}

func (t *MockTransport) Call(ctx context.Context, path string, env apitypes.Envelope, emit func(json.RawMessage)) (json.RawMessage, error) {
	if emit == nil {
		emit = func(json.RawMessage) {}
	}
	return t.handler(ctx, path, env, emit)
}

package apiserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/featurec/apitypes"
	"github.com/Alia5/featurec/internal/auth"
)

var whitespace = regexp.MustCompile(`\s`)

// Server exposes a Router over TCP. Each connection carries one request:
// `<path> SP <envelope json> \x00`, answered by JSON frames, one per line.
type Server struct {
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	key    []byte
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server for router listening on addr.
func New(router *Router, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{addr: addr, logger: logger, router: router, ctx: ctx, cancel: cancel}
}

// Router returns the router so callers can register generated servers.
func (a *Server) Router() *Router { return a.router }

// Addr is the bound address once Start returned.
func (a *Server) Addr() string {
	if a.ln == nil {
		return a.addr
	}
	return a.ln.Addr().String()
}

// RequireKey makes every connection open with the key handshake of package
// auth. The rest of the exchange is encrypted with the session key.
func (a *Server) RequireKey(password string) error {
	key, err := auth.DeriveKey(password)
	if err != nil {
		return err
	}
	a.key = key
	return nil
}

// Start listens on the configured address and serves incoming requests.
func (a *Server) Start() error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.ln = ln
	a.logger.Info("feature server listening", "addr", a.Addr())
	go a.serve()
	return nil
}

// Close stops accepting connections, cancels running requests and waits
// for them to end.
func (a *Server) Close() {
	if a.ln != nil {
		_ = a.ln.Close()
	}
	a.cancel()
	a.wg.Wait()
}

func (a *Server) serve() {
	for {
		c, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				a.logger.Info("feature server stopped")
				return
			}
			a.logger.Info("accept error", "error", err)
			return
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.handleConn(c)
		}()
	}
}

type frameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (fw *frameWriter) write(f apitypes.Frame) {
	b, _ := json.Marshal(f)
	fw.mu.Lock()
	defer fw.mu.Unlock()
	_, _ = fw.w.Write(append(b, '\n'))
}

func (a *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(a.ctx)
	defer connCancel()
	stop := context.AfterFunc(connCtx, func() { _ = conn.Close() })
	defer stop()

	connLogger := a.logger.With("remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)
	stream := conn
	if a.key != nil {
		sc, err := a.accept(r, conn)
		if err != nil {
			connLogger.Warn("handshake rejected", "error", err)
			fw := &frameWriter{w: conn}
			fw.write(apitypes.Frame{Kind: apitypes.FrameFault, Fault: WrapError(errUnauthorized(err.Error()))})
			// Unread request bytes would turn the close into a reset that
			// can drop the fault frame.
			_ = conn.SetReadDeadline(time.Now().Add(time.Second))
			_, _ = io.Copy(io.Discard, r)
			return
		}
		stream = sc
		r = bufio.NewReader(sc)
	}
	w := &frameWriter{w: stream}
	fault := func(err error) { w.write(apitypes.Frame{Kind: apitypes.FrameFault, Fault: WrapError(err)}) }

	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("incomplete request (no null terminator)")
		} else {
			connLogger.Error("read request", "error", err)
		}
		return
	}
	reqData = strings.TrimSuffix(reqData, "\x00")

	var path, payload string
	if loc := whitespace.FindStringIndex(reqData); loc != nil {
		path, payload = reqData[:loc[0]], reqData[loc[1]:]
	} else {
		path = reqData
	}
	if path == "" {
		connLogger.Error("empty path")
		fault(errBadRequest("empty path"))
		return
	}
	var env apitypes.Envelope
	if strings.TrimSpace(payload) != "" {
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			fault(errBadRequest("malformed envelope: " + err.Error()))
			return
		}
	}

	// The client closing its end cancels long-running executions and
	// subscriptions.
	go func() {
		_, _ = io.Copy(io.Discard, r)
		connCancel()
	}()

	connLogger.Info("request", "path", path)
	kind := apitypes.FrameIntermediate
	if verb, _, _ := apitypes.SplitPath(path); verb == apitypes.VerbSubscribe {
		kind = apitypes.FrameValue
	}
	out, err := a.router.Dispatch(connCtx, path, env, func(data json.RawMessage) {
		w.write(apitypes.Frame{Kind: kind, Data: data})
	})
	if err != nil {
		if connCtx.Err() != nil {
			connLogger.Debug("request cancelled", "path", path)
			return
		}
		connLogger.Error("handler error", "path", path, "error", err)
		fault(err)
		return
	}
	connLogger.Debug("handler success", "path", path)
	w.write(apitypes.Frame{Kind: apitypes.FrameResult, Data: out})
}

func (a *Server) accept(r *bufio.Reader, conn net.Conn) (net.Conn, error) {
	ok, err := auth.IsHandshake(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return auth.Accept(r, conn, a.key)
}

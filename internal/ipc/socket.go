package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/fiberpath/bridge/internal/clog"
)

// maxRequestSize bounds one request line.
const maxRequestSize = 1 << 20

// SocketServer listens on a Unix socket and serves newline-delimited JSON
// requests through a Handler.
type SocketServer struct {
	socketPath string
	handler    *Handler
	log        clog.Tracer

	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex // protects listener, conns and shutdown state
}

// SocketServerOption configures a SocketServer.
type SocketServerOption func(*SocketServer)

// WithSocketLogger sets the connection logger.
func WithSocketLogger(l clog.Tracer) SocketServerOption {
	return func(s *SocketServer) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSocketServer creates a SocketServer bound to socketPath.
func NewSocketServer(socketPath string, handler *Handler, opts ...SocketServerOption) *SocketServer {
	s := &SocketServer{
		socketPath: socketPath,
		handler:    handler,
		log:        clog.Nop(),
		conns:      make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins listening on the Unix socket.
// It creates the parent directory if needed and sets socket permissions to 0600.
// Operations started through the server run under a context that Stop cancels.
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Remove a socket left behind by a crashed server
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return err
	}

	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.log.Info("socket server listening on %s", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop shuts down the socket server. It stops accepting connections,
// cancels running operations, closes open connections and waits for their
// handlers to return.
func (s *SocketServer) Stop() error {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return nil
	}

	s.cancel()
	err := s.listener.Close()
	for conn := range s.conns {
		conn.Close()
	}
	s.listener = nil
	s.mu.Unlock()

	s.wg.Wait()

	os.Remove(s.socketPath)
	s.log.Info("socket server stopped")

	return err
}

// SocketPath returns the path to the Unix socket.
func (s *SocketServer) SocketPath() string {
	return s.socketPath
}

func (s *SocketServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed: %v", err)
			continue
		}

		s.mu.Lock()
		if s.ctx.Err() != nil {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

// handleConnection reads request lines until the client hangs up. Each
// request runs on its own goroutine; responses are written whole, one per
// line, in completion order.
func (s *SocketServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	var (
		writeMu  sync.Mutex
		inFlight sync.WaitGroup
	)
	write := func(resp Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		s.writeResponse(conn, resp)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		inFlight.Add(1)
		go func() {
			defer inFlight.Done()
			write(s.handler.HandleRaw(s.ctx, line))
		}()
	}
	if err := scanner.Err(); err != nil && s.ctx.Err() == nil {
		s.log.Debug("connection read error: %v", err)
	}
	inFlight.Wait()
}

// writeResponse writes a JSON response line to the connection.
func (s *SocketServer) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response %s: %v", resp.ID, err)
		data, _ = json.Marshal(Response{ID: resp.ID, Error: &ErrorBody{Kind: "internal", Message: "failed to marshal response"}})
	}
	data = append(data, '\n')
	_, _ = conn.Write(data) // Ignore write error; connection may be closed
}

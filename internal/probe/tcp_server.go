package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/tevino/abool"

	"github.com/uzadmin/nettool/internal/config"
	"github.com/uzadmin/nettool/internal/metrics"
)

// TCPServer accepts one connection at a time, reads a single buffer
// from it, answers with the configured reply and closes it
type TCPServer struct {
	config   *config.Config
	logger   *log.Logger
	metrics  *metrics.Metrics
	listener net.Listener
	closed   *abool.AtomicBool

	// active is the connection being served, closed on stop
	active net.Conn
	mu     sync.Mutex
}

// NewTCPServer creates a new TCP server
func NewTCPServer(cfg *config.Config, logger *log.Logger) *TCPServer {
	return &TCPServer{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewMetrics(),
		closed:  abool.New(),
	}
}

// Listen binds the configured host on port
func (s *TCPServer) Listen(port int) error {
	listener, err := listenTCP(s.config.BindHost, port, s.config.TCPBacklog)
	if err != nil {
		return fmt.Errorf("failed to listen on TCP port %d: %w", port, err)
	}
	s.listener = listener

	s.logger.Printf("[TCP] Listening on %s ...", listener.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Metrics returns the server's interaction statistics
func (s *TCPServer) Metrics() *metrics.Metrics {
	return s.metrics
}

// Serve runs the accept loop until Close is called or ctx is done. It
// returns nil on a requested stop and the accept error otherwise.
func (s *TCPServer) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("tcp server is not listening")
	}
	release := watchContext(ctx, s)
	defer release()
	defer s.Close()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.IsSet() {
				logStats(s.logger, "[TCP]", s.metrics)
				return nil
			}
			return fmt.Errorf("failed to accept TCP connection: %w", err)
		}

		s.handleConn(conn)
	}
}

// Close stops the accept loop and drops the connection being served,
// if any. It is safe to call more than once.
func (s *TCPServer) Close() error {
	if s.listener == nil || !s.closed.SetToIf(false, true) {
		return nil
	}
	err := s.listener.Close()

	s.mu.Lock()
	if s.active != nil {
		s.active.Close()
	}
	s.mu.Unlock()

	return err
}

// track registers conn as the active connection. It returns false when
// the server is already closed.
func (s *TCPServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.IsSet() {
		return false
	}
	s.active = conn
	return true
}

func (s *TCPServer) untrack() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

func (s *TCPServer) handleConn(conn net.Conn) {
	startTime := time.Now()
	defer conn.Close()

	if !s.track(conn) {
		return
	}
	defer s.untrack()

	peer := conn.RemoteAddr()
	s.logger.Printf("[TCP] Connection from %s", peer)

	interaction := metrics.Interaction{Peer: peerHost(peer)}
	defer func() {
		interaction.ServiceTime = time.Since(startTime)
		s.metrics.Record(interaction)
	}()

	// One read: anything beyond the buffer is dropped with the connection
	buffer := make([]byte, s.config.BufferSize)
	n, err := conn.Read(buffer)
	interaction.BytesReceived = n
	if n == 0 {
		if s.closed.IsSet() {
			return
		}
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Printf("[TCP] Read from %s failed: %v", peer, err)
			interaction.Failed = true
		}
		return
	}

	s.logger.Printf("[TCP] Received: %s", decodeText(buffer[:n]))

	if _, err := conn.Write(s.config.Reply); err != nil {
		s.logger.Printf("[TCP] Reply to %s failed: %v", peer, err)
		interaction.Failed = true
		return
	}
	interaction.Replied = true
}

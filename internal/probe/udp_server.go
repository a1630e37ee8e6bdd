package probe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/tevino/abool"

	"github.com/uzadmin/nettool/internal/config"
	"github.com/uzadmin/nettool/internal/metrics"
	"github.com/uzadmin/nettool/internal/rtp"
)

// UDPServer answers every datagram it receives with the configured reply
type UDPServer struct {
	config  *config.Config
	logger  *log.Logger
	metrics *metrics.Metrics
	streams *rtp.StreamTracker
	conn    *net.UDPConn
	closed  *abool.AtomicBool
}

// NewUDPServer creates a new UDP server
func NewUDPServer(cfg *config.Config, logger *log.Logger) *UDPServer {
	return &UDPServer{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewMetrics(),
		streams: rtp.NewStreamTracker(),
		closed:  abool.New(),
	}
}

// Listen binds the configured host on port
func (s *UDPServer) Listen(port int) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(s.config.BindHost, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP port %d: %w", port, err)
	}
	s.conn = conn

	s.logger.Printf("[UDP] Listening on %s ...", conn.LocalAddr())
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *UDPServer) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Metrics returns the server's interaction statistics
func (s *UDPServer) Metrics() *metrics.Metrics {
	return s.metrics
}

// Streams returns the RTP streams seen by the server
func (s *UDPServer) Streams() *rtp.StreamTracker {
	return s.streams
}

// Serve runs the receive loop until Close is called or ctx is done. It
// returns nil on a requested stop and the receive error otherwise.
func (s *UDPServer) Serve(ctx context.Context) error {
	if s.conn == nil {
		return errors.New("udp server is not listening")
	}
	release := watchContext(ctx, s)
	defer release()
	defer s.Close()

	// Datagrams longer than the buffer are truncated by the kernel
	buffer := make([]byte, s.config.BufferSize)
	for {
		n, clientAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if s.closed.IsSet() {
				logStats(s.logger, "[UDP]", s.metrics)
				if streams := s.streams.Streams(); streams > 0 {
					s.logger.Printf("[UDP] RTP streams=%d missing=%d", streams, s.streams.Dropped())
				}
				return nil
			}
			return fmt.Errorf("failed to read UDP datagram: %w", err)
		}

		s.handleDatagram(buffer[:n], clientAddr)
	}
}

// Close stops the receive loop. It is safe to call more than once.
func (s *UDPServer) Close() error {
	if s.conn == nil || !s.closed.SetToIf(false, true) {
		return nil
	}
	return s.conn.Close()
}

func (s *UDPServer) handleDatagram(data []byte, clientAddr *net.UDPAddr) {
	startTime := time.Now()

	s.logger.Printf("[UDP] Received from %s: %s", clientAddr, decodeText(data))

	if info, ok := rtp.Inspect(data); ok {
		s.logger.Printf("[UDP] RTP packet from %s: %s", clientAddr, info)
		if dropped := s.streams.Track(info); dropped > 0 {
			s.logger.Printf("[UDP] RTP stream ssrc=%d: %d packets missing before seq=%d",
				info.SSRC, dropped, info.SequenceNumber)
		}
	}

	interaction := metrics.Interaction{
		Peer:          peerHost(clientAddr),
		BytesReceived: len(data),
	}
	if _, err := s.conn.WriteToUDP(s.config.Reply, clientAddr); err != nil {
		s.logger.Printf("[UDP] Reply to %s failed: %v", clientAddr, err)
		interaction.Failed = true
	} else {
		interaction.Replied = true
	}

	interaction.ServiceTime = time.Since(startTime)
	s.metrics.Record(interaction)
}
